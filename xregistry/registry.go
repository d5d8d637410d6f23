package xregistry

import (
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/exp/slices"

	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xprocessor"
	"github.com/xiaoshicae/xasset/xresource"
	"github.com/xiaoshicae/xasset/xutil"
)

// Registry 只读的处理器描述表，可并发查询
type Registry struct {
	descriptors map[string]Descriptor
}

var descriptorValidate = validator.New(validator.WithRequiredStructEnabled())

func checkDescriptor(d Descriptor) error {
	if err := descriptorValidate.Struct(d); err != nil {
		return xerror.New("xregistry", "register", err)
	}
	for _, k := range d.Kinds {
		if !k.Known() {
			return xerror.Newf("xregistry", "register", "processor [%s] declares unknown kind [%s]", d.Name, k)
		}
	}
	return nil
}

// NewRegistry 以给定描述创建注册表，名称重复或描述非法时返回错误
func NewRegistry(ds ...Descriptor) (*Registry, error) {
	r := &Registry{descriptors: make(map[string]Descriptor, len(ds))}
	for _, d := range ds {
		if err := checkDescriptor(d); err != nil {
			return nil, err
		}
		if _, ok := r.descriptors[d.Name]; ok {
			return nil, xerror.Newf("xregistry", "register", "processor [%s] registered twice", d.Name)
		}
		d.Kinds = slices.Clone(d.Kinds)
		r.descriptors[d.Name] = d
	}
	return r, nil
}

// Lookup 按名称查找描述
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.descriptors[name]
	return d, ok
}

// Supports 处理器是否支持资源类型，未知处理器或未知类型均返回false
func (r *Registry) Supports(name string, k xresource.Kind) bool {
	return r.Check(name, k) == nil
}

// Check 与 Supports 相同，但返回 UnsupportedType 错误说明原因
func (r *Registry) Check(name string, k xresource.Kind) error {
	if !k.Known() {
		return xerror.Errorf(xerror.UnsupportedType, "unknown resource kind [%s]", k)
	}
	d, ok := r.descriptors[name]
	if !ok {
		return xerror.Errorf(xerror.UnsupportedType, "unknown processor [%s]", name)
	}
	if !d.Supports(k) {
		return xerror.Errorf(xerror.UnsupportedType, "processor [%s] does not support kind [%s], supported=%v", name, k, d.Kinds)
	}
	return nil
}

// Names 全部处理器名称，按名称排序
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.descriptors))
	for n := range r.descriptors {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Select 支持资源类型 k 且属于类别 c 的处理器描述，按名称排序
func (r *Registry) Select(k xresource.Kind, c Category) []Descriptor {
	var res []Descriptor
	for _, n := range r.Names() {
		d := r.descriptors[n]
		if d.Category == c && d.Supports(k) {
			res = append(res, d)
		}
	}
	return res
}

// New 以配置创建处理器实例
func (r *Registry) New(name string, opts xprocessor.Options) (xprocessor.Processor, error) {
	d, ok := r.descriptors[name]
	if !ok {
		return nil, xerror.Errorf(xerror.UnsupportedType, "unknown processor [%s]", name)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return d.Factory(opts)
}

// NewFromConfig 以 XProcessor 配置与 overrides 合并后的配置创建处理器实例
func (r *Registry) NewFromConfig(name string, overrides map[string]any) (xprocessor.Processor, error) {
	opts, err := xprocessor.OptionsFor(name, overrides)
	if err != nil {
		return nil, err
	}
	return r.New(name, opts)
}

// ==================== 全局注册表 ====================

type table struct {
	mu      sync.Mutex
	pending []Descriptor
	sealed  *Registry
}

func (t *table) register(d Descriptor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed != nil {
		panic(xerror.Newf("xregistry", "register", "registry sealed, processor [%s] must register during init", d.Name))
	}
	if err := checkDescriptor(d); err != nil {
		panic(err)
	}
	t.pending = append(t.pending, d)
}

func (t *table) seal() *Registry {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed != nil {
		return t.sealed
	}
	r, err := NewRegistry(t.pending...)
	if err != nil {
		panic(err)
	}
	t.sealed, t.pending = r, nil
	xutil.InfoIfEnableDebug("XAsset xregistry sealed, processors=%v", r.Names())
	return r
}

var defaultTable = &table{}

// Register 向全局注册表登记处理器，需在包 init 中调用，封存后调用会 panic
func Register(d Descriptor) {
	defaultTable.register(d)
}

// Default 全局注册表，首次调用时封存
func Default() *Registry {
	return defaultTable.seal()
}
