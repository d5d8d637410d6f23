package xhook

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slices"

	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xutil"
)

const maxHooksPerPhase = 1000

// HookFunc 生命周期回调
type HookFunc func() error

type hook struct {
	fn   HookFunc
	opts *options
}

// phase 一个生命周期阶段的 hook 列表，按 order 稳定排序后执行
type phase struct {
	name   string
	mu     sync.Mutex
	hooks  []hook
	sorted bool
	seen   map[uintptr]struct{}
}

var (
	startPhase = &phase{name: "BeforeStart"}
	stopPhase  = &phase{name: "BeforeStop"}

	stopTimeoutMu sync.RWMutex
	stopTimeout   = 60 * time.Second
)

// BeforeStart 注册启动前 hook，同一函数重复注册会被忽略
func BeforeStart(f HookFunc, opts ...Option) {
	startPhase.add(f, opts)
}

// BeforeStop 注册停止前 hook
func BeforeStop(f HookFunc, opts ...Option) {
	stopPhase.add(f, opts)
}

// SetStopTimeout 所有 BeforeStop hook 的总等待时长
func SetStopTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	stopTimeoutMu.Lock()
	stopTimeout = d
	stopTimeoutMu.Unlock()
}

// InvokeBeforeStartHook 顺序执行启动 hook，MustInvokeSuccess 的 hook 失败时立即返回
func InvokeBeforeStartHook() error {
	for _, h := range startPhase.snapshot() {
		name := funcName(h.fn)
		err := call(h.fn, h.opts.timeout)
		switch {
		case err == nil:
			xutil.InfoIfEnableDebug("XAsset before start hook done, func=[%s]", name)
		case h.opts.mustSucceed:
			xutil.ErrorIfEnableDebug("XAsset before start hook failed, func=[%s], err=[%v]", name, err)
			return xerror.Newf("xhook", "BeforeStart", "func=[%s], err=[%v]", name, err)
		default:
			xutil.WarnIfEnableDebug("XAsset before start hook failed and ignored, func=[%s], err=[%v]", name, err)
		}
	}
	return nil
}

// InvokeBeforeStopHook 执行全部停止 hook，失败不中断，错误合并返回；总耗时受 SetStopTimeout 限制
func InvokeBeforeStopHook() error {
	hooks := stopPhase.snapshot()
	if len(hooks) == 0 {
		return nil
	}

	stopTimeoutMu.RLock()
	total := stopTimeout
	stopTimeoutMu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), total)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runStop(ctx, hooks) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return xerror.Newf("xhook", "BeforeStop", "timeout after %v", total)
	}
}

func runStop(ctx context.Context, hooks []hook) error {
	var failed []string
	for i, h := range hooks {
		if ctx.Err() != nil {
			return xerror.Newf("xhook", "BeforeStop", "interrupted, completed %d/%d hooks", i, len(hooks))
		}
		timeout := h.opts.timeout
		if dl, ok := ctx.Deadline(); ok {
			if left := time.Until(dl); timeout <= 0 || left < timeout {
				timeout = left
			}
		}
		name := funcName(h.fn)
		if err := call(h.fn, timeout); err != nil {
			xutil.ErrorIfEnableDebug("XAsset before stop hook failed, func=[%s], err=[%v]", name, err)
			failed = append(failed, fmt.Sprintf("func=[%s], err=[%v]", name, err))
		}
	}
	if len(failed) > 0 {
		return xerror.Newf("xhook", "BeforeStop", "%s", strings.Join(failed, "; "))
	}
	return nil
}

func (p *phase) add(f HookFunc, opts []Option) {
	if f == nil {
		panic(fmt.Sprintf("XAsset %s hook can not be nil", p.name))
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.hooks) >= maxHooksPerPhase {
		panic(fmt.Sprintf("XAsset %s hook can not be more than %d", p.name, maxHooksPerPhase))
	}
	if p.seen == nil {
		p.seen = make(map[uintptr]struct{})
	}
	ptr := reflect.ValueOf(f).Pointer()
	if _, dup := p.seen[ptr]; dup {
		xutil.WarnIfEnableDebug("XAsset %s hook registered twice, func=[%s]", p.name, funcName(f))
		return
	}
	p.seen[ptr] = struct{}{}
	p.hooks = append(p.hooks, hook{fn: f, opts: o})
	p.sorted = false
}

func (p *phase) snapshot() []hook {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.sorted {
		slices.SortStableFunc(p.hooks, func(a, b hook) int { return a.opts.order - b.opts.order })
		p.sorted = true
	}
	return slices.Clone(p.hooks)
}

func (p *phase) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = nil
	p.seen = nil
	p.sorted = true
}

// call 超时只是放弃等待，hook 本身不会被取消
func call(f HookFunc, timeout time.Duration) error {
	if timeout <= 0 {
		return safeCall(f)
	}
	ch := make(chan error, 1)
	go func() { ch <- safeCall(f) }()
	select {
	case err := <-ch:
		return err
	case <-time.After(timeout):
		return xerror.Newf("xhook", "call", "hook timeout after %v", timeout)
	}
}

func safeCall(f HookFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred, %v", r)
		}
	}()
	return f()
}

func funcName(f HookFunc) string {
	file, line, name := xutil.GetFuncInfo(f)
	return fmt.Sprintf("%s:%d %s()", file, line, name)
}
