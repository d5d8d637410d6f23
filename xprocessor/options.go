package xprocessor

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"

	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xutil"
)

// Options 处理器配置，处理器实例创建后只读，可在并发调用间共享
type Options struct {
	// RenameIdentifiers 是否缩短标识符
	// optional default false
	RenameIdentifiers bool `mapstructure:"renameIdentifiers" json:"renameIdentifiers"`

	// VerboseDiagnostics 是否输出额外的告警（如 eval、with）
	// optional default true
	VerboseDiagnostics bool `mapstructure:"verboseDiagnostics" json:"verboseDiagnostics"`

	// PreserveStatementTerminators 保留末尾分号
	// optional default false
	PreserveStatementTerminators bool `mapstructure:"preserveStatementTerminators" json:"preserveStatementTerminators"`

	// DisableOptimizations 只删除空白与注释，不做语法层面的优化
	// optional default false
	DisableOptimizations bool `mapstructure:"disableOptimizations" json:"disableOptimizations"`

	// LineBreakColumn 超过该列后在语句边界处换行，-1 表示不换行
	// optional default -1
	LineBreakColumn int `mapstructure:"lineBreakColumn" json:"lineBreakColumn" validate:"gte=-1"`

	// InterpreterPath 外部工具的解释器路径
	// optional default 由具体工具决定
	InterpreterPath string `mapstructure:"interpreterPath" json:"interpreterPath,omitempty"`

	// TimeoutMillis 外部工具超时时间，0 表示使用工具默认值
	// optional default 0
	TimeoutMillis int `mapstructure:"timeoutMillis" json:"timeoutMillis,omitempty" validate:"gte=0"`

	// WorkingDir 外部工具的工作目录
	// optional default 当前目录
	WorkingDir string `mapstructure:"workingDir" json:"workingDir,omitempty" validate:"omitempty,dir"`
}

// DefaultOptions 默认配置
func DefaultOptions() Options {
	return Options{
		VerboseDiagnostics: true,
		LineBreakColumn:    -1,
	}
}

// Timeout TimeoutMillis 对应的时长，未设置时返回 def
func (o Options) Timeout(def time.Duration) time.Duration {
	if o.TimeoutMillis <= 0 {
		return def
	}
	return xutil.ToDuration(o.TimeoutMillis)
}

// LineBreaks 是否开启强制换行
func (o Options) LineBreaks() bool {
	return o.LineBreakColumn >= 0
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate 校验取值范围
func (o Options) Validate() error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	if err := validate.Struct(o); err != nil {
		return xerror.New("xprocessor", "validate options", err)
	}
	return nil
}

type optionSetter func(o *Options, v any) error

// 键名不区分大小写，viper 读出的键均为小写
var optionSetters = map[string]optionSetter{
	"renameidentifiers": func(o *Options, v any) (err error) {
		o.RenameIdentifiers, err = cast.ToBoolE(v)
		return
	},
	"verbosediagnostics": func(o *Options, v any) (err error) {
		o.VerboseDiagnostics, err = cast.ToBoolE(v)
		return
	},
	"preservestatementterminators": func(o *Options, v any) (err error) {
		o.PreserveStatementTerminators, err = cast.ToBoolE(v)
		return
	},
	"disableoptimizations": func(o *Options, v any) (err error) {
		o.DisableOptimizations, err = cast.ToBoolE(v)
		return
	},
	"linebreakcolumn": func(o *Options, v any) (err error) {
		o.LineBreakColumn, err = cast.ToIntE(v)
		return
	},
	"interpreterpath": func(o *Options, v any) (err error) {
		o.InterpreterPath, err = cast.ToStringE(v)
		return
	},
	"timeoutmillis": func(o *Options, v any) (err error) {
		o.TimeoutMillis, err = cast.ToIntE(v)
		return
	},
	"workingdir": func(o *Options, v any) (err error) {
		o.WorkingDir, err = cast.ToStringE(v)
		return
	},
}

// ParseOptions 从配置包解析，未出现的键取默认值，未知键报错
func ParseOptions(m map[string]any) (Options, error) {
	return DefaultOptions().With(m)
}

// With 在当前配置上叠加 m 中的键值，返回新的配置
func (o Options) With(m map[string]any) (Options, error) {
	for k, v := range m {
		set, ok := optionSetters[strings.ToLower(k)]
		if !ok {
			return o, xerror.Newf("xprocessor", "parse options", "unknown option [%s]", k)
		}
		if err := set(&o, v); err != nil {
			return o, xerror.New("xprocessor", "parse options", fmt.Errorf("option [%s]: %w", k, err))
		}
	}
	return o, o.Validate()
}
