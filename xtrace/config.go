package xtrace

import (
	"sync"

	"github.com/xiaoshicae/xasset/xconfig"
	"github.com/xiaoshicae/xasset/xutil"
)

const (
	XTraceConfigKey = "XTrace"
)

type Config struct {
	// Enable 是否开启 trace，未配置时开启
	// optional default true
	Enable *bool `mapstructure:"Enable"`

	// Console 是否把 span 打印到控制台
	// optional default false
	Console bool `mapstructure:"Console"`

	// SampleRatio 采样率 (0,1]，有父 span 时跟随父 span
	// optional default 1
	SampleRatio float64 `mapstructure:"SampleRatio"`

	// B3 是否额外注入/解析 b3 头
	// optional default false
	B3 bool `mapstructure:"B3"`

	// ForwardHeaders 需要随调用链透传到远程编译服务的 Header
	// optional default nil
	ForwardHeaders []string `mapstructure:"ForwardHeaders"`
}

func configMergeDefault(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	if c.Enable == nil {
		c.Enable = xutil.ToPtr(true)
	}
	if c.SampleRatio <= 0 || c.SampleRatio > 1 {
		c.SampleRatio = 1
	}
	return c
}

var (
	cachedConfig     *Config
	cachedConfigOnce sync.Once
)

func GetConfig() *Config {
	cachedConfigOnce.Do(func() {
		c := &Config{}
		if err := xconfig.UnmarshalConfig(XTraceConfigKey, c); err != nil {
			c = nil
		}
		cachedConfig = configMergeDefault(c)
	})
	return cachedConfig
}
