package xprocessor

import (
	"strings"
	"sync"

	"github.com/xiaoshicae/xasset/xconfig"
	"github.com/xiaoshicae/xasset/xutil"
)

// XProcessorConfigKey 配置 key
const XProcessorConfigKey = "XProcessor"

// Config 处理器默认配置，Processors 中按处理器名覆盖 Default
//
//	XProcessor:
//	  Default:
//	    lineBreakColumn: 500
//	  Processors:
//	    coffee-script:
//	      timeoutMillis: 3000
type Config struct {
	// Default 所有处理器共用的配置
	// optional default nil
	Default map[string]any `mapstructure:"Default"`

	// Processors 按处理器名设置的配置
	// optional default nil
	Processors map[string]map[string]any `mapstructure:"Processors"`
}

func configMergeDefault(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	return c
}

var (
	cachedConfig     *Config
	cachedConfigOnce sync.Once
)

// GetConfig 获取 xprocessor 配置（仅首次调用时反序列化）
func GetConfig() *Config {
	cachedConfigOnce.Do(func() {
		c := &Config{}
		if err := xconfig.UnmarshalConfig(XProcessorConfigKey, c); err != nil {
			xutil.InfoIfEnableDebug("XAsset xprocessor config not found, use default, err=[%v]", err)
			cachedConfig = configMergeDefault(nil)
			return
		}
		cachedConfig = configMergeDefault(c)
	})
	return cachedConfig
}

// OptionsFor 合并默认值、全局配置、按处理器配置以及调用方传入的 overrides
func OptionsFor(name string, overrides map[string]any) (Options, error) {
	c := GetConfig()
	o, err := DefaultOptions().With(c.Default)
	if err != nil {
		return o, err
	}
	for k, v := range c.Processors {
		if strings.EqualFold(k, name) {
			if o, err = o.With(v); err != nil {
				return o, err
			}
		}
	}
	return o.With(overrides)
}
