package xpipeline

import (
	"sync"

	"github.com/xiaoshicae/xasset/xconfig"
	"github.com/xiaoshicae/xasset/xutil"
)

// XPipelineConfigKey 配置 key
const XPipelineConfigKey = "XPipeline"

const defaultBatchWorkers = 8

// Config xpipeline 配置
type Config struct {
	// DisableMonitor 是否禁用监控，默认 false（即默认开启监控）
	DisableMonitor bool `mapstructure:"DisableMonitor"`

	// AbortOnErrorDiagnostic 处理成功但存在 ERROR 级诊断时是否按失败处理
	// optional default false，即 ERROR 诊断只在结果中暴露
	AbortOnErrorDiagnostic bool `mapstructure:"AbortOnErrorDiagnostic"`

	// BatchWorkers RunBatch 并发数，默认 8
	BatchWorkers int `mapstructure:"BatchWorkers"`
}

func configMergeDefault(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	c.BatchWorkers = xutil.GetOrDefault(c.BatchWorkers, defaultBatchWorkers)
	return c
}

var (
	cachedConfig     *Config
	cachedConfigOnce sync.Once
)

// GetConfig 获取 xpipeline 配置（结果会被缓存，仅首次调用时反序列化）
func GetConfig() *Config {
	cachedConfigOnce.Do(func() {
		c := &Config{}
		if err := xconfig.UnmarshalConfig(XPipelineConfigKey, c); err != nil {
			cachedConfig = configMergeDefault(nil)
			return
		}
		cachedConfig = configMergeDefault(c)
	})
	return cachedConfig
}
