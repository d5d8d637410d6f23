package xmetrics

import (
	"sync"

	"github.com/xiaoshicae/xasset/xconfig"
	"github.com/xiaoshicae/xasset/xutil"
)

// XMetricsConfigKey 配置 key
const XMetricsConfigKey = "XMetrics"

const defaultNamespace = "xasset"

// Config xmetrics 配置
type Config struct {
	// Enable 是否采集处理器与 Pipeline 指标
	// optional default false
	Enable bool `mapstructure:"Enable"`

	// Namespace 指标前缀
	// optional default "xasset"
	Namespace string `mapstructure:"Namespace"`

	// Buckets 处理耗时直方图的桶（秒）
	// optional default prometheus.DefBuckets
	Buckets []float64 `mapstructure:"Buckets"`

	// GoCollector 是否同时暴露 Go 运行时与进程指标
	// optional default false
	GoCollector bool `mapstructure:"GoCollector"`
}

func configMergeDefault(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	c.Namespace = xutil.GetOrDefault(c.Namespace, defaultNamespace)
	return c
}

var (
	cachedConfig     *Config
	cachedConfigOnce sync.Once
)

// GetConfig 获取 xmetrics 配置（仅首次调用时反序列化）
func GetConfig() *Config {
	cachedConfigOnce.Do(func() {
		c := &Config{}
		if err := xconfig.UnmarshalConfig(XMetricsConfigKey, c); err != nil {
			xutil.InfoIfEnableDebug("XAsset xmetrics config not found, use default, err=[%v]", err)
			cachedConfig = configMergeDefault(nil)
			return
		}
		cachedConfig = configMergeDefault(c)
	})
	return cachedConfig
}
