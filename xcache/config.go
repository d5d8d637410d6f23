package xcache

import (
	"sync"

	"github.com/xiaoshicae/xasset/xconfig"
	"github.com/xiaoshicae/xasset/xutil"
)

const XCacheConfigKey = "XCache"

const (
	defaultNumCounters = 100000
	defaultMaxCost     = 10000
	defaultBufferItems = 64
	defaultTTL         = "5m"
)

// Config 进程内缓存配置，目前用于缓存外部工具探测结果
type Config struct {
	// NumCounters 用于统计访问频率的键数量，建议为期望条目数的 10 倍
	// optional default 100000
	NumCounters int64 `mapstructure:"NumCounters"`

	// MaxCost 最大成本，每个条目 cost=1 时等价于最大条目数
	// optional default 10000
	MaxCost int64 `mapstructure:"MaxCost"`

	// BufferItems Get 操作的内部缓冲区大小
	// optional default 64
	BufferItems int64 `mapstructure:"BufferItems"`

	// DefaultTTL 默认过期时间
	// optional default "5m"
	DefaultTTL string `mapstructure:"DefaultTTL"`
}

func configMergeDefault(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	c.NumCounters = xutil.GetOrDefault(c.NumCounters, defaultNumCounters)
	c.MaxCost = xutil.GetOrDefault(c.MaxCost, defaultMaxCost)
	c.BufferItems = xutil.GetOrDefault(c.BufferItems, defaultBufferItems)
	c.DefaultTTL = xutil.GetOrDefault(c.DefaultTTL, defaultTTL)
	return c
}

var (
	cachedConfig     *Config
	cachedConfigOnce sync.Once
)

// GetConfig 获取 xcache 配置（仅首次调用时反序列化）
func GetConfig() *Config {
	cachedConfigOnce.Do(func() {
		c := &Config{}
		if err := xconfig.UnmarshalConfig(XCacheConfigKey, c); err != nil {
			cachedConfig = configMergeDefault(nil)
			return
		}
		cachedConfig = configMergeDefault(c)
	})
	return cachedConfig
}
