package xhttp

import (
	"sync"

	"github.com/xiaoshicae/xasset/xconfig"
)

const XHttpConfigKey = "XHttp"

type Config struct {
	// Timeout 单次请求总超时，调用方 ctx 的 deadline 更早时以 ctx 为准
	// optional default "60s"
	Timeout string `mapstructure:"Timeout"`

	// DialTimeout 建连超时
	// optional default "5s"
	DialTimeout string `mapstructure:"DialTimeout"`

	// MaxIdleConnsPerHost 每个 host 的空闲连接数
	// optional default 16
	MaxIdleConnsPerHost int `mapstructure:"MaxIdleConnsPerHost"`

	// IdleConnTimeout 空闲连接保持时长
	// optional default "90s"
	IdleConnTimeout string `mapstructure:"IdleConnTimeout"`

	// UserAgent 请求头 User-Agent
	// optional default "xasset"
	UserAgent string `mapstructure:"UserAgent"`
}

func configMergeDefault(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	if c.Timeout == "" {
		c.Timeout = "60s"
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "5s"
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = 16
	}
	if c.IdleConnTimeout == "" {
		c.IdleConnTimeout = "90s"
	}
	if c.UserAgent == "" {
		c.UserAgent = "xasset"
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
		if err := xconfig.UnmarshalConfig(XHttpConfigKey, c); err != nil {
			c = nil
		}
		cachedConfig = configMergeDefault(c)
	})
	return cachedConfig
}
