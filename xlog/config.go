package xlog

import (
	"sync"

	"github.com/xiaoshicae/xasset/xconfig"
	"github.com/xiaoshicae/xasset/xutil"
)

const (
	XLogConfigKey = "XLog"
)

type Config struct {
	// Level 日志级别 debug/info/warn/error
	// optional default "info"
	Level string `mapstructure:"Level"`

	// Dir 日志目录
	// optional default "./log"
	Dir string `mapstructure:"Dir"`

	// File 日志文件名（不含后缀）
	// optional default "xasset"
	File string `mapstructure:"File"`

	// Console 是否同时打印到控制台
	// optional default false
	Console bool `mapstructure:"Console"`

	// ConsoleJSON 控制台是否打印原始json，为false时打印 level+time+file:line+traceid+内容
	// optional default false
	ConsoleJSON bool `mapstructure:"ConsoleJSON"`

	// MaxAge 日志保留时长
	// optional default "7d"
	MaxAge string `mapstructure:"MaxAge"`

	// RotateTime 切割周期
	// optional default "1d"
	RotateTime string `mapstructure:"RotateTime"`

	// Timezone 日志时间时区
	// optional default "Local"
	Timezone string `mapstructure:"Timezone"`

	// AsyncBuffer 大于0时文件写入走异步队列，值为队列长度
	// optional default 0
	AsyncBuffer int `mapstructure:"AsyncBuffer"`
}

func configMergeDefault(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	c.Level = xutil.GetOrDefault(c.Level, "info")
	c.Dir = xutil.GetOrDefault(c.Dir, "./log")
	c.File = xutil.GetOrDefault(c.File, "xasset")
	c.MaxAge = xutil.GetOrDefault(c.MaxAge, "7d")
	c.RotateTime = xutil.GetOrDefault(c.RotateTime, "1d")
	c.Timezone = xutil.GetOrDefault(c.Timezone, "Local")
	return c
}

var (
	cachedConfig     *Config
	cachedConfigOnce sync.Once
)

func GetConfig() *Config {
	cachedConfigOnce.Do(func() {
		c := &Config{}
		if err := xconfig.UnmarshalConfig(XLogConfigKey, c); err != nil {
			xutil.WarnIfEnableDebug("XAsset xlog unmarshal config failed, use default, err=[%v]", err)
			c = nil
		}
		cachedConfig = configMergeDefault(c)
	})
	return cachedConfig
}
