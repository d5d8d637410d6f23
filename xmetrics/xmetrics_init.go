package xmetrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xiaoshicae/xasset/xhook"
	"github.com/xiaoshicae/xasset/xpipeline"
	"github.com/xiaoshicae/xasset/xutil"
)

var (
	mu        sync.RWMutex
	registry  *prometheus.Registry
	collector *Collector
)

func init() {
	xhook.BeforeStart(initXMetrics, xhook.Order(110))
	xhook.BeforeStop(closeXMetrics, xhook.Order(800))
}

func initXMetrics() error {
	c := GetConfig()
	xutil.InfoIfEnableDebug("XAsset init %s got config: %s", XMetricsConfigKey, xutil.ToJsonString(c))
	if !c.Enable {
		return nil
	}
	return Setup(c)
}

// Setup 创建独立的指标注册表，并将 Collector 与 xlog 监控组合为 xpipeline 的默认 Monitor
func Setup(c *Config) error {
	c = configMergeDefault(c)
	reg := prometheus.NewRegistry()
	if c.GoCollector {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	col, err := NewCollector(c.Namespace, c.Buckets, reg)
	if err != nil {
		return err
	}

	mu.Lock()
	registry, collector = reg, col
	mu.Unlock()
	xpipeline.SetDefaultMonitor(xpipeline.MultiMonitor{xpipeline.LogMonitor(), col})
	return nil
}

// Handler 指标的 HTTP 暴露，由调用方挂载；未启用时返回 404
func Handler() http.Handler {
	mu.RLock()
	defer mu.RUnlock()
	if registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// Registry 当前注册表，未启用时为nil，可用于注册调用方自己的指标
func Registry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

func closeXMetrics() error {
	mu.Lock()
	installed := collector != nil
	registry, collector = nil, nil
	mu.Unlock()
	if installed {
		xpipeline.SetDefaultMonitor(xpipeline.LogMonitor())
	}
	return nil
}
