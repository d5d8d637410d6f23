package xhttp

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xiaoshicae/xasset/xhook"
	"github.com/xiaoshicae/xasset/xtrace"
	"github.com/xiaoshicae/xasset/xutil"
)

var (
	mu     sync.RWMutex
	client *resty.Client
)

func init() {
	xhook.BeforeStart(initXHttp, xhook.Order(5))
}

func initXHttp() error {
	c := GetConfig()
	xutil.InfoIfEnableDebug("XAsset init %s got config: %s", XHttpConfigKey, xutil.ToJsonString(c))
	set(New(c))
	return nil
}

// C 共享 client，未初始化时按当前配置创建
func C() *resty.Client {
	mu.RLock()
	cl := client
	mu.RUnlock()
	if cl != nil {
		return cl
	}
	mu.Lock()
	defer mu.Unlock()
	if client == nil {
		client = New(GetConfig())
	}
	return client
}

// R 绑定 ctx 的请求
func R(ctx context.Context) *resty.Request {
	return C().R().SetContext(ctx)
}

// New 按配置创建 client，不重试；trace 开启时出站请求带 span 与传播头
func New(c *Config) *resty.Client {
	c = configMergeDefault(c)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = c.MaxIdleConnsPerHost
	transport.IdleConnTimeout = xutil.ToDuration(c.IdleConnTimeout)
	transport.DialContext = (&net.Dialer{Timeout: xutil.ToDuration(c.DialTimeout)}).DialContext

	var rt http.RoundTripper = transport
	if xtrace.Enabled() {
		rt = otelhttp.NewTransport(transport, otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "xasset.remote " + r.Method + " " + r.URL.Path
		}))
	}

	return resty.NewWithClient(&http.Client{Transport: rt, Timeout: xutil.ToDuration(c.Timeout)}).
		SetHeader("User-Agent", c.UserAgent).
		SetRetryCount(0)
}

func set(cl *resty.Client) {
	mu.Lock()
	client = cl
	mu.Unlock()
}
