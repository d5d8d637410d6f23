package xtrace

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xiaoshicae/xasset/xconfig"
	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xhook"
	"github.com/xiaoshicae/xasset/xutil"
)

const (
	instrumentationName = "github.com/xiaoshicae/xasset"
	shutdownTimeout     = 5 * time.Second
)

var (
	mu       sync.Mutex
	shutdown func(context.Context) error
	enabled  bool
)

func init() {
	xhook.BeforeStart(initXTrace, xhook.Order(3))
	xhook.BeforeStop(shutdownXTrace, xhook.Order(900))
}

func initXTrace() error {
	c := GetConfig()
	xutil.InfoIfEnableDebug("XAsset init %s got config: %s", XTraceConfigKey, xutil.ToJsonString(c))
	return Setup(c)
}

// Setup 安装全局 TracerProvider 与传播器
func Setup(c *Config) error {
	c = configMergeDefault(c)
	otel.SetTextMapPropagator(propagatorFor(c))

	if !*c.Enable {
		otel.SetTracerProvider(noop.NewTracerProvider())
		setState(false, nil)
		return nil
	}

	res, err := resource.New(context.Background(),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(xconfig.GetAppName()),
			semconv.ServiceVersionKey.String(xconfig.GetAppVersion()),
		),
	)
	if err != nil {
		return xerror.Newf("xtrace", "setup", "resource.New failed, err=[%v]", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio))),
	}
	if c.Console {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return xerror.Newf("xtrace", "setup", "stdouttrace.New failed, err=[%v]", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	setState(true, tp.Shutdown)
	return nil
}

func propagatorFor(c *Config) propagation.TextMapPropagator {
	ps := []propagation.TextMapPropagator{propagation.TraceContext{}, propagation.Baggage{}}
	if c.B3 {
		ps = append(ps, b3.New(b3.WithInjectEncoding(b3.B3MultipleHeader|b3.B3SingleHeader)))
	}
	if len(c.ForwardHeaders) > 0 {
		ps = append(ps, NewForwardPropagator(c.ForwardHeaders))
	}
	return propagation.NewCompositeTextMapPropagator(ps...)
}

// Enabled 当前是否安装了可采样的 TracerProvider
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Tracer 返回本项目的 tracer，未初始化时为全局默认（noop）
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

func setState(on bool, fn func(context.Context) error) {
	mu.Lock()
	prev := shutdown
	enabled, shutdown = on, fn
	mu.Unlock()
	if prev != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = prev(ctx)
	}
}

func shutdownXTrace() error {
	mu.Lock()
	fn := shutdown
	shutdown, enabled = nil, false
	mu.Unlock()
	if fn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return fn(ctx)
}
