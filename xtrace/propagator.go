package xtrace

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/propagation"
)

type forwardKey struct{}

// ForwardPropagator 透传一组固定的业务 Header（如 X-Request-Id），实现 propagation.TextMapPropagator
type ForwardPropagator struct {
	headers []string
}

func NewForwardPropagator(headers []string) *ForwardPropagator {
	p := &ForwardPropagator{}
	for _, h := range headers {
		if h != "" {
			p.headers = append(p.headers, http.CanonicalHeaderKey(h))
		}
	}
	return p
}

func (p *ForwardPropagator) Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	vals := make(map[string]string)
	for _, h := range p.headers {
		if v := carrier.Get(h); v != "" {
			vals[h] = v
		}
	}
	if len(vals) == 0 {
		return ctx
	}
	return WithForward(ctx, vals)
}

func (p *ForwardPropagator) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	vals := forwarded(ctx)
	for _, h := range p.headers {
		if v := vals[h]; v != "" {
			carrier.Set(h, v)
		}
	}
}

func (p *ForwardPropagator) Fields() []string {
	return append([]string(nil), p.headers...)
}

// WithForward 在 ctx 上追加需要透传的 Header 值，key 大小写不敏感
func WithForward(ctx context.Context, kv map[string]string) context.Context {
	prev := forwarded(ctx)
	merged := make(map[string]string, len(prev)+len(kv))
	for k, v := range prev {
		merged[k] = v
	}
	for k, v := range kv {
		merged[http.CanonicalHeaderKey(k)] = v
	}
	return context.WithValue(ctx, forwardKey{}, merged)
}

// Forwarded 读取 ctx 上某个透传 Header 的值
func Forwarded(ctx context.Context, key string) string {
	return forwarded(ctx)[http.CanonicalHeaderKey(key)]
}

func forwarded(ctx context.Context) map[string]string {
	m, _ := ctx.Value(forwardKey{}).(map[string]string)
	return m
}
