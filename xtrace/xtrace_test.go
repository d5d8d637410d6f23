package xtrace

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/xiaoshicae/xasset/xconfig"
	"github.com/xiaoshicae/xasset/xutil"

	. "github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"
)

func TestXTraceConfig(t *testing.T) {
	PatchConvey("TestXTraceConfig", t, func() {
		PatchConvey("默认值", func() {
			c := configMergeDefault(nil)
			So(*c.Enable, ShouldBeTrue)
			So(c.SampleRatio, ShouldEqual, 1)
			So(c.B3, ShouldBeFalse)
		})

		PatchConvey("非法采样率", func() {
			So(configMergeDefault(&Config{SampleRatio: 3}).SampleRatio, ShouldEqual, 1)
			So(configMergeDefault(&Config{SampleRatio: 0.25}).SampleRatio, ShouldEqual, 0.25)
		})

		PatchConvey("反序列化失败", func() {
			cachedConfigOnce = sync.Once{}
			defer func() { cachedConfigOnce = sync.Once{} }()
			Mock(xconfig.UnmarshalConfig).Return(errors.New("boom")).Build()
			So(*GetConfig().Enable, ShouldBeTrue)
		})
	})
}

func TestSetup(t *testing.T) {
	PatchConvey("TestSetup", t, func() {
		defer func() { _ = shutdownXTrace() }()

		PatchConvey("关闭", func() {
			So(Setup(&Config{Enable: xutil.ToPtr(false)}), ShouldBeNil)
			So(Enabled(), ShouldBeFalse)
			_, span := Tracer().Start(context.Background(), "x")
			So(span.SpanContext().IsValid(), ShouldBeFalse)
			span.End()
		})

		PatchConvey("开启", func() {
			So(Setup(&Config{B3: true}), ShouldBeNil)
			So(Enabled(), ShouldBeTrue)

			ctx, span := Tracer().Start(context.Background(), "pipeline")
			So(span.SpanContext().IsValid(), ShouldBeTrue)
			So(xutil.GetTraceIDFromCtx(ctx), ShouldEqual, span.SpanContext().TraceID().String())

			carrier := propagation.MapCarrier{}
			otel.GetTextMapPropagator().Inject(ctx, carrier)
			So(carrier.Get("traceparent"), ShouldNotBeEmpty)
			So(carrier.Get("b3"), ShouldNotBeEmpty)
			span.End()

			So(shutdownXTrace(), ShouldBeNil)
			So(Enabled(), ShouldBeFalse)
			So(shutdownXTrace(), ShouldBeNil)
		})

		PatchConvey("resource 创建失败", func() {
			Mock(resource.New).Return(nil, errors.New("boom")).Build()
			So(Setup(&Config{}), ShouldNotBeNil)
		})
	})
}

func TestForwardPropagator(t *testing.T) {
	PatchConvey("TestForwardPropagator", t, func() {
		p := NewForwardPropagator([]string{"x-request-id", "", "X-TENANT-ID"})
		So(p.Fields(), ShouldResemble, []string{"X-Request-Id", "X-Tenant-Id"})

		PatchConvey("Extract 后 Inject", func() {
			in := propagation.MapCarrier{"X-Request-Id": "r1", "X-Other": "o"}
			ctx := p.Extract(context.Background(), in)
			So(Forwarded(ctx, "x-request-id"), ShouldEqual, "r1")

			out := propagation.MapCarrier{}
			p.Inject(ctx, out)
			So(map[string]string(out), ShouldResemble, map[string]string{"X-Request-Id": "r1"})
		})

		PatchConvey("无值时 ctx 不变", func() {
			ctx := context.Background()
			So(p.Extract(ctx, propagation.MapCarrier{}), ShouldEqual, ctx)
		})

		PatchConvey("WithForward 合并", func() {
			ctx := WithForward(context.Background(), map[string]string{"x-request-id": "a"})
			ctx = WithForward(ctx, map[string]string{"X-Tenant-Id": "t"})
			So(Forwarded(ctx, "X-Request-Id"), ShouldEqual, "a")
			So(Forwarded(ctx, "x-tenant-id"), ShouldEqual, "t")
		})
	})

	PatchConvey("TestPropagatorFor", t, func() {
		fields := propagatorFor(&Config{ForwardHeaders: []string{"x-request-id"}}).Fields()
		So(fields, ShouldContain, "traceparent")
		So(fields, ShouldContain, "X-Request-Id")
		So(fields, ShouldNotContain, "b3")
	})
}
