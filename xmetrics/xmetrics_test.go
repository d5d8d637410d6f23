package xmetrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/bytedance/mockey"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/xiaoshicae/xasset/xconfig"
	"github.com/xiaoshicae/xasset/xdiag"
	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xpipeline"
	"github.com/xiaoshicae/xasset/xprocessor"
	"github.com/xiaoshicae/xasset/xregistry"
	"github.com/xiaoshicae/xasset/xresource"
)

func TestXMetricsConfig(t *testing.T) {
	PatchConvey("TestXMetricsConfig", t, func() {
		PatchConvey("configMergeDefault", func() {
			c := configMergeDefault(nil)
			So(c.Enable, ShouldBeFalse)
			So(c.Namespace, ShouldEqual, defaultNamespace)
			So(configMergeDefault(&Config{Namespace: "assets"}).Namespace, ShouldEqual, "assets")
		})

		PatchConvey("GetConfig-反序列化失败使用默认值", func() {
			cachedConfigOnce = sync.Once{}
			defer func() { cachedConfigOnce = sync.Once{} }()
			Mock(xconfig.UnmarshalConfig).Return(errors.New("boom")).Build()
			So(GetConfig().Namespace, ShouldEqual, defaultNamespace)
		})
	})
}

func TestCollector(t *testing.T) {
	PatchConvey("TestCollector", t, func() {
		reg := prometheus.NewRegistry()
		col, err := NewCollector("test", nil, reg)
		So(err, ShouldBeNil)

		ctx := context.Background()
		col.OnProcessDone(ctx, &xpipeline.StepEvent{
			PipelineName:  "build",
			ProcessorName: "js-min",
			Diagnostics:   []xdiag.Diagnostic{xdiag.Warn("a"), xdiag.Warn("b"), xdiag.Err("c")},
			Duration:      20 * time.Millisecond,
		})
		col.OnProcessDone(ctx, &xpipeline.StepEvent{
			PipelineName:  "build",
			ProcessorName: "js-min",
			Err:           xerror.Errorf(xerror.ParseError, "bad"),
		})
		col.OnPipelineDone(ctx, &xpipeline.PipelineEvent{PipelineName: "build", Result: &xpipeline.Result{State: xpipeline.Succeeded}})

		So(testutil.ToFloat64(col.invocations.WithLabelValues("build", "js-min", "success")), ShouldEqual, 1.0)
		So(testutil.ToFloat64(col.invocations.WithLabelValues("build", "js-min", "ParseError")), ShouldEqual, 1.0)
		So(testutil.ToFloat64(col.diagnostics.WithLabelValues("js-min", "WARNING")), ShouldEqual, 2.0)
		So(testutil.ToFloat64(col.diagnostics.WithLabelValues("js-min", "ERROR")), ShouldEqual, 1.0)
		So(testutil.ToFloat64(col.runs.WithLabelValues("build", "success")), ShouldEqual, 1.0)
		So(testutil.CollectAndCount(col.duration), ShouldEqual, 1)

		PatchConvey("重复注册返回错误", func() {
			_, err := NewCollector("test", nil, reg)
			So(err, ShouldNotBeNil)
			So(xerror.Is(err, "xmetrics"), ShouldBeTrue)
		})

		PatchConvey("reg为nil只创建", func() {
			c, err := NewCollector("test", []float64{0.1}, nil)
			So(err, ShouldBeNil)
			So(c, ShouldNotBeNil)
		})
	})
}

func TestSetupAndHandler(t *testing.T) {
	PatchConvey("TestSetupAndHandler", t, func() {
		prev := xpipeline.GetDefaultMonitor()
		defer xpipeline.SetDefaultMonitor(prev)
		defer func() { _ = closeXMetrics() }()

		PatchConvey("未启用时Handler返回404", func() {
			_ = closeXMetrics()
			rec := httptest.NewRecorder()
			Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(Registry(), ShouldBeNil)
		})

		PatchConvey("启用后Pipeline运行被计数", func() {
			So(Setup(&Config{Enable: true, GoCollector: true}), ShouldBeNil)
			So(Registry(), ShouldNotBeNil)

			r, err := xregistry.NewRegistry(xregistry.Descriptor{
				Name: "copy", Kinds: []xresource.Kind{xresource.Script}, Category: xregistry.Pre,
				Factory: func(xprocessor.Options) (xprocessor.Processor, error) { return nil, nil },
			})
			So(err, ShouldBeNil)
			p := xpipeline.New("metrics", xpipeline.Apply(xprocessor.NewFunc("copy", func(_ context.Context, req *xprocessor.Request) error {
				req.Reporter.Warning("noop")
				_, err := io.Copy(req.Output, req.Input)
				return err
			})))
			res := xpipeline.NewExecutor(xpipeline.WithRegistry(r)).Run(context.Background(), p,
				xresource.FromString("a.js", xresource.Script, "x"))
			So(res.Succeeded(), ShouldBeTrue)

			srv := httptest.NewServer(Handler())
			defer srv.Close()
			resp, err := http.Get(srv.URL)
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			text := string(body)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(text, ShouldContainSubstring, `xasset_processor_invocations_total{pipeline="metrics",processor="copy",status="success"} 1`)
			So(text, ShouldContainSubstring, `xasset_pipeline_runs_total{pipeline="metrics",status="success"} 1`)
			So(text, ShouldContainSubstring, `xasset_diagnostics_total{processor="copy",severity="WARNING"} 1`)
			So(strings.Contains(text, "go_goroutines"), ShouldBeTrue)

			So(closeXMetrics(), ShouldBeNil)
			_, isMulti := xpipeline.GetDefaultMonitor().(xpipeline.MultiMonitor)
			So(isMulti, ShouldBeFalse)
		})

		PatchConvey("initXMetrics-未启用不安装", func() {
			cachedConfigOnce = sync.Once{}
			defer func() { cachedConfigOnce = sync.Once{} }()
			Mock(xconfig.UnmarshalConfig).Return(nil).Build()
			So(initXMetrics(), ShouldBeNil)
			So(Registry(), ShouldBeNil)
		})
	})
}
