// Package xmetrics 以 Prometheus 指标实现 xpipeline.Monitor
package xmetrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xpipeline"
)

const statusSuccess = "success"

// Collector 处理器与 Pipeline 指标
//
//	<ns>_processor_invocations_total{pipeline,processor,status}
//	<ns>_processor_duration_seconds{pipeline,processor}
//	<ns>_diagnostics_total{processor,severity}
//	<ns>_pipeline_runs_total{pipeline,status}
//
// status 为 success 或失败类别（ParseError、Timeout 等）
type Collector struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	diagnostics *prometheus.CounterVec
	runs        *prometheus.CounterVec
}

var _ xpipeline.Monitor = (*Collector)(nil)

// NewCollector 创建并注册到 reg，reg 为 nil 时只创建不注册
func NewCollector(namespace string, buckets []float64, reg prometheus.Registerer) (*Collector, error) {
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	c := &Collector{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processor_invocations_total",
			Help:      "Processor invocations by terminal status.",
		}, []string{"pipeline", "processor", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processor_duration_seconds",
			Help:      "Processor invocation latency.",
			Buckets:   buckets,
		}, []string{"pipeline", "processor"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Diagnostics reported by processors.",
		}, []string{"processor", "severity"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by final state.",
		}, []string{"pipeline", "status"}),
	}
	if reg == nil {
		return c, nil
	}
	for _, col := range []prometheus.Collector{c.invocations, c.duration, c.diagnostics, c.runs} {
		if err := reg.Register(col); err != nil {
			return nil, xerror.New("xmetrics", "register", err)
		}
	}
	return c, nil
}

func (c *Collector) OnProcessDone(_ context.Context, e *xpipeline.StepEvent) {
	c.invocations.WithLabelValues(e.PipelineName, e.ProcessorName, status(e.Err)).Inc()
	c.duration.WithLabelValues(e.PipelineName, e.ProcessorName).Observe(e.Duration.Seconds())
	for _, d := range e.Diagnostics {
		c.diagnostics.WithLabelValues(e.ProcessorName, d.Severity.String()).Inc()
	}
}

func (c *Collector) OnPipelineDone(_ context.Context, e *xpipeline.PipelineEvent) {
	c.runs.WithLabelValues(e.PipelineName, status(e.Result.Err)).Inc()
}

func status(err *xerror.ProcessingError) string {
	if err == nil {
		return statusSuccess
	}
	return err.Kind.String()
}
