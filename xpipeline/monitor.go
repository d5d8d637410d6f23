package xpipeline

import (
	"context"
	"sync"
	"time"

	"github.com/xiaoshicae/xasset/xdiag"
	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xlog"
	"github.com/xiaoshicae/xasset/xresource"
)

// StepEvent 单个处理器执行完成事件，跳过的处理器不产生事件
type StepEvent struct {
	PipelineName  string
	ProcessorName string
	Resource      string
	Kind          xresource.Kind
	// Index 处理器在本次实际执行序列中的下标
	Index       int
	Diagnostics []xdiag.Diagnostic
	Err         *xerror.ProcessingError
	Duration    time.Duration
}

// PipelineEvent 一次资源处理完成事件
type PipelineEvent struct {
	PipelineName string
	Result       *Result
	Duration     time.Duration
}

// Monitor 监控接口，Executor 可注入自定义实现以观测执行过程
// 注意：RunBatch 会从多个 goroutine 调用，实现必须并发安全
type Monitor interface {
	// OnProcessDone 处理器执行结束时调用（成功 Err=nil，失败 Err!=nil）
	OnProcessDone(ctx context.Context, event *StepEvent)
	// OnPipelineDone 一次资源处理结束后调用，无论成功失败
	OnPipelineDone(ctx context.Context, event *PipelineEvent)
}

// MultiMonitor 依次通知多个 Monitor
type MultiMonitor []Monitor

func (m MultiMonitor) OnProcessDone(ctx context.Context, e *StepEvent) {
	for _, mm := range m {
		if mm != nil {
			mm.OnProcessDone(ctx, e)
		}
	}
}

func (m MultiMonitor) OnPipelineDone(ctx context.Context, e *PipelineEvent) {
	for _, mm := range m {
		if mm != nil {
			mm.OnPipelineDone(ctx, e)
		}
	}
}

// logMonitor 默认实现，使用 xlog 打印，诊断按稳定格式逐条输出
type logMonitor struct{}

// LogMonitor 内置的 xlog 实现，可与其它实现组合成 MultiMonitor
func LogMonitor() Monitor {
	return logMonitor{}
}

func (logMonitor) OnProcessDone(ctx context.Context, e *StepEvent) {
	for _, d := range e.Diagnostics {
		if d.Severity == xdiag.Error {
			xlog.Error(ctx, "[xpipeline] pipeline=[%s] processor=[%s] resource=[%s] %s",
				e.PipelineName, e.ProcessorName, e.Resource, d.String())
			continue
		}
		xlog.Warn(ctx, "[xpipeline] pipeline=[%s] processor=[%s] resource=[%s] %s",
			e.PipelineName, e.ProcessorName, e.Resource, d.String())
	}

	if e.Err != nil {
		xlog.Warn(ctx, "[xpipeline] pipeline=[%s] processor=[%s] resource=[%s] duration=[%s] status=[failed] err=[%v]",
			e.PipelineName, e.ProcessorName, e.Resource, e.Duration, e.Err)
		return
	}
	xlog.Info(ctx, "[xpipeline] pipeline=[%s] processor=[%s] resource=[%s] duration=[%s] status=[success]",
		e.PipelineName, e.ProcessorName, e.Resource, e.Duration)
}

func (logMonitor) OnPipelineDone(ctx context.Context, e *PipelineEvent) {
	r := e.Result
	xlog.Info(ctx, "[xpipeline] pipeline=[%s] resource=[%s] duration=[%s] state=[%s] ran=%v skipped=%v",
		e.PipelineName, r.Resource, e.Duration, r.State, r.Ran, r.Skipped)
}

var (
	defaultMonitorInstance = LogMonitor()
	monitorMu              sync.RWMutex
)

// SetDefaultMonitor 设置全局默认 Monitor 实现，替换内置的 xlog 打印
func SetDefaultMonitor(m Monitor) {
	monitorMu.Lock()
	defer monitorMu.Unlock()
	defaultMonitorInstance = m
}

// GetDefaultMonitor 获取全局默认 Monitor 实现
func GetDefaultMonitor() Monitor {
	monitorMu.RLock()
	defer monitorMu.RUnlock()
	return defaultMonitorInstance
}
