package xpipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/xiaoshicae/xasset/xdiag"
	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xprocessor"
)

// State 单个资源的处理状态
type State int

const (
	Ready State = iota
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Succeeded:
		return "SUCCEEDED"
	case Failed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result 一个资源经过 Pipeline 的结果
type Result struct {
	Pipeline string
	Resource string
	State    State
	// Content 最终内容，仅 SUCCEEDED 时有值，失败时不会暴露任何中间内容
	Content []byte
	// Ran 实际执行的处理器，按执行顺序
	Ran []string
	// Skipped 因不支持资源类型而跳过的处理器
	Skipped []string
	// Outcomes 每个已执行处理器的结果
	Outcomes []*xprocessor.Outcome
	// Diagnostics 所有已执行处理器的诊断，按处理器顺序及各自的产生顺序合并
	Diagnostics []xdiag.Diagnostic
	// Err 第一个终止性失败
	Err      *xerror.ProcessingError
	Duration time.Duration
}

// Succeeded 是否成功
func (r *Result) Succeeded() bool {
	return r.State == Succeeded
}

// Failure 失败时返回归一后的错误，成功返回nil
func (r *Result) Failure() error {
	if r.Err == nil {
		return nil
	}
	return r.Err
}

// Errors ERROR 级别的诊断
func (r *Result) Errors() []xdiag.Diagnostic {
	return xdiag.Filter(r.Diagnostics, xdiag.Error)
}

// Warnings WARNING 级别的诊断
func (r *Result) Warnings() []xdiag.Diagnostic {
	return xdiag.Filter(r.Diagnostics, xdiag.Warning)
}

// WriteTo 将最终内容写入 w，失败的结果返回其错误且不写入任何内容
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	if r.Err != nil {
		return 0, r.Err
	}
	n, err := w.Write(r.Content)
	return int64(n), err
}

func (r *Result) fail(err *xerror.ProcessingError) {
	r.State = Failed
	r.Err = err
	r.Content = nil
}

func (r *Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("pipeline=[%s] resource=[%s] state=[%s] err=[%v]", r.Pipeline, r.Resource, r.State, r.Err)
	}
	return fmt.Sprintf("pipeline=[%s] resource=[%s] state=[%s] diagnostics=[%d]", r.Pipeline, r.Resource, r.State, len(r.Diagnostics))
}
