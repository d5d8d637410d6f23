package xprocessor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/xiaoshicae/xasset/xdiag"
	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xresource"
)

// Invocation 一次调用的输入，Input 实现 io.Closer 时在调用结束后关闭
type Invocation struct {
	Resource string
	Kind     xresource.Kind
	Input    io.Reader
	Output   io.Writer
}

// Outcome 一次调用的结果，每次调用新建，不跨资源复用
type Outcome struct {
	Processor   string
	Resource    string
	Diagnostics []xdiag.Diagnostic
	// Err 非nil表示失败；处理器失败时 Output 未被写入任何内容，
	// 但向 Output 写出结果时失败(Kind 为 IOError)的，Output 中可能已有 Written 字节的部分内容
	Err      *xerror.ProcessingError
	Written  int64
	Duration time.Duration
}

// Succeeded 是否成功
func (o *Outcome) Succeeded() bool {
	return o.Err == nil
}

// Failure 失败时返回归一后的错误，成功返回nil
func (o *Outcome) Failure() error {
	if o.Err == nil {
		return nil
	}
	return o.Err
}

// Errors ERROR 级别的诊断
func (o *Outcome) Errors() []xdiag.Diagnostic {
	return xdiag.Filter(o.Diagnostics, xdiag.Error)
}

// Warnings WARNING 级别的诊断
func (o *Outcome) Warnings() []xdiag.Diagnostic {
	return xdiag.Filter(o.Diagnostics, xdiag.Warning)
}

type flusher interface {
	Flush() error
}

// Invoke 在受控边界内调用处理器
// 处理器写入调用私有的缓冲区，成功后才整体写入 inv.Output，失败时 Output 保持不变；
// 无论成功失败 Input 都会被关闭，panic 会被捕获并归一为 ToolInvocationError
func Invoke(ctx context.Context, p Processor, inv Invocation) *Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	out := &Outcome{Processor: p.Name(), Resource: inv.Resource}
	defer func() { out.Duration = time.Since(start) }()

	if c, ok := inv.Input.(io.Closer); ok {
		defer c.Close()
	}

	if inv.Input == nil || inv.Output == nil {
		out.Err = xerror.Normalize(p.Name(), inv.Resource, xerror.Errorf(xerror.IOError, "nil input or output stream"))
		return out
	}

	reporter := xdiag.NewReporter()
	buf := &bytes.Buffer{}
	req := &Request{
		Resource: inv.Resource,
		Kind:     inv.Kind,
		Input:    &inputReader{r: inv.Input},
		Output:   buf,
		Reporter: reporter,
	}

	err := safeProcess(ctx, p, req)
	out.Diagnostics = reporter.Diagnostics()
	if err != nil {
		out.Err = xerror.Normalize(p.Name(), inv.Resource, err)
		return out
	}

	n, err := buf.WriteTo(inv.Output)
	out.Written = n
	if err == nil {
		if f, ok := inv.Output.(flusher); ok {
			err = f.Flush()
		}
	}
	if err != nil {
		out.Err = xerror.Normalize(p.Name(), inv.Resource, xerror.Wrap(xerror.IOError, err, "write output: %v", err))
	}
	return out
}

func safeProcess(ctx context.Context, p Processor, req *Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = xerror.Errorf(xerror.ToolInvocationError, "panic: %v\n%s", r, debug.Stack())
		}
	}()
	return p.Process(ctx, req)
}

// inputReader 将读失败标记为 IOError，避免被归为工具错误
type inputReader struct {
	r io.Reader
}

func (ir *inputReader) Read(b []byte) (int, error) {
	n, err := ir.r.Read(b)
	if err != nil && !errors.Is(err, io.EOF) {
		err = xerror.Wrap(xerror.IOError, err, "read input: %v", err)
	}
	return n, err
}

func (o *Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("processor=[%s] resource=[%s] status=[failed] err=[%v]", o.Processor, o.Resource, o.Err)
	}
	return fmt.Sprintf("processor=[%s] resource=[%s] status=[success] diagnostics=[%d]", o.Processor, o.Resource, len(o.Diagnostics))
}
