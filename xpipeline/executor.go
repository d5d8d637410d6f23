package xpipeline

import (
	"bytes"
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/slices"

	"github.com/xiaoshicae/xasset/xdiag"
	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xprocessor"
	"github.com/xiaoshicae/xasset/xregistry"
	"github.com/xiaoshicae/xasset/xresource"
	"github.com/xiaoshicae/xasset/xtrace"
	"github.com/xiaoshicae/xasset/xutil"
)

// Executor 执行 Pipeline，只读，可被并发使用
type Executor struct {
	registry *xregistry.Registry
	monitor  Monitor
	abort    *bool
	workers  int
}

type Option func(*Executor)

// WithRegistry 指定适用性判定使用的注册表，默认为全局注册表
func WithRegistry(r *xregistry.Registry) Option {
	return func(e *Executor) {
		e.registry = r
	}
}

// WithMonitor 自定义 Monitor，nil 时使用全局默认 Monitor
func WithMonitor(m Monitor) Option {
	return func(e *Executor) {
		e.monitor = m
	}
}

// WithAbortOnErrorDiagnostic 覆盖 XPipeline.AbortOnErrorDiagnostic 配置
func WithAbortOnErrorDiagnostic(abort bool) Option {
	return func(e *Executor) {
		e.abort = &abort
	}
}

// WithBatchWorkers 覆盖 XPipeline.BatchWorkers 配置
func WithBatchWorkers(n int) Option {
	return func(e *Executor) {
		e.workers = n
	}
}

// NewExecutor 创建执行器
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExecutor = NewExecutor()

// Run 使用默认执行器处理单个资源
func Run(ctx context.Context, p *Pipeline, res *xresource.Resource) *Result {
	return defaultExecutor.Run(ctx, p, res)
}

// Run 对单个资源按序执行 Pipeline
// 资源内容流在任何返回路径上都会被关闭；失败时 Result.Content 为空
func (e *Executor) Run(ctx context.Context, p *Pipeline, res *xresource.Resource) *Result {
	if ctx == nil {
		ctx = context.Background()
	}
	if p == nil {
		p = &Pipeline{}
	}

	start := time.Now()
	result := &Result{Pipeline: p.Name, State: Ready}
	if res == nil {
		result.fail(xerror.Errorf(xerror.IOError, "nil resource"))
		return result
	}
	defer res.Close()
	result.Resource = res.Name()

	ctx, span := xtrace.Tracer().Start(ctx, "xpipeline.Run", trace.WithAttributes(
		attribute.String("xasset.pipeline", p.Name),
		attribute.String("xasset.resource", res.Name()),
		attribute.String("xasset.kind", res.Kind().String()),
	))
	monitor := e.resolveMonitor()
	defer func() {
		result.Duration = time.Since(start)
		endSpan(span, result.Err, attribute.String("xasset.state", result.State.String()))
		if monitor != nil {
			monitor.OnPipelineDone(ctx, &PipelineEvent{
				PipelineName: p.Name,
				Result:       result,
				Duration:     result.Duration,
			})
		}
	}()

	steps, skipped, err := e.plan(p, res)
	result.Skipped = skipped
	if err != nil {
		result.fail(err)
		return result
	}
	if len(skipped) > 0 {
		xutil.InfoIfEnableDebug("XAsset xpipeline pipeline=[%s] resource=[%s] kind=[%s] skipped=%v",
			p.Name, res.Name(), res.Kind(), skipped)
	}

	var input io.Reader = &resourceReader{res: res}
	if len(steps) == 0 {
		content, rerr := io.ReadAll(input)
		if rerr != nil {
			result.fail(xerror.Normalize("", res.Name(), xerror.Wrap(xerror.IOError, rerr, "read input: %v", rerr)))
			return result
		}
		result.Content = content
		result.State = Succeeded
		return result
	}

	abort := e.abortOnErrorDiagnostic()
	var last *bytes.Buffer
	for i, s := range steps {
		result.State = Running
		buf := &bytes.Buffer{}
		o := e.invoke(ctx, p, i, s, res, input, buf, abort, monitor)
		result.Ran = append(result.Ran, o.Processor)
		result.Outcomes = append(result.Outcomes, o)
		result.Diagnostics = append(result.Diagnostics, o.Diagnostics...)
		if o.Err != nil {
			result.fail(o.Err)
			return result
		}
		input, last = buf, buf
	}

	result.Content = last.Bytes()
	result.State = Succeeded
	return result
}

// RunBatch 并发处理相互独立的资源，结果顺序与 resources 一致
func (e *Executor) RunBatch(ctx context.Context, p *Pipeline, resources []*xresource.Resource) []*Result {
	results := make([]*Result, len(resources))
	if len(resources) == 0 {
		return results
	}

	workers := e.workers
	if workers <= 0 {
		workers = GetConfig().BatchWorkers
	}
	workers = min(workers, len(resources))

	pool := xutil.NewPool(workers)
	futures := make([]*xutil.Future[*Result], len(resources))
	for i, res := range resources {
		futures[i] = xutil.Go(pool, func() (*Result, error) {
			return e.Run(ctx, p, res), nil
		})
	}
	pool.Shutdown()

	for i, f := range futures {
		r, err := f.Get()
		if err != nil {
			r = &Result{State: Failed}
			if p != nil {
				r.Pipeline = p.Name
			}
			if res := resources[i]; res != nil {
				r.Resource = res.Name()
				_ = res.Close()
			}
			r.Err = xerror.Normalize("", r.Resource, err)
		}
		results[i] = r
	}
	return results
}

// plan 在读取任何内容前确定要执行的步骤
// 强制步骤不支持资源类型时直接返回 UnsupportedType，非强制步骤跳过
func (e *Executor) plan(p *Pipeline, res *xresource.Resource) ([]Step, []string, *xerror.ProcessingError) {
	kind := res.Kind()
	if !kind.Known() {
		return nil, nil, xerror.Normalize("", res.Name(), xerror.Errorf(xerror.UnsupportedType, "unknown resource kind [%s]", kind))
	}

	var (
		steps   []Step
		skipped []string
	)
	for i, s := range p.Steps {
		if s.Processor == nil {
			return nil, nil, xerror.Normalize("", res.Name(), xerror.Errorf(xerror.UnsupportedType, "step %d has no processor", i))
		}
		err := e.check(s, kind)
		switch {
		case err == nil:
			steps = append(steps, s)
		case s.Force:
			return nil, nil, xerror.Normalize(s.Processor.Name(), res.Name(), err)
		default:
			skipped = append(skipped, s.Processor.Name())
		}
	}
	return steps, skipped, nil
}

func (e *Executor) check(s Step, kind xresource.Kind) error {
	name := s.Processor.Name()
	if len(s.Kinds) == 0 {
		return e.resolveRegistry().Check(name, kind)
	}
	if !slices.Contains(s.Kinds, kind) {
		return xerror.Errorf(xerror.UnsupportedType, "processor [%s] does not support kind [%s], supported=%v", name, kind, s.Kinds)
	}
	return nil
}

func (e *Executor) invoke(ctx context.Context, p *Pipeline, idx int, s Step, res *xresource.Resource,
	in io.Reader, out io.Writer, abort bool, monitor Monitor) *xprocessor.Outcome {
	name := s.Processor.Name()
	ctx, span := xtrace.Tracer().Start(ctx, "xpipeline.Process", trace.WithAttributes(
		attribute.String("xasset.processor", name),
		attribute.Int("xasset.step", idx),
	))

	o := xprocessor.Invoke(ctx, s.Processor, xprocessor.Invocation{
		Resource: res.Name(),
		Kind:     res.Kind(),
		Input:    in,
		Output:   out,
	})
	if o.Err == nil && abort {
		if errs := o.Errors(); len(errs) > 0 {
			o.Err = xerror.Normalize(name, res.Name(), errorDiagnostic(errs))
		}
	}

	endSpan(span, o.Err, attribute.Int("xasset.diagnostics", len(o.Diagnostics)))
	if monitor != nil {
		monitor.OnProcessDone(ctx, &StepEvent{
			PipelineName:  p.Name,
			ProcessorName: name,
			Resource:      res.Name(),
			Kind:          res.Kind(),
			Index:         idx,
			Diagnostics:   o.Diagnostics,
			Err:           o.Err,
			Duration:      o.Duration,
		})
	}
	return o
}

// errorDiagnostic 将 ERROR 诊断升级为终止性失败，位置取第一条
func errorDiagnostic(errs []xdiag.Diagnostic) *xerror.ProcessingError {
	first := errs[0]
	pe := xerror.Errorf(xerror.ParseError, "%d error diagnostic(s) reported, first: %s", len(errs), first.Message)
	if first.Positional {
		pe.At(first.Line, first.Column)
	}
	return pe
}

func (e *Executor) resolveRegistry() *xregistry.Registry {
	if e.registry != nil {
		return e.registry
	}
	return xregistry.Default()
}

// resolveMonitor 返回有效的 Monitor 实例，config 禁用时返回 nil（零开销）
func (e *Executor) resolveMonitor() Monitor {
	if GetConfig().DisableMonitor {
		return nil
	}
	if e.monitor != nil {
		return e.monitor
	}
	return GetDefaultMonitor()
}

func (e *Executor) abortOnErrorDiagnostic() bool {
	if e.abort != nil {
		return *e.abort
	}
	return GetConfig().AbortOnErrorDiagnostic
}

func endSpan(span trace.Span, err *xerror.ProcessingError, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("xasset.error_kind", err.Kind.String()))
		span.SetStatus(codes.Error, err.Message)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// resourceReader 第一个处理器读取资源内容，调用结束时由 xprocessor.Invoke 关闭资源
type resourceReader struct {
	res *xresource.Resource
}

func (r *resourceReader) Read(b []byte) (int, error) {
	return r.res.Content().Read(b)
}

func (r *resourceReader) Close() error {
	return r.res.Close()
}
