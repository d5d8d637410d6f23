// Package exttool 以外部解释器进程实现的处理器，每次调用独立起进程，调用结束前回收
package exttool

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/xiaoshicae/xasset/xcache"
	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xprocessor"
	"github.com/xiaoshicae/xasset/xutil"
)

// InputMode 内容交给工具的方式
type InputMode int

const (
	// Stdin 内容写入标准输入
	Stdin InputMode = iota
	// TempFile 内容写入调用私有的临时文件，Args 中的 FilePlaceholder 替换为文件路径
	TempFile
)

const (
	FilePlaceholder = "{}"

	defaultTimeout = 30 * time.Second
	probeTimeout   = 5 * time.Second
	// waitDelay 进程被杀后等待管道关闭的上限
	waitDelay = 500 * time.Millisecond
)

// Spec 外部工具的调用方式
type Spec struct {
	// Name 处理器名
	Name string `validate:"required"`
	// Interpreter 默认可执行文件，Options.InterpreterPath 非空时覆盖
	Interpreter string `validate:"required"`
	Args        []string
	// ProbeArgs 可用性探测参数，为空时只检查可执行文件能否找到
	ProbeArgs []string
	Input     InputMode `validate:"oneof=0 1"`
	// TempExt TempFile 模式下临时文件的后缀，如 ".coffee"
	TempExt        string
	DefaultTimeout time.Duration `validate:"gte=0"`
	// Env 追加到当前进程环境变量之后
	Env []string
}

// Tool 外部工具处理器，实例只读，可并发调用
type Tool struct {
	spec    Spec
	path    string
	timeout time.Duration
	dir     string
}

var (
	specValidate = validator.New()
	probes       = xcache.Of[bool]("exttool.probe")
)

// New 按 spec 与配置创建工具处理器
func New(spec Spec, opts xprocessor.Options) (*Tool, error) {
	if err := specValidate.Struct(spec); err != nil {
		return nil, xerror.New("exttool", "new", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	def := spec.DefaultTimeout
	if def <= 0 {
		def = defaultTimeout
	}
	return &Tool{
		spec:    spec,
		path:    xutil.GetOrDefault(opts.InterpreterPath, spec.Interpreter),
		timeout: opts.Timeout(def),
		dir:     opts.WorkingDir,
	}, nil
}

func (t *Tool) Name() string {
	return t.spec.Name
}

// Timeout 单次调用的超时
func (t *Tool) Timeout() time.Duration {
	return t.timeout
}

// Available 工具能否运行，探测结果按解释器路径缓存
func (t *Tool) Available(ctx context.Context) bool {
	return t.availability(ctx) == nil
}

// availability 探测超时或被取消时不缓存结果，只有确定的可用/不可用才缓存
func (t *Tool) availability(ctx context.Context) error {
	key := t.path + " " + strings.Join(t.spec.ProbeArgs, " ")
	ok, hit := probes.Get(key)
	if !hit {
		var err error
		if ok, err = t.probe(ctx); err != nil {
			return err
		}
		probes.Set(key, ok)
		xutil.InfoIfEnableDebug("XAsset exttool probe [%s] available=%v", key, ok)
	}
	if !ok {
		return xerror.Errorf(xerror.ToolInvocationError, "interpreter [%s] is not available", t.path)
	}
	return nil
}

// probe 探测时长不超过 probeTimeout 与调用超时中的较小者，且计入 ctx 的剩余时间
func (t *Tool) probe(ctx context.Context) (bool, error) {
	if _, err := exec.LookPath(t.path); err != nil {
		return false, nil
	}
	if len(t.spec.ProbeArgs) == 0 {
		return true, nil
	}
	pctx, cancel := context.WithTimeout(ctx, min(probeTimeout, t.timeout))
	defer cancel()
	cmd := t.command(pctx, t.spec.ProbeArgs)
	cmd.Stdout, cmd.Stderr = io.Discard, io.Discard
	if err := cmd.Run(); err == nil {
		return true, nil
	}
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return false, xerror.Wrap(xerror.ToolInvocationError, ctx.Err(), "%s probe interrupted: %v", t.spec.Name, ctx.Err())
	case pctx.Err() != nil:
		return false, xerror.Wrap(xerror.Timeout, pctx.Err(), "%s availability probe exceeded timeout %v", t.spec.Name, min(probeTimeout, t.timeout))
	}
	return false, nil
}

// Process 起一个新进程处理本次内容：stdout 为结果，stderr 逐行转为诊断
// 成功时 stderr 记为 WARNING，失败时记为 ERROR；超时的进程连同其进程组一起被杀掉
// 可用性探测与本次处理共用同一个超时
func (t *Tool) Process(ctx context.Context, req *xprocessor.Request) error {
	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if len(t.spec.ProbeArgs) > 0 {
		if err := t.availability(runCtx); err != nil {
			return err
		}
	}

	args := t.spec.Args
	var stdin io.Reader = req.Input
	if t.spec.Input == TempFile {
		dir, err := os.MkdirTemp("", "xasset-"+t.spec.Name+"-*")
		if err != nil {
			return xerror.Wrap(xerror.IOError, err, "create temp dir: %v", err)
		}
		defer os.RemoveAll(dir)

		file := filepath.Join(dir, "input"+t.spec.TempExt)
		if err := writeFile(file, req.Input); err != nil {
			return err
		}
		args = withFile(args, file)
		stdin = nil
	}

	var stderr bytes.Buffer
	cmd := t.command(runCtx, args)
	cmd.Stdin = stdin
	cmd.Stdout = req.Output
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	xutil.InfoIfEnableDebug("XAsset exttool [%s] resource=[%s] finished in %v, err=[%v]", t.spec.Name, req.Resource, time.Since(start), runErr)

	failed := runErr != nil
	first := report(req, stderr.String(), failed)
	if !failed {
		return nil
	}
	return t.failure(ctx, runCtx, runErr, first)
}

func (t *Tool) failure(parent, run context.Context, runErr error, first *line) error {
	if parent.Err() == nil && errors.Is(run.Err(), context.DeadlineExceeded) {
		return xerror.Wrap(xerror.Timeout, run.Err(), "%s exceeded timeout %v", t.spec.Name, t.timeout)
	}
	if err := parent.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return xerror.Wrap(xerror.Timeout, err, "%s interrupted by caller deadline", t.spec.Name)
		}
		return xerror.Wrap(xerror.ToolInvocationError, err, "%s interrupted: %v", t.spec.Name, err)
	}
	var pe *xerror.ProcessingError
	if errors.As(runErr, &pe) {
		return pe
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		e := xerror.Wrap(xerror.ToolInvocationError, runErr, "%s exited with code %d", t.spec.Name, exitErr.ExitCode())
		if first != nil {
			e.Message += ": " + first.text
			e.At(first.line, first.column)
		}
		return e
	}
	return xerror.Wrap(xerror.ToolInvocationError, runErr, "start %s failed: %v", t.path, runErr)
}

func (t *Tool) command(ctx context.Context, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, t.path, args...)
	cmd.Dir = t.dir
	if len(t.spec.Env) > 0 {
		cmd.Env = append(os.Environ(), t.spec.Env...)
	}
	cmd.WaitDelay = waitDelay
	isolate(cmd)
	return cmd
}

func writeFile(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return xerror.Wrap(xerror.IOError, err, "create temp file: %v", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		var pe *xerror.ProcessingError
		if errors.As(err, &pe) {
			return pe
		}
		return xerror.Wrap(xerror.IOError, err, "write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		return xerror.Wrap(xerror.IOError, err, "close temp file: %v", err)
	}
	return nil
}

// withFile 替换占位符，没有占位符时追加到末尾
func withFile(args []string, file string) []string {
	out := make([]string, 0, len(args)+1)
	found := false
	for _, a := range args {
		if a == FilePlaceholder {
			a, found = file, true
		}
		out = append(out, a)
	}
	if !found {
		out = append(out, file)
	}
	return out
}
