package xerror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strings"

	crdberrors "github.com/cockroachdb/errors"
	"github.com/tdewolff/parse/v2"
)

// Kind 处理失败的类别，调用方据此区分失败原因，无需关心具体引擎的错误类型
type Kind int

const (
	ParseError          Kind = iota + 1 // 源码不符合引擎语法
	IOError                             // 输入输出流读写失败
	ToolInvocationError                 // 外部工具无法启动或非正常退出
	Timeout                             // 外部工具执行超时
	UnsupportedType                     // 处理器不支持该资源类型，属于配置错误
)

var kindNames = map[Kind]string{
	ParseError:          "ParseError",
	IOError:             "IOError",
	ToolInvocationError: "ToolInvocationError",
	Timeout:             "Timeout",
	UnsupportedType:     "UnsupportedType",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind 按名称解析类别，忽略大小写
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return k, true
		}
	}
	return 0, false
}

// ProcessingError 一次处理调用的终止性失败
// Line/Column 为0表示位置未知，Cause 保留原始错误链
type ProcessingError struct {
	Kind      Kind
	Processor string
	Resource  string
	Message   string
	Line      int
	Column    int
	Cause     error
}

func (e *ProcessingError) Error() string {
	var sb strings.Builder
	sb.WriteString("XAsset ")
	sb.WriteString(e.Kind.String())
	if e.Processor != "" {
		fmt.Fprintf(&sb, " processor=[%s]", e.Processor)
	}
	if e.Resource != "" {
		fmt.Fprintf(&sb, " resource=[%s]", e.Resource)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Line > 0 && !strings.Contains(e.Message, "line ") {
		fmt.Fprintf(&sb, " (line %d, column %d)", e.Line, e.Column)
	}
	return sb.String()
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// HasPosition 错误是否定位到源码位置
func (e *ProcessingError) HasPosition() bool {
	return e.Line > 0
}

// Errorf 创建指定类别的 ProcessingError
func Errorf(kind Kind, format string, args ...any) *ProcessingError {
	return &ProcessingError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap 以 cause 为原因创建 ProcessingError，cause 会附带调用栈
func Wrap(kind Kind, cause error, format string, args ...any) *ProcessingError {
	e := Errorf(kind, format, args...)
	if cause != nil {
		e.Cause = crdberrors.WithStackDepth(cause, 1)
	}
	return e
}

// At 设置源码位置
func (e *ProcessingError) At(line, column int) *ProcessingError {
	e.Line, e.Column = line, column
	return e
}

// Normalize 将任意失败归一为 ProcessingError
// 已是 ProcessingError 的直接复用，仅补齐处理器与资源名
func Normalize(processor, resource string, err error) *ProcessingError {
	if err == nil {
		return nil
	}
	var pe *ProcessingError
	if errors.As(err, &pe) {
		if pe.Processor == "" {
			pe.Processor = processor
		}
		if pe.Resource == "" {
			pe.Resource = resource
		}
		return pe
	}

	res := classify(err)
	res.Processor, res.Resource = processor, resource
	res.Cause = crdberrors.WithStackDepth(err, 1)
	return res
}

func classify(err error) *ProcessingError {
	var (
		parseErr *parse.Error
		execErr  *exec.Error
		exitErr  *exec.ExitError
		pathErr  *fs.PathError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Errorf(Timeout, "deadline exceeded: %v", err)
	case errors.As(err, &parseErr):
		return Errorf(ParseError, "%s at line %d, column %d", parseErr.Message, parseErr.Line, parseErr.Column).
			At(parseErr.Line, parseErr.Column)
	case errors.As(err, &execErr):
		return Errorf(ToolInvocationError, "start %s failed: %v", execErr.Name, execErr.Err)
	case errors.As(err, &exitErr):
		return Errorf(ToolInvocationError, "tool exited with code %d", exitErr.ExitCode())
	case errors.As(err, &pathErr),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrShortWrite),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, fs.ErrClosed):
		return Errorf(IOError, "%v", err)
	default:
		return Errorf(ToolInvocationError, "%v", err)
	}
}

// KindOf err链中 ProcessingError 的类别
func KindOf(err error) (Kind, bool) {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

// IsKind err链中是否包含指定类别的 ProcessingError
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
