// Package remote 以 HTTP 编译服务实现的处理器：请求体为资源内容与配置，响应为结果与诊断
package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"

	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xhttp"
	"github.com/xiaoshicae/xasset/xprocessor"
	"github.com/xiaoshicae/xasset/xutil"
)

const defaultTimeout = 30 * time.Second

// Spec 远程服务地址
type Spec struct {
	Name     string `validate:"required"`
	Endpoint string `validate:"required,url"`
	// Client 为空时使用 xhttp 共享 client
	Client *resty.Client `validate:"-"`
}

// CompileRequest 发给服务的请求体
type CompileRequest struct {
	Resource string             `json:"resource"`
	Kind     string             `json:"kind"`
	Content  string             `json:"content"`
	Options  xprocessor.Options `json:"options"`
}

// CompileResponse 服务的响应体，Error 非空表示处理失败
type CompileResponse struct {
	Output      string       `json:"output"`
	Diagnostics []RemoteDiag `json:"diagnostics,omitempty"`
	Error       *RemoteError `json:"error,omitempty"`
}

type RemoteDiag struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

type RemoteError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// Service 远程编译处理器，实例只读，可并发调用
type Service struct {
	spec    Spec
	opts    xprocessor.Options
	timeout time.Duration
}

var specValidate = validator.New()

func New(spec Spec, opts xprocessor.Options) (*Service, error) {
	if err := specValidate.Struct(spec); err != nil {
		return nil, xerror.New("remote", "new", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Service{spec: spec, opts: opts, timeout: opts.Timeout(defaultTimeout)}, nil
}

func (s *Service) Name() string {
	return s.spec.Name
}

func (s *Service) client() *resty.Client {
	if s.spec.Client != nil {
		return s.spec.Client
	}
	return xhttp.C()
}

// Process 不重试；服务返回的 error 按 kind 还原，未知 kind 归为 ToolInvocationError
func (s *Service) Process(ctx context.Context, req *xprocessor.Request) error {
	content, err := io.ReadAll(req.Input)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := &CompileResponse{}
	resp, err := s.client().R().
		SetContext(callCtx).
		SetBody(&CompileRequest{
			Resource: req.Resource,
			Kind:     req.Kind.String(),
			Content:  string(content),
			Options:  s.opts,
		}).
		SetResult(result).
		SetError(result).
		Post(s.spec.Endpoint)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return xerror.Wrap(xerror.Timeout, err, "%s exceeded timeout %v", s.spec.Name, s.timeout)
		}
		return xerror.Wrap(xerror.ToolInvocationError, err, "call %s failed: %v", s.spec.Endpoint, err)
	}
	xutil.InfoIfEnableDebug("XAsset remote [%s] resource=[%s] status=%d cost=%v", s.spec.Name, req.Resource, resp.StatusCode(), resp.Time())

	failed := result.Error != nil || resp.IsError()
	for _, d := range result.Diagnostics {
		report(req, d, failed)
	}

	if result.Error != nil {
		kind, ok := xerror.ParseKind(result.Error.Kind)
		if !ok || kind == xerror.UnsupportedType {
			kind = xerror.ToolInvocationError
		}
		return xerror.Errorf(kind, "%s", result.Error.Message).At(result.Error.Line, result.Error.Column)
	}
	if resp.IsError() {
		return xerror.Errorf(xerror.ToolInvocationError, "%s returned status %d", s.spec.Name, resp.StatusCode())
	}
	if resp.StatusCode() != http.StatusOK {
		return xerror.Errorf(xerror.ToolInvocationError, "%s returned unexpected status %d", s.spec.Name, resp.StatusCode())
	}

	if _, err := io.WriteString(req.Output, result.Output); err != nil {
		return xerror.Wrap(xerror.IOError, err, "write output: %v", err)
	}
	return nil
}

// report 未声明级别的诊断在失败时记为 ERROR，否则记为 WARNING
func report(req *xprocessor.Request, d RemoteDiag, failed bool) {
	isErr := strings.EqualFold(d.Severity, "ERROR") || (d.Severity == "" && failed)
	switch {
	case isErr && d.Line > 0:
		req.Reporter.ErrorAt(d.Line, d.Column, d.Message)
	case isErr:
		req.Reporter.Error(d.Message)
	case d.Line > 0:
		req.Reporter.WarningAt(d.Line, d.Column, d.Message)
	default:
		req.Reporter.Warning(d.Message)
	}
}
