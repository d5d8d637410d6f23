// Package minify 进程内的 JS/CSS 压缩处理器
package minify

import (
	"bytes"
	"context"
	"errors"
	"io"

	engine "github.com/tdewolff/minify/v2"
	enginejs "github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"

	"github.com/xiaoshicae/xasset/xdiag"
	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xprocessor"
)

const (
	JSName           = "js-min"
	JSMungedName     = "js-min-munged"
	jsMediaType      = "application/javascript"
	cssMediaType     = "text/css"
	evalWarning      = "use of eval disables identifier renaming in enclosing scopes"
	withWarning      = "use of with is discouraged, identifiers inside cannot be resolved statically"
	debuggerNotes    = "debugger statement left in source"
	lineBreakSkipped = "line breaks skipped, breaking at statement ends would change the program"
)

// JS 进程内 JS 压缩器，实例只读，可并发使用
type JS struct {
	name string
	opts xprocessor.Options
	m    *engine.M
}

// NewJS 按配置创建 JS 压缩器
func NewJS(opts xprocessor.Options) *JS {
	return newJS(JSName, opts)
}

// NewJSMunged 开启标识符缩短的 JS 压缩器
func NewJSMunged() *JS {
	opts := xprocessor.DefaultOptions()
	opts.RenameIdentifiers = true
	return newJS(JSMungedName, opts)
}

func newJS(name string, opts xprocessor.Options) *JS {
	m := engine.New()
	m.Add(jsMediaType, &enginejs.Minifier{KeepVarNames: !opts.RenameIdentifiers})
	return &JS{name: name, opts: opts, m: m}
}

func (p *JS) Name() string {
	return p.name
}

// Options 只读配置
func (p *JS) Options() xprocessor.Options {
	return p.opts
}

func (p *JS) Process(ctx context.Context, req *xprocessor.Request) error {
	src, err := io.ReadAll(req.Input)
	if err != nil {
		return err
	}
	if p.opts.VerboseDiagnostics {
		lintJS(src, req.Reporter)
	}

	out, err := p.minify(src)
	if err != nil {
		return parseFailure(req.Reporter, err)
	}
	if p.opts.LineBreaks() {
		broken, err := breakJSLines(out, p.opts.LineBreakColumn)
		if err == nil {
			err = validJS(broken)
		}
		if err != nil {
			req.Reporter.Warning(lineBreakSkipped)
		} else {
			out = broken
		}
	}
	if p.opts.PreserveStatementTerminators && len(out) > 0 && !bytes.HasSuffix(bytes.TrimRight(out, "\n"), []byte(";")) {
		out = append(out, ';')
	}
	_, err = req.Output.Write(out)
	return err
}

// minify 关闭优化或要求保留分号时只去空白与注释，压缩引擎会合并语句并丢掉分号
func (p *JS) minify(src []byte) ([]byte, error) {
	if p.opts.DisableOptimizations || p.opts.PreserveStatementTerminators {
		if err := validJS(src); err != nil {
			return nil, err
		}
		out, err := stripJS(src)
		if err != nil {
			return nil, err
		}
		if err := validJS(out); err != nil {
			return nil, xerror.Wrap(xerror.ParseError, err, "whitespace removal produced invalid output: %v", err)
		}
		return out, nil
	}
	buf := bytes.NewBuffer(make([]byte, 0, len(src)))
	if err := p.m.Minify(jsMediaType, buf, bytes.NewReader(src)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// validJS 解析会改写输入末尾，这里只解析副本
func validJS(src []byte) error {
	_, err := js.Parse(parse.NewInputBytes(bytes.Clone(src)), js.Options{})
	return err
}

// lintJS 报告影响压缩效果的写法，词法错误交给压缩阶段处理
func lintJS(src []byte, rep *xdiag.Reporter) {
	prev := js.ErrorToken
	_ = scanJS(src, func(t jsToken) {
		if !significant(t.tt) {
			return
		}
		afterDot := prev == js.DotToken
		prev = t.tt
		if afterDot {
			return
		}
		switch {
		case t.tt == js.IdentifierToken && string(t.text) == "eval":
			rep.WarningAt(t.line, t.col, evalWarning)
		case t.tt == js.WithToken:
			rep.WarningAt(t.line, t.col, withWarning)
		case t.tt == js.DebuggerToken:
			rep.WarningAt(t.line, t.col, debuggerNotes)
		}
	})
}

// parseFailure 记录 ERROR 诊断并返回 ParseError
func parseFailure(rep *xdiag.Reporter, err error) error {
	var pe *parse.Error
	if errors.As(err, &pe) {
		rep.ErrorAt(pe.Line, pe.Column, pe.Message)
		return xerror.Wrap(xerror.ParseError, err, "%s at line %d, column %d", pe.Message, pe.Line, pe.Column).
			At(pe.Line, pe.Column)
	}
	rep.Error(err.Error())
	return xerror.Wrap(xerror.ParseError, err, "%v", err)
}
