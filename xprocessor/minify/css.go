package minify

import (
	"bytes"
	"context"
	"io"

	engine "github.com/tdewolff/minify/v2"
	enginecss "github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	"github.com/xiaoshicae/xasset/xdiag"
	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xprocessor"
)

const (
	CSSName           = "css-min"
	expressionWarning = "CSS expression() is evaluated on every repaint and is unsupported by modern browsers"
)

// CSS 进程内 CSS 压缩器
type CSS struct {
	opts xprocessor.Options
	m    *engine.M
}

// NewCSS 按配置创建 CSS 压缩器
func NewCSS(opts xprocessor.Options) *CSS {
	m := engine.New()
	m.Add(cssMediaType, &enginecss.Minifier{})
	return &CSS{opts: opts, m: m}
}

func (p *CSS) Name() string {
	return CSSName
}

func (p *CSS) Options() xprocessor.Options {
	return p.opts
}

func (p *CSS) Process(ctx context.Context, req *xprocessor.Request) error {
	src, err := io.ReadAll(req.Input)
	if err != nil {
		return err
	}
	if err := checkCSS(src, req.Reporter, p.opts.VerboseDiagnostics); err != nil {
		return err
	}

	var out []byte
	if p.opts.DisableOptimizations {
		out = stripCSS(src)
	} else {
		buf := bytes.NewBuffer(make([]byte, 0, len(src)))
		if err := p.m.Minify(cssMediaType, buf, bytes.NewReader(src)); err != nil {
			return parseFailure(req.Reporter, err)
		}
		out = buf.Bytes()
	}
	if p.opts.LineBreaks() {
		out = breakCSSLines(out, p.opts.LineBreakColumn)
	}
	_, err = req.Output.Write(out)
	return err
}

type cssToken struct {
	tt   css.TokenType
	text []byte
	line int
	col  int
}

func scanCSS(src []byte, fn func(t cssToken)) {
	l := css.NewLexer(parse.NewInputBytes(src))
	pos := newCursor()
	for {
		tt, text := l.Next()
		if tt == css.ErrorToken {
			return
		}
		fn(cssToken{tt: tt, text: text, line: pos.line, col: pos.col})
		pos.advance(text)
	}
}

// checkCSS 压缩引擎对残缺输入是宽容的，这里补充严格检查：未闭合的字符串、注释以及不配对的花括号
func checkCSS(src []byte, rep *xdiag.Reporter, verbose bool) error {
	var (
		failure error
		opened  []cssToken
	)
	fail := func(t cssToken, msg string) {
		if failure == nil {
			rep.ErrorAt(t.line, t.col, msg)
			failure = xerror.Errorf(xerror.ParseError, "%s at line %d, column %d", msg, t.line, t.col).At(t.line, t.col)
		}
	}
	scanCSS(src, func(t cssToken) {
		switch t.tt {
		case css.BadStringToken:
			fail(t, "unterminated string literal")
		case css.BadURLToken:
			fail(t, "malformed url()")
		case css.StringToken:
			if len(t.text) < 2 || t.text[len(t.text)-1] != t.text[0] {
				fail(t, "unterminated string literal")
			}
		case css.CommentToken:
			if len(t.text) < 4 || !bytes.HasSuffix(t.text, []byte("*/")) {
				fail(t, "unterminated comment")
			}
		case css.LeftBraceToken:
			opened = append(opened, t)
		case css.RightBraceToken:
			if len(opened) == 0 {
				fail(t, "unexpected }")
				return
			}
			opened = opened[:len(opened)-1]
		case css.FunctionToken:
			if verbose && bytes.EqualFold(t.text, []byte("expression(")) {
				rep.WarningAt(t.line, t.col, expressionWarning)
			}
		}
	})
	if failure == nil && len(opened) > 0 {
		fail(opened[len(opened)-1], "unclosed {")
	}
	return failure
}

// stripCSS 只移除注释与多余空白，/*! 注释保留
func stripCSS(src []byte) []byte {
	out := make([]byte, 0, len(src))
	space := false
	scanCSS(src, func(t cssToken) {
		switch t.tt {
		case css.WhitespaceToken:
			space = true
			return
		case css.CommentToken:
			if !isLicenseComment(t.text) {
				space = true
				return
			}
		}
		if space && len(out) > 0 && !cssTight(out[len(out)-1]) && !cssTight(t.text[0]) {
			out = append(out, ' ')
		}
		space = false
		out = append(out, t.text...)
	})
	return out
}

// cssTight 前后空白可以安全去掉的字符
func cssTight(c byte) bool {
	switch c {
	case '{', '}', ';', ',':
		return true
	}
	return false
}

// breakCSSLines 列数超过 column 后在 } 之后换行
func breakCSSLines(src []byte, column int) []byte {
	out := make([]byte, 0, len(src)+len(src)/64)
	col := 0
	scanCSS(src, func(t cssToken) {
		out = append(out, t.text...)
		if i := bytes.LastIndexAny(t.text, "\r\n"); i >= 0 {
			col = len(t.text) - i - 1
		} else {
			col += len(t.text)
		}
		if t.tt == css.RightBraceToken && col > column {
			out = append(out, '\n')
			col = 0
		}
	})
	return bytes.TrimRight(out, "\n")
}
