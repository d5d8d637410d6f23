package minify

import (
	"bytes"
	"io"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

// cursor 跟踪 1 起始的行列，列按 rune 计
type cursor struct {
	line, col int
}

func newCursor() cursor {
	return cursor{line: 1, col: 1}
}

func (c *cursor) advance(b []byte) {
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case '\r':
			if i+1 < len(b) && b[i+1] == '\n' {
				continue
			}
			c.line, c.col = c.line+1, 1
		case '\n':
			c.line, c.col = c.line+1, 1
		default:
			if b[i]&0xC0 != 0x80 {
				c.col++
			}
		}
	}
}

type jsToken struct {
	tt   js.TokenType
	text []byte
	line int
	col  int
}

func significant(tt js.TokenType) bool {
	switch tt {
	case js.WhitespaceToken, js.LineTerminatorToken, js.CommentToken, js.CommentLineTerminatorToken:
		return false
	}
	return true
}

// 这些关键字之后的 / 是正则字面量的开始
var regexpAfterKeyword = map[js.TokenType]bool{
	js.ReturnToken:     true,
	js.TypeofToken:     true,
	js.InstanceofToken: true,
	js.InToken:         true,
	js.OfToken:         true,
	js.NewToken:        true,
	js.DeleteToken:     true,
	js.VoidToken:       true,
	js.ThrowToken:      true,
	js.CaseToken:       true,
	js.DoToken:         true,
	js.ElseToken:       true,
	js.YieldToken:      true,
	js.AwaitToken:      true,
}

// regexpAllowed 根据前一个有效 token 判断 / 是除号还是正则
func regexpAllowed(prev js.TokenType) bool {
	switch {
	case prev == js.ErrorToken:
		return true
	case prev == js.CloseParenToken, prev == js.CloseBracketToken, prev == js.CloseBraceToken,
		prev == js.IncrToken, prev == js.DecrToken:
		return false
	case js.IsNumeric(prev), prev == js.StringToken, prev == js.RegExpToken,
		prev == js.TemplateToken, prev == js.TemplateEndToken, prev == js.PrivateIdentifierToken:
		return false
	case js.IsIdentifierName(prev):
		return regexpAfterKeyword[prev]
	}
	return true
}

// scanJS 逐个 token 回调，遇到词法错误时返回 *parse.Error
func scanJS(src []byte, fn func(t jsToken)) error {
	l := js.NewLexer(parse.NewInputBytes(src))
	pos := newCursor()
	prev := js.ErrorToken
	// parens 记录每层括号是否为 if/while/for/with 的条件，条件括号之后的 / 是正则
	var parens []bool
	afterCond := false
	for {
		tt, text := l.Next()
		if tt == js.ErrorToken {
			if err := l.Err(); err != nil && err != io.EOF {
				return err
			}
			return nil
		}
		if (tt == js.DivToken || tt == js.DivEqToken) && (afterCond || regexpAllowed(prev)) {
			if tt, text = l.RegExp(); tt == js.ErrorToken {
				return l.Err()
			}
		}
		fn(jsToken{tt: tt, text: text, line: pos.line, col: pos.col})
		pos.advance(text)
		if significant(tt) {
			afterCond = false
			switch tt {
			case js.OpenParenToken:
				parens = append(parens, conditionKeyword(prev))
			case js.CloseParenToken:
				if n := len(parens); n > 0 {
					afterCond, parens = parens[n-1], parens[:n-1]
				}
			}
			prev = tt
		}
	}
}

func conditionKeyword(tt js.TokenType) bool {
	return tt == js.IfToken || tt == js.WhileToken || tt == js.ForToken || tt == js.WithToken
}

func isLicenseComment(text []byte) bool {
	return bytes.HasPrefix(text, []byte("/*!"))
}

// needsSpace 相邻两个 token 去掉空白后是否会粘连成不同的 token
func needsSpace(out, next []byte) bool {
	if len(out) == 0 || len(next) == 0 {
		return false
	}
	last, first := out[len(out)-1], next[0]
	switch {
	case js.IsIdentifierEnd(out) && js.IsIdentifierContinue(next):
		return true
	case last == '+' && first == '+', last == '-' && first == '-':
		return true
	case last == '/' && (first == '/' || first == '*'):
		return true
	case last == '<' && first == '!':
		return true
	case last >= '0' && last <= '9' && first == '.':
		return true
	}
	return false
}

// stripJS 只移除空白与注释，保留换行以维持自动分号插入的语义，保留 /*! 开头的注释
func stripJS(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src))
	var space, newline bool
	emit := func(text []byte) {
		if len(out) > 0 {
			if newline {
				out = append(out, '\n')
			} else if space && needsSpace(out, text) {
				out = append(out, ' ')
			}
		}
		space, newline = false, false
		out = append(out, text...)
	}
	err := scanJS(src, func(t jsToken) {
		switch t.tt {
		case js.WhitespaceToken:
			space = true
		case js.LineTerminatorToken:
			newline = true
		case js.CommentToken, js.CommentLineTerminatorToken:
			if isLicenseComment(t.text) {
				emit(t.text)
				newline = true
				return
			}
			if t.tt == js.CommentLineTerminatorToken {
				newline = true
			} else {
				space = true
			}
		default:
			emit(t.text)
		}
	})
	return out, err
}

// breakJSLines 在列数超过 column 后，于下一个 ; 或 } 之后换行
func breakJSLines(src []byte, column int) ([]byte, error) {
	out := make([]byte, 0, len(src)+len(src)/64)
	col, pending := 0, false
	err := scanJS(src, func(t jsToken) {
		if pending && significant(t.tt) && t.tt != js.SemicolonToken {
			if len(out) > 0 && out[len(out)-1] != '\n' {
				out = append(out, '\n')
				col = 0
			}
			pending = false
		}
		out = append(out, t.text...)
		if i := bytes.LastIndexAny(t.text, "\r\n"); i >= 0 {
			col = len(t.text) - i - 1
		} else {
			col += len(t.text)
		}
		if (t.tt == js.SemicolonToken || t.tt == js.CloseBraceToken) && col > column {
			pending = true
		}
	})
	return out, err
}
