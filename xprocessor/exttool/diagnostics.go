package exttool

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/xiaoshicae/xasset/xprocessor"
)

var (
	ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	// file.coffee:3:7: error: ...
	colonPos = regexp.MustCompile(`:(\d+):(\d+)`)
	// ... on line 3, column 7 / line 3 col 7
	wordPos = regexp.MustCompile(`(?i)line (\d+),? col(?:umn)? (\d+)`)
)

type line struct {
	text         string
	line, column int
}

func parseLine(s string) line {
	l := line{text: s}
	m := colonPos.FindStringSubmatch(s)
	if m == nil {
		m = wordPos.FindStringSubmatch(s)
	}
	if m != nil {
		l.line, _ = strconv.Atoi(m[1])
		l.column, _ = strconv.Atoi(m[2])
	}
	return l
}

// report 将 stderr 逐行写入 Reporter，返回第一条非空行
func report(req *xprocessor.Request, stderr string, failed bool) *line {
	var first *line
	for _, raw := range strings.Split(ansi.ReplaceAllString(stderr, ""), "\n") {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		l := parseLine(s)
		if first == nil {
			first = &l
		}
		switch {
		case failed && l.line > 0:
			req.Reporter.ErrorAt(l.line, l.column, l.text)
		case failed:
			req.Reporter.Error(l.text)
		case l.line > 0:
			req.Reporter.WarningAt(l.line, l.column, l.text)
		default:
			req.Reporter.Warning(l.text)
		}
	}
	return first
}
