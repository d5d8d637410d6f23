// Package xdiag 处理过程中的诊断信息收集
package xdiag

import (
	"fmt"
	"strconv"
)

// Severity 诊断级别
type Severity int

const (
	Warning Severity = iota + 1
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	}
	return "Severity(" + strconv.Itoa(int(s)) + ")"
}

// Diagnostic 一条诊断，创建后不再修改
// Positional 为false时 Line/Column 无意义；Column 可能是偏移量，按引擎给出的值透传
type Diagnostic struct {
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Line       int      `json:"line,omitempty"`
	Column     int      `json:"column,omitempty"`
	Positional bool     `json:"positional"`
}

// String 稳定的日志格式：[SEVERITY] line:column:message 或 [SEVERITY] message
func (d Diagnostic) String() string {
	if d.Positional {
		return fmt.Sprintf("[%s] %d:%d:%s", d.Severity, d.Line, d.Column, d.Message)
	}
	return fmt.Sprintf("[%s] %s", d.Severity, d.Message)
}

// Warn 无位置的警告
func Warn(msg string) Diagnostic {
	return Diagnostic{Severity: Warning, Message: msg}
}

// Err 无位置的错误
func Err(msg string) Diagnostic {
	return Diagnostic{Severity: Error, Message: msg}
}

// At 返回带位置的副本
func (d Diagnostic) At(line, column int) Diagnostic {
	d.Line, d.Column, d.Positional = line, column, true
	return d
}
