package xdiag

import (
	"sync"
)

// Reporter 收集一次处理调用中引擎报告的诊断，只追加不修改
// 是否致命由处理器决定，Reporter 只负责记录
type Reporter struct {
	mu    sync.Mutex
	items []Diagnostic
}

func NewReporter() *Reporter {
	return &Reporter{}
}

// Report 追加一条诊断
func (r *Reporter) Report(d Diagnostic) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.items = append(r.items, d)
	r.mu.Unlock()
}

func (r *Reporter) Warning(msg string) {
	r.Report(Warn(msg))
}

func (r *Reporter) WarningAt(line, column int, msg string) {
	r.Report(Warn(msg).At(line, column))
}

func (r *Reporter) Error(msg string) {
	r.Report(Err(msg))
}

func (r *Reporter) ErrorAt(line, column int, msg string) {
	r.Report(Err(msg).At(line, column))
}

// Diagnostics 按上报顺序返回全部诊断的副本
func (r *Reporter) Diagnostics() []Diagnostic {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return nil
	}
	res := make([]Diagnostic, len(r.items))
	copy(res, r.items)
	return res
}

// HasErrors 是否存在 ERROR 级别诊断
func (r *Reporter) HasErrors() bool {
	return len(Filter(r.Diagnostics(), Error)) > 0
}

// Filter 按级别筛选，保持原有顺序
func Filter(ds []Diagnostic, s Severity) []Diagnostic {
	var res []Diagnostic
	for _, d := range ds {
		if d.Severity == s {
			res = append(res, d)
		}
	}
	return res
}
