// Package xprocessor 处理器契约与单次调用的执行边界
package xprocessor

import (
	"context"
	"io"

	"github.com/xiaoshicae/xasset/xdiag"
	"github.com/xiaoshicae/xasset/xresource"
)

// Processor 资源转换单元
// 同一实例会被并发调用，实现不得在调用之间保存可变状态，配置是唯一的共享状态且只读
type Processor interface {
	// Name 处理器标识，与注册表中的名称一致
	Name() string
	// Process 读取 Input 全部内容并将结果写入 Output，引擎诊断写入 Reporter
	// 返回非nil错误表示本次处理失败，此时 Output 中的内容会被丢弃
	Process(ctx context.Context, req *Request) error
}

// Request 单次处理请求，只在本次调用内有效，处理器不得保留
type Request struct {
	Resource string
	Kind     xresource.Kind
	Input    io.Reader
	Output   io.Writer
	Reporter *xdiag.Reporter
}

// Func 以函数实现 Processor
type Func struct {
	name string
	fn   func(ctx context.Context, req *Request) error
}

// NewFunc 以函数创建处理器
func NewFunc(name string, fn func(ctx context.Context, req *Request) error) *Func {
	return &Func{name: name, fn: fn}
}

func (f *Func) Name() string {
	return f.name
}

func (f *Func) Process(ctx context.Context, req *Request) error {
	return f.fn(ctx, req)
}
