package xasset

import (
	"context"
	"io"

	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xpipeline"
	"github.com/xiaoshicae/xasset/xprocessor"
	"github.com/xiaoshicae/xasset/xregistry"
	"github.com/xiaoshicae/xasset/xresource"
)

// Process 以全局注册表中名为 name 的处理器处理一份内容
// opts 为调用级配置，与 XProcessor 配置合并后创建处理器实例；
// 处理器不支持 kind 时在读取内容前返回 UnsupportedType。
// 返回的 error 与 Outcome.Failure() 一致，in 实现 io.Closer 时在任何路径上都会被关闭
func Process(ctx context.Context, name string, kind xresource.Kind, in io.Reader, out io.Writer, opts map[string]any) (*xprocessor.Outcome, error) {
	r := xregistry.Default()
	p, err := prepare(r, name, kind, opts)
	if err != nil {
		if c, ok := in.(io.Closer); ok {
			_ = c.Close()
		}
		pe := xerror.Normalize(name, "", err)
		return &xprocessor.Outcome{Processor: name, Err: pe}, pe
	}

	o := xprocessor.Invoke(ctx, p, xprocessor.Invocation{Kind: kind, Input: in, Output: out})
	return o, o.Failure()
}

func prepare(r *xregistry.Registry, name string, kind xresource.Kind, opts map[string]any) (xprocessor.Processor, error) {
	if err := r.Check(name, kind); err != nil {
		return nil, err
	}
	p, err := r.NewFromConfig(name, opts)
	if _, ok := xerror.KindOf(err); ok {
		return nil, err
	}
	if err != nil {
		return nil, xerror.Wrap(xerror.UnsupportedType, err, "invalid options for processor [%s]: %v", name, err)
	}
	return p, nil
}

// NewPipeline 以全局注册表中的处理器名称构建 Pipeline，不支持资源类型的处理器在运行时跳过
func NewPipeline(name string, processors ...string) (*xpipeline.Pipeline, error) {
	return xpipeline.FromRegistry(nil, name, processors, nil)
}

// Processors 指定资源类型与类别可用的处理器名称
func Processors(kind xresource.Kind, c xregistry.Category) []string {
	var names []string
	for _, d := range xregistry.Default().Select(kind, c) {
		names = append(names, d.Name)
	}
	return names
}
