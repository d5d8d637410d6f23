// Package xpipeline 按序对单个资源执行处理器列表
// 状态流转：READY -> RUNNING(i) -> SUCCEEDED / FAILED，第一个终止性失败即短路
package xpipeline

import (
	"github.com/xiaoshicae/xasset/xprocessor"
	"github.com/xiaoshicae/xasset/xregistry"
	"github.com/xiaoshicae/xasset/xresource"
)

// Step Pipeline 中的一步
type Step struct {
	Processor xprocessor.Processor
	// Force 为 true 时处理器不支持资源类型视为配置错误，在读取内容前失败；
	// 为 false 时按适用性策略静默跳过
	Force bool
	// Kinds 非空时以此判定适用性，用于未在注册表登记的处理器（如远程编译服务）
	Kinds []xresource.Kind
}

// Apply 不支持资源类型时跳过的步骤
func Apply(p xprocessor.Processor, kinds ...xresource.Kind) Step {
	return Step{Processor: p, Kinds: kinds}
}

// Force 不支持资源类型时报错的步骤
func Force(p xprocessor.Processor, kinds ...xresource.Kind) Step {
	return Step{Processor: p, Force: true, Kinds: kinds}
}

// Pipeline 有序的处理器列表，只读，可被多个 goroutine 共享
type Pipeline struct {
	// Name Pipeline 名称，用于日志和监控
	Name string
	// Steps 按执行顺序排列
	Steps []Step
}

// New 函数式构建 Pipeline
func New(name string, steps ...Step) *Pipeline {
	return &Pipeline{
		Name:  name,
		Steps: steps,
	}
}

// AddStep 追加步骤
// 注意：非并发安全，必须在 Run 前完成配置
func (p *Pipeline) AddStep(s Step) *Pipeline {
	p.Steps = append(p.Steps, s)
	return p
}

// FromRegistry 以注册表中的处理器名称构建 Pipeline，配置取自 XProcessor 并合并 overrides
// r 为 nil 时使用全局注册表
func FromRegistry(r *xregistry.Registry, name string, processors []string, overrides map[string]any) (*Pipeline, error) {
	if r == nil {
		r = xregistry.Default()
	}
	p := New(name)
	for _, n := range processors {
		proc, err := r.NewFromConfig(n, overrides)
		if err != nil {
			return nil, err
		}
		p.AddStep(Apply(proc))
	}
	return p, nil
}
