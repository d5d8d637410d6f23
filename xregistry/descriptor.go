// Package xregistry 处理器与资源类型的映射表
// 表在进程初始化阶段通过 Register 填充，首次查询后封存，之后只读
package xregistry

import (
	"github.com/xiaoshicae/xasset/xprocessor"
	"github.com/xiaoshicae/xasset/xresource"
)

// Category 处理器类别
type Category int

const (
	// Pre 预处理，作用于单个资源（如编译、压缩单个文件）
	Pre Category = iota + 1
	// Post 后处理，作用于合并后的产物
	Post
)

func (c Category) String() string {
	switch c {
	case Pre:
		return "pre"
	case Post:
		return "post"
	default:
		return "unknown"
	}
}

// Factory 以只读配置创建处理器实例
type Factory func(opts xprocessor.Options) (xprocessor.Processor, error)

// Descriptor 处理器描述
type Descriptor struct {
	// Name 处理器标识，全局唯一
	Name string `validate:"required"`
	// Kinds 支持的资源类型，至少一个
	Kinds []xresource.Kind `validate:"required,min=1,dive,required"`
	// Category 预处理或后处理
	Category Category `validate:"oneof=1 2"`
	// InPlace true 表示原地重写资源，false 表示生成派生内容
	InPlace bool
	// Factory 创建实例
	Factory Factory `validate:"required"`
}

// Supports 是否声明支持资源类型 k
func (d Descriptor) Supports(k xresource.Kind) bool {
	for _, kk := range d.Kinds {
		if kk == k {
			return true
		}
	}
	return false
}
