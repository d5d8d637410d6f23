// Package xerror XAsset统一错误类型
// XAssetError 描述框架自身（配置、日志、生命周期等）的失败，ProcessingError 描述一次资源处理的失败
package xerror

import (
	"errors"
	"fmt"
)

// XAssetError 框架错误，携带模块名与操作名
type XAssetError struct {
	Module string // 模块名，如 "xconfig", "xregistry"
	Op     string // 操作名，如 "init", "register"
	Err    error
}

func (e *XAssetError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("XAsset %s %s failed", e.Module, e.Op)
	}
	return fmt.Sprintf("XAsset %s %s failed, err=[%v]", e.Module, e.Op, e.Err)
}

func (e *XAssetError) Unwrap() error {
	return e.Err
}

// New 创建 XAssetError
func New(module, op string, err error) *XAssetError {
	return &XAssetError{Module: module, Op: op, Err: err}
}

// Newf 创建带格式化消息的 XAssetError
func Newf(module, op, format string, args ...any) *XAssetError {
	return New(module, op, fmt.Errorf(format, args...))
}

// Is err链中是否包含指定模块的 XAssetError
func Is(err error, module string) bool {
	return Module(err) == module && module != ""
}

// Module err链中第一个 XAssetError 的模块名，没有时返回空串
func Module(err error) string {
	var xe *XAssetError
	if errors.As(err, &xe) {
		return xe.Module
	}
	return ""
}
