// Package xresource 资源模型：资源标识、资源类型以及内容流
package xresource

import (
	"strings"
	"sync"

	"golang.org/x/exp/slices"
)

// Kind 资源类型，开放枚举，内置 SCRIPT 与 STYLESHEET
type Kind string

const (
	Script     Kind = "SCRIPT"
	Stylesheet Kind = "STYLESHEET"
)

var (
	kindsMu sync.RWMutex
	kinds   = map[Kind]struct{}{
		Script:     {},
		Stylesheet: {},
	}
)

// RegisterKind 扩展资源类型，名称统一转为大写，重复注册无副作用
func RegisterKind(name string) Kind {
	k := Kind(strings.ToUpper(strings.TrimSpace(name)))
	if k == "" {
		return ""
	}
	kindsMu.Lock()
	kinds[k] = struct{}{}
	kindsMu.Unlock()
	return k
}

// Known 是否为已注册的资源类型
func (k Kind) Known() bool {
	kindsMu.RLock()
	defer kindsMu.RUnlock()
	_, ok := kinds[k]
	return ok
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind 按名称（忽略大小写）查找已注册的类型
func ParseKind(name string) (Kind, bool) {
	k := Kind(strings.ToUpper(strings.TrimSpace(name)))
	return k, k.Known()
}

// Kinds 全部已注册类型，按名称排序
func Kinds() []Kind {
	kindsMu.RLock()
	res := make([]Kind, 0, len(kinds))
	for k := range kinds {
		res = append(res, k)
	}
	kindsMu.RUnlock()
	slices.Sort(res)
	return res
}
