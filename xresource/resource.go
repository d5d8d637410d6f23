package xresource

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Resource 待处理的资源，Kind 创建后不可变，Content 只能被消费一次
type Resource struct {
	name    string
	kind    Kind
	content io.ReadCloser

	closeOnce sync.Once
	closeErr  error
}

// New 以任意 Reader 创建资源，Reader 实现了 io.Closer 时由资源负责关闭
func New(name string, kind Kind, content io.Reader) *Resource {
	rc, ok := content.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(content)
	}
	return &Resource{name: name, kind: kind, content: rc}
}

// FromString 以字符串内容创建资源
func FromString(name string, kind Kind, content string) *Resource {
	return New(name, kind, strings.NewReader(content))
}

// FromBytes 以字节内容创建资源
func FromBytes(name string, kind Kind, content []byte) *Resource {
	return New(name, kind, bytes.NewReader(content))
}

// Open 打开本地文件作为资源，kind 为空时按扩展名推断
func Open(path string, kind Kind) (*Resource, error) {
	if kind == "" {
		kind = KindByExt(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return New(path, kind, f), nil
}

// KindByExt 按扩展名推断类型，无法识别时返回空
func KindByExt(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs", ".coffee":
		return Script
	case ".css", ".less":
		return Stylesheet
	}
	return ""
}

func (r *Resource) Name() string {
	return r.name
}

func (r *Resource) Kind() Kind {
	return r.kind
}

// Content 资源内容流，由执行器在一次处理结束后关闭
func (r *Resource) Content() io.Reader {
	return r.content
}

// Close 释放内容流，可重复调用
func (r *Resource) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.content.Close()
	})
	return r.closeErr
}
