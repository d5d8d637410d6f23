package exttool

import (
	"time"

	"github.com/xiaoshicae/xasset/xprocessor"
	"github.com/xiaoshicae/xasset/xregistry"
	"github.com/xiaoshicae/xasset/xresource"
)

const (
	CoffeeScriptName = "coffee-script"
	LessCSSName      = "less-css"
)

// CoffeeScript 将 CoffeeScript 编译为 JS，需要 node 版 coffee 命令
func CoffeeScript(opts xprocessor.Options) (*Tool, error) {
	return New(Spec{
		Name:           CoffeeScriptName,
		Interpreter:    "coffee",
		Args:           []string{"--stdio", "--print", "--bare"},
		ProbeArgs:      []string{"--version"},
		Input:          Stdin,
		DefaultTimeout: 30 * time.Second,
	}, opts)
}

// LessCSS 将 LESS 编译为 CSS，需要 lessc 命令
func LessCSS(opts xprocessor.Options) (*Tool, error) {
	return New(Spec{
		Name:           LessCSSName,
		Interpreter:    "lessc",
		Args:           []string{"--no-color", FilePlaceholder},
		ProbeArgs:      []string{"--version"},
		Input:          TempFile,
		TempExt:        ".less",
		DefaultTimeout: 30 * time.Second,
	}, opts)
}

func init() {
	xregistry.Register(xregistry.Descriptor{
		Name:     CoffeeScriptName,
		Kinds:    []xresource.Kind{xresource.Script},
		Category: xregistry.Pre,
		Factory: func(opts xprocessor.Options) (xprocessor.Processor, error) {
			t, err := CoffeeScript(opts)
			if err != nil {
				return nil, err
			}
			return t, nil
		},
	})
	xregistry.Register(xregistry.Descriptor{
		Name:     LessCSSName,
		Kinds:    []xresource.Kind{xresource.Stylesheet},
		Category: xregistry.Pre,
		Factory: func(opts xprocessor.Options) (xprocessor.Processor, error) {
			t, err := LessCSS(opts)
			if err != nil {
				return nil, err
			}
			return t, nil
		},
	})
}
