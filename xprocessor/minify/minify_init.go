package minify

import (
	"github.com/xiaoshicae/xasset/xprocessor"
	"github.com/xiaoshicae/xasset/xregistry"
	"github.com/xiaoshicae/xasset/xresource"
)

func init() {
	xregistry.Register(xregistry.Descriptor{
		Name:     JSName,
		Kinds:    []xresource.Kind{xresource.Script},
		Category: xregistry.Post,
		InPlace:  true,
		Factory: func(opts xprocessor.Options) (xprocessor.Processor, error) {
			return NewJS(opts), nil
		},
	})
	xregistry.Register(xregistry.Descriptor{
		Name:     JSMungedName,
		Kinds:    []xresource.Kind{xresource.Script},
		Category: xregistry.Post,
		InPlace:  true,
		Factory: func(opts xprocessor.Options) (xprocessor.Processor, error) {
			opts.RenameIdentifiers = true
			return newJS(JSMungedName, opts), nil
		},
	})
	xregistry.Register(xregistry.Descriptor{
		Name:     CSSName,
		Kinds:    []xresource.Kind{xresource.Stylesheet},
		Category: xregistry.Post,
		InPlace:  true,
		Factory: func(opts xprocessor.Options) (xprocessor.Processor, error) {
			return NewCSS(opts), nil
		},
	})
}
