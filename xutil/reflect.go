package xutil

import (
	"reflect"
	"runtime"
	"strings"
)

// GetFuncInfo 函数定义所在文件、行号以及名称
func GetFuncInfo(fc any) (file string, line int, name string) {
	if fc == nil {
		return "", 0, ""
	}
	v := reflect.ValueOf(fc)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "", 0, ""
	}
	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		return "", 0, ""
	}
	full := fn.Name()
	if idx := strings.LastIndex(full, "/"); idx >= 0 {
		full = full[idx+1:]
	}
	_, name, found := strings.Cut(full, ".")
	if !found {
		return "", 0, ""
	}
	file, line = fn.FileLine(v.Pointer())
	return file, line, name
}

