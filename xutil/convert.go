package xutil

import (
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// ToPtr 取值的指针
func ToPtr[T any](t T) *T {
	return &t
}

// GetOrDefault v为零值时返回defaultV
func GetOrDefault[T any](v T, defaultV T) T {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.IsZero() {
		return defaultV
	}
	return v
}

// ToDuration 转换为时长，纯数字按毫秒处理，字符串额外支持"d"天单位，如"1d12h"
func ToDuration(i any) time.Duration {
	switch v := i.(type) {
	case nil:
		return 0
	case string:
		return strToDuration(v)
	case *string:
		if v == nil {
			return 0
		}
		return strToDuration(*v)
	case time.Duration:
		return v
	}
	ms, err := cast.ToInt64E(i)
	if err != nil {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func strToDuration(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if ms, err := cast.ToInt64E(s); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	day, rest, found := strings.Cut(s, "d")
	if !found {
		return cast.ToDuration(s)
	}
	days, _ := cast.ToIntE(day)
	return time.Duration(days)*24*time.Hour + cast.ToDuration(rest)
}
