package xutil

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var argKeyPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.-]*$`)

// GetConfigFromArgs 从启动参数中读取 key 对应的值，支持 --key v 与 --key=v 两种写法
func GetConfigFromArgs(key string) (string, error) {
	if !argKeyPattern.MatchString(key) {
		return "", fmt.Errorf("invalid arg key [%s], must match %s", key, argKeyPattern.String())
	}
	args := GetOsArgs()
	for i := 0; i < len(args); i++ {
		name, value, hasValue := strings.Cut(strings.TrimLeft(args[i], "-"), "=")
		if name != key {
			continue
		}
		if hasValue {
			return value, nil
		}
		if i+1 >= len(args) {
			return "", fmt.Errorf("arg [%s] has no value", key)
		}
		return args[i+1], nil
	}
	return "", fmt.Errorf("arg [%s] not found", key)
}

// GetOsArgs 启动参数（不含程序名）
func GetOsArgs() []string {
	if len(os.Args) <= 1 {
		return nil
	}
	return os.Args[1:]
}
