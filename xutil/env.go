package xutil

import (
	"os"
	"strings"
)

const (
	DebugKey = "XASSET_ENABLE_DEBUG"
)

// EnableDebug 是否开启xasset内部调试日志，通过环境变量 XASSET_ENABLE_DEBUG 控制
func EnableDebug() bool {
	return isTruthy(os.Getenv(DebugKey))
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "t", "yes", "y", "on":
		return true
	}
	return false
}
