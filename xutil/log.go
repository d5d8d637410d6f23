package xutil

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// 内部调试日志，仅在 XASSET_ENABLE_DEBUG 打开时输出到标准输出
var (
	debugLogger *logrus.Logger
	debugOnce   sync.Once
)

const (
	currentFilePath        = "/xutil/log.go"
	maximumCallerDepth int = 25
	minimumCallerDepth int = 5
)

var ignoredCallerPatterns = compilePatterns(
	`logrus(|@v.*)/hooks\.go`,
	`logrus(|@v.*)/entry\.go`,
	`logrus(|@v.*)/logger\.go`,
	`logrus(|@v.*)/exported\.go`,
	`xlog(|@v.*)/log\.go`,
	`asm_amd64\.s`,
)

func compilePatterns(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		res = append(res, regexp.MustCompile(p))
	}
	return res
}

func ErrorIfEnableDebug(msg string, args ...any) {
	LogIfEnableDebug(logrus.ErrorLevel, msg, args...)
}

func WarnIfEnableDebug(msg string, args ...any) {
	LogIfEnableDebug(logrus.WarnLevel, msg, args...)
}

func InfoIfEnableDebug(msg string, args ...any) {
	LogIfEnableDebug(logrus.InfoLevel, msg, args...)
}

func LogIfEnableDebug(level logrus.Level, msg string, args ...any) {
	if !EnableDebug() {
		return
	}
	debugOnce.Do(initDebugLogger)
	debugLogger.Logf(level, msg, args...)
}

// GetLogCaller 跳过日志框架自身的栈帧，返回业务调用方
func GetLogCaller(callDepth int, suffixToIgnore []string) *runtime.Frame {
	pcs := make([]uintptr, maximumCallerDepth)
	depth := runtime.Callers(minimumCallerDepth+callDepth, pcs)
	frames := runtime.CallersFrames(pcs[:depth])
	for {
		f, more := frames.Next()
		if !ignoredFrame(f.File, suffixToIgnore) {
			return &f
		}
		if !more {
			return nil
		}
	}
}

func ignoredFrame(file string, suffixToIgnore []string) bool {
	for _, s := range suffixToIgnore {
		if strings.HasSuffix(file, s) {
			return true
		}
	}
	for _, r := range ignoredCallerPatterns {
		if r.MatchString(file) {
			return true
		}
	}
	return false
}

func callerPretty(_ *runtime.Frame) (string, string) {
	frame := GetLogCaller(0, []string{currentFilePath})
	if frame == nil || frame.File == "" {
		return "", " ???"
	}
	return "", fmt.Sprintf(" \x1b[34m%s:%d\x1b[0m", path.Base(frame.File), frame.Line)
}

func initDebugLogger() {
	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{
		ForceColors:      true,
		FullTimestamp:    true,
		TimestampFormat:  "2006-01-02 15:04:05.999",
		CallerPrettyfier: callerPretty,
	}
	l.SetReportCaller(true)
	l.SetLevel(logrus.DebugLevel)
	l.SetOutput(os.Stdout)
	debugLogger = l
}
