package xlog

import (
	"context"
	"fmt"
	"io"
	"path"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xiaoshicae/xasset/xutil"
)

const timeLayout = "2006-01-02 15:04:05.999"

// 跳过这些文件定位真实调用方
var callerSkipSuffixes = []string{
	"/xlog/log.go",
	"/xlog/hook.go",
}

// fieldHook 给每条日志补充 app/pid/调用位置/trace 以及 ctx 中的 kv，并按需打印到控制台
type fieldHook struct {
	app         string
	pid         int
	console     io.Writer
	consoleJSON bool
}

func (h *fieldHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fieldHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["app"]; !ok {
		e.Data["app"] = h.app
	}
	e.Data["pid"] = h.pid

	frame := e.Caller
	if frame == nil {
		frame = xutil.GetLogCaller(0, callerSkipSuffixes)
	}
	e.Data["caller"] = shortCaller(frame)

	if traceID := xutil.GetTraceIDFromCtx(e.Context); traceID != "" {
		e.Data["traceid"] = traceID
		e.Data["spanid"] = xutil.GetSpanIDFromCtx(e.Context)
	}
	for k, v := range kvFromCtx(e.Context) {
		e.Data[k] = v
	}

	if h.console == nil {
		return nil
	}
	return h.print(e)
}

func (h *fieldHook) print(e *logrus.Entry) error {
	if h.consoleJSON {
		line, err := e.Bytes()
		if err != nil {
			return err
		}
		_, err = h.console.Write(line)
		return err
	}
	_, err := fmt.Fprintf(h.console, "\x1b[%dm%-5s\x1b[0m[%s] %s %v %s\n",
		levelColor(e.Level), strings.ToUpper(e.Level.String()), e.Time.Format(timeLayout),
		e.Data["caller"], xutil.GetOrDefault[any](e.Data["traceid"], "-"), e.Message)
	return err
}

// zoneFormatter 输出前把时间转换到指定时区，不修改原 entry
type zoneFormatter struct {
	inner logrus.Formatter
	loc   *time.Location
}

func (f zoneFormatter) Format(e *logrus.Entry) ([]byte, error) {
	cp := *e
	if cp.Context == nil {
		cp.Context = context.Background()
	}
	if f.loc != nil {
		cp.Time = cp.Time.In(f.loc)
	}
	return f.inner.Format(&cp)
}

func levelColor(l logrus.Level) int {
	switch l {
	case logrus.DebugLevel, logrus.TraceLevel:
		return 37
	case logrus.WarnLevel:
		return 33
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return 31
	}
	return 36
}

func shortCaller(f *runtime.Frame) string {
	if f == nil {
		return "???"
	}
	return fmt.Sprintf("%s:%d", path.Base(f.File), f.Line)
}
