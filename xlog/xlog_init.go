package xlog

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
	logwriter "github.com/sirupsen/logrus/hooks/writer"

	"github.com/xiaoshicae/xasset/xconfig"
	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xhook"
	"github.com/xiaoshicae/xasset/xutil"
)

var (
	mu     sync.Mutex
	closer io.Closer
)

func init() {
	xhook.BeforeStart(initXLog, xhook.Order(2))
	xhook.BeforeStop(closeXLog, xhook.Order(1000))
}

func initXLog() error {
	c := GetConfig()
	xutil.InfoIfEnableDebug("XAsset init %s got config: %s", XLogConfigKey, xutil.ToJsonString(c))
	return Setup(c)
}

// Setup 按配置重建 logrus 标准 logger 的输出，重复调用会关闭上一次的文件 writer
func Setup(c *Config) error {
	c = configMergeDefault(c)
	if !xutil.DirExist(c.Dir) {
		if err := os.MkdirAll(c.Dir, 0o755); err != nil {
			return xerror.Newf("xlog", "setup", "mkdir [%s] failed, err=[%v]", c.Dir, err)
		}
	}

	file := filepath.Join(c.Dir, c.File+".log")
	rotated, err := rotatelogs.New(
		file+".%Y%m%d",
		rotatelogs.WithLinkName(file),
		rotatelogs.WithMaxAge(xutil.ToDuration(c.MaxAge)),
		rotatelogs.WithRotationTime(xutil.ToDuration(c.RotateTime)),
	)
	if err != nil {
		return xerror.Newf("xlog", "setup", "rotatelogs.New failed, err=[%v]", err)
	}
	var sink io.WriteCloser = rotated
	if c.AsyncBuffer > 0 {
		sink = newQueuedWriter(rotated, c.AsyncBuffer)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		xutil.WarnIfEnableDebug("XAsset xlog load timezone [%s] failed, use Local, err=[%v]", c.Timezone, err)
		loc = time.Local
	}

	hook := &fieldHook{app: xconfig.GetAppName(), pid: os.Getpid(), consoleJSON: c.ConsoleJSON}
	if c.Console {
		hook.console = os.Stdout
	}

	logger := logrus.StandardLogger()
	logger.ReplaceHooks(make(logrus.LevelHooks))
	logger.SetOutput(io.Discard)
	logger.SetFormatter(zoneFormatter{
		inner: &logrus.JSONFormatter{TimestampFormat: timeLayout},
		loc:   loc,
	})
	logger.AddHook(hook)
	logger.AddHook(&logwriter.Hook{Writer: sink, LogLevels: levelsFrom(c.Level)})
	logger.SetLevel(parseLevel(c.Level))

	mu.Lock()
	prev := closer
	closer = sink
	mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

func closeXLog() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

func parseLevel(s string) logrus.Level {
	l, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}

// levelsFrom 返回不低于 s 的所有级别
func levelsFrom(s string) []logrus.Level {
	lowest := parseLevel(strings.ToLower(s))
	levels := make([]logrus.Level, 0, len(logrus.AllLevels))
	for _, l := range logrus.AllLevels {
		if l <= lowest {
			levels = append(levels, l)
		}
	}
	return levels
}
