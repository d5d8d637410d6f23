package xlog

import (
	"context"

	"github.com/sirupsen/logrus"
)

type ctxKVKey struct{}

func Error(ctx context.Context, msg string, args ...any) {
	Log(ctx, logrus.ErrorLevel, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	Log(ctx, logrus.WarnLevel, msg, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	Log(ctx, logrus.InfoLevel, msg, args...)
}

func Debug(ctx context.Context, msg string, args ...any) {
	Log(ctx, logrus.DebugLevel, msg, args...)
}

// Log args 中的 Option 作为字段记录，其余作为 msg 的格式化参数
func Log(ctx context.Context, level logrus.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !logrus.IsLevelEnabled(level) {
		return
	}

	var o *options
	fmtArgs := args[:0:0]
	for _, arg := range args {
		opt, ok := arg.(Option)
		if !ok {
			fmtArgs = append(fmtArgs, arg)
			continue
		}
		if o == nil {
			o = &options{kv: make(map[string]any)}
		}
		opt(o)
	}

	entry := logrus.WithContext(ctx)
	if o != nil {
		entry = entry.WithFields(o.kv)
	}
	if len(fmtArgs) == 0 {
		entry.Log(level, msg)
		return
	}
	entry.Logf(level, msg, fmtArgs...)
}

// CtxWithKV 返回携带 kvs 的新 ctx，之后经该 ctx 记录的日志都会带上这些字段
func CtxWithKV(ctx context.Context, kvs map[string]any) context.Context {
	prev := kvFromCtx(ctx)
	merged := make(map[string]any, len(prev)+len(kvs))
	for k, v := range prev {
		merged[k] = v
	}
	for k, v := range kvs {
		merged[k] = v
	}
	return context.WithValue(ctx, ctxKVKey{}, merged)
}

func kvFromCtx(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	kvs, _ := ctx.Value(ctxKVKey{}).(map[string]any)
	return kvs
}
