package xlog

// Option 日志附加字段，与格式化参数混合传入 Info/Warn/Error/Debug
type Option func(*options)

type options struct {
	kv map[string]any
}

func KV(k string, v any) Option {
	return func(o *options) {
		o.kv[k] = v
	}
}

func KVMap(m map[string]any) Option {
	return func(o *options) {
		for k, v := range m {
			o.kv[k] = v
		}
	}
}
