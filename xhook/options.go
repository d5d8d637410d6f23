package xhook

import "time"

// Order 越小越先执行，默认 100
func Order(order int) Option {
	return func(o *options) {
		o.order = order
	}
}

// MustInvokeSuccess 为 false 时 BeforeStart 失败只记录不中断
func MustInvokeSuccess(success bool) Option {
	return func(o *options) {
		o.mustSucceed = success
	}
}

// Timeout 单个 hook 的等待时长，<=0 表示不限
func Timeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

type Option func(*options)

type options struct {
	order       int
	mustSucceed bool
	timeout     time.Duration
}

func defaultOptions() *options {
	return &options{
		order:       100,
		mustSucceed: true,
		timeout:     30 * time.Second,
	}
}
