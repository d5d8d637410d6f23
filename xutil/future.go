package xutil

import (
	"context"
)

// Future 异步任务结果
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(v T, err error) {
	f.val, f.err = v, err
	close(f.done)
}

// Async 在新的goroutine中执行fn
func Async[T any](fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() { f.complete(fn()) }()
	return f
}

// Get 阻塞直至任务完成
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.val, f.err
}

// GetCtx 等待任务完成或ctx结束，ctx先结束时返回ctx.Err()
func (f *Future[T]) GetCtx(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// IsDone 非阻塞判断任务是否结束
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
