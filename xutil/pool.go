package xutil

import (
	"errors"
	"sync"
)

// ErrPoolClosed 向已关闭的任务池提交任务
var ErrPoolClosed = errors.New("xutil: pool closed")

// Pool 固定worker数量的任务池，批量处理资源时使用
type Pool struct {
	tasks    chan func()
	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
}

// NewPool workers<1时按1处理
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{tasks: make(chan func(), workers*4)}
	p.wg.Add(workers)
	for range workers {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// Submit 提交任务，池已关闭时返回false且任务不会执行
func (p *Pool) Submit(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.tasks <- task
	return true
}

// Go 提交带返回值的任务，池已关闭时Future立即以ErrPoolClosed完成
func Go[T any](p *Pool, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	if !p.Submit(func() { f.complete(fn()) }) {
		var zero T
		f.complete(zero, ErrPoolClosed)
	}
	return f
}

// Shutdown 停止接收任务并等待已提交任务执行完毕，可重复调用
func (p *Pool) Shutdown() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

