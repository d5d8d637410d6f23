package xlog

import (
	"io"
	"os"
	"sync"
)

// queuedWriter 将写入放入有界队列，由单个 goroutine 顺序刷到底层 writer
type queuedWriter struct {
	queue chan []byte
	out   io.WriteCloser
	done  chan struct{}

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

func newQueuedWriter(out io.WriteCloser, size int) *queuedWriter {
	w := &queuedWriter{
		queue: make(chan []byte, size),
		out:   out,
		done:  make(chan struct{}),
	}
	go w.drain()
	return w
}

// Write 拷贝 p 后入队，队列满时阻塞，关闭后返回 os.ErrClosed
func (w *queuedWriter) Write(p []byte) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return 0, os.ErrClosed
	}
	w.queue <- append([]byte(nil), p...)
	return len(p), nil
}

// Close 等队列写完后关闭底层 writer，可重复调用
func (w *queuedWriter) Close() error {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.queue)
		w.mu.Unlock()
		<-w.done
		w.closeErr = w.out.Close()
	})
	return w.closeErr
}

func (w *queuedWriter) drain() {
	defer close(w.done)
	for p := range w.queue {
		_, _ = w.out.Write(p)
	}
}
