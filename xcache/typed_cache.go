package xcache

import "time"

// TypedCache 带命名空间的类型安全缓存视图
type TypedCache[V any] struct {
	namespace string
}

// Of 获取命名空间 ns 下的类型安全视图，所有视图共享进程缓存
func Of[V any](ns string) *TypedCache[V] {
	return &TypedCache[V]{namespace: ns}
}

func (t *TypedCache[V]) key(k string) string {
	return t.namespace + ":" + k
}

// Get 值不存在或类型不符时返回零值与false
func (t *TypedCache[V]) Get(key string) (V, bool) {
	var zero V
	c := C()
	if c == nil {
		return zero, false
	}
	v, ok := c.Get(t.key(key))
	if !ok {
		return zero, false
	}
	typed, ok := v.(V)
	if !ok {
		return zero, false
	}
	return typed, true
}

func (t *TypedCache[V]) Set(key string, value V) bool {
	return t.SetWithTTL(key, value, 0)
}

func (t *TypedCache[V]) SetWithTTL(key string, value V, ttl time.Duration) bool {
	c := C()
	if c == nil {
		return false
	}
	return c.SetWithTTL(t.key(key), value, ttl)
}

func (t *TypedCache[V]) Del(key string) {
	if c := C(); c != nil {
		c.Del(t.key(key))
	}
}

// Wait 等待写入生效，主要用于测试
func (t *TypedCache[V]) Wait() {
	if c := C(); c != nil {
		c.Wait()
	}
}
