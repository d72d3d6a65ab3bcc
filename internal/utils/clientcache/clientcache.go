package clientcache

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Cache holds one long-lived SDK client per endpoint key. Concurrent misses
// for the same key share a single build.
type Cache[T any] struct {
	clients sync.Map
	group   singleflight.Group
	size    atomic.Int64
}

// New creates an empty cache
func New[T any]() *Cache[T] {
	return &Cache[T]{}
}

// Get returns the client stored under key, calling build at most once per key.
// A failed build is not cached.
func (c *Cache[T]) Get(key string, build func() (T, error)) (T, error) {
	if v, ok := c.clients.Load(key); ok {
		return v.(T), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.clients.Load(key); ok {
			return v, nil
		}
		client, err := build()
		if err != nil {
			return nil, err
		}
		if _, loaded := c.clients.LoadOrStore(key, client); !loaded {
			c.size.Add(1)
		}
		return client, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Len reports how many clients are cached
func (c *Cache[T]) Len() int {
	return int(c.size.Load())
}

// Reset drops every cached client
func (c *Cache[T]) Reset() {
	c.clients.Range(func(key, _ any) bool {
		if _, ok := c.clients.LoadAndDelete(key); ok {
			c.size.Add(-1)
		}
		return true
	})
}
