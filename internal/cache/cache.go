// Package cache provides bounded in-memory caches with expiry.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Size returns the current number of items in the cache
	Size() int
}

// EvictFunc is called whenever an entry leaves the cache, whether by
// Delete, expiry or capacity eviction. It runs under the cache lock and must
// not call back into the cache.
type EvictFunc[T any] func(key string, value T)

// LRUCache is a size-bounded LRU whose entries expire after ttl.
type LRUCache[T any] struct {
	lru *expirable.LRU[string, T]
}

var _ Cache[int] = (*LRUCache[int])(nil)

// NewLRUCache creates a new LRU cache with TTL. A non-positive maxSize means
// unbounded.
func NewLRUCache[T any](maxSize int, ttl time.Duration, onEvict EvictFunc[T]) *LRUCache[T] {
	var cb expirable.EvictCallback[string, T]
	if onEvict != nil {
		cb = func(key string, value T) { onEvict(key, value) }
	}
	return &LRUCache[T]{lru: expirable.NewLRU[string, T](maxSize, cb, ttl)}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	return c.lru.Get(key)
}

func (c *LRUCache[T]) Set(key string, data T) {
	c.lru.Add(key, data)
}

func (c *LRUCache[T]) Delete(key string) {
	c.lru.Remove(key)
}

func (c *LRUCache[T]) Size() int {
	return c.lru.Len()
}

// Purge drops every entry, firing the eviction callback for each.
func (c *LRUCache[T]) Purge() {
	c.lru.Purge()
}
