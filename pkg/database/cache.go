package database

import (
	"container/list"
	"sync"
)

// DefaultCacheSize bounds the number of entries kept by a Cache.
const DefaultCacheSize = 1000

type cacheEntry[T any] struct {
	key   string
	value T
}

// Cache is a size bounded LRU map. It is safe for concurrent use.
type Cache[T any] struct {
	max   int
	items map[string]*list.Element
	order *list.List
	mu    sync.Mutex
}

// NewCache creates a cache holding at most size entries. size <= 0 uses DefaultCacheSize.
func NewCache[T any](size int) *Cache[T] {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache[T]{max: size, items: make(map[string]*list.Element), order: list.New()}
}

// Get returns the cached value and marks it as recently used.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry[T]).value, true
}

// Set stores value under key, evicting the least recently used entry when full.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		elem.Value.(*cacheEntry[T]).value = value
		c.order.MoveToFront(elem)
		return
	}
	c.items[key] = c.order.PushFront(&cacheEntry[T]{key: key, value: value})
	if c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry[T]).key)
	}
}

func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.order.Remove(elem)
		delete(c.items, key)
	}
}

func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
