package database

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache[int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was the least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())
}

func TestCacheOverwriteAndDelete(t *testing.T) {
	c := NewCache[string](0)
	c.Set("k", "v1")
	c.Set("k", "v2")
	v, _ := c.Get("k")
	assert.Equal(t, "v2", v)
	assert.Equal(t, 1, c.Len())

	c.Delete("k")
	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("x", "y")
	c.Clear()
	assert.Zero(t, c.Len())
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache[int](50)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("%d-%d", i, j%10)
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}
