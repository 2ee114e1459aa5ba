package cache

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ppiankov/kinscan/internal/logging"
)

// LayeredCache reads memory before disk and writes through to both.
// Disk hits are promoted to memory.
type LayeredCache struct {
	memory    Cache
	disk      Cache
	memoryTTL time.Duration
}

// NewLayeredCache creates a memory cache in front of a disk cache at
// diskDir. An empty diskDir keeps everything in memory only.
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	c := &LayeredCache{
		memory:    NewMemoryCache(memoryTTL, 10*time.Minute),
		memoryTTL: memoryTTL,
	}
	if diskDir != "" {
		c.disk = NewDiskCache(diskDir, diskTTL)
	}
	return c
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if v, ok := c.memory.Get(key); ok {
		return v, true
	}
	if c.disk == nil {
		return nil, false
	}

	v, ok := c.disk.Get(key)
	if !ok {
		return nil, false
	}
	if err := c.memory.Set(key, v, c.memoryTTL); err != nil {
		logging.L().Debugw("cache promotion failed", "key", key, "error", err)
	}
	return v, true
}

// Set writes to memory with the memory TTL and to disk with ttl.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, c.memoryTTL); err != nil {
		return errors.Wrap(err, "memory cache")
	}
	if c.disk == nil {
		return nil
	}
	if err := c.disk.Set(key, value, ttl); err != nil {
		return errors.Wrap(err, "disk cache")
	}
	return nil
}

func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	if c.disk == nil {
		return nil
	}
	return c.disk.Delete(key)
}

func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	if c.disk == nil {
		return nil
	}
	return c.disk.Clear()
}
