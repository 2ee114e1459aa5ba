// Package cache stores fetched pages in memory and on disk.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is a byte-slice store with per-entry expiry. A ttl of zero means the
// implementation's default.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const keyPrefix = "kinscan-v1-"

// Key derives a cache key from a page URL. Keys are safe to use as file names.
func Key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return keyPrefix + hex.EncodeToString(hash[:])
}
