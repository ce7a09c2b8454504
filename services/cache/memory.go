package cache

import (
	"errors"
	"time"

	"github.com/coocood/freecache"
)

// DefaultMemoryCacheSize is the freecache arena size in bytes
const DefaultMemoryCacheSize = 1024 * 1024

// MemoryCacheService is an in-process CacheService used when no memcache
// server is configured
type MemoryCacheService struct {
	cache *freecache.Cache
}

// NewMemoryCacheService creates an empty in-process cache
func NewMemoryCacheService() *MemoryCacheService {
	return &MemoryCacheService{cache: freecache.NewCache(DefaultMemoryCacheSize)}
}

// newMemoryCacheServiceWithTimer lets tests control expiry
func newMemoryCacheServiceWithTimer(timer freecache.Timer) *MemoryCacheService {
	return &MemoryCacheService{cache: freecache.NewCacheCustomTimer(DefaultMemoryCacheSize, timer)}
}

// Get retrieves a value unless it has expired
func (m *MemoryCacheService) Get(key string) ([]byte, error) {
	value, err := m.cache.Get([]byte(key))
	if errors.Is(err, freecache.ErrNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores a value; a non-positive expiration never expires.
// Sub-second expirations are rounded up to one second.
func (m *MemoryCacheService) Set(key string, value []byte, expiration time.Duration) error {
	seconds := 0
	if expiration > 0 {
		seconds = max(int(expiration.Seconds()), 1)
	}
	return m.cache.Set([]byte(key), value, seconds)
}

// Delete removes a value
func (m *MemoryCacheService) Delete(key string) error {
	m.cache.Del([]byte(key))
	return nil
}
