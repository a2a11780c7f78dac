package cache

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"time"
)

const defaultMemoryTTL = 7 * 24 * time.Hour

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithMaxEntries bounds the number of cached keys.
func WithMaxEntries(n int) MemoryOption {
	return func(c *MemoryCache) { c.maxSize = n }
}

// WithNow overrides the time source used for expiry.
func WithNow(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) { c.now = now }
}

type memoryItem struct {
	data     []byte
	expireAt time.Time
	touched  time.Time
}

// MemoryCache implements Service in process. Values are stored JSON-encoded
// so a hit decodes into a fresh copy.
type MemoryCache struct {
	mu      sync.Mutex
	data    map[string]*memoryItem
	maxSize int
	now     func() time.Time
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	mc := &MemoryCache{
		data:    make(map[string]*memoryItem),
		maxSize: 1000,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(mc)
	}
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	if expiration <= 0 {
		expiration = defaultMemoryTTL
	}
	if _, ok := mc.data[key]; !ok && len(mc.data) >= mc.maxSize {
		mc.evictLocked(now)
	}
	mc.data[key] = &memoryItem{data: data, expireAt: now.Add(expiration), touched: now}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	item, ok := mc.data[key]
	now := mc.now()
	if ok && !now.Before(item.expireAt) {
		delete(mc.data, key)
		ok = false
	}
	if ok {
		item.touched = now
	}
	mc.mu.Unlock()

	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(item.data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.data, key)
	}
	return nil
}

// DeleteByPattern removes keys matching a glob pattern (path.Match syntax,
// the same shape as Redis SCAN MATCH for the patterns used here).
func (mc *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for key := range mc.data {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return err
		}
		if matched {
			delete(mc.data, key)
		}
	}
	return nil
}

// Len returns the number of stored keys, expired ones included.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.data)
}

func (mc *MemoryCache) Close() error { return nil }

// evictLocked drops expired keys, then the least recently used one if the
// cache is still full.
func (mc *MemoryCache) evictLocked(now time.Time) {
	for key, item := range mc.data {
		if !now.Before(item.expireAt) {
			delete(mc.data, key)
		}
	}
	if len(mc.data) < mc.maxSize {
		return
	}

	var oldestKey string
	var oldest time.Time
	for key, item := range mc.data {
		if oldestKey == "" || item.touched.Before(oldest) {
			oldestKey, oldest = key, item.touched
		}
	}
	delete(mc.data, oldestKey)
}
