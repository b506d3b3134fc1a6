package objstore

import (
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryBucket keeps records in process memory.
// A zero TTL keeps records until they are deleted.
type MemoryBucket struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewMemoryBucket creates a new memory bucket
func NewMemoryBucket(ttl time.Duration) *MemoryBucket {
	expiry := gocache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiry = ttl
		cleanup = ttl
	}
	return &MemoryBucket{
		cache: gocache.New(expiry, cleanup),
		ttl:   ttl,
	}
}

// Get retrieves a copy of a record
func (b *MemoryBucket) Get(key string) ([]byte, bool, error) {
	if val, found := b.cache.Get(key); found {
		return append([]byte(nil), val.([]byte)...), true, nil
	}
	return nil, false, nil
}

// Put stores a copy of the record
func (b *MemoryBucket) Put(key string, value []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	b.cache.Set(key, append([]byte(nil), value...), gocache.DefaultExpiration)
	return nil
}

// Delete removes a record; missing keys are ignored
func (b *MemoryBucket) Delete(key string) error {
	b.cache.Delete(key)
	return nil
}

// Keys lists live records in sorted order
func (b *MemoryBucket) Keys() ([]string, error) {
	items := b.cache.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes all records
func (b *MemoryBucket) Clear() error {
	b.cache.Flush()
	return nil
}
