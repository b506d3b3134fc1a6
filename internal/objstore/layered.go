package objstore

import "time"

// LayeredBucket keeps decoded records in a memory tier in front of an
// authoritative disk tier
type LayeredBucket struct {
	memory *MemoryBucket
	disk   *DiskBucket
}

// NewLayeredBucket creates a new layered bucket
func NewLayeredBucket(memoryTTL time.Duration, diskDir string) *LayeredBucket {
	if memoryTTL <= 0 {
		memoryTTL = 10 * time.Minute
	}
	return &LayeredBucket{
		memory: NewMemoryBucket(memoryTTL),
		disk:   NewDiskBucket(diskDir),
	}
}

// Get retrieves a record (checks memory first, then disk)
func (b *LayeredBucket) Get(key string) ([]byte, bool, error) {
	if val, found, _ := b.memory.Get(key); found {
		return val, true, nil
	}

	val, found, err := b.disk.Get(key)
	if err != nil || !found {
		return nil, false, err
	}

	// Promote to memory tier
	_ = b.memory.Put(key, val)
	return val, true, nil
}

// Put writes disk first so the memory tier never holds an unpersisted record
func (b *LayeredBucket) Put(key string, value []byte) error {
	if err := b.disk.Put(key, value); err != nil {
		return err
	}
	return b.memory.Put(key, value)
}

// Delete removes a record from both tiers
func (b *LayeredBucket) Delete(key string) error {
	_ = b.memory.Delete(key)
	return b.disk.Delete(key)
}

// Keys lists records from the disk tier
func (b *LayeredBucket) Keys() ([]string, error) {
	return b.disk.Keys()
}

// Clear removes all records from both tiers
func (b *LayeredBucket) Clear() error {
	_ = b.memory.Clear()
	return b.disk.Clear()
}
