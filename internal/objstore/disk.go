package objstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	recordExt    = ".json"
	recordFormat = 1
)

// DiskBucket persists each record as its own JSON file
type DiskBucket struct {
	dir string
}

// NewDiskBucket creates a disk bucket rooted at dir
func NewDiskBucket(dir string) *DiskBucket {
	return &DiskBucket{dir: dir}
}

// envelope wraps every record on disk
type envelope struct {
	Format    int             `json:"format"`
	Key       string          `json:"key"`
	UpdatedAt time.Time       `json:"updated_at"`
	Data      json.RawMessage `json:"data"`
}

// Get retrieves a record. A file that exists but cannot be decoded is an error,
// so callers can tell a corrupt record from a missing one.
func (b *DiskBucket) Get(key string) ([]byte, bool, error) {
	if err := validKey(key); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read record %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false, fmt.Errorf("decode record %s: %w", key, err)
	}
	if env.Format != recordFormat {
		return nil, false, fmt.Errorf("record %s: unsupported format %d", key, env.Format)
	}

	return []byte(env.Data), true, nil
}

// Put writes the record atomically. Values must be valid JSON.
func (b *DiskBucket) Put(key string, value []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	if !json.Valid(value) {
		return fmt.Errorf("record %s: value is not valid JSON", key)
	}

	data, err := json.Marshal(envelope{
		Format:    recordFormat,
		Key:       key,
		UpdatedAt: time.Now().UTC(),
		Data:      value,
	})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	if err := AtomicWriteFile(b.path(key), data, 0644); err != nil {
		return fmt.Errorf("write record file: %w", err)
	}

	return nil
}

// Delete removes a record; missing keys are ignored
func (b *DiskBucket) Delete(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := os.Remove(b.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove record %s: %w", key, err)
	}
	return nil
}

// Keys lists every record file in sorted order
func (b *DiskBucket) Keys() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list store dir: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if key, ok := keyFromFileName(e.Name()); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes all record files
func (b *DiskBucket) Clear() error {
	return os.RemoveAll(b.dir)
}

// path generates the file path for a record key
func (b *DiskBucket) path(key string) string {
	return filepath.Join(b.dir, fileName(key))
}
