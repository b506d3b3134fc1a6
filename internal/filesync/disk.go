package filesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ppiankov/creditlens/internal/model"
	"github.com/ppiankov/creditlens/internal/objstore"
)

// DiskChannel stores one resource as <dir>/<resource>.json. Writes hold an
// advisory lock on a sibling .lock file and replace the file atomically.
type DiskChannel struct {
	path string
	mu   sync.Mutex
}

// NewDiskChannel creates a channel for resource under dir
func NewDiskChannel(dir string, resource Resource) *DiskChannel {
	return &DiskChannel{path: filepath.Join(dir, string(resource)+".json")}
}

// Path returns the file backing this channel
func (c *DiskChannel) Path() string {
	return c.path
}

// Read returns the file content, or nil when the file does not exist
func (c *DiskChannel) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	}
	return data, nil
}

// Write replaces the file with data. Anything that is not valid JSON is
// rejected and the existing file is left as it was.
func (c *DiskChannel) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !json.Valid(data) {
		return fmt.Errorf("%w: payload is not valid JSON", model.ErrFormat)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create sync dir: %w", err)
	}

	lock, err := acquireFileLock(c.path + ".lock")
	if err != nil {
		return err
	}
	defer func() { _ = releaseFileLock(lock) }()

	if err := objstore.AtomicWriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	return nil
}
