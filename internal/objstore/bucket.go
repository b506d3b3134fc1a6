// Package objstore provides keyed record buckets: an in-memory tier, a disk
// tier of one JSON file per record, and a layered bucket combining the two.
package objstore

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidKey is returned for keys that cannot name a record
var ErrInvalidKey = errors.New("invalid record key")

// Bucket is a keyed store of serialized records
type Bucket interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Keys() ([]string, error)
	Clear() error
}

// fileName maps a record key to a reversible, filesystem-safe name
func fileName(key string) string {
	return url.PathEscape(key) + recordExt
}

// keyFromFileName reverses fileName; ok is false for foreign files
func keyFromFileName(name string) (string, bool) {
	if !strings.HasSuffix(name, recordExt) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(name, recordExt))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

func validKey(key string) error {
	if strings.TrimSpace(key) == "" || key == "." || key == ".." {
		return ErrInvalidKey
	}
	return nil
}
