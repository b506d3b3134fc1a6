// Package filesync mirrors the local stores to a companion file channel.
// Mirroring is best effort: pulls and pushes never fail the local operation
// that triggered them, and the last writer to a channel wins.
package filesync

import (
	"bytes"
	"context"
)

// Resource names one file-sync channel
type Resource string

const (
	ResourceSessions Resource = "sessions"
	ResourceSettings Resource = "settings"
)

// Sentinel returns what a channel reports when no file exists: an empty
// list for sessions and null for settings.
func (r Resource) Sentinel() []byte {
	if r == ResourceSessions {
		return []byte("[]")
	}
	return []byte("null")
}

// Channel reads and writes one companion file
type Channel interface {
	// Read returns the file content, or nil when no file exists
	Read(ctx context.Context) ([]byte, error)

	// Write replaces the file content
	Write(ctx context.Context, data []byte) error
}

// Trivial reports whether a pulled payload carries nothing to apply
func Trivial(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	switch string(trimmed) {
	case "", "[]", "null", "{}":
		return true
	}
	return false
}
