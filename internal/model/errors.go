package model

import "errors"

var (
	// ErrFormat marks a malformed import or sync payload
	ErrFormat = errors.New("malformed payload")

	// ErrNotFound marks a required session, profile, or term that does not exist
	ErrNotFound = errors.New("not found")

	// ErrExtraction marks a failed or unusable collaborator call
	ErrExtraction = errors.New("extraction failed")

	// ErrSyncUnavailable marks an unreachable file-sync channel. It never leaves the sync bridge.
	ErrSyncUnavailable = errors.New("sync channel unavailable")

	// ErrInvariant marks a rejected operation that would break a data invariant
	ErrInvariant = errors.New("invariant violation")
)
