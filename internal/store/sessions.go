// Package store holds the local, authoritative copies of deal sessions and
// application settings. Records are serialized into an objstore.Bucket and
// pass through the migrate package on every read.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ppiankov/creditlens/internal/logger"
	"github.com/ppiankov/creditlens/internal/migrate"
	"github.com/ppiankov/creditlens/internal/model"
	"github.com/ppiankov/creditlens/internal/objstore"
)

const sessionsModule = "LocalStore"

// Sessions is the session persistence contract. LocalStore implements it and
// the file-sync bridge decorates it.
type Sessions interface {
	GetAll(ctx context.Context) ([]model.DealSession, error)
	Get(ctx context.Context, id string) (model.DealSession, error)
	Put(ctx context.Context, session model.DealSession) error
	Delete(ctx context.Context, id string) error
	ExportAll(ctx context.Context) ([]byte, error)
	ImportAll(ctx context.Context, blob []byte, opts ImportOptions) (ImportResult, error)
}

// ImportOptions controls ImportAll
type ImportOptions struct {
	// Replace drops local sessions absent from the blob. The default merges by id.
	Replace bool

	// Lenient skips records that fail migration instead of rejecting the whole blob
	Lenient bool

	// KeepNewer leaves a local session alone when it was modified after the
	// incoming copy of it
	KeepNewer bool
}

// ImportResult reports what ImportAll applied
type ImportResult struct {
	Imported int
	Removed  int
	Stale    int // incoming records older than local ones, with KeepNewer
	Skipped  []migrate.RecordError
}

// LocalStore keeps deal sessions keyed by id
type LocalStore struct {
	bucket objstore.Bucket
	log    logger.Logger
	mu     sync.RWMutex
}

// NewLocalStore creates a session store over the given bucket
func NewLocalStore(bucket objstore.Bucket, log logger.Logger) *LocalStore {
	return &LocalStore{bucket: bucket, log: log}
}

// GetAll returns every readable session, newest first. Records that cannot
// be read or migrated are skipped and logged; they stay in the bucket untouched.
func (s *LocalStore) GetAll(ctx context.Context) ([]model.DealSession, error) {
	sessions, _, err := s.Scan(ctx)
	return sessions, err
}

// Scan is GetAll that also reports the records it skipped
func (s *LocalStore) Scan(ctx context.Context) ([]model.DealSession, []migrate.RecordError, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys, err := s.bucket.Keys()
	if err != nil {
		return nil, nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]model.DealSession, 0, len(keys))
	var skipped []migrate.RecordError
	for i, key := range keys {
		session, found, err := s.read(key)
		if err != nil {
			skipped = append(skipped, migrate.RecordError{Index: i, ID: key, Err: err})
			s.log.Warn(sessionsModule, "skipping unreadable session record", map[string]interface{}{
				"key":   key,
				"error": err,
			})
			continue
		}
		if found {
			sessions = append(sessions, session)
		}
	}

	SortByLastModified(sessions)
	return sessions, skipped, nil
}

// Get returns one session or model.ErrNotFound
func (s *LocalStore) Get(ctx context.Context, id string) (model.DealSession, error) {
	if err := ctx.Err(); err != nil {
		return model.DealSession{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, found, err := s.read(id)
	if err != nil {
		return model.DealSession{}, err
	}
	if !found {
		return model.DealSession{}, fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}
	return session, nil
}

// Put upserts a session by id. The stored record fully replaces any previous one.
func (s *LocalStore) Put(ctx context.Context, session model.DealSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(session)
}

// Delete removes a session; unknown ids are a no-op
func (s *LocalStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bucket.Delete(id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// ExportAll serializes every readable session, in current schema, as a JSON array
func (s *LocalStore) ExportAll(ctx context.Context) ([]byte, error) {
	sessions, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(sessions)
	if err != nil {
		return nil, fmt.Errorf("marshal sessions: %w", err)
	}
	return data, nil
}

// ImportAll migrates the sessions in blob and merges them by id: imported
// records overwrite same-id local records, other local records are kept.
func (s *LocalStore) ImportAll(ctx context.Context, blob []byte, opts ImportOptions) (ImportResult, error) {
	if err := ctx.Err(); err != nil {
		return ImportResult{}, err
	}

	incoming, failed, err := migrate.Sessions(blob)
	if err != nil {
		return ImportResult{}, err
	}
	if len(failed) > 0 && !opts.Lenient {
		return ImportResult{Skipped: failed}, fmt.Errorf("%w: %d unreadable session(s), first: %v", model.ErrFormat, len(failed), failed[0])
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := ImportResult{Skipped: failed}

	if opts.Replace {
		keep := make(map[string]bool, len(incoming))
		for _, session := range incoming {
			keep[session.ID] = true
		}
		keys, err := s.bucket.Keys()
		if err != nil {
			return result, fmt.Errorf("list sessions: %w", err)
		}
		for _, key := range keys {
			if keep[key] {
				continue
			}
			if err := s.bucket.Delete(key); err != nil {
				return result, fmt.Errorf("delete session %s: %w", key, err)
			}
			result.Removed++
		}
	}

	for _, session := range incoming {
		if opts.KeepNewer {
			local, found, err := s.read(session.ID)
			if err == nil && found && local.LastModified.After(session.LastModified) {
				result.Stale++
				continue
			}
		}
		if err := s.write(session); err != nil {
			return result, err
		}
		result.Imported++
	}

	return result, nil
}

func (s *LocalStore) read(key string) (model.DealSession, bool, error) {
	raw, found, err := s.bucket.Get(key)
	if err != nil || !found {
		return model.DealSession{}, false, err
	}
	session, err := migrate.Session(raw)
	if err != nil {
		return model.DealSession{}, false, err
	}
	if session.ID != key {
		return model.DealSession{}, false, fmt.Errorf("%w: record %s holds session %s", model.ErrFormat, key, session.ID)
	}
	return session, true, nil
}

func (s *LocalStore) write(session model.DealSession) error {
	if strings.TrimSpace(session.ID) == "" {
		return fmt.Errorf("%w: session id is required", model.ErrInvariant)
	}
	session.SchemaVersion = model.CurrentSessionSchema

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.ID, err)
	}
	if err := s.bucket.Put(session.ID, data); err != nil {
		return fmt.Errorf("put session %s: %w", session.ID, err)
	}
	return nil
}

// SortByLastModified orders sessions newest first, breaking ties by id
func SortByLastModified(sessions []model.DealSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i].LastModified, sessions[j].LastModified
		if a.Equal(b) {
			return sessions[i].ID < sessions[j].ID
		}
		return a.After(b)
	})
}
