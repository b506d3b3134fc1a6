package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ppiankov/creditlens/internal/logger"
	"github.com/ppiankov/creditlens/internal/migrate"
	"github.com/ppiankov/creditlens/internal/model"
	"github.com/ppiankov/creditlens/internal/objstore"
)

const (
	settingsModule = "SettingsStore"
	settingsKey    = "app-settings"
)

// Settings is the settings persistence contract
type Settings interface {
	Load(ctx context.Context) (model.AppSettings, error)
	Save(ctx context.Context, settings model.AppSettings) (model.AppSettings, error)
	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, blob []byte) (model.AppSettings, error)
}

// SettingsStore keeps the singleton AppSettings record
type SettingsStore struct {
	bucket objstore.Bucket
	log    logger.Logger
	mu     sync.RWMutex
}

// NewSettingsStore creates a settings store over the given bucket
func NewSettingsStore(bucket objstore.Bucket, log logger.Logger) *SettingsStore {
	return &SettingsStore{bucket: bucket, log: log}
}

// Load returns the persisted settings, or the built-in defaults when nothing
// is stored or the stored record is unreadable. It only fails on a done context.
func (s *SettingsStore) Load(ctx context.Context) (model.AppSettings, error) {
	if err := ctx.Err(); err != nil {
		return model.AppSettings{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, found, err := s.bucket.Get(settingsKey)
	if err != nil {
		s.log.Warn(settingsModule, "settings record unreadable, using defaults", map[string]interface{}{"error": err})
		return model.DefaultSettings(), nil
	}
	if !found {
		return model.DefaultSettings(), nil
	}

	settings, err := migrate.Settings(raw)
	if err != nil {
		s.log.Warn(settingsModule, "settings record failed migration, using defaults", map[string]interface{}{"error": err})
		return model.DefaultSettings(), nil
	}
	return settings, nil
}

// Save persists settings after repairing a dangling active profile pointer
// and returns exactly what was stored.
func (s *SettingsStore) Save(ctx context.Context, settings model.AppSettings) (model.AppSettings, error) {
	if err := ctx.Err(); err != nil {
		return model.AppSettings{}, err
	}
	if len(settings.BenchmarkProfiles) == 0 {
		return model.AppSettings{}, fmt.Errorf("%w: at least one benchmark profile is required", model.ErrInvariant)
	}

	out := settings.Clone()
	migrate.RepairActive(&out)

	data, err := json.Marshal(out)
	if err != nil {
		return model.AppSettings{}, fmt.Errorf("marshal settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bucket.Put(settingsKey, data); err != nil {
		return model.AppSettings{}, fmt.Errorf("put settings: %w", err)
	}
	return out, nil
}

// Export returns the stored settings as JSON, or "null" when none are stored.
// An unreadable record is an error rather than the defaults Load falls back to.
func (s *SettingsStore) Export(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	raw, found, err := s.bucket.Get(settingsKey)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if !found {
		return []byte("null"), nil
	}

	settings, err := migrate.Settings(raw)
	if err != nil {
		return nil, fmt.Errorf("export settings: %w", err)
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	return data, nil
}

// Import migrates a settings blob and replaces the stored settings with it
func (s *SettingsStore) Import(ctx context.Context, blob []byte) (model.AppSettings, error) {
	settings, err := migrate.Settings(blob)
	if err != nil {
		return model.AppSettings{}, err
	}
	return s.Save(ctx, settings)
}
