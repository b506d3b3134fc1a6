package benchmark

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/ppiankov/creditlens/internal/model"
	"github.com/ppiankov/creditlens/internal/store"
)

// Manager applies profile and term rules to the persisted settings. Each
// call loads, mutates, and saves under one lock and returns the saved state.
type Manager struct {
	settings store.Settings
	newID    IDFunc
	mu       sync.Mutex
}

// NewManager creates a settings manager
func NewManager(settings store.Settings) *Manager {
	return &Manager{settings: settings, newID: uuid.NewString}
}

// Load returns the current settings
func (m *Manager) Load(ctx context.Context) (model.AppSettings, error) {
	return m.settings.Load(ctx)
}

// Active returns the active profile
func (m *Manager) Active(ctx context.Context) (model.BenchmarkProfile, error) {
	s, err := m.settings.Load(ctx)
	if err != nil {
		return model.BenchmarkProfile{}, err
	}
	return ActiveProfile(s), nil
}

// Profile resolves a profile, falling back to the first one for a stale id
func (m *Manager) Profile(ctx context.Context, id string) (model.BenchmarkProfile, bool, error) {
	s, err := m.settings.Load(ctx)
	if err != nil {
		return model.BenchmarkProfile{}, false, err
	}
	p, ok := ProfileFor(s, id)
	return p, ok, nil
}

func (m *Manager) AddProfile(ctx context.Context, name string, data map[string]string) (model.BenchmarkProfile, error) {
	var created model.BenchmarkProfile
	_, err := m.mutate(ctx, func(s model.AppSettings) (model.AppSettings, error) {
		out, p, err := AddProfile(s, m.newID, name, data)
		created = p
		return out, err
	})
	return created, err
}

func (m *Manager) CloneProfile(ctx context.Context, sourceID, name string) (model.BenchmarkProfile, error) {
	var created model.BenchmarkProfile
	_, err := m.mutate(ctx, func(s model.AppSettings) (model.AppSettings, error) {
		out, p, err := CloneProfile(s, m.newID, sourceID, name)
		created = p
		return out, err
	})
	return created, err
}

func (m *Manager) RenameProfile(ctx context.Context, id, name string) (model.AppSettings, error) {
	return m.mutate(ctx, func(s model.AppSettings) (model.AppSettings, error) {
		return RenameProfile(s, id, name)
	})
}

func (m *Manager) SetBenchmark(ctx context.Context, profileID, term, value string) (model.AppSettings, error) {
	return m.mutate(ctx, func(s model.AppSettings) (model.AppSettings, error) {
		return SetBenchmark(s, profileID, term, value)
	})
}

func (m *Manager) DeleteProfile(ctx context.Context, id string) (model.AppSettings, error) {
	return m.mutate(ctx, func(s model.AppSettings) (model.AppSettings, error) {
		return DeleteProfile(s, id)
	})
}

func (m *Manager) SetActive(ctx context.Context, id string) (model.AppSettings, error) {
	return m.mutate(ctx, func(s model.AppSettings) (model.AppSettings, error) {
		return SetActive(s, id)
	})
}

func (m *Manager) AddTerm(ctx context.Context, term model.StandardTerm) (model.StandardTerm, error) {
	var created model.StandardTerm
	_, err := m.mutate(ctx, func(s model.AppSettings) (model.AppSettings, error) {
		out, t, err := AddTerm(s, m.newID, term)
		created = t
		return out, err
	})
	return created, err
}

func (m *Manager) UpdateTerm(ctx context.Context, id string, term model.StandardTerm) (model.AppSettings, error) {
	return m.mutate(ctx, func(s model.AppSettings) (model.AppSettings, error) {
		return UpdateTerm(s, id, term)
	})
}

func (m *Manager) RemoveTerm(ctx context.Context, id string) (model.AppSettings, error) {
	return m.mutate(ctx, func(s model.AppSettings) (model.AppSettings, error) {
		return RemoveTerm(s, id)
	})
}

func (m *Manager) mutate(ctx context.Context, fn func(model.AppSettings) (model.AppSettings, error)) (model.AppSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.settings.Load(ctx)
	if err != nil {
		return model.AppSettings{}, err
	}
	next, err := fn(current)
	if err != nil {
		return current, err
	}
	return m.settings.Save(ctx, next)
}
