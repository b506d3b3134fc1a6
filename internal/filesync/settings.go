package filesync

import (
	"context"
	"time"

	"github.com/ppiankov/creditlens/internal/logger"
	"github.com/ppiankov/creditlens/internal/model"
	"github.com/ppiankov/creditlens/internal/store"
)

// SettingsBridge decorates a settings store with the file mirror
type SettingsBridge struct {
	inner  store.Settings
	mirror *mirror
}

var _ store.Settings = (*SettingsBridge)(nil)

// NewSettingsBridge wraps inner, which must be the undecorated settings store
func NewSettingsBridge(inner store.Settings, channel Channel, log logger.Logger, timeout time.Duration) *SettingsBridge {
	return &SettingsBridge{
		inner:  inner,
		mirror: newMirror(ResourceSettings, channel, log, timeout),
	}
}

// Load pulls the mirror into the local store and returns the settings
func (b *SettingsBridge) Load(ctx context.Context) (model.AppSettings, error) {
	b.Pull(ctx)
	return b.inner.Load(ctx)
}

func (b *SettingsBridge) Save(ctx context.Context, settings model.AppSettings) (model.AppSettings, error) {
	saved, err := b.inner.Save(ctx, settings)
	if err != nil {
		return saved, err
	}
	b.mirror.push(b.inner.Export)
	return saved, nil
}

func (b *SettingsBridge) Export(ctx context.Context) ([]byte, error) {
	return b.inner.Export(ctx)
}

func (b *SettingsBridge) Import(ctx context.Context, blob []byte) (model.AppSettings, error) {
	saved, err := b.inner.Import(ctx, blob)
	if err != nil {
		return saved, err
	}
	b.mirror.push(b.inner.Export)
	return saved, nil
}

// Pull replaces the local settings with the mirror's copy when it has one
func (b *SettingsBridge) Pull(ctx context.Context) {
	b.mirror.pull(ctx, func(ctx context.Context, data []byte) (int, int, error) {
		if _, err := b.inner.Import(ctx, data); err != nil {
			return 0, 1, err
		}
		return 1, 0, nil
	})
}

// Push writes the local settings to the mirror and waits for the result
func (b *SettingsBridge) Push() error {
	return b.mirror.pushNow(b.inner.Export)
}

// Wait blocks until background pushes have finished
func (b *SettingsBridge) Wait() {
	b.mirror.wait()
}

// Status reports the last pull and push outcomes
func (b *SettingsBridge) Status() Status {
	return b.mirror.snapshot()
}
