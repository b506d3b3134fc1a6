package filesync

import (
	"context"
	"time"

	"github.com/ppiankov/creditlens/internal/logger"
	"github.com/ppiankov/creditlens/internal/model"
	"github.com/ppiankov/creditlens/internal/store"
)

// SessionBridge decorates a session store with the file mirror: reads pull
// first, writes push afterwards.
type SessionBridge struct {
	inner  store.Sessions
	mirror *mirror
}

var _ store.Sessions = (*SessionBridge)(nil)

// NewSessionBridge wraps inner, which must be the undecorated local store
func NewSessionBridge(inner store.Sessions, channel Channel, log logger.Logger, timeout time.Duration) *SessionBridge {
	return &SessionBridge{
		inner:  inner,
		mirror: newMirror(ResourceSessions, channel, log, timeout),
	}
}

// GetAll pulls the mirror into the local store and lists sessions
func (b *SessionBridge) GetAll(ctx context.Context) ([]model.DealSession, error) {
	b.Pull(ctx)
	return b.inner.GetAll(ctx)
}

// Get pulls the mirror into the local store and reads one session
func (b *SessionBridge) Get(ctx context.Context, id string) (model.DealSession, error) {
	b.Pull(ctx)
	return b.inner.Get(ctx, id)
}

func (b *SessionBridge) Put(ctx context.Context, session model.DealSession) error {
	if err := b.inner.Put(ctx, session); err != nil {
		return err
	}
	b.mirror.push(b.inner.ExportAll)
	return nil
}

func (b *SessionBridge) Delete(ctx context.Context, id string) error {
	if err := b.inner.Delete(ctx, id); err != nil {
		return err
	}
	b.mirror.push(b.inner.ExportAll)
	return nil
}

func (b *SessionBridge) ExportAll(ctx context.Context) ([]byte, error) {
	return b.inner.ExportAll(ctx)
}

func (b *SessionBridge) ImportAll(ctx context.Context, blob []byte, opts store.ImportOptions) (store.ImportResult, error) {
	res, err := b.inner.ImportAll(ctx, blob, opts)
	if err != nil {
		return res, err
	}
	b.mirror.push(b.inner.ExportAll)
	return res, nil
}

// Pull merges the mirror's sessions into the local store. Records that fail
// migration are skipped, local sessions modified after the mirrored copy are
// kept, and nothing is pushed back.
func (b *SessionBridge) Pull(ctx context.Context) {
	b.mirror.pull(ctx, func(ctx context.Context, data []byte) (int, int, error) {
		res, err := b.inner.ImportAll(ctx, data, store.ImportOptions{Lenient: true, KeepNewer: true})
		return res.Imported, len(res.Skipped) + res.Stale, err
	})
}

// Push writes the full local store to the mirror and waits for the result
func (b *SessionBridge) Push() error {
	return b.mirror.pushNow(b.inner.ExportAll)
}

// Wait blocks until background pushes have finished
func (b *SessionBridge) Wait() {
	b.mirror.wait()
}

// Status reports the last pull and push outcomes
func (b *SessionBridge) Status() Status {
	return b.mirror.snapshot()
}
