package filesync

import (
	"context"
	"sync"
	"time"

	"github.com/ppiankov/creditlens/internal/logger"
)

const bridgeModule = "FileSyncBridge"

// Status is a snapshot of one channel's last sync attempts
type Status struct {
	Resource     Resource  `json:"resource" yaml:"resource"`
	LastPull     time.Time `json:"lastPull,omitempty" yaml:"last_pull,omitempty"`
	LastPullErr  string    `json:"lastPullError,omitempty" yaml:"last_pull_error,omitempty"`
	PullImported int       `json:"pullImported" yaml:"pull_imported"`
	PullSkipped  int       `json:"pullSkipped" yaml:"pull_skipped"`
	LastPush     time.Time `json:"lastPush,omitempty" yaml:"last_push,omitempty"`
	LastPushErr  string    `json:"lastPushError,omitempty" yaml:"last_push_error,omitempty"`
	Pushes       int       `json:"pushes" yaml:"pushes"`
}

// mirror holds the pull/push mechanics shared by both bridges
type mirror struct {
	resource Resource
	channel  Channel
	log      logger.Logger
	timeout  time.Duration
	now      func() time.Time

	pushMu   sync.Mutex
	inflight sync.Mutex
	idle     *sync.Cond
	pending  int

	statusMu sync.Mutex
	status   Status
}

func newMirror(resource Resource, channel Channel, log logger.Logger, timeout time.Duration) *mirror {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	m := &mirror{
		resource: resource,
		channel:  channel,
		log:      log,
		timeout:  timeout,
		now:      time.Now,
		status:   Status{Resource: resource},
	}
	m.idle = sync.NewCond(&m.inflight)
	return m
}

// pull reads the channel and hands non-trivial content to apply. apply must
// write to the undecorated store so that applying a pull never pushes.
// Failures are logged and recorded, never returned. Pushes already started
// by this process finish first so a pull never reads back a copy older than
// our own writes.
func (m *mirror) pull(ctx context.Context, apply func(ctx context.Context, data []byte) (imported, skipped int, err error)) {
	m.wait()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	data, err := m.channel.Read(ctx)
	if err != nil {
		m.recordPull(0, 0, err)
		m.log.Warn(bridgeModule, "pull failed, using local data", map[string]interface{}{
			"resource": string(m.resource),
			"error":    err,
		})
		return
	}
	if Trivial(data) {
		m.recordPull(0, 0, nil)
		return
	}

	imported, skipped, err := apply(ctx, data)
	m.recordPull(imported, skipped, err)
	if err != nil {
		m.log.Warn(bridgeModule, "pulled content rejected", map[string]interface{}{
			"resource": string(m.resource),
			"error":    err,
		})
		return
	}
	m.log.Debug(bridgeModule, "pulled", map[string]interface{}{
		"resource": string(m.resource),
		"imported": imported,
		"skipped":  skipped,
	})
}

// push exports and writes in the background. Pushes run one at a time and
// each exports the store as it is when the push starts.
func (m *mirror) push(export func(ctx context.Context) ([]byte, error)) {
	m.inflight.Lock()
	m.pending++
	m.inflight.Unlock()

	go func() {
		defer m.done()
		_ = m.pushNow(export)
	}()
}

func (m *mirror) done() {
	m.inflight.Lock()
	m.pending--
	if m.pending == 0 {
		m.idle.Broadcast()
	}
	m.inflight.Unlock()
}

// wait blocks until no background push is in flight
func (m *mirror) wait() {
	m.inflight.Lock()
	for m.pending > 0 {
		m.idle.Wait()
	}
	m.inflight.Unlock()
}

func (m *mirror) pushNow(export func(ctx context.Context) ([]byte, error)) error {
	m.pushMu.Lock()
	defer m.pushMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	data, err := export(ctx)
	if err == nil {
		err = m.channel.Write(ctx, data)
	}
	m.recordPush(err)
	if err != nil {
		m.log.Warn(bridgeModule, "push failed, local store remains authoritative", map[string]interface{}{
			"resource": string(m.resource),
			"error":    err,
		})
	}
	return err
}

func (m *mirror) recordPull(imported, skipped int, err error) {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	m.status.LastPull = m.now().UTC()
	m.status.PullImported = imported
	m.status.PullSkipped = skipped
	m.status.LastPullErr = errString(err)
}

func (m *mirror) recordPush(err error) {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	m.status.LastPush = m.now().UTC()
	m.status.Pushes++
	m.status.LastPushErr = errString(err)
}

func (m *mirror) snapshot() Status {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	return m.status
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
