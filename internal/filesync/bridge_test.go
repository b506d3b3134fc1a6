package filesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/creditlens/internal/logger"
	"github.com/ppiankov/creditlens/internal/model"
	"github.com/ppiankov/creditlens/internal/objstore"
	"github.com/ppiankov/creditlens/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memChannel struct {
	mu       sync.Mutex
	data     []byte
	reads    int
	writes   int
	readErr  error
	writeErr error
	block    chan struct{}
}

func (c *memChannel) Read(ctx context.Context) ([]byte, error) {
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if c.readErr != nil {
		return nil, c.readErr
	}
	return append([]byte(nil), c.data...), nil
}

func (c *memChannel) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	if c.writeErr != nil {
		return c.writeErr
	}
	c.data = append([]byte(nil), data...)
	return nil
}

func (c *memChannel) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads, c.writes
}

func newLocal() *store.LocalStore {
	return store.NewLocalStore(objstore.NewMemoryBucket(0), logger.NewNop())
}

func deal(id string, minute int) model.DealSession {
	return model.DealSession{
		ID:                id,
		BorrowerName:      "Borrower " + id,
		ExtractionResults: []model.ExtractionResult{},
		BenchmarkResults:  map[string][]model.BenchmarkResult{},
		ChatHistory:       []model.ChatMessage{},
		LastModified:      time.Date(2026, 3, 1, 12, minute, 0, 0, time.UTC),
	}
}

func TestSessionBridge_PullDoesNotPushBack(t *testing.T) {
	ctx := context.Background()
	remote := newLocal()
	require.NoError(t, remote.Put(ctx, deal("s-remote", 1)))
	blob, err := remote.ExportAll(ctx)
	require.NoError(t, err)

	channel := &memChannel{data: blob}
	local := newLocal()
	bridge := NewSessionBridge(local, channel, logger.NewNop(), time.Second)

	sessions, err := bridge.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s-remote", sessions[0].ID)

	_, err = bridge.GetAll(ctx)
	require.NoError(t, err)
	bridge.Wait()

	reads, writes := channel.counts()
	assert.Equal(t, 2, reads)
	assert.Zero(t, writes, "applying a pull must not push")
	assert.Equal(t, 1, bridge.Status().PullImported)
}

func TestSessionBridge_PushAfterWrites(t *testing.T) {
	ctx := context.Background()
	channel := &memChannel{}
	local := newLocal()
	bridge := NewSessionBridge(local, channel, logger.NewNop(), time.Second)

	require.NoError(t, bridge.Put(ctx, deal("a", 1)))
	require.NoError(t, bridge.Put(ctx, deal("b", 2)))
	require.NoError(t, bridge.Delete(ctx, "a"))
	bridge.Wait()

	_, writes := channel.counts()
	assert.Equal(t, 3, writes)

	mirrored := newLocal()
	_, err := mirrored.ImportAll(ctx, channel.data, store.ImportOptions{})
	require.NoError(t, err)
	all, err := mirrored.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].ID)
}

func TestSessionBridge_FailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	channel := &memChannel{
		readErr:  errors.New("connection refused"),
		writeErr: errors.New("connection refused"),
	}
	local := newLocal()
	bridge := NewSessionBridge(local, channel, logger.NewNop(), time.Second)

	require.NoError(t, bridge.Put(ctx, deal("a", 1)))
	bridge.Wait()

	sessions, err := bridge.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	status := bridge.Status()
	assert.Contains(t, status.LastPullErr, "connection refused")
	assert.Contains(t, status.LastPushErr, "connection refused")
	assert.Equal(t, 1, status.Pushes)
	assert.Error(t, bridge.Push())
}

func TestSessionBridge_StaleMirrorDoesNotRevertLocalWrite(t *testing.T) {
	ctx := context.Background()
	remote := newLocal()
	old := deal("a", 1)
	old.BorrowerName = "Old"
	require.NoError(t, remote.Put(ctx, old))
	blob, err := remote.ExportAll(ctx)
	require.NoError(t, err)

	// the mirror never accepts our push
	channel := &memChannel{data: blob, writeErr: errors.New("disk full")}
	bridge := NewSessionBridge(newLocal(), channel, logger.NewNop(), time.Second)

	edited := deal("a", 5)
	edited.BorrowerName = "Edited"
	require.NoError(t, bridge.Put(ctx, edited))

	got, err := bridge.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Edited", got.BorrowerName)
	assert.Equal(t, 1, bridge.Status().PullSkipped)
}

func TestSessionBridge_ReadWaitsForOwnPush(t *testing.T) {
	ctx := context.Background()
	channel := &memChannel{}
	bridge := NewSessionBridge(newLocal(), channel, logger.NewNop(), time.Second)

	for i := 1; i <= 5; i++ {
		s := deal("a", i)
		s.BorrowerName = fmt.Sprintf("v%d", i)
		require.NoError(t, bridge.Put(ctx, s))

		got, err := bridge.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, s.BorrowerName, got.BorrowerName)
	}
	_, writes := channel.counts()
	assert.Equal(t, 5, writes)
}

func TestSessionBridge_PullIsBounded(t *testing.T) {
	channel := &memChannel{block: make(chan struct{})}
	defer close(channel.block)

	local := newLocal()
	require.NoError(t, local.Put(context.Background(), deal("a", 1)))
	bridge := NewSessionBridge(local, channel, logger.NewNop(), 30*time.Millisecond)

	start := time.Now()
	sessions, err := bridge.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
	assert.Less(t, time.Since(start), time.Second)
	assert.NotEmpty(t, bridge.Status().LastPullErr)
}

func TestSessionBridge_PullSkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	channel := &memChannel{data: []byte(`[{"id":"ok","borrowerName":"Acme","lastModified":"2026-03-01T12:00:00Z"},{"borrowerName":"no id"}]`)}
	bridge := NewSessionBridge(newLocal(), channel, logger.NewNop(), time.Second)

	sessions, err := bridge.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "ok", sessions[0].ID)
	assert.Equal(t, 1, bridge.Status().PullSkipped)
}

func TestSessionBridge_MalformedPullIsIgnored(t *testing.T) {
	ctx := context.Background()
	local := newLocal()
	require.NoError(t, local.Put(ctx, deal("a", 1)))

	channel := &memChannel{data: []byte(`{"not":"a list"}`)}
	bridge := NewSessionBridge(local, channel, logger.NewNop(), time.Second)

	sessions, err := bridge.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
	assert.NotEmpty(t, bridge.Status().LastPullErr)
}

func TestSettingsBridge_PullAndPush(t *testing.T) {
	ctx := context.Background()
	channel := &memChannel{data: []byte(`{"benchmarks":{"Commitment Fee":"0.25%"}}`)}
	inner := store.NewSettingsStore(objstore.NewMemoryBucket(0), logger.NewNop())
	bridge := NewSettingsBridge(inner, channel, logger.NewNop(), time.Second)

	loaded, err := bridge.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.BenchmarkProfiles, 1)
	assert.Equal(t, model.DefaultProfileID, loaded.ActiveProfileID)
	bridge.Wait()
	_, writes := channel.counts()
	assert.Zero(t, writes, "applying a pull must not push")

	loaded.BenchmarkProfiles[0].Data["Commitment Fee"] = "0.30%"
	_, err = bridge.Save(ctx, loaded)
	require.NoError(t, err)
	bridge.Wait()

	_, writes = channel.counts()
	assert.Equal(t, 1, writes)
	assert.Contains(t, string(channel.data), "0.30%")
}

func TestSettingsBridge_NullMirrorKeepsDefaults(t *testing.T) {
	channel := &memChannel{data: []byte("null")}
	inner := store.NewSettingsStore(objstore.NewMemoryBucket(0), logger.NewNop())
	bridge := NewSettingsBridge(inner, channel, logger.NewNop(), time.Second)

	loaded, err := bridge.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), loaded)
	assert.Empty(t, bridge.Status().LastPullErr)
}

func TestSettingsBridge_UnreadableLocalIsNotPushed(t *testing.T) {
	mirrored := `{"terms":[],"benchmarkProfiles":[{"id":"p1","name":"One","data":{}}],"activeProfileId":"p1"}`
	channel := &memChannel{data: []byte(mirrored)}
	bucket := objstore.NewMemoryBucket(0)
	require.NoError(t, bucket.Put("app-settings", []byte(`{"terms": 7`)))
	bridge := NewSettingsBridge(store.NewSettingsStore(bucket, logger.NewNop()), channel, logger.NewNop(), time.Second)

	err := bridge.Push()
	require.ErrorIs(t, err, model.ErrFormat)

	_, writes := channel.counts()
	assert.Zero(t, writes)
	assert.Equal(t, mirrored, string(channel.data))
	assert.NotEmpty(t, bridge.Status().LastPushErr)
}

func TestTrivial(t *testing.T) {
	for _, in := range []string{"", "  ", "[]", "null", " {} \n"} {
		assert.True(t, Trivial([]byte(in)), in)
	}
	assert.False(t, Trivial([]byte(`[{"id":"a"}]`)))
}
