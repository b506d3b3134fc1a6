package cli

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ppiankov/creditlens/internal/logger"
	"github.com/ppiankov/creditlens/internal/model"
	"github.com/ppiankov/creditlens/internal/server"
	"github.com/ppiankov/creditlens/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	noLog = true
	cfg := model.DefaultConfig()
	cfg.Store.Dir = ""
	cfg.Concurrency.Workers = 2
	return cfg
}

func startSyncServer(t *testing.T) string {
	t.Helper()
	srv, err := server.New(t.TempDir(), logger.NewNop())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.GetApp().Listener(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return "http://" + ln.Addr().String()
}

func TestNewApp_LocalOnly(t *testing.T) {
	a := newApp(testConfig(t))
	defer a.close()

	assert.Nil(t, a.sessionBridge)
	assert.Nil(t, a.settingsBridge)

	ctx := context.Background()
	s, err := a.orch.CreateSession(ctx, model.DocumentFile{Name: "deal.txt", MimeType: "text/plain", Data: []byte("x")})
	require.NoError(t, err)

	all, err := a.orch.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, s.ID, all[0].ID)
}

func TestBuckets_MemoryOnlyNeverExpires(t *testing.T) {
	ctx := context.Background()
	sessionsBucket, settingsBucket := buckets(model.StoreConfig{Dir: "", MemoryTTL: 50 * time.Millisecond})
	sessions := store.NewLocalStore(sessionsBucket, logger.NewNop())
	settings := store.NewSettingsStore(settingsBucket, logger.NewNop())

	require.NoError(t, sessions.Put(ctx, model.DealSession{
		ID:           "s1",
		BorrowerName: "Acme",
		File:         model.DocumentFile{Name: "deal.txt", MimeType: "text/plain", Size: 1, Data: []byte("x")},
		LastModified: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}))
	in := model.DefaultSettings()
	in.ActiveProfileID = "conservative"
	_, err := settings.Save(ctx, in)
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)

	got, err := sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.BorrowerName)

	all, err := sessions.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	loaded, err := settings.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "conservative", loaded.ActiveProfileID)
}

func TestNewApp_DiskStoreSurvivesRestart(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Dir = t.TempDir()
	ctx := context.Background()

	first := newApp(cfg)
	s, err := first.orch.CreateSession(ctx, model.DocumentFile{Name: "deal.txt", Data: []byte("x")})
	require.NoError(t, err)
	_, err = first.manager.SetActive(ctx, "conservative")
	require.NoError(t, err)
	first.close()

	second := newApp(cfg)
	defer second.close()

	got, err := second.orch.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "deal.txt", got.File.Name)

	active, err := second.manager.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "conservative", active.ID)
}

func TestNewApp_SyncRoundTrip(t *testing.T) {
	base := startSyncServer(t)
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.Sync.Enabled = true
	cfg.Sync.BaseURL = base
	cfg.Sync.Timeout = 2 * time.Second

	writer := newApp(cfg)
	require.NotNil(t, writer.sessionBridge)
	s, err := writer.orch.CreateSession(ctx, model.DocumentFile{Name: "deal.txt", Data: []byte("x")})
	require.NoError(t, err)
	_, err = writer.manager.AddProfile(ctx, "Sponsor Deals", map[string]string{"Max Total Net Leverage": "6.00x"})
	require.NoError(t, err)
	writer.close()

	// A second instance with an empty local store sees the mirrored data
	reader := newApp(cfg)
	defer reader.close()

	got, err := reader.orch.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultBorrowerName, got.BorrowerName)

	settings, err := reader.manager.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, settings.BenchmarkProfiles, 3)

	assert.Empty(t, reader.sessionBridge.Status().LastPullErr)
}

func TestNewApp_SyncServerDown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sync.Enabled = true
	cfg.Sync.BaseURL = "http://127.0.0.1:1"
	cfg.Sync.Timeout = 200 * time.Millisecond
	ctx := context.Background()

	a := newApp(cfg)
	defer a.close()

	s, err := a.orch.CreateSession(ctx, model.DocumentFile{Name: "deal.txt", Data: []byte("x")})
	require.NoError(t, err)

	all, err := a.orch.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, s.ID, all[0].ID)

	a.sessionBridge.Wait()
	assert.NotEmpty(t, a.sessionBridge.Status().LastPullErr)
	assert.NotEmpty(t, a.sessionBridge.Status().LastPushErr)
}
