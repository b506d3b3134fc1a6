package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ppiankov/creditlens/internal/benchmark"
	"github.com/ppiankov/creditlens/internal/filesync"
	"github.com/ppiankov/creditlens/internal/llm"
	"github.com/ppiankov/creditlens/internal/logger"
	"github.com/ppiankov/creditlens/internal/model"
	"github.com/ppiankov/creditlens/internal/objstore"
	"github.com/ppiankov/creditlens/internal/session"
	"github.com/ppiankov/creditlens/internal/store"
	"github.com/ppiankov/creditlens/internal/worker"
)

// app is the wired object graph one command runs against
type app struct {
	cfg      *model.Config
	log      logger.Logger
	sessions store.Sessions
	settings store.Settings
	manager  *benchmark.Manager
	orch     *session.Orchestrator

	// nil unless sync is enabled
	sessionBridge  *filesync.SessionBridge
	settingsBridge *filesync.SettingsBridge
}

func newApp(cfg *model.Config) *app {
	log := newLogger(cfg)

	sessionsBucket, settingsBucket := buckets(cfg.Store)
	var sessions store.Sessions = store.NewLocalStore(sessionsBucket, log)
	var settings store.Settings = store.NewSettingsStore(settingsBucket, log)

	a := &app{cfg: cfg, log: log}

	if cfg.Sync.Enabled {
		a.sessionBridge = filesync.NewSessionBridge(
			sessions,
			filesync.NewHTTPChannel(cfg.Sync.BaseURL, filesync.ResourceSessions, cfg.Sync.Timeout),
			log, cfg.Sync.Timeout,
		)
		a.settingsBridge = filesync.NewSettingsBridge(
			settings,
			filesync.NewHTTPChannel(cfg.Sync.BaseURL, filesync.ResourceSettings, cfg.Sync.Timeout),
			log, cfg.Sync.Timeout,
		)
		sessions, settings = a.sessionBridge, a.settingsBridge
	}

	a.sessions = sessions
	a.settings = settings
	// Ollama runs locally and is not throttled
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	limiter.SetRate("ollama", 0, 0)

	a.manager = benchmark.NewManager(settings)
	a.orch = session.NewOrchestrator(sessions, settings, log, session.Options{
		Workers:    cfg.Concurrency.Workers,
		Limiter:    limiter,
		LimiterKey: strings.ToLower(cfg.LLM.Provider),
	})
	return a
}

func newLogger(cfg *model.Config) logger.Logger {
	if noLog {
		return logger.NewNop()
	}
	return logger.NewZapLogger(cfg.Log.File, cfg.Log.Production)
}

// buckets picks the physical tier: memory only, or memory over disk.
// MemoryTTL only applies to the cache in front of disk; a memory-only
// bucket holds the sole copy and never expires.
func buckets(cfg model.StoreConfig) (objstore.Bucket, objstore.Bucket) {
	if cfg.Dir == "" {
		return objstore.NewMemoryBucket(0), objstore.NewMemoryBucket(0)
	}
	return objstore.NewLayeredBucket(cfg.MemoryTTL, filepath.Join(cfg.Dir, "sessions")),
		objstore.NewLayeredBucket(cfg.MemoryTTL, filepath.Join(cfg.Dir, "settings"))
}

// analyst builds the LLM collaborator. Commands that never call the
// provider do not need credentials.
func (a *app) analyst(ctx context.Context) (*llm.Analyst, error) {
	provider, err := llm.NewProvider(llm.ConfigFromModel(a.cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	if !provider.IsAvailable(ctx) {
		return nil, fmt.Errorf("LLM provider %s is not available (check API key or base URL)", provider.Name())
	}
	if verbose {
		fmt.Printf("Using LLM provider: %s\n", provider.Name())
	}
	return llm.NewAnalyst(provider), nil
}

// close waits for in-flight sync pushes and flushes the log
func (a *app) close() {
	if a.sessionBridge != nil {
		a.sessionBridge.Wait()
	}
	if a.settingsBridge != nil {
		a.settingsBridge.Wait()
	}
	_ = a.log.Sync()
}

// withApp loads config, wires an app, and always closes it
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a := newApp(cfg)
	defer a.close()
	return fn(context.Background(), a)
}
