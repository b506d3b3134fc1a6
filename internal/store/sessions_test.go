package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/creditlens/internal/logger"
	"github.com/ppiankov/creditlens/internal/model"
	"github.com/ppiankov/creditlens/internal/objstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(id string, modified time.Time) model.DealSession {
	return model.DealSession{
		SchemaVersion:     model.CurrentSessionSchema,
		ID:                id,
		BorrowerName:      "Borrower " + id,
		File:              model.DocumentFile{Name: id + ".txt", MimeType: "text/plain", Size: 3, Data: []byte("abc")},
		ExtractionResults: []model.ExtractionResult{},
		BenchmarkResults:  map[string][]model.BenchmarkResult{},
		ChatHistory:       []model.ChatMessage{},
		LastModified:      modified.UTC(),
	}
}

func newLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	return NewLocalStore(objstore.NewMemoryBucket(0), logger.NewNop())
}

func TestLocalStore_EmptyGetAll(t *testing.T) {
	s := newLocalStore(t)
	sessions, err := s.GetAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestLocalStore_PutGetAllSorted(t *testing.T) {
	ctx := context.Background()
	s := newLocalStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Put(ctx, newSession("old", base)))
	require.NoError(t, s.Put(ctx, newSession("new", base.Add(2*time.Hour))))
	require.NoError(t, s.Put(ctx, newSession("mid", base.Add(time.Hour))))

	sessions, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "new", sessions[0].ID)
	assert.Equal(t, "mid", sessions[1].ID)
	assert.Equal(t, "old", sessions[2].ID)
}

func TestLocalStore_PutOverwritesFully(t *testing.T) {
	ctx := context.Background()
	s := newLocalStore(t)
	now := time.Now()

	first := newSession("a", now)
	first.ChatHistory = []model.ChatMessage{{ID: "m", Role: model.RoleUser, Text: "hi", Timestamp: now.UTC()}}
	require.NoError(t, s.Put(ctx, first))

	second := newSession("a", now)
	second.BorrowerName = "Renamed"
	require.NoError(t, s.Put(ctx, second))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.BorrowerName)
	assert.Empty(t, got.ChatHistory, "no field-level merge")
}

func TestLocalStore_DeleteMissingIsNoop(t *testing.T) {
	s := newLocalStore(t)
	assert.NoError(t, s.Delete(context.Background(), "ghost"))
}

func TestLocalStore_GetMissing(t *testing.T) {
	_, err := newLocalStore(t).Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestLocalStore_PutRequiresID(t *testing.T) {
	err := newLocalStore(t).Put(context.Background(), model.DealSession{})
	assert.ErrorIs(t, err, model.ErrInvariant)
}

func TestLocalStore_MergeOnImport(t *testing.T) {
	ctx := context.Background()
	s := newLocalStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	s1 := newSession("S1", base)
	s1.ChatHistory = []model.ChatMessage{{ID: "m1", Role: model.RoleUser, Text: "local only", Timestamp: base}}
	require.NoError(t, s.Put(ctx, s1))

	s1Prime := newSession("S1", base.Add(time.Hour))
	s1Prime.BorrowerName = "Imported"
	s2 := newSession("S2", base)
	blob, err := json.Marshal([]model.DealSession{s1Prime, s2})
	require.NoError(t, err)

	result, err := s.ImportAll(ctx, blob, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)

	sessions, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	got, err := s.Get(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, s1Prime, got, "S1 fully replaced, not merged field-by-field")
}

func TestLocalStore_ImportKeepsNonCollidingLocal(t *testing.T) {
	ctx := context.Background()
	s := newLocalStore(t)
	require.NoError(t, s.Put(ctx, newSession("local", time.Now())))

	blob, _ := json.Marshal([]model.DealSession{newSession("remote", time.Now())})
	_, err := s.ImportAll(ctx, blob, ImportOptions{})
	require.NoError(t, err)

	sessions, _ := s.GetAll(ctx)
	assert.Len(t, sessions, 2)
}

func TestLocalStore_ImportReplace(t *testing.T) {
	ctx := context.Background()
	s := newLocalStore(t)
	require.NoError(t, s.Put(ctx, newSession("local", time.Now())))

	blob, _ := json.Marshal([]model.DealSession{newSession("remote", time.Now())})
	result, err := s.ImportAll(ctx, blob, ImportOptions{Replace: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)

	sessions, _ := s.GetAll(ctx)
	require.Len(t, sessions, 1)
	assert.Equal(t, "remote", sessions[0].ID)
}

func TestLocalStore_ImportRejectsMalformed(t *testing.T) {
	ctx := context.Background()
	s := newLocalStore(t)

	for _, blob := range []string{`not json`, `{"id":"x"}`, `[{"id":"ok"},{"noid":true}]`} {
		_, err := s.ImportAll(ctx, []byte(blob), ImportOptions{})
		assert.ErrorIs(t, err, model.ErrFormat, blob)
	}

	sessions, _ := s.GetAll(ctx)
	assert.Empty(t, sessions, "nothing applied from a rejected blob")
}

func TestLocalStore_ImportLenientSkips(t *testing.T) {
	ctx := context.Background()
	s := newLocalStore(t)

	result, err := s.ImportAll(ctx, []byte(`[{"id":"ok"},{"noid":true}]`), ImportOptions{Lenient: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Len(t, result.Skipped, 1)
}

func TestLocalStore_ImportKeepNewer(t *testing.T) {
	ctx := context.Background()
	s := newLocalStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	local := newSession("S1", base.Add(time.Hour))
	local.BorrowerName = "Local edit"
	require.NoError(t, s.Put(ctx, local))

	older := newSession("S1", base)
	older.BorrowerName = "Mirror copy"
	fresh := newSession("S2", base)
	blob, err := json.Marshal([]model.DealSession{older, fresh})
	require.NoError(t, err)

	result, err := s.ImportAll(ctx, blob, ImportOptions{KeepNewer: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Stale)

	got, err := s.Get(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "Local edit", got.BorrowerName)
}

func TestLocalStore_RoundTripExportImport(t *testing.T) {
	ctx := context.Background()
	src := newLocalStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	a := newSession("a", base)
	a.ExtractionResults = []model.ExtractionResult{{Term: "Facility Amount", Value: "$50m", Confidence: "High"}}
	a.BenchmarkResults = map[string][]model.BenchmarkResult{
		"default": {{Term: "Facility Amount", ExtractedValue: "$50m", BenchmarkValue: "$40m", Variance: model.VarianceYellow}},
	}
	b := newSession("b", base.Add(time.Minute))
	b.WebFinancials = &model.WebFinancials{Metrics: []model.FinancialMetric{}, SourceURLs: []string{}, LastUpdated: base}
	require.NoError(t, src.Put(ctx, a))
	require.NoError(t, src.Put(ctx, b))

	blob, err := src.ExportAll(ctx)
	require.NoError(t, err)

	dst := newLocalStore(t)
	_, err = dst.ImportAll(ctx, blob, ImportOptions{})
	require.NoError(t, err)

	want, _ := src.GetAll(ctx)
	got, _ := dst.GetAll(ctx)
	assert.Equal(t, want, got)
}

func TestLocalStore_ExportEmptyIsArray(t *testing.T) {
	blob, err := newLocalStore(t).ExportAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(blob))
}

func TestLocalStore_CorruptRecordSkipped(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewLocalStore(objstore.NewDiskBucket(dir), logger.NewNop())

	require.NoError(t, s.Put(ctx, newSession("good", time.Now())))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{garbage"), 0644))

	sessions, skipped, err := s.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "good", sessions[0].ID)
	require.Len(t, skipped, 1)
	assert.Equal(t, "bad", skipped[0].ID)

	_, err = os.Stat(filepath.Join(dir, "bad.json"))
	assert.NoError(t, err, "corrupt record is left in place")
}

func TestLocalStore_MigratesLegacyRecordOnRead(t *testing.T) {
	ctx := context.Background()
	bucket := objstore.NewMemoryBucket(0)
	require.NoError(t, bucket.Put("old", []byte(`{"id":"old","benchmarkResults":[{"term":"A","variance":"Red"}]}`)))

	got, err := NewLocalStore(bucket, logger.NewNop()).Get(ctx, "old")
	require.NoError(t, err)
	assert.Len(t, got.BenchmarkResults[model.DefaultProfileID], 1)
	assert.NotNil(t, got.ChatHistory)
}

func TestLocalStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newLocalStore(t).GetAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
