package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/ppiankov/creditlens/internal/logger"
	"github.com/ppiankov/creditlens/internal/model"
	"github.com/ppiankov/creditlens/internal/objstore"
	"github.com/ppiankov/creditlens/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqIDs() IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func singleProfile() model.AppSettings {
	return model.AppSettings{
		Terms:             model.DefaultTerms(),
		BenchmarkProfiles: []model.BenchmarkProfile{{ID: "only", Name: "Only", Data: map[string]string{"A": "1"}}},
		ActiveProfileID:   "only",
	}
}

func TestDeleteProfile_LastIsProtected(t *testing.T) {
	s := singleProfile()
	_, err := DeleteProfile(s, "only")
	assert.ErrorIs(t, err, model.ErrInvariant)
	assert.Len(t, s.BenchmarkProfiles, 1)
}

func TestDeleteProfile_ReassignsActive(t *testing.T) {
	s, second, err := AddProfile(singleProfile(), seqIDs(), "Second", nil)
	require.NoError(t, err)

	out, err := DeleteProfile(s, "only")
	require.NoError(t, err)
	require.Len(t, out.BenchmarkProfiles, 1)
	assert.Equal(t, second.ID, out.ActiveProfileID)

	_, err = DeleteProfile(out, "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeleteProfile_KeepsActiveWhenOtherDeleted(t *testing.T) {
	s, second, err := AddProfile(singleProfile(), seqIDs(), "Second", nil)
	require.NoError(t, err)

	out, err := DeleteProfile(s, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "only", out.ActiveProfileID)
	assert.Len(t, s.BenchmarkProfiles, 2, "input not mutated")
}

func TestCloneProfile_DeepCopiesData(t *testing.T) {
	s, clone, err := CloneProfile(singleProfile(), seqIDs(), "only", "")
	require.NoError(t, err)
	assert.Equal(t, "Only (copy)", clone.Name)
	assert.Equal(t, "1", clone.Data["A"])

	s, err = SetBenchmark(s, clone.ID, "A", "2")
	require.NoError(t, err)

	orig, _ := s.Profile("only")
	copied, _ := s.Profile(clone.ID)
	assert.Equal(t, "1", orig.Data["A"])
	assert.Equal(t, "2", copied.Data["A"])
}

func TestSetBenchmark_EmptyRemoves(t *testing.T) {
	s, err := SetBenchmark(singleProfile(), "only", "A", "  ")
	require.NoError(t, err)
	p, _ := s.Profile("only")
	_, has := p.Data["A"]
	assert.False(t, has)

	_, err = SetBenchmark(s, "ghost", "A", "1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSetActive(t *testing.T) {
	s := model.DefaultSettings()
	out, err := SetActive(s, "conservative")
	require.NoError(t, err)
	assert.Equal(t, "conservative", out.ActiveProfileID)

	_, err = SetActive(s, "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTerms_RenameCascadesToProfiles(t *testing.T) {
	s := model.DefaultSettings()
	leverage, ok := s.Term("Max Total Net Leverage")
	require.True(t, ok)

	leverage.Name = "Total Net Leverage Ratio"
	out, err := UpdateTerm(s, leverage.ID, leverage)
	require.NoError(t, err)

	for _, p := range out.BenchmarkProfiles {
		_, old := p.Data["Max Total Net Leverage"]
		assert.False(t, old)
		assert.NotEmpty(t, p.Data["Total Net Leverage Ratio"], p.ID)
	}
}

func TestTerms_DuplicateNamesRejected(t *testing.T) {
	s := model.DefaultSettings()
	_, _, err := AddTerm(s, seqIDs(), model.StandardTerm{Name: "governing law"})
	assert.ErrorIs(t, err, model.ErrInvariant)

	coverage, _ := s.Term("Min Interest Coverage")
	coverage.Name = "Governing Law"
	_, err = UpdateTerm(s, coverage.ID, coverage)
	assert.ErrorIs(t, err, model.ErrInvariant)
}

func TestTerms_RemoveDropsBenchmarks(t *testing.T) {
	s := model.DefaultSettings()
	capex, _ := s.Term("Capex Limit")

	out, err := RemoveTerm(s, capex.ID)
	require.NoError(t, err)
	_, still := out.Term("Capex Limit")
	assert.False(t, still)
	for _, p := range out.BenchmarkProfiles {
		_, has := p.Data["Capex Limit"]
		assert.False(t, has)
	}

	_, err = RemoveTerm(out, capex.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestManager_PersistsMutations(t *testing.T) {
	ctx := context.Background()
	settings := store.NewSettingsStore(objstore.NewMemoryBucket(0), logger.NewNop())
	m := NewManager(settings)
	m.newID = seqIDs()

	p, err := m.AddProfile(ctx, "Aggressive", map[string]string{"Max Total Net Leverage": "6.00x"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", p.ID)

	_, err = m.SetActive(ctx, p.ID)
	require.NoError(t, err)

	active, err := m.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Aggressive", active.Name)

	after, err := m.DeleteProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultProfileID, after.ActiveProfileID)

	loaded, err := settings.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, after, loaded)
}

func TestManager_LastProfileProtection(t *testing.T) {
	ctx := context.Background()
	settings := store.NewSettingsStore(objstore.NewMemoryBucket(0), logger.NewNop())
	m := NewManager(settings)

	_, err := m.DeleteProfile(ctx, "conservative")
	require.NoError(t, err)

	_, err = m.DeleteProfile(ctx, model.DefaultProfileID)
	assert.ErrorIs(t, err, model.ErrInvariant)

	loaded, _ := settings.Load(ctx)
	assert.Len(t, loaded.BenchmarkProfiles, 1)
}
