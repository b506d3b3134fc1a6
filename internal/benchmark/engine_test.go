package benchmark

import (
	"testing"

	"github.com/ppiankov/creditlens/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordVariance_ProfileIsolation(t *testing.T) {
	session := model.DealSession{ID: "s", BenchmarkResults: map[string][]model.BenchmarkResult{}}
	r1 := []model.BenchmarkResult{{Term: "A", Variance: model.VarianceGreen}}
	r2 := []model.BenchmarkResult{{Term: "A", Variance: model.VarianceRed}}
	r3 := []model.BenchmarkResult{{Term: "B", Variance: model.VarianceYellow}}

	s1 := RecordVariance(session, "profileA", r1)
	s2 := RecordVariance(s1, "profileB", r2)
	assert.Equal(t, map[string][]model.BenchmarkResult{"profileA": r1, "profileB": r2}, s2.BenchmarkResults)

	s3 := RecordVariance(s2, "profileA", r3)
	assert.Equal(t, map[string][]model.BenchmarkResult{"profileA": r3, "profileB": r2}, s3.BenchmarkResults)

	assert.Empty(t, session.BenchmarkResults, "input session is not mutated")
	assert.Equal(t, r1, s1.BenchmarkResults["profileA"])
}

func TestRecordVariance_NilMap(t *testing.T) {
	out := RecordVariance(model.DealSession{ID: "s"}, "p", nil)
	require.NotNil(t, out.BenchmarkResults)
	assert.NotNil(t, out.BenchmarkResults["p"])
	assert.Empty(t, out.BenchmarkResults["p"])
}

func TestVariances_OmitsNotApplicable(t *testing.T) {
	profile := model.BenchmarkProfile{ID: "p", Data: map[string]string{
		"Max Total Net Leverage": "4.50x",
		"Commitment Fee":         "0.375%",
		"Governing Law":          "New York",
	}}
	findings := []model.TermFinding{
		{Term: "Max Total Net Leverage", Value: "5.00x", Variance: "Red", Commentary: "wide"},
		{Term: "Commitment Fee", Value: "0.35%", Variance: "N/A"},
		{Term: "Governing Law", Value: "English", Variance: ""},
		{Term: "Borrower Name", Value: "Acme", Variance: "Green"}, // no benchmark in profile
		{Term: "Capex Limit", Value: "$5m", Variance: "amber", BenchmarkValue: "$10m"}, // benchmark only from the extractor
		{Term: "governing law", Value: "New York", Variance: "amber", BenchmarkValue: "English"},
		{Term: "Max Total Net Leverage", Value: "5.25x", Variance: "red", Commentary: "later"},
	}

	got := Variances(findings, profile)
	require.Len(t, got, 2)

	assert.Equal(t, "Max Total Net Leverage", got[0].Term)
	assert.Equal(t, "5.25x", got[0].ExtractedValue, "later finding for the same term wins")
	assert.Equal(t, "4.50x", got[0].BenchmarkValue)

	assert.Equal(t, "governing law", got[1].Term)
	assert.Equal(t, model.VarianceYellow, got[1].Variance)
	assert.Equal(t, "New York", got[1].BenchmarkValue, "profile value wins over the reported one")

	for _, r := range got {
		assert.True(t, r.Variance.Valid())
	}
}

func TestVariances_IgnoresReportedBenchmarkForUndefinedTerm(t *testing.T) {
	profile := model.DefaultSettings().BenchmarkProfiles[0]
	findings := []model.TermFinding{
		{Term: "Borrower Name", Value: "Acme", Variance: "Green", BenchmarkValue: "Any borrower"},
		{Term: "Change of Control", Value: "40%", Variance: "Red", BenchmarkValue: "35%"},
	}

	assert.Empty(t, Variances(findings, profile))
}

func TestEvaluate_KeepsNotFoundValues(t *testing.T) {
	extraction, variances := Evaluate([]model.TermFinding{
		{Term: "Capex Limit", Value: model.NotFoundValue, Variance: "N/A"},
		{Term: "", Value: "orphan"},
	}, model.BenchmarkProfile{Data: map[string]string{"Capex Limit": "$10m"}})

	require.Len(t, extraction, 1)
	assert.False(t, extraction[0].Found())
	assert.Empty(t, variances)
}

func TestProfileFor_FallsBackToFirst(t *testing.T) {
	s := model.DefaultSettings()

	p, ok := ProfileFor(s, "conservative")
	assert.True(t, ok)
	assert.Equal(t, "conservative", p.ID)

	p, ok = ProfileFor(s, "ghost")
	assert.False(t, ok)
	assert.Equal(t, s.BenchmarkProfiles[0].ID, p.ID)

	p, ok = ProfileFor(model.AppSettings{}, "ghost")
	assert.False(t, ok)
	assert.NotEmpty(t, p.ID)
}

func TestProfileFor_ReturnsCopy(t *testing.T) {
	s := model.DefaultSettings()
	p, _ := ProfileFor(s, model.DefaultProfileID)
	p.Data["Max Total Net Leverage"] = "9.99x"

	again, _ := ProfileFor(s, model.DefaultProfileID)
	assert.Equal(t, "4.50x", again.Data["Max Total Net Leverage"])
}
