// Package benchmark holds the rules for benchmark profiles and variance
// results. Everything here is pure: inputs are copied, never mutated.
package benchmark

import (
	"strings"

	"github.com/ppiankov/creditlens/internal/model"
)

// ProfileFor resolves a profile by id. A stale id falls back to the first
// profile and ok reports false; it never fails.
func ProfileFor(settings model.AppSettings, id string) (profile model.BenchmarkProfile, ok bool) {
	if p, found := settings.Profile(id); found {
		return p.Clone(), true
	}
	if len(settings.BenchmarkProfiles) > 0 {
		return settings.BenchmarkProfiles[0].Clone(), false
	}
	return model.DefaultProfiles()[0], false
}

// ActiveProfile resolves the settings' active profile
func ActiveProfile(settings model.AppSettings) model.BenchmarkProfile {
	p, _ := ProfileFor(settings, settings.ActiveProfileID)
	return p
}

// RecordVariance returns a copy of session with results stored under
// profileID. Results stored for every other profile are left as they were.
func RecordVariance(session model.DealSession, profileID string, results []model.BenchmarkResult) model.DealSession {
	out := session.Clone()
	out.BenchmarkResults[profileID] = append([]model.BenchmarkResult{}, results...)
	return out
}

// Evaluate splits collaborator findings into the extraction results and the
// variance results for one profile
func Evaluate(findings []model.TermFinding, profile model.BenchmarkProfile) ([]model.ExtractionResult, []model.BenchmarkResult) {
	extraction := make([]model.ExtractionResult, 0, len(findings))
	for _, f := range findings {
		if strings.TrimSpace(f.Term) == "" {
			continue
		}
		extraction = append(extraction, f.Extraction())
	}
	return extraction, Variances(findings, profile)
}

// Variances keeps only findings that carry a Green/Yellow/Red variance for a
// term the profile defines a benchmark for. Each term appears at most once; a later
// finding for the same term replaces an earlier one.
func Variances(findings []model.TermFinding, profile model.BenchmarkProfile) []model.BenchmarkResult {
	out := make([]model.BenchmarkResult, 0, len(findings))
	index := make(map[string]int, len(findings))

	for _, f := range findings {
		term := strings.TrimSpace(f.Term)
		if term == "" {
			continue
		}
		variance, ok := model.ParseVariance(f.Variance)
		if !ok {
			continue
		}
		// The profile is the only source of benchmarks; a value the
		// extractor reports for an undefined term is ignored.
		benchmarkValue, ok := BenchmarkValue(profile, term)
		if !ok {
			continue
		}

		result := model.BenchmarkResult{
			Term:           term,
			ExtractedValue: f.Value,
			BenchmarkValue: benchmarkValue,
			Variance:       variance,
			Commentary:     f.Commentary,
		}
		key := strings.ToLower(term)
		if i, seen := index[key]; seen {
			out[i] = result
			continue
		}
		index[key] = len(out)
		out = append(out, result)
	}
	return out
}

// BenchmarkValue looks up a term's benchmark in a profile, matching the
// term name case-insensitively
func BenchmarkValue(profile model.BenchmarkProfile, term string) (string, bool) {
	if v, ok := profile.Data[term]; ok && hasBenchmark(v) {
		return v, true
	}
	for name, v := range profile.Data {
		if strings.EqualFold(name, term) && hasBenchmark(v) {
			return v, true
		}
	}
	return "", false
}

func hasBenchmark(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	switch strings.ToLower(v) {
	case "n/a", "na", "none", "-", strings.ToLower(model.NotFoundValue):
		return false
	}
	return true
}
