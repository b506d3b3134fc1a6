package migrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/creditlens/internal/model"
)

// LegacyProfileName names the profile synthesised from a pre-profile benchmark map
const LegacyProfileName = "Standard Market"

type rawSettings struct {
	Terms             json.RawMessage   `json:"terms"`
	BenchmarkProfiles json.RawMessage   `json:"benchmarkProfiles"`
	Benchmarks        map[string]string `json:"benchmarks"` // pre-profile schema
	ActiveProfileID   string            `json:"activeProfileId"`
}

// Settings upgrades a persisted settings blob. An empty or null blob yields
// the built-in defaults. The returned settings always have at least one
// profile and an active profile id that resolves.
func Settings(raw []byte) (model.AppSettings, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return model.DefaultSettings(), nil
	}
	if trimmed[0] != '{' {
		return model.AppSettings{}, fmt.Errorf("%w: settings must be a JSON object", model.ErrFormat)
	}

	var r rawSettings
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return model.AppSettings{}, fmt.Errorf("%w: decode settings: %v", model.ErrFormat, err)
	}

	out := model.AppSettings{ActiveProfileID: r.ActiveProfileID}

	if shapeOf(r.Terms) == shapeAbsent {
		out.Terms = model.DefaultTerms()
	} else {
		if err := json.Unmarshal(r.Terms, &out.Terms); err != nil {
			return model.AppSettings{}, fmt.Errorf("%w: terms: %v", model.ErrFormat, err)
		}
		out.Terms = migrateTerms(out.Terms)
	}

	var profiles []model.BenchmarkProfile
	if shapeOf(r.BenchmarkProfiles) != shapeAbsent {
		if err := json.Unmarshal(r.BenchmarkProfiles, &profiles); err != nil {
			return model.AppSettings{}, fmt.Errorf("%w: benchmarkProfiles: %v", model.ErrFormat, err)
		}
	}

	switch {
	case len(profiles) > 0:
		out.BenchmarkProfiles = migrateProfiles(profiles)
	case r.Benchmarks != nil:
		legacy := model.BenchmarkProfile{
			ID:   model.DefaultProfileID,
			Name: LegacyProfileName,
			Data: make(map[string]string, len(r.Benchmarks)),
		}
		for term, value := range r.Benchmarks {
			legacy.Data[term] = value
		}
		out.BenchmarkProfiles = []model.BenchmarkProfile{legacy}
		out.ActiveProfileID = legacy.ID
	default:
		out.BenchmarkProfiles = model.DefaultProfiles()
	}

	RepairActive(&out)
	return out, nil
}

// RepairActive points ActiveProfileID at the first profile when it dangles.
// Settings without profiles get the built-in ones first.
func RepairActive(s *model.AppSettings) {
	if len(s.BenchmarkProfiles) == 0 {
		s.BenchmarkProfiles = model.DefaultProfiles()
	}
	if _, ok := s.Profile(s.ActiveProfileID); !ok {
		s.ActiveProfileID = s.BenchmarkProfiles[0].ID
	}
}

func migrateTerms(in []model.StandardTerm) []model.StandardTerm {
	out := make([]model.StandardTerm, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, t := range in {
		t.Name = strings.TrimSpace(t.Name)
		key := strings.ToLower(t.Name)
		if t.Name == "" || seen[key] {
			continue
		}
		seen[key] = true
		if t.ID == "" {
			t.ID = fmt.Sprintf("term-%d", i)
		}
		out = append(out, t)
	}
	return out
}

func migrateProfiles(in []model.BenchmarkProfile) []model.BenchmarkProfile {
	out := make([]model.BenchmarkProfile, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, p := range in {
		if p.ID == "" {
			p.ID = fmt.Sprintf("profile-%d", i)
		}
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		if p.Data == nil {
			p.Data = map[string]string{}
		}
		if strings.TrimSpace(p.Name) == "" {
			p.Name = p.ID
		}
		out = append(out, p)
	}
	return out
}
