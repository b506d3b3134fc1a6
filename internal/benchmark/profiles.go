package benchmark

import (
	"fmt"
	"strings"

	"github.com/ppiankov/creditlens/internal/model"
)

// IDFunc generates ids for new profiles and terms
type IDFunc func() string

// AddProfile appends a new profile built from a copy of data
func AddProfile(s model.AppSettings, newID IDFunc, name string, data map[string]string) (model.AppSettings, model.BenchmarkProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return s, model.BenchmarkProfile{}, fmt.Errorf("%w: profile name is required", model.ErrInvariant)
	}
	p := model.BenchmarkProfile{ID: newID(), Name: name, Data: map[string]string{}}
	for term, value := range data {
		p.Data[term] = value
	}

	out := s.Clone()
	out.BenchmarkProfiles = append(out.BenchmarkProfiles, p)
	return out, p.Clone(), nil
}

// CloneProfile deep-copies an existing profile under a new id and name
func CloneProfile(s model.AppSettings, newID IDFunc, sourceID, name string) (model.AppSettings, model.BenchmarkProfile, error) {
	src, ok := s.Profile(sourceID)
	if !ok {
		return s, model.BenchmarkProfile{}, fmt.Errorf("profile %s: %w", sourceID, model.ErrNotFound)
	}
	if strings.TrimSpace(name) == "" {
		name = src.Name + " (copy)"
	}
	return AddProfile(s, newID, name, src.Data)
}

// RenameProfile changes a profile's display name
func RenameProfile(s model.AppSettings, id, name string) (model.AppSettings, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return s, fmt.Errorf("%w: profile name is required", model.ErrInvariant)
	}
	return updateProfile(s, id, func(p *model.BenchmarkProfile) { p.Name = name })
}

// SetBenchmark sets one term's benchmark value in a profile. An empty value
// removes the term from the profile.
func SetBenchmark(s model.AppSettings, profileID, term, value string) (model.AppSettings, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s, fmt.Errorf("%w: term name is required", model.ErrInvariant)
	}
	value = strings.TrimSpace(value)
	return updateProfile(s, profileID, func(p *model.BenchmarkProfile) {
		if value == "" {
			delete(p.Data, term)
			return
		}
		p.Data[term] = value
	})
}

// DeleteProfile removes a profile. The last remaining profile cannot be
// deleted. Deleting the active profile makes the first remaining one active.
func DeleteProfile(s model.AppSettings, id string) (model.AppSettings, error) {
	if _, ok := s.Profile(id); !ok {
		return s, fmt.Errorf("profile %s: %w", id, model.ErrNotFound)
	}
	if len(s.BenchmarkProfiles) <= 1 {
		return s, fmt.Errorf("%w: cannot delete the last benchmark profile", model.ErrInvariant)
	}

	out := s.Clone()
	kept := out.BenchmarkProfiles[:0]
	for _, p := range out.BenchmarkProfiles {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	out.BenchmarkProfiles = kept
	if out.ActiveProfileID == id {
		out.ActiveProfileID = kept[0].ID
	}
	return out, nil
}

// SetActive points the active profile at id
func SetActive(s model.AppSettings, id string) (model.AppSettings, error) {
	if _, ok := s.Profile(id); !ok {
		return s, fmt.Errorf("profile %s: %w", id, model.ErrNotFound)
	}
	out := s.Clone()
	out.ActiveProfileID = id
	return out, nil
}

func updateProfile(s model.AppSettings, id string, fn func(*model.BenchmarkProfile)) (model.AppSettings, error) {
	out := s.Clone()
	for i := range out.BenchmarkProfiles {
		if out.BenchmarkProfiles[i].ID == id {
			fn(&out.BenchmarkProfiles[i])
			return out, nil
		}
	}
	return s, fmt.Errorf("profile %s: %w", id, model.ErrNotFound)
}
