package benchmark

import (
	"fmt"
	"strings"

	"github.com/ppiankov/creditlens/internal/model"
)

// AddTerm appends a term definition. Names must be unique ignoring case.
func AddTerm(s model.AppSettings, newID IDFunc, term model.StandardTerm) (model.AppSettings, model.StandardTerm, error) {
	term.Name = strings.TrimSpace(term.Name)
	if term.Name == "" {
		return s, model.StandardTerm{}, fmt.Errorf("%w: term name is required", model.ErrInvariant)
	}
	if _, exists := s.Term(term.Name); exists {
		return s, model.StandardTerm{}, fmt.Errorf("%w: term %q already exists", model.ErrInvariant, term.Name)
	}
	term.ID = newID()

	out := s.Clone()
	out.Terms = append(out.Terms, term)
	return out, term, nil
}

// UpdateTerm replaces a term's definition. Since benchmark data is keyed by
// term name, a rename moves the term's value in every profile.
func UpdateTerm(s model.AppSettings, id string, updated model.StandardTerm) (model.AppSettings, error) {
	updated.Name = strings.TrimSpace(updated.Name)
	if updated.Name == "" {
		return s, fmt.Errorf("%w: term name is required", model.ErrInvariant)
	}

	idx := termIndex(s, id)
	if idx < 0 {
		return s, fmt.Errorf("term %s: %w", id, model.ErrNotFound)
	}
	oldName := s.Terms[idx].Name
	if other, exists := s.Term(updated.Name); exists && other.ID != id {
		return s, fmt.Errorf("%w: term %q already exists", model.ErrInvariant, updated.Name)
	}

	out := s.Clone()
	updated.ID = id
	out.Terms[idx] = updated

	if oldName != updated.Name {
		for i := range out.BenchmarkProfiles {
			data := out.BenchmarkProfiles[i].Data
			if v, ok := data[oldName]; ok {
				delete(data, oldName)
				data[updated.Name] = v
			}
		}
	}
	return out, nil
}

// RemoveTerm drops a term and its benchmark value from every profile
func RemoveTerm(s model.AppSettings, id string) (model.AppSettings, error) {
	idx := termIndex(s, id)
	if idx < 0 {
		return s, fmt.Errorf("term %s: %w", id, model.ErrNotFound)
	}
	name := s.Terms[idx].Name

	out := s.Clone()
	out.Terms = append(out.Terms[:idx], out.Terms[idx+1:]...)
	for i := range out.BenchmarkProfiles {
		delete(out.BenchmarkProfiles[i].Data, name)
	}
	return out, nil
}

func termIndex(s model.AppSettings, id string) int {
	for i, t := range s.Terms {
		if t.ID == id {
			return i
		}
	}
	return -1
}
