package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Variance classifies how far an extracted value sits from its benchmark.
// There is no "not applicable" member: a term without a comparable benchmark
// is left out of the results list instead.
type Variance string

const (
	VarianceGreen  Variance = "Green"
	VarianceYellow Variance = "Yellow"
	VarianceRed    Variance = "Red"
)

// ParseVariance accepts the spellings collaborators tend to produce.
// ok is false for "N/A", empty, or anything unrecognised.
func ParseVariance(s string) (Variance, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "green", "g", "low":
		return VarianceGreen, true
	case "yellow", "amber", "y", "medium":
		return VarianceYellow, true
	case "red", "r", "high":
		return VarianceRed, true
	default:
		return "", false
	}
}

// Valid reports whether v is one of the three stored states
func (v Variance) Valid() bool {
	switch v {
	case VarianceGreen, VarianceYellow, VarianceRed:
		return true
	}
	return false
}

// UnmarshalJSON rejects anything outside the closed set
func (v *Variance) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseVariance(s)
	if !ok {
		return fmt.Errorf("%w: variance %q", ErrFormat, s)
	}
	*v = parsed
	return nil
}
