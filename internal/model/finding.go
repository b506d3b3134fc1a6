package model

// TermFinding is one per-term record returned by the extraction collaborator.
// Variance is raw text; only parseable Green/Yellow/Red values are ever stored.
type TermFinding struct {
	Term           string `json:"term"`
	Value          string `json:"value"`
	SourceLocation string `json:"sourceLocation"`
	EvidenceQuote  string `json:"evidenceQuote"`
	Confidence     string `json:"confidence"`
	BenchmarkValue string `json:"benchmarkValue"`
	Variance       string `json:"variance"`
	Commentary     string `json:"commentary"`
}

// Extraction converts the finding to its stored extraction shape
func (f TermFinding) Extraction() ExtractionResult {
	return ExtractionResult{
		Term:           f.Term,
		Value:          f.Value,
		SourceLocation: f.SourceLocation,
		EvidenceQuote:  f.EvidenceQuote,
		Confidence:     f.Confidence,
	}
}
