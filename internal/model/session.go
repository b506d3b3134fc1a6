package model

import (
	"strings"
	"time"
)

// CurrentSessionSchema is the on-disk schema version written with every session.
// Version 1 (unversioned) stored benchmark results as a flat list.
const CurrentSessionSchema = 2

// DefaultBorrowerName is shown until extraction finds the borrower
const DefaultBorrowerName = "New Deal"

// BorrowerTerm is the extracted term whose value becomes the borrower name
const BorrowerTerm = "Borrower Name"

// NotFoundValue is what the extractor reports when a term is absent from the document
const NotFoundValue = "Not Found"

// DealSession is one uploaded document plus everything derived from it
type DealSession struct {
	SchemaVersion     int                          `json:"schemaVersion"`
	ID                string                       `json:"id"`
	BorrowerName      string                       `json:"borrowerName"`
	File              DocumentFile                 `json:"file"`
	ExtractionResults []ExtractionResult           `json:"extractionResults"`
	BenchmarkResults  map[string][]BenchmarkResult `json:"benchmarkResults"` // keyed by profile id
	WebFinancials     *WebFinancials               `json:"webFinancials,omitempty"`
	ChatHistory       []ChatMessage                `json:"chatHistory"`
	LastModified      time.Time                    `json:"lastModified"`
}

// DocumentFile is the uploaded document. It never changes after upload.
type DocumentFile struct {
	Name     string `json:"name"`
	MimeType string `json:"type"`
	Size     int64  `json:"size"`
	Data     []byte `json:"data"` // base64 in JSON
}

// ExtractionResult is a single term pulled out of the document
type ExtractionResult struct {
	Term           string `json:"term"`
	Value          string `json:"value"`
	SourceLocation string `json:"sourceLocation"`
	EvidenceQuote  string `json:"evidenceQuote"`
	Confidence     string `json:"confidence"`
}

// Found reports whether the extractor located the term
func (r ExtractionResult) Found() bool {
	v := strings.TrimSpace(r.Value)
	return v != "" && !strings.EqualFold(v, NotFoundValue)
}

// BenchmarkResult compares one extracted value against a profile's benchmark value
type BenchmarkResult struct {
	Term           string   `json:"term"`
	ExtractedValue string   `json:"extractedValue"`
	BenchmarkValue string   `json:"benchmarkValue"`
	Variance       Variance `json:"variance"`
	Commentary     string   `json:"commentary"`
}

// WebFinancials is an independently refreshed snapshot of public financial data
type WebFinancials struct {
	Metrics     []FinancialMetric `json:"metrics"`
	SourceURLs  []string          `json:"sourceUrls"`
	LastUpdated time.Time         `json:"lastUpdated"`
}

// FinancialMetric is a single named figure, e.g. "Revenue (FY2024)"
type FinancialMetric struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Period string `json:"period,omitempty"`
}

// ChatRole identifies who authored a chat message
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry in a session's append-only chat log
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	IsError   bool      `json:"isError,omitempty"`
}

// Clone returns a deep copy so callers never share mutable state with a store
func (s DealSession) Clone() DealSession {
	out := s
	out.File.Data = append([]byte(nil), s.File.Data...)
	out.ExtractionResults = append([]ExtractionResult(nil), s.ExtractionResults...)
	out.BenchmarkResults = make(map[string][]BenchmarkResult, len(s.BenchmarkResults))
	for id, results := range s.BenchmarkResults {
		out.BenchmarkResults[id] = append([]BenchmarkResult(nil), results...)
	}
	out.ChatHistory = append([]ChatMessage(nil), s.ChatHistory...)
	if s.WebFinancials != nil {
		wf := *s.WebFinancials
		wf.Metrics = append([]FinancialMetric(nil), s.WebFinancials.Metrics...)
		wf.SourceURLs = append([]string(nil), s.WebFinancials.SourceURLs...)
		out.WebFinancials = &wf
	}
	return out
}

// AnalysisState is derived from extraction results, never stored
type AnalysisState string

const (
	StateFresh    AnalysisState = "fresh"
	StateAnalyzed AnalysisState = "analyzed"
)

// BenchmarkState is derived per profile, never stored
type BenchmarkState string

const (
	StateNotBenchmarked BenchmarkState = "not_benchmarked"
	StateBenchmarked    BenchmarkState = "benchmarked"
)

// Analysis returns Fresh until extraction has produced results
func (s DealSession) Analysis() AnalysisState {
	if len(s.ExtractionResults) == 0 {
		return StateFresh
	}
	return StateAnalyzed
}

// Benchmark reports whether variance has been recorded for the profile
func (s DealSession) Benchmark(profileID string) BenchmarkState {
	if _, ok := s.BenchmarkResults[profileID]; ok {
		return StateBenchmarked
	}
	return StateNotBenchmarked
}
