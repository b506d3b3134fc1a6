// Package migrate upgrades persisted sessions and settings of any historical
// shape into the current shape. Every read path goes through here, and every
// function is idempotent: migrating an already-current record returns it unchanged.
package migrate

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/creditlens/internal/model"
)

// rawSession mirrors every field any schema version has written
type rawSession struct {
	SchemaVersion     int              `json:"schemaVersion"`
	ID                string           `json:"id"`
	BorrowerName      string           `json:"borrowerName"`
	File              rawFile          `json:"file"`
	ExtractionResults []rawExtraction  `json:"extractionResults"`
	BenchmarkResults  json.RawMessage  `json:"benchmarkResults"`
	WebFinancials     *rawFinancials   `json:"webFinancials"`
	ChatHistory       []rawChatMessage `json:"chatHistory"`
	LastModified      json.RawMessage  `json:"lastModified"`
}

type rawFile struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	MimeType string          `json:"mimeType"`
	Size     int64           `json:"size"`
	Data     json.RawMessage `json:"data"`
}

type rawExtraction struct {
	Term           string          `json:"term"`
	Value          json.RawMessage `json:"value"`
	SourceLocation string          `json:"sourceLocation"`
	EvidenceQuote  string          `json:"evidenceQuote"`
	Confidence     json.RawMessage `json:"confidence"`
}

type rawBenchmarkResult struct {
	Term           string `json:"term"`
	ExtractedValue string `json:"extractedValue"`
	BenchmarkValue string `json:"benchmarkValue"`
	Variance       string `json:"variance"`
	Commentary     string `json:"commentary"`
}

type rawFinancials struct {
	Metrics     []model.FinancialMetric `json:"metrics"`
	SourceURLs  []string                `json:"sourceUrls"`
	LastUpdated json.RawMessage         `json:"lastUpdated"`
}

type rawChatMessage struct {
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Text      string          `json:"text"`
	Timestamp json.RawMessage `json:"timestamp"`
	IsError   bool            `json:"isError"`
}

// Session upgrades one persisted session record to the current schema
func Session(raw []byte) (model.DealSession, error) {
	var r rawSession
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.DealSession{}, fmt.Errorf("%w: decode session: %v", model.ErrFormat, err)
	}
	if strings.TrimSpace(r.ID) == "" {
		return model.DealSession{}, fmt.Errorf("%w: session record has no id", model.ErrFormat)
	}

	lastModified, err := parseTime(r.LastModified)
	if err != nil {
		return model.DealSession{}, fmt.Errorf("session %s: lastModified: %w", r.ID, err)
	}

	file, err := migrateFile(r.File)
	if err != nil {
		return model.DealSession{}, fmt.Errorf("session %s: %w", r.ID, err)
	}

	benchmarks, err := migrateBenchmarks(r.SchemaVersion, r.BenchmarkResults)
	if err != nil {
		return model.DealSession{}, fmt.Errorf("session %s: %w", r.ID, err)
	}

	chat, err := migrateChat(r.ID, r.ChatHistory)
	if err != nil {
		return model.DealSession{}, fmt.Errorf("session %s: %w", r.ID, err)
	}

	extraction, err := migrateExtraction(r.ExtractionResults)
	if err != nil {
		return model.DealSession{}, fmt.Errorf("session %s: %w", r.ID, err)
	}

	s := model.DealSession{
		SchemaVersion:     model.CurrentSessionSchema,
		ID:                r.ID,
		BorrowerName:      strings.TrimSpace(r.BorrowerName),
		File:              file,
		ExtractionResults: extraction,
		BenchmarkResults:  benchmarks,
		ChatHistory:       chat,
		LastModified:      lastModified,
	}
	if s.BorrowerName == "" {
		s.BorrowerName = model.DefaultBorrowerName
	}

	if r.WebFinancials != nil {
		updated, err := parseTime(r.WebFinancials.LastUpdated)
		if err != nil {
			return model.DealSession{}, fmt.Errorf("session %s: webFinancials.lastUpdated: %w", r.ID, err)
		}
		wf := &model.WebFinancials{
			Metrics:     r.WebFinancials.Metrics,
			SourceURLs:  r.WebFinancials.SourceURLs,
			LastUpdated: updated,
		}
		if wf.Metrics == nil {
			wf.Metrics = []model.FinancialMetric{}
		}
		if wf.SourceURLs == nil {
			wf.SourceURLs = []string{}
		}
		s.WebFinancials = wf
	}

	return s, nil
}

// RecordError describes one element of a blob that could not be migrated
type RecordError struct {
	Index int
	ID    string
	Err   error
}

func (e RecordError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("record %d (%s): %v", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e RecordError) Unwrap() error { return e.Err }

// Sessions decodes an exported session list. The blob itself must be a JSON
// array; elements that fail to migrate are returned as RecordErrors and the
// caller decides whether that is fatal.
func Sessions(blob []byte) ([]model.DealSession, []RecordError, error) {
	trimmed := bytes.TrimSpace(blob)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil, fmt.Errorf("%w: session export must be a JSON array", model.ErrFormat)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, nil, fmt.Errorf("%w: decode session list: %v", model.ErrFormat, err)
	}

	sessions := make([]model.DealSession, 0, len(elems))
	var failed []RecordError
	for i, elem := range elems {
		s, err := Session(elem)
		if err != nil {
			failed = append(failed, RecordError{Index: i, ID: peekID(elem), Err: err})
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, failed, nil
}

// migrateBenchmarks is the single place that knows benchmarkResults has had
// two shapes: a flat list (schema 1) and a map keyed by profile id (schema 2).
func migrateBenchmarks(version int, raw json.RawMessage) (map[string][]model.BenchmarkResult, error) {
	out := map[string][]model.BenchmarkResult{}

	switch shapeOf(raw) {
	case shapeAbsent:
		return out, nil

	case shapeList:
		if version >= model.CurrentSessionSchema {
			return nil, fmt.Errorf("%w: schema %d benchmarkResults must be an object", model.ErrFormat, version)
		}
		var legacy []rawBenchmarkResult
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, fmt.Errorf("%w: legacy benchmarkResults: %v", model.ErrFormat, err)
		}
		out[model.DefaultProfileID] = cleanResults(legacy)
		return out, nil

	case shapeObject:
		var byProfile map[string][]rawBenchmarkResult
		if err := json.Unmarshal(raw, &byProfile); err != nil {
			return nil, fmt.Errorf("%w: benchmarkResults: %v", model.ErrFormat, err)
		}
		for profileID, results := range byProfile {
			out[profileID] = cleanResults(results)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: benchmarkResults has unsupported shape", model.ErrFormat)
	}
}

// cleanResults drops entries without a valid variance and keeps only the
// last entry per term.
func cleanResults(in []rawBenchmarkResult) []model.BenchmarkResult {
	out := make([]model.BenchmarkResult, 0, len(in))
	index := make(map[string]int, len(in))
	for _, r := range in {
		variance, ok := model.ParseVariance(r.Variance)
		if !ok || strings.TrimSpace(r.Term) == "" {
			continue
		}
		br := model.BenchmarkResult{
			Term:           r.Term,
			ExtractedValue: r.ExtractedValue,
			BenchmarkValue: r.BenchmarkValue,
			Variance:       variance,
			Commentary:     r.Commentary,
		}
		if i, seen := index[r.Term]; seen {
			out[i] = br
			continue
		}
		index[r.Term] = len(out)
		out = append(out, br)
	}
	return out
}

// migrateExtraction tolerates numeric values and confidences from early exports
func migrateExtraction(raw []rawExtraction) ([]model.ExtractionResult, error) {
	out := make([]model.ExtractionResult, 0, len(raw))
	for i, r := range raw {
		value, err := looseString(r.Value)
		if err != nil {
			return nil, fmt.Errorf("extractionResults[%d].value: %w", i, err)
		}
		confidence, err := looseString(r.Confidence)
		if err != nil {
			return nil, fmt.Errorf("extractionResults[%d].confidence: %w", i, err)
		}
		out = append(out, model.ExtractionResult{
			Term:           r.Term,
			Value:          value,
			SourceLocation: r.SourceLocation,
			EvidenceQuote:  r.EvidenceQuote,
			Confidence:     confidence,
		})
	}
	return out, nil
}

func migrateChat(sessionID string, raw []rawChatMessage) ([]model.ChatMessage, error) {
	out := make([]model.ChatMessage, 0, len(raw))
	for i, m := range raw {
		ts, err := parseTime(m.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("chatHistory[%d].timestamp: %w", i, err)
		}
		role := model.ChatRole(strings.ToLower(m.Role))
		if role != model.RoleUser {
			// older exports used "model" for assistant turns
			role = model.RoleAssistant
		}
		id := m.ID
		if id == "" {
			id = fmt.Sprintf("%s-msg-%d", sessionID, i)
		}
		out = append(out, model.ChatMessage{
			ID:        id,
			Role:      role,
			Text:      m.Text,
			Timestamp: ts,
			IsError:   m.IsError,
		})
	}
	return out, nil
}

func migrateFile(r rawFile) (model.DocumentFile, error) {
	f := model.DocumentFile{
		Name:     r.Name,
		MimeType: r.Type,
		Size:     r.Size,
	}
	if f.MimeType == "" {
		f.MimeType = r.MimeType
	}

	data, err := decodeData(r.Data)
	if err != nil {
		return model.DocumentFile{}, fmt.Errorf("file.data: %w", err)
	}
	f.Data = data
	if f.Size == 0 {
		f.Size = int64(len(data))
	}
	return f, nil
}

// decodeData accepts plain base64 and data: URLs
func decodeData(raw json.RawMessage) ([]byte, error) {
	if shapeOf(raw) == shapeAbsent {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: expected base64 string", model.ErrFormat)
	}
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 || !strings.HasSuffix(s[:comma], ";base64") {
			return nil, fmt.Errorf("%w: unsupported data URL", model.ErrFormat)
		}
		s = s[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrFormat, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

func peekID(raw json.RawMessage) string {
	var head struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &head)
	return head.ID
}
