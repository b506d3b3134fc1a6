package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/creditlens/internal/model"
)

// jsonPayload cuts the outermost JSON value delimited by openCh/closeCh out of a
// model reply, tolerating markdown fences and surrounding prose.
func jsonPayload(text string, openCh, closeCh byte) (string, error) {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		}
	}

	start := strings.IndexByte(text, openCh)
	end := strings.LastIndexByte(text, closeCh)
	if start < 0 || end < start {
		return "", fmt.Errorf("%w: reply contains no JSON %c...%c", model.ErrExtraction, openCh, closeCh)
	}
	return text[start : end+1], nil
}

// parseFindings decodes a per-term JSON array. Non-string scalars are
// rendered as text; entries without a term are dropped.
func parseFindings(reply string) ([]model.TermFinding, error) {
	payload, err := jsonPayload(reply, '[', ']')
	if err != nil {
		return nil, err
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		return nil, fmt.Errorf("%w: decode findings: %v", model.ErrExtraction, err)
	}

	findings := make([]model.TermFinding, 0, len(rows))
	for _, row := range rows {
		f := model.TermFinding{
			Term:           field(row, "term", "name"),
			Value:          field(row, "value", "extractedValue"),
			SourceLocation: field(row, "sourceLocation", "source_location", "location"),
			EvidenceQuote:  field(row, "evidenceQuote", "evidence_quote", "quote"),
			Confidence:     field(row, "confidence"),
			BenchmarkValue: field(row, "benchmarkValue", "benchmark_value", "benchmark"),
			Variance:       field(row, "variance"),
			Commentary:     field(row, "commentary", "comment"),
		}
		if strings.TrimSpace(f.Term) == "" {
			continue
		}
		if strings.TrimSpace(f.Value) == "" {
			f.Value = model.NotFoundValue
		}
		findings = append(findings, f)
	}
	if len(findings) == 0 && len(rows) > 0 {
		return nil, fmt.Errorf("%w: no usable findings in reply", model.ErrExtraction)
	}
	return findings, nil
}

type rawFinancials struct {
	Metrics []map[string]interface{} `json:"metrics"`
	Sources []string                 `json:"sourceUrls"`
}

func parseFinancials(reply string) (model.WebFinancials, error) {
	payload, err := jsonPayload(reply, '{', '}')
	if err != nil {
		return model.WebFinancials{}, err
	}

	var raw rawFinancials
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return model.WebFinancials{}, fmt.Errorf("%w: decode financials: %v", model.ErrExtraction, err)
	}

	out := model.WebFinancials{
		Metrics:    make([]model.FinancialMetric, 0, len(raw.Metrics)),
		SourceURLs: make([]string, 0, len(raw.Sources)),
	}
	for _, m := range raw.Metrics {
		metric := model.FinancialMetric{
			Name:   field(m, "name", "metric"),
			Value:  field(m, "value"),
			Period: field(m, "period"),
		}
		if metric.Name != "" {
			out.Metrics = append(out.Metrics, metric)
		}
	}
	for _, u := range raw.Sources {
		if u = strings.TrimSpace(u); u != "" {
			out.SourceURLs = append(out.SourceURLs, u)
		}
	}
	return out, nil
}

func field(row map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		v, ok := row[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return strings.TrimSpace(t)
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(t)
		default:
			b, _ := json.Marshal(t)
			return string(b)
		}
	}
	return ""
}
