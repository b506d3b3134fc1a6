package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/creditlens/internal/document"
	"github.com/ppiankov/creditlens/internal/model"
)

// DocumentAccepter is implemented by providers that read some file types
// natively instead of as extracted text.
type DocumentAccepter interface {
	AcceptsDocument(mimeType string) bool
}

// Analyst turns a Provider into the extraction, rebenchmark, chat, and
// financials collaborators used by the session orchestrator. Every provider
// or parse failure is reported as model.ErrExtraction.
type Analyst struct {
	provider Provider
	now      func() time.Time
}

// NewAnalyst creates an analyst over provider
func NewAnalyst(provider Provider) *Analyst {
	return &Analyst{provider: provider, now: time.Now}
}

// Name returns the underlying provider name
func (a *Analyst) Name() string {
	return a.provider.Name()
}

const extractionSystem = `You are a leveraged finance analyst reviewing a credit agreement.
Answer ONLY with a JSON array. Each element has the string fields:
term, value, sourceLocation, evidenceQuote, confidence, benchmarkValue, variance, commentary.
Use "Not Found" as the value when the agreement does not address a term.
variance is "Green" (at or better than the benchmark), "Yellow" (moderately looser),
"Red" (materially looser or unusual), or "N/A" when no benchmark applies.`

// Extract asks the provider for one finding per term, compared against
// profile's benchmark values.
func (a *Analyst) Extract(ctx context.Context, file model.DocumentFile, terms []model.StandardTerm, profile model.BenchmarkProfile) ([]model.TermFinding, error) {
	doc, err := a.attach(file)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("Extract these terms from the document:\n")
	for _, t := range terms {
		fmt.Fprintf(&b, "- %s", t.Name)
		if t.Description != "" {
			fmt.Fprintf(&b, ": %s", t.Description)
		}
		if v, ok := profile.Data[t.Name]; ok && strings.TrimSpace(v) != "" {
			fmt.Fprintf(&b, " (benchmark: %s)", v)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nBenchmark profile: %s\n", profile.Name)

	reply, err := a.complete(ctx, CompletionRequest{
		System:   extractionSystem,
		Prompt:   b.String(),
		Document: doc,
	})
	if err != nil {
		return nil, err
	}
	return parseFindings(reply)
}

// Rebenchmark re-grades previously extracted values against profile without
// reading the document again.
func (a *Analyst) Rebenchmark(ctx context.Context, extraction []model.ExtractionResult, profile model.BenchmarkProfile) ([]model.TermFinding, error) {
	var b strings.Builder
	b.WriteString("Compare these extracted values against the benchmark profile \"")
	b.WriteString(profile.Name)
	b.WriteString("\".\n\n")
	for _, r := range extraction {
		if !r.Found() {
			continue
		}
		benchmark := profile.Data[r.Term]
		if benchmark == "" {
			benchmark = "N/A"
		}
		fmt.Fprintf(&b, "- %s: extracted %q, benchmark %q\n", r.Term, r.Value, benchmark)
	}

	reply, err := a.complete(ctx, CompletionRequest{
		System: extractionSystem,
		Prompt: b.String(),
	})
	if err != nil {
		return nil, err
	}
	return parseFindings(reply)
}

// Chat answers one question about the session's document. Prior turns are
// replayed, skipping assistant messages that recorded failures.
func (a *Analyst) Chat(ctx context.Context, session model.DealSession, message string) (string, error) {
	doc, err := a.attach(session.File)
	if err != nil {
		return "", err
	}

	var system strings.Builder
	system.WriteString("You answer questions about a credit agreement for ")
	system.WriteString(session.BorrowerName)
	system.WriteString(". Cite sections where possible and say so when the document is silent.")
	if len(session.ExtractionResults) > 0 {
		system.WriteString("\n\nExtracted terms:\n")
		for _, r := range session.ExtractionResults {
			fmt.Fprintf(&system, "- %s: %s\n", r.Term, r.Value)
		}
	}

	history := make([]Turn, 0, len(session.ChatHistory))
	for _, m := range session.ChatHistory {
		if m.IsError {
			continue
		}
		history = append(history, Turn{Role: string(m.Role), Text: m.Text})
	}

	return a.complete(ctx, CompletionRequest{
		System:   system.String(),
		Prompt:   message,
		Document: doc,
		History:  history,
	})
}

// Financials asks for a public financial snapshot of the borrower
func (a *Analyst) Financials(ctx context.Context, borrowerName string) (model.WebFinancials, error) {
	prompt := fmt.Sprintf(`Provide the latest publicly reported financial metrics for %q.
Answer ONLY with a JSON object: {"metrics":[{"name":"","value":"","period":""}],"sourceUrls":[""]}.
Include revenue, EBITDA, total debt, and net leverage where known.`, borrowerName)

	reply, err := a.complete(ctx, CompletionRequest{Prompt: prompt, MaxTokens: 1500})
	if err != nil {
		return model.WebFinancials{}, err
	}
	out, err := parseFinancials(reply)
	if err != nil {
		return model.WebFinancials{}, err
	}
	out.LastUpdated = a.now().UTC()
	return out, nil
}

func (a *Analyst) complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := a.provider.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", model.ErrExtraction, a.provider.Name(), err)
	}
	return resp.Text, nil
}

// attach prepares the document in the form the provider can read
func (a *Analyst) attach(file model.DocumentFile) (*Document, error) {
	doc := &Document{Name: file.Name, MimeType: file.MimeType}
	if accepter, ok := a.provider.(DocumentAccepter); ok && accepter.AcceptsDocument(file.MimeType) {
		doc.Data = file.Data
		return doc, nil
	}
	text, err := document.ToText(file)
	if err != nil {
		return nil, err
	}
	doc.Text = text
	return doc, nil
}
