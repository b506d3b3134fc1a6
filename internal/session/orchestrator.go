// Package session runs the analysis workflow over stored deal sessions:
// creation, extraction, per-profile benchmarking, chat, and financials.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/creditlens/internal/benchmark"
	"github.com/ppiankov/creditlens/internal/logger"
	"github.com/ppiankov/creditlens/internal/model"
	"github.com/ppiankov/creditlens/internal/store"
	"github.com/ppiankov/creditlens/internal/worker"
)

const orchestratorModule = "SessionOrchestrator"

// Extractor reads a document and reports one finding per requested term
type Extractor interface {
	Extract(ctx context.Context, file model.DocumentFile, terms []model.StandardTerm, profile model.BenchmarkProfile) ([]model.TermFinding, error)
}

// Rebenchmarker re-grades stored extraction results against a profile
type Rebenchmarker interface {
	Rebenchmark(ctx context.Context, extraction []model.ExtractionResult, profile model.BenchmarkProfile) ([]model.TermFinding, error)
}

// Chatter answers a question about a session's document
type Chatter interface {
	Chat(ctx context.Context, session model.DealSession, message string) (string, error)
}

// FinancialsFetcher looks up public financials for a borrower
type FinancialsFetcher interface {
	Financials(ctx context.Context, borrowerName string) (model.WebFinancials, error)
}

// Options tunes an Orchestrator. Zero values pick defaults.
type Options struct {
	Workers    int
	Limiter    *worker.Limiter
	LimiterKey string
	Now        func() time.Time
	NewID      func() string
}

// Orchestrator applies workflow operations to sessions. Operations on the
// same session id are serialized; different ids proceed independently.
type Orchestrator struct {
	sessions   store.Sessions
	settings   store.Settings
	log        logger.Logger
	workers    int
	limiter    *worker.Limiter
	limiterKey string
	now        func() time.Time
	newID      func() string
	locks      sync.Map // session id -> *sync.Mutex
}

func NewOrchestrator(sessions store.Sessions, settings store.Settings, log logger.Logger, opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Orchestrator{
		sessions:   sessions,
		settings:   settings,
		log:        log,
		workers:    opts.Workers,
		limiter:    opts.Limiter,
		limiterKey: opts.LimiterKey,
		now:        opts.Now,
		newID:      opts.NewID,
	}
}

// CreateSession stores a new session for file with empty results
func (o *Orchestrator) CreateSession(ctx context.Context, file model.DocumentFile) (model.DealSession, error) {
	if file.Size == 0 {
		file.Size = int64(len(file.Data))
	}
	s := model.DealSession{
		SchemaVersion:     model.CurrentSessionSchema,
		ID:                o.newID(),
		BorrowerName:      model.DefaultBorrowerName,
		File:              file,
		ExtractionResults: []model.ExtractionResult{},
		BenchmarkResults:  map[string][]model.BenchmarkResult{},
		ChatHistory:       []model.ChatMessage{},
		LastModified:      o.stamp(),
	}
	if err := o.sessions.Put(ctx, s); err != nil {
		return model.DealSession{}, fmt.Errorf("create session: %w", err)
	}
	o.log.Info(orchestratorModule, "session created", map[string]interface{}{"session_id": s.ID, "file": file.Name})
	return s, nil
}

func (o *Orchestrator) Get(ctx context.Context, id string) (model.DealSession, error) {
	return o.sessions.Get(ctx, id)
}

// List returns every session, newest first
func (o *Orchestrator) List(ctx context.Context) ([]model.DealSession, error) {
	return o.sessions.GetAll(ctx)
}

// RunAnalysis extracts terms from the session's document and records
// variance for the active profile. Variance stored for other profiles is
// kept. On failure the stored session is left exactly as it was.
func (o *Orchestrator) RunAnalysis(ctx context.Context, id string, extractor Extractor) (model.DealSession, error) {
	settings, err := o.settings.Load(ctx)
	if err != nil {
		return model.DealSession{}, err
	}
	profile := benchmark.ActiveProfile(settings)

	return o.update(ctx, id, func(s model.DealSession) (model.DealSession, error) {
		findings, err := extractor.Extract(ctx, s.File, settings.Terms, profile)
		if err != nil {
			return s, extractionError(err)
		}
		if len(findings) == 0 {
			return s, fmt.Errorf("%w: extractor returned no findings", model.ErrExtraction)
		}

		extraction, variances := benchmark.Evaluate(findings, profile)
		s.ExtractionResults = extraction
		s = benchmark.RecordVariance(s, profile.ID, variances)
		if name := borrowerName(extraction); name != "" {
			s.BorrowerName = name
		}

		o.log.Info(orchestratorModule, "analysis complete", map[string]interface{}{
			"session_id": s.ID,
			"profile_id": profile.ID,
			"terms":      len(extraction),
			"variances":  len(variances),
		})
		return s, nil
	})
}

// BatchReport lists which sessions a batch updated and which failed
type BatchReport struct {
	ProfileID string
	Updated   []string
	Failed    map[string]error
}

// OK reports whether every session in the batch was updated
func (r BatchReport) OK() bool {
	return len(r.Failed) == 0
}

// Rebenchmark re-derives variance for each session against profileID using
// the stored extraction results. Each session succeeds or fails on its own.
func (o *Orchestrator) Rebenchmark(ctx context.Context, ids []string, profileID string, fn Rebenchmarker) (BatchReport, error) {
	settings, err := o.settings.Load(ctx)
	if err != nil {
		return BatchReport{}, err
	}
	profile, ok := settings.Profile(profileID)
	if !ok {
		return BatchReport{}, fmt.Errorf("profile %s: %w", profileID, model.ErrNotFound)
	}

	run := func(ctx context.Context, id string) error {
		_, err := o.rebenchmarkOne(ctx, id, profile, fn)
		return err
	}
	results := worker.NewBatchProcessor(run, o.workers, o.limiter, o.limiterKey).ProcessSessions(ctx, ids)

	report := BatchReport{ProfileID: profile.ID, Updated: []string{}, Failed: map[string]error{}}
	for _, r := range results {
		if r.Error != nil {
			report.Failed[r.SessionID] = r.Error
			o.log.Warn(orchestratorModule, "rebenchmark failed", map[string]interface{}{
				"session_id": r.SessionID,
				"profile_id": profile.ID,
				"error":      r.Error,
			})
			continue
		}
		report.Updated = append(report.Updated, r.SessionID)
	}
	return report, nil
}

func (o *Orchestrator) rebenchmarkOne(ctx context.Context, id string, profile model.BenchmarkProfile, fn Rebenchmarker) (model.DealSession, error) {
	return o.update(ctx, id, func(s model.DealSession) (model.DealSession, error) {
		if s.Analysis() == model.StateFresh {
			return s, fmt.Errorf("%w: session %s has not been analyzed", model.ErrInvariant, s.ID)
		}
		findings, err := fn.Rebenchmark(ctx, s.ExtractionResults, profile)
		if err != nil {
			return s, extractionError(err)
		}
		return benchmark.RecordVariance(s, profile.ID, benchmark.Variances(findings, profile)), nil
	})
}

// DeleteSession removes a session. The id's mutex stays registered so callers
// already queued on it and later callers share one lock.
func (o *Orchestrator) DeleteSession(ctx context.Context, id string) error {
	mu := o.lock(id)
	defer mu.Unlock()

	return o.sessions.Delete(ctx, id)
}

// RenameBorrower sets the session's display name
func (o *Orchestrator) RenameBorrower(ctx context.Context, id, name string) (model.DealSession, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.DealSession{}, fmt.Errorf("%w: borrower name is required", model.ErrInvariant)
	}
	return o.update(ctx, id, func(s model.DealSession) (model.DealSession, error) {
		s.BorrowerName = name
		return s, nil
	})
}

// SendChat appends the question and the answer to the chat log. When the
// collaborator fails the answer is an error message flagged IsError, the log
// is still saved, and the returned error wraps model.ErrExtraction.
func (o *Orchestrator) SendChat(ctx context.Context, id, text string, chatter Chatter) (model.DealSession, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.DealSession{}, fmt.Errorf("%w: message is empty", model.ErrInvariant)
	}

	var chatErr error
	s, err := o.update(ctx, id, func(s model.DealSession) (model.DealSession, error) {
		prior := s.Clone()
		s.ChatHistory = append(s.ChatHistory, model.ChatMessage{
			ID:        o.newID(),
			Role:      model.RoleUser,
			Text:      text,
			Timestamp: o.stamp(),
		})

		reply, err := chatter.Chat(ctx, prior, text)
		if err != nil {
			chatErr = extractionError(err)
			s.ChatHistory = append(s.ChatHistory, model.ChatMessage{
				ID:        o.newID(),
				Role:      model.RoleAssistant,
				Text:      "Sorry, I could not answer that: " + err.Error(),
				Timestamp: o.stamp(),
				IsError:   true,
			})
			return s, nil
		}

		s.ChatHistory = append(s.ChatHistory, model.ChatMessage{
			ID:        o.newID(),
			Role:      model.RoleAssistant,
			Text:      reply,
			Timestamp: o.stamp(),
		})
		return s, nil
	})
	if err != nil {
		return s, err
	}
	return s, chatErr
}

// RefreshFinancials replaces the session's financial snapshot. Extraction
// and benchmark results are never touched.
func (o *Orchestrator) RefreshFinancials(ctx context.Context, id string, fetcher FinancialsFetcher) (model.DealSession, error) {
	return o.update(ctx, id, func(s model.DealSession) (model.DealSession, error) {
		wf, err := fetcher.Financials(ctx, s.BorrowerName)
		if err != nil {
			return s, extractionError(err)
		}
		if wf.LastUpdated.IsZero() {
			wf.LastUpdated = o.stamp()
		}
		s.WebFinancials = &wf
		return s, nil
	})
}

// Status is the derived analysis state of a session for one profile
type Status struct {
	Analysis  model.AnalysisState
	Benchmark model.BenchmarkState
}

// StatusOf derives a session's state for profileID
func StatusOf(s model.DealSession, profileID string) Status {
	return Status{Analysis: s.Analysis(), Benchmark: s.Benchmark(profileID)}
}

// update loads, mutates, and stores one session under its lock. When fn
// fails nothing is written.
func (o *Orchestrator) update(ctx context.Context, id string, fn func(model.DealSession) (model.DealSession, error)) (model.DealSession, error) {
	mu := o.lock(id)
	defer mu.Unlock()

	current, err := o.sessions.Get(ctx, id)
	if err != nil {
		return model.DealSession{}, err
	}
	next, err := fn(current.Clone())
	if err != nil {
		return current, err
	}
	next.LastModified = o.stamp()
	if err := o.sessions.Put(ctx, next); err != nil {
		return current, fmt.Errorf("save session %s: %w", id, err)
	}
	return next, nil
}

func (o *Orchestrator) lock(id string) *sync.Mutex {
	v, _ := o.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu
}

func (o *Orchestrator) stamp() time.Time {
	return o.now().UTC()
}

func borrowerName(extraction []model.ExtractionResult) string {
	for _, r := range extraction {
		if strings.EqualFold(strings.TrimSpace(r.Term), model.BorrowerTerm) && r.Found() {
			return strings.TrimSpace(r.Value)
		}
	}
	return ""
}

func extractionError(err error) error {
	if errors.Is(err, model.ErrExtraction) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", model.ErrExtraction, err)
}
