package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// SessionFunc processes one session by id
type SessionFunc func(ctx context.Context, sessionID string) error

// SessionJob runs a SessionFunc for one session, waiting on the limiter first
type SessionJob struct {
	SessionID string
	Run       SessionFunc
	Limiter   *Limiter
	Key       string
}

// Execute executes the session job
func (j *SessionJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &SessionResult{SessionID: j.SessionID, Error: err}
	}
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.Key); err != nil {
			return &SessionResult{SessionID: j.SessionID, Error: err}
		}
	}
	return &SessionResult{SessionID: j.SessionID, Error: j.Run(ctx, j.SessionID)}
}

// SessionResult is the outcome for one session
type SessionResult struct {
	SessionID string
	Error     error
}

// GetError returns the error from the session result
func (r *SessionResult) GetError() error {
	return r.Error
}

// BatchProcessor runs a SessionFunc over many sessions concurrently
type BatchProcessor struct {
	run         SessionFunc
	concurrency int
	limiter     *Limiter
	key         string
}

// NewBatchProcessor creates a batch processor. limiter may be nil; key
// selects the limiter budget every job draws from.
func NewBatchProcessor(run SessionFunc, concurrency int, limiter *Limiter, key string) *BatchProcessor {
	return &BatchProcessor{
		run:         run,
		concurrency: concurrency,
		limiter:     limiter,
		key:         key,
	}
}

// ProcessSessions runs every distinct id once and returns one result per id
// in input order. One session failing never stops the others.
func (b *BatchProcessor) ProcessSessions(ctx context.Context, ids []string) []*SessionResult {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return []*SessionResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, id := range ids {
		pool.Submit(&SessionJob{
			SessionID: id,
			Run:       b.run,
			Limiter:   b.limiter,
			Key:       b.key,
		})
	}

	byID := make(map[string]*SessionResult, len(ids))
	for _, result := range pool.Wait() {
		r := result.(*SessionResult)
		byID[r.SessionID] = r
	}

	out := make([]*SessionResult, len(ids))
	for i, id := range ids {
		r, ok := byID[id]
		if !ok {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("session %s was not processed", id)
			}
			r = &SessionResult{SessionID: id, Error: err}
		}
		out[i] = r
	}
	return out
}

// ReadIDsFromFile reads session ids from a file (one per line)
func ReadIDsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return dedupe(ids), nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
