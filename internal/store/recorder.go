package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/ormock/internal/engine"
)

// Recorder journals engine events for one run. It implements engine.Observer.
//
// Observer callbacks cannot return errors, so the first write failure is kept
// and reported by Err; later events are still attempted.
type Recorder struct {
	ctx    context.Context
	store  *Store
	runID  string
	logger *slog.Logger

	mu  sync.Mutex
	err error
}

var _ engine.Observer = (*Recorder)(nil)

// NewRecorder returns a Recorder writing to runID. ctx bounds every write.
func NewRecorder(ctx context.Context, s *Store, runID string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{ctx: ctx, store: s, runID: runID, logger: logger}
}

// RunID returns the run the recorder writes to.
func (r *Recorder) RunID() string { return r.runID }

// Resolved journals a resolution.
func (r *Recorder) Resolved(res engine.Resolution) {
	r.record(r.store.WriteResolution(r.ctx, r.runID, res))
}

// Cleared journals a clear.
func (r *Recorder) Cleared(c engine.Clear) {
	r.record(r.store.WriteClear(r.ctx, r.runID, c))
}

// Err returns the first write failure, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) record(err error) {
	if err == nil {
		return
	}
	r.logger.Warn("journal write failed", "run", r.runID, "error", err)
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
}
