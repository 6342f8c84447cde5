package harness

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/ormock/internal/canon"
	"github.com/roach88/ormock/internal/dberr"
	"github.com/roach88/ormock/internal/engine"
)

// Trace event types.
const (
	EventResolution = "resolution"
	EventClear      = "clear"
)

// TraceEvent is one resolution or clear, with values already reduced to plain
// canonical form so later mutation of records cannot change the trace.
type TraceEvent struct {
	Type      string `json:"type"`
	Seq       int64  `json:"seq"`
	Scope     string `json:"scope"`
	Operation string `json:"operation,omitempty"`
	Args      []any  `json:"args,omitempty"`
	Strategy  string `json:"strategy,omitempty"`
	Value     any    `json:"value,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	Target    string `json:"target,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains all resolutions and clears in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// traceRecorder is the engine.Observer that feeds Result.Trace.
type traceRecorder struct {
	mu     sync.Mutex
	events []TraceEvent
}

func (t *traceRecorder) Resolved(r engine.Resolution) {
	ev := TraceEvent{
		Type:      EventResolution,
		Seq:       r.Seq,
		Scope:     r.Scope,
		Operation: r.Operation,
		Args:      plainArgs(r.Args),
		Strategy:  string(r.Strategy),
	}
	if r.Err != nil {
		ev.Error = errorName(r.Err)
		ev.Message = r.Err.Error()
	} else {
		ev.Value = plainValue(r.Value)
	}

	t.mu.Lock()
	t.events = append(t.events, ev)
	t.mu.Unlock()
}

func (t *traceRecorder) Cleared(c engine.Clear) {
	t.mu.Lock()
	t.events = append(t.events, TraceEvent{
		Type:   EventClear,
		Seq:    c.Seq,
		Scope:  c.Scope,
		Target: string(c.Target),
	})
	t.mu.Unlock()
}

// Events returns the recorded events in seq order.
func (t *traceRecorder) Events() []TraceEvent {
	t.mu.Lock()
	out := append([]TraceEvent{}, t.events...)
	t.mu.Unlock()

	slices.SortFunc(out, func(a, b TraceEvent) int { return cmp.Compare(a.Seq, b.Seq) })
	return out
}

func plainArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = plainValue(a)
	}
	return out
}

// plainValue reduces v to canonical plain form. Values canon cannot encode are
// kept as their printed form so the trace never loses an event.
func plainValue(v any) any {
	p, err := canon.Plain(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return p
}

// errorName is the ORM error name, or RejectedValue for non-error failures.
func errorName(err error) string {
	if engine.IsRejectedValue(err) {
		return "RejectedValue"
	}
	return dberr.NameOf(err)
}
