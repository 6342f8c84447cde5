package engine

import (
	"context"
	"reflect"
	"sync"

	"github.com/roach88/ormock/internal/dberr"
)

// OutcomeKind distinguishes queued successes from queued failures.
type OutcomeKind int

const (
	// OutcomeSuccess resolves to its content.
	OutcomeSuccess OutcomeKind = iota + 1
	// OutcomeFailure fails the resolution with its content.
	OutcomeFailure
)

// Outcome is one canned result. Outcomes are never mutated after they are queued.
type Outcome struct {
	Content any
	Kind    OutcomeKind
	Meta    OutcomeMeta
}

// OutcomeMeta holds the extra data used by the non-plain shapes.
type OutcomeMeta struct {
	// WasCreated is nil when not specified.
	WasCreated *bool

	// AffectedRows is used only when it is a slice or array.
	AffectedRows any
}

// Handler computes a result for one resolution. Returning NoValue hands the
// request to the next handler, then to the queue.
type Handler func(ctx context.Context, operation string, args []any) Result

// resultQueue holds a scope's outcomes and handlers.
//
// Outcomes are strictly FIFO across all operation names: the Nth outcome queued
// is the Nth consumed. Handlers run in registration order.
type resultQueue struct {
	mu       sync.Mutex
	outcomes []Outcome
	handlers []Handler
}

func (q *resultQueue) enqueue(o Outcome) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.outcomes = append(q.outcomes, o)
}

// tryDequeue removes and returns the head outcome.
// Returns (Outcome{}, false) if the queue is empty.
func (q *resultQueue) tryDequeue() (Outcome, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.outcomes) == 0 {
		return Outcome{}, false
	}

	o := q.outcomes[0]

	// Nil out the slot so the backing array does not retain the content.
	q.outcomes[0] = Outcome{}

	if len(q.outcomes) == 1 {
		q.outcomes = q.outcomes[:0]
	} else {
		q.outcomes = q.outcomes[1:]
	}
	return o, true
}

func (q *resultQueue) addHandler(h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, h)
}

// snapshotHandlers copies the handler list so registrations made during a
// resolution do not affect it.
func (q *resultQueue) snapshotHandlers() []Handler {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Handler, len(q.handlers))
	copy(out, q.handlers)
	return out
}

func (q *resultQueue) clearOutcomes() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.outcomes = nil
}

func (q *resultQueue) clearHandlers() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = nil
}

func (q *resultQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.outcomes)
}

func (q *resultQueue) handlerCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.handlers)
}

// QueueResult appends a success outcome.
func (e *Engine) QueueResult(value any, opts ...QueueOption) *Engine {
	e.queue.enqueue(newOutcome(OutcomeSuccess, value, opts))
	return e
}

// QueueFailure appends a failure outcome. Values that are not errors are wrapped
// in a base error unless KeepNonErrors is given.
func (e *Engine) QueueFailure(value any, opts ...QueueOption) *Engine {
	cfg := applyQueueOptions(opts)
	if !cfg.keepNonErrors && !dberr.IsErrorLike(value) {
		value = dberr.Wrap(value)
	}
	e.queue.enqueue(Outcome{Content: value, Kind: OutcomeFailure, Meta: cfg.meta()})
	return e
}

// QueueError is an alias for QueueFailure.
func (e *Engine) QueueError(value any, opts ...QueueOption) *Engine {
	return e.QueueFailure(value, opts...)
}

// UseHandler appends a handler.
func (e *Engine) UseHandler(h Handler) *Engine {
	e.queue.addHandler(h)
	return e
}

// RegisterHandler is an alias for UseHandler.
func (e *Engine) RegisterHandler(h Handler) *Engine {
	return e.UseHandler(h)
}

// ClearQueue drops every queued outcome.
func (e *Engine) ClearQueue(opts ...ClearOption) *Engine {
	e.queue.clearOutcomes()
	e.emitClear(ClearTargetQueue)
	if applyClearOptions(opts).propagate && e.parent != nil {
		e.parent.ClearQueue(opts...)
	}
	return e
}

// ClearHandlers drops every registered handler.
func (e *Engine) ClearHandlers(opts ...ClearOption) *Engine {
	e.queue.clearHandlers()
	e.emitClear(ClearTargetHandlers)
	if applyClearOptions(opts).propagate && e.parent != nil {
		e.parent.ClearHandlers(opts...)
	}
	return e
}

// ClearAll clears handlers, then the queue.
func (e *Engine) ClearAll(opts ...ClearOption) *Engine {
	return e.ClearHandlers(opts...).ClearQueue(opts...)
}

// QueueLen returns the number of queued outcomes.
func (e *Engine) QueueLen() int {
	return e.queue.len()
}

// HandlerCount returns the number of registered handlers.
func (e *Engine) HandlerCount() int {
	return e.queue.handlerCount()
}

// enqueueOutcome appends o without validating its kind.
func (e *Engine) enqueueOutcome(o Outcome) {
	e.queue.enqueue(o)
}

func newOutcome(kind OutcomeKind, value any, opts []QueueOption) Outcome {
	return Outcome{Content: value, Kind: kind, Meta: applyQueueOptions(opts).meta()}
}

func applyQueueOptions(opts []QueueOption) queueConfig {
	var cfg queueConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c queueConfig) meta() OutcomeMeta {
	return OutcomeMeta{WasCreated: c.wasCreated, AffectedRows: c.affectedRows}
}

func applyClearOptions(opts []ClearOption) clearConfig {
	var cfg clearConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// rowsOf converts a slice or array into []any. Anything else yields an empty slice.
func rowsOf(v any) []any {
	if v == nil {
		return []any{}
	}
	if rows, ok := v.([]any); ok {
		out := make([]any, len(rows))
		copy(out, rows)
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
