package engine

import (
	"context"
	"fmt"
	"sync"
)

type resultKind int

const (
	resultNoValue resultKind = iota
	resultValue
	resultFailure
	resultPending
)

// Result is what a handler or fallback hands back to the engine.
//
// The zero Result is NoValue. Value(nil) is a defined value: only NoValue means
// "nothing here, try the next strategy".
type Result struct {
	kind    resultKind
	value   any
	err     error
	pending *Promise
}

// Value returns a defined result. v may be nil.
func Value(v any) Result {
	return Result{kind: resultValue, value: v}
}

// NoValue passes control to the next strategy.
func NoValue() Result {
	return Result{kind: resultNoValue}
}

// Failure aborts resolution with err. A nil err is reported as a base error so
// a failure can never be mistaken for success.
func Failure(err error) Result {
	if err == nil {
		err = fmt.Errorf("engine: failure without error")
	}
	return Result{kind: resultFailure, err: err}
}

// Pending defers the decision to p. The engine waits for p to settle before
// moving to the next strategy.
func Pending(p *Promise) Result {
	if p == nil {
		return NoValue()
	}
	return Result{kind: resultPending, pending: p}
}

// IsValue reports whether r carries a defined value.
func (r Result) IsValue() bool { return r.kind == resultValue }

// IsNoValue reports whether r is the absence marker.
func (r Result) IsNoValue() bool { return r.kind == resultNoValue }

// IsFailure reports whether r is a failure.
func (r Result) IsFailure() bool { return r.kind == resultFailure }

// IsPending reports whether r still waits on a promise.
func (r Result) IsPending() bool { return r.kind == resultPending }

// Unwrap returns the value and error of a settled result. NoValue yields (nil, nil).
func (r Result) Unwrap() (any, error) {
	switch r.kind {
	case resultValue:
		return r.value, nil
	case resultFailure:
		return nil, r.err
	default:
		return nil, nil
	}
}

// settle waits until r is no longer pending.
func (r Result) settle(ctx context.Context) Result {
	for r.kind == resultPending {
		select {
		case <-r.pending.done:
			r = r.pending.result
		case <-ctx.Done():
			return Failure(ctx.Err())
		}
	}
	return r
}

// Promise is a one-shot asynchronous settlement. The first call to Settle,
// Resolve or Reject wins; later calls are ignored.
type Promise struct {
	once   sync.Once
	done   chan struct{}
	result Result
}

// NewPromise returns an unsettled promise.
func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Settle settles the promise with r. Settling with another pending result chains
// to it. A chain that leads back to p would never settle, so it rejects p with a
// base error instead.
func (p *Promise) Settle(r Result) {
	p.once.Do(func() {
		if r.chainsTo(p) {
			r = Failure(newPromiseCycle())
		}
		p.result = r
		close(p.done)
	})
}

// chainsTo follows the already settled links of a pending chain and reports
// whether it reaches p.
func (r Result) chainsTo(p *Promise) bool {
	for r.kind == resultPending {
		if r.pending == p {
			return true
		}
		select {
		case <-r.pending.done:
			r = r.pending.result
		default:
			return false
		}
	}
	return false
}

// Resolve settles the promise with a defined value.
func (p *Promise) Resolve(v any) {
	p.Settle(Value(v))
}

// Reject settles the promise with a failure.
func (p *Promise) Reject(err error) {
	p.Settle(Failure(err))
}

// Done is closed once the promise settles.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the promise settles or ctx ends. A promise that settles to
// NoValue yields (nil, nil).
func (p *Promise) Await(ctx context.Context) (any, error) {
	return Pending(p).settle(ctx).Unwrap()
}

// Result blocks like Await but returns the settled three-way result.
func (p *Promise) Result(ctx context.Context) Result {
	return Pending(p).settle(ctx)
}
