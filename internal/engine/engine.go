package engine

import (
	"context"
	"log/slog"
)

// Shape selects how a queued success is packaged.
type Shape int

const (
	// ShapePlain returns the content as-is.
	ShapePlain Shape = iota
	// ShapeWithCreated returns Created{content, created}.
	ShapeWithCreated
	// ShapeWithAffectedRows returns Affected{content, rows}.
	ShapeWithAffectedRows
)

// Created is the packaged result of a with-created resolution.
type Created struct {
	Value   any
	Created bool
}

// Affected is the packaged result of a with-affected-rows resolution.
type Affected struct {
	Value any
	Rows  []any
}

// Fallback produces a result when handlers, the queue and the parent had none.
type Fallback func(ctx context.Context) Result

// Request is one resolution request.
type Request struct {
	Operation string
	Args      []any
	Shape     Shape

	// StopPropagation skips the parent for this request only.
	StopPropagation bool

	// Fallback overrides the scope fallback for this request.
	Fallback Fallback
}

// Engine is one mock scope: a result queue, a handler list and an optional
// parent. Engine is safe for concurrent use.
type Engine struct {
	name            string
	parent          *Engine
	stopPropagation bool
	createdDefault  bool
	fallback        Fallback
	logger          *slog.Logger
	observer        Observer
	clock           *Clock

	queue resultQueue
}

// New creates a scope.
func New(opts ...Option) *Engine {
	cfg := config{createdDefault: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	if p := cfg.parent; p != nil {
		if cfg.clock == nil {
			cfg.clock = p.clock
		}
		if cfg.logger == nil {
			cfg.logger = p.logger
		}
		if cfg.observer == nil {
			cfg.observer = p.observer
		}
	}
	if cfg.clock == nil {
		cfg.clock = NewClock()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.observer == nil {
		cfg.observer = nopObserver{}
	}

	return &Engine{
		name:            cfg.name,
		parent:          cfg.parent,
		stopPropagation: cfg.stopPropagation,
		createdDefault:  cfg.createdDefault,
		fallback:        cfg.fallback,
		logger:          cfg.logger,
		observer:        cfg.observer,
		clock:           cfg.clock,
	}
}

// Name returns the scope name.
func (e *Engine) Name() string { return e.name }

// Parent returns the parent scope, or nil for a root.
func (e *Engine) Parent() *Engine { return e.parent }

// Clock returns the clock stamping this scope's events.
func (e *Engine) Clock() *Clock { return e.clock }

// CreatedDefault returns the created flag used when an outcome does not set one.
func (e *Engine) CreatedDefault() bool { return e.createdDefault }

// StopsPropagation reports whether the scope never delegates to its parent.
func (e *Engine) StopsPropagation() bool { return e.stopPropagation }

// Resolve settles req by trying handlers, the queue, the parent, the fallback and
// finally failing with an EmptyResolution error.
//
// ctx is only consulted while waiting on a pending handler or fallback.
func (e *Engine) Resolve(ctx context.Context, req Request) (any, error) {
	value, strategy, err := e.resolve(ctx, req)

	e.logger.Debug("resolved",
		"scope", e.name,
		"operation", req.Operation,
		"strategy", string(strategy),
		"failed", err != nil,
	)
	e.observer.Resolved(Resolution{
		Seq:       e.clock.Next(),
		Scope:     e.name,
		Operation: req.Operation,
		Args:      req.Args,
		Strategy:  strategy,
		Value:     value,
		Err:       err,
	})
	return value, err
}

// ResolveAsync runs Resolve on its own goroutine.
func (e *Engine) ResolveAsync(ctx context.Context, req Request) *Promise {
	p := NewPromise()
	go func() {
		v, err := e.Resolve(ctx, req)
		if err != nil {
			p.Reject(err)
			return
		}
		p.Resolve(v)
	}()
	return p
}

func (e *Engine) resolve(ctx context.Context, req Request) (any, Strategy, error) {
	for _, h := range e.queue.snapshotHandlers() {
		r := h(ctx, req.Operation, req.Args).settle(ctx)
		if r.IsNoValue() {
			continue
		}
		v, err := r.Unwrap()
		return v, StrategyHandler, err
	}

	// Dequeued here and nowhere earlier: overlapping resolutions consume
	// outcomes in the order they reach this point.
	if o, ok := e.queue.tryDequeue(); ok {
		v, err := e.deliver(o, req.Shape)
		return v, StrategyQueue, err
	}

	if e.parent != nil && !e.stopPropagation && !req.StopPropagation {
		v, err := e.parent.Resolve(ctx, req)
		return v, StrategyParent, err
	}

	fb := req.Fallback
	if fb == nil {
		fb = e.fallback
	}
	if fb != nil {
		r := fb(ctx).settle(ctx)
		if !r.IsNoValue() {
			v, err := r.Unwrap()
			return v, StrategyFallback, err
		}
	}

	return nil, StrategyExhausted, newEmptyResolution()
}

// deliver turns a dequeued outcome into the resolution result.
func (e *Engine) deliver(o Outcome, shape Shape) (any, error) {
	switch o.Kind {
	case OutcomeFailure:
		if err, ok := o.Content.(error); ok {
			return nil, err
		}
		return nil, &RejectedValue{Value: o.Content}
	case OutcomeSuccess:
		switch shape {
		case ShapeWithCreated:
			created := e.createdDefault
			if o.Meta.WasCreated != nil {
				created = *o.Meta.WasCreated
			}
			return Created{Value: o.Content, Created: created}, nil
		case ShapeWithAffectedRows:
			return Affected{Value: o.Content, Rows: rowsOf(o.Meta.AffectedRows)}, nil
		default:
			return o.Content, nil
		}
	default:
		return nil, newInvalidQueuedResult()
	}
}

func (e *Engine) emitClear(target ClearTarget) {
	e.logger.Debug("cleared", "scope", e.name, "target", string(target))
	e.observer.Cleared(Clear{Seq: e.clock.Next(), Scope: e.name, Target: target})
}
