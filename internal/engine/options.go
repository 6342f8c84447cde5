package engine

import "log/slog"

// Option configures an Engine.
type Option func(*config)

type config struct {
	name            string
	parent          *Engine
	stopPropagation bool
	createdDefault  bool
	fallback        Fallback
	logger          *slog.Logger
	observer        Observer
	clock           *Clock
}

// WithName sets the scope name reported in logs and events.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithParent links the scope to parent. Unresolved requests are delegated to it
// unless propagation is stopped. The scope inherits the parent's clock, logger
// and observer unless they are set explicitly.
func WithParent(parent *Engine) Option {
	return func(c *config) { c.parent = parent }
}

// WithStopPropagation keeps the scope from delegating to its parent.
func WithStopPropagation(stop bool) Option {
	return func(c *config) { c.stopPropagation = stop }
}

// WithCreatedDefault sets the created flag used when a queued outcome resolved
// with the with-created shape does not specify one. Defaults to true.
func WithCreatedDefault(created bool) Option {
	return func(c *config) { c.createdDefault = created }
}

// WithFallback sets the scope fallback, used when the request carries none.
func WithFallback(fb Fallback) Option {
	return func(c *config) { c.fallback = fb }
}

// WithLogger sets the logger for resolution tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithObserver sets the observer that receives resolution and clear events.
func WithObserver(obs Observer) Option {
	return func(c *config) { c.observer = obs }
}

// WithClock sets the logical clock used to stamp events.
func WithClock(clock *Clock) Option {
	return func(c *config) { c.clock = clock }
}

// QueueOption configures a queued outcome.
type QueueOption func(*queueConfig)

type queueConfig struct {
	wasCreated    *bool
	affectedRows  any
	keepNonErrors bool
}

// WasCreated sets the created flag reported when the outcome is resolved with the
// with-created shape.
func WasCreated(created bool) QueueOption {
	return func(c *queueConfig) { c.wasCreated = &created }
}

// WithAffectedRows sets the rows reported when the outcome is resolved with the
// with-affected-rows shape. Anything that is not a slice or array is reported as
// no rows.
func WithAffectedRows(rows any) QueueOption {
	return func(c *queueConfig) { c.affectedRows = rows }
}

// KeepNonErrors queues a failure value as-is instead of wrapping non-errors in a
// base error.
func KeepNonErrors() QueueOption {
	return func(c *queueConfig) { c.keepNonErrors = true }
}

// ClearOption configures ClearQueue, ClearHandlers and ClearAll.
type ClearOption func(*clearConfig)

type clearConfig struct {
	propagate bool
}

// PropagateClear applies the same clear to every ancestor scope.
func PropagateClear() ClearOption {
	return func(c *clearConfig) { c.propagate = true }
}
