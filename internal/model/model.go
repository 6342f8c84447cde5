// Package model implements model mocks. Every query a model answers goes through
// its own engine scope, whose parent is the database's root scope; when nothing
// was queued for it, an optional fallback fabricates a plausible result from the
// model defaults.
package model

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/roach88/ormock/internal/datatype"
	"github.com/roach88/ormock/internal/engine"
	"github.com/roach88/ormock/internal/record"
)

// Env is what a model inherits from the database that defines it.
type Env struct {
	// Parent is the root engine scope. Nil makes the model its own root.
	Parent *engine.Engine

	IDs    record.IDSource
	Now    func() time.Time
	UUIDs  datatype.UUIDGenerator
	Logger *slog.Logger

	// Database-wide defaults, overridable per model.
	AutoQueryFallback bool
	StopPropagation   bool
}

// Option configures a Model.
type Option func(*config)

type config struct {
	methods           map[string]record.Method
	timestamps        bool
	hasPrimaryKey     bool
	autoQueryFallback bool
	stopPropagation   bool
	createdDefault    bool
}

// WithInstanceMethods adds instance methods to every record the model builds.
func WithInstanceMethods(methods map[string]record.Method) Option {
	return func(c *config) {
		maps.Copy(c.methods, methods)
	}
}

// WithoutTimestamps stops records from getting createdAt and updatedAt.
func WithoutTimestamps() Option {
	return func(c *config) { c.timestamps = false }
}

// WithoutPrimaryKey stops records from getting an id.
func WithoutPrimaryKey() Option {
	return func(c *config) { c.hasPrimaryKey = false }
}

// WithAutoQueryFallback overrides the database setting for generated fallbacks.
func WithAutoQueryFallback(on bool) Option {
	return func(c *config) { c.autoQueryFallback = on }
}

// WithStopPropagation overrides the database setting for delegating to the root.
func WithStopPropagation(stop bool) Option {
	return func(c *config) { c.stopPropagation = stop }
}

// WithCreatedDefault sets the created flag reported by FindOrCreate and Upsert
// when nothing else decides it. Defaults to true.
func WithCreatedDefault(created bool) Option {
	return func(c *config) { c.createdDefault = created }
}

// Model is a model mock. Model is safe for concurrent use.
type Model struct {
	name     string
	defaults map[string]any
	env      Env
	cfg      config
	engine   *engine.Engine
	logger   *slog.Logger

	mu      sync.RWMutex
	methods map[string]record.Method
	assocs  []*Association
}

// New defines a model named name whose records start from defaults.
func New(name string, defaults map[string]any, env Env, opts ...Option) *Model {
	cfg := config{
		methods:           map[string]record.Method{},
		timestamps:        true,
		hasPrimaryKey:     true,
		autoQueryFallback: env.AutoQueryFallback,
		stopPropagation:   env.StopPropagation,
		createdDefault:    true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if env.IDs == nil {
		env.IDs = engine.NewClock()
	}
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engOpts := []engine.Option{
		engine.WithName(name),
		engine.WithStopPropagation(cfg.stopPropagation),
		engine.WithCreatedDefault(cfg.createdDefault),
		engine.WithLogger(logger),
	}
	if env.Parent != nil {
		engOpts = append(engOpts, engine.WithParent(env.Parent))
	}

	return &Model{
		name:     name,
		defaults: maps.Clone(defaults),
		env:      env,
		cfg:      cfg,
		engine:   engine.New(engOpts...),
		logger:   logger,
		methods:  maps.Clone(cfg.methods),
	}
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// TableName returns the table name, which is the model name.
func (m *Model) TableName() string { return m.name }

// GetTableName is an alias for TableName.
func (m *Model) GetTableName() string { return m.name }

func (m *Model) targetName() string { return m.name }

// Defaults returns a copy of the model defaults.
func (m *Model) Defaults() map[string]any { return maps.Clone(m.defaults) }

// QueryInterface returns the model's engine scope.
func (m *Model) QueryInterface() *engine.Engine { return m.engine }

// AutoQueryFallback reports whether queries fall back to generated results.
func (m *Model) AutoQueryFallback() bool { return m.cfg.autoQueryFallback }

// Build creates a record from the model defaults overlaid with values. Nothing
// is resolved.
func (m *Model) Build(values map[string]any) *record.Record {
	merged := maps.Clone(m.defaults)
	if merged == nil {
		merged = make(map[string]any, len(values))
	}
	maps.Copy(merged, values)
	return record.New(merged, m.recordConfig(m.name))
}

func (m *Model) recordConfig(model string) record.Config {
	m.mu.RLock()
	methods := maps.Clone(m.methods)
	m.mu.RUnlock()

	return record.Config{
		Model:         model,
		HasPrimaryKey: m.cfg.hasPrimaryKey,
		Timestamps:    m.cfg.timestamps,
		IDs:           m.env.IDs,
		Now:           m.env.Now,
		UUIDs:         m.env.UUIDs,
		Methods:       methods,
	}
}

// addMethod registers an instance method for records built from now on.
func (m *Model) addMethod(name string, fn record.Method) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.methods[name] = fn
}

// InstanceMethods returns the names of the model's instance methods.
func (m *Model) InstanceMethods() []string {
	return m.Build(nil).Methods()
}

// Sync returns the model.
func (m *Model) Sync(ctx context.Context) (*Model, error) { return m, nil }

// Drop does nothing.
func (m *Model) Drop(ctx context.Context) error { return nil }

// Scope returns the model; scopes are not modelled.
func (m *Model) Scope(names ...string) *Model { return m }

// Unscoped returns the model; scopes are not modelled.
func (m *Model) Unscoped() *Model { return m }

// AddHook does nothing.
func (m *Model) AddHook(hook string, fn any) *Model { return m }

// RemoveHook does nothing.
func (m *Model) RemoveHook(hook string) *Model { return m }

// QueueResult queues a success on the model scope.
func (m *Model) QueueResult(v any, opts ...engine.QueueOption) *Model {
	m.engine.QueueResult(v, opts...)
	return m
}

// QueueFailure queues a failure on the model scope.
func (m *Model) QueueFailure(v any, opts ...engine.QueueOption) *Model {
	m.engine.QueueFailure(v, opts...)
	return m
}

// QueueError is an alias for QueueFailure.
func (m *Model) QueueError(v any, opts ...engine.QueueOption) *Model {
	return m.QueueFailure(v, opts...)
}

// UseHandler registers a handler on the model scope.
func (m *Model) UseHandler(h engine.Handler) *Model {
	m.engine.UseHandler(h)
	return m
}

// ClearQueue clears the model scope's queue.
func (m *Model) ClearQueue(opts ...engine.ClearOption) *Model {
	m.engine.ClearQueue(opts...)
	return m
}

// ClearHandlers clears the model scope's handlers.
func (m *Model) ClearHandlers(opts ...engine.ClearOption) *Model {
	m.engine.ClearHandlers(opts...)
	return m
}

// ClearAll clears the model scope's handlers and queue.
func (m *Model) ClearAll(opts ...engine.ClearOption) *Model {
	m.engine.ClearAll(opts...)
	return m
}
