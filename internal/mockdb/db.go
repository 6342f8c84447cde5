// Package mockdb implements the root database mock: it owns the root engine
// scope and the model registry, and hands every model the shared id counter,
// clock and UUID source.
package mockdb

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/roach88/ormock/internal/datatype"
	"github.com/roach88/ormock/internal/engine"
	"github.com/roach88/ormock/internal/model"
	"github.com/roach88/ormock/internal/record"
)

// DefaultDialect is reported by Dialect unless WithDialect says otherwise.
const DefaultDialect = "mock"

// OpQuery is the operation name of raw queries.
const OpQuery = "query"

// QueryType names the kind of a raw query. The mock never inspects it.
type QueryType string

const (
	QueryTypeSelect      QueryType = "SELECT"
	QueryTypeInsert      QueryType = "INSERT"
	QueryTypeUpdate      QueryType = "UPDATE"
	QueryTypeBulkUpdate  QueryType = "BULKUPDATE"
	QueryTypeBulkDelete  QueryType = "BULKDELETE"
	QueryTypeDelete      QueryType = "DELETE"
	QueryTypeUpsert      QueryType = "UPSERT"
	QueryTypeVersion     QueryType = "VERSION"
	QueryTypeShowTables  QueryType = "SHOWTABLES"
	QueryTypeShowIndexes QueryType = "SHOWINDEXES"
	QueryTypeDescribe    QueryType = "DESCRIBE"
	QueryTypeRaw         QueryType = "RAW"
	QueryTypeForeignKeys QueryType = "FOREIGNKEYS"
)

// Option configures a DB.
type Option func(*options)

type options struct {
	dialect           string
	autoQueryFallback bool
	stopPropagation   bool
	logger            *slog.Logger
	observer          engine.Observer
	clock             *engine.Clock
	ids               record.IDSource
	now               func() time.Time
	uuids             datatype.UUIDGenerator
}

// WithDialect sets the dialect name reported by Dialect.
func WithDialect(dialect string) Option {
	return func(o *options) { o.dialect = dialect }
}

// WithAutoQueryFallback sets whether models fall back to generated results.
// Defaults to true.
func WithAutoQueryFallback(on bool) Option {
	return func(o *options) { o.autoQueryFallback = on }
}

// WithStopPropagation sets whether models skip the root scope by default.
func WithStopPropagation(stop bool) Option {
	return func(o *options) { o.stopPropagation = stop }
}

// WithLogger sets the logger shared by the root scope and every model.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver sets the observer receiving events from every scope.
func WithObserver(obs engine.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithClock sets the logical clock stamping events.
func WithClock(clock *engine.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithIDSource sets the record id counter.
func WithIDSource(ids record.IDSource) Option {
	return func(o *options) { o.ids = ids }
}

// WithNow sets the time source for timestamps and NOW placeholders.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithUUIDGenerator sets the UUID source for UUID placeholders.
func WithUUIDGenerator(g datatype.UUIDGenerator) Option {
	return func(o *options) { o.uuids = g }
}

// DB is the root database mock. DB is safe for concurrent use.
type DB struct {
	opts   options
	engine *engine.Engine

	mu     sync.RWMutex
	models map[string]*model.Model
}

// New creates a database mock.
func New(opts ...Option) *DB {
	o := options{
		dialect:           DefaultDialect,
		autoQueryFallback: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.ids == nil {
		o.ids = engine.NewClock()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.uuids == nil {
		o.uuids = datatype.RandomUUID{}
	}

	engOpts := []engine.Option{
		engine.WithName("db"),
		engine.WithLogger(o.logger),
	}
	if o.observer != nil {
		engOpts = append(engOpts, engine.WithObserver(o.observer))
	}
	if o.clock != nil {
		engOpts = append(engOpts, engine.WithClock(o.clock))
	}

	return &DB{
		opts:   o,
		engine: engine.New(engOpts...),
		models: make(map[string]*model.Model),
	}
}

// Define creates a model and registers it under name, replacing any model of
// the same name.
func (db *DB) Define(name string, defaults map[string]any, opts ...model.Option) *model.Model {
	m := model.New(name, defaults, db.modelEnv(), opts...)

	db.mu.Lock()
	db.models[name] = m
	db.mu.Unlock()

	db.opts.logger.Info("model defined", "model", name, "auto_query_fallback", m.AutoQueryFallback())
	return m
}

func (db *DB) modelEnv() model.Env {
	return model.Env{
		Parent:            db.engine,
		IDs:               db.opts.ids,
		Now:               db.opts.now,
		UUIDs:             db.opts.uuids,
		Logger:            db.opts.logger,
		AutoQueryFallback: db.opts.autoQueryFallback,
		StopPropagation:   db.opts.stopPropagation,
	}
}

// Model returns the model registered under name.
func (db *DB) Model(name string) (*model.Model, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	m, ok := db.models[name]
	return m, ok
}

// IsDefined reports whether a model named name is registered.
func (db *DB) IsDefined(name string) bool {
	_, ok := db.Model(name)
	return ok
}

// ModelNames returns the registered model names, sorted.
func (db *DB) ModelNames() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return slices.Sorted(maps.Keys(db.models))
}

// Query resolves a raw query against the root scope. There is no fallback:
// an unanswered raw query fails with an empty-resolution error.
func (db *DB) Query(ctx context.Context, sql string, args ...any) (any, error) {
	return db.engine.Resolve(ctx, engine.Request{
		Operation: OpQuery,
		Args:      append([]any{sql}, args...),
	})
}

// Tx is the transaction handed to Transaction callbacks. It does nothing.
type Tx struct{}

// Commit does nothing.
func (Tx) Commit() error { return nil }

// Rollback does nothing.
func (Tx) Rollback() error { return nil }

// Transaction runs fn with a no-op transaction and returns its error.
func (db *DB) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, &Tx{})
}

// Literal returns v unchanged.
func (db *DB) Literal(v any) any { return v }

// Dialect returns the configured dialect name.
func (db *DB) Dialect() string { return db.opts.dialect }

// GetDialect is an alias for Dialect.
func (db *DB) GetDialect() string { return db.Dialect() }

// QueryInterface returns the root engine scope.
func (db *DB) QueryInterface() *engine.Engine { return db.engine }

// Clock returns the logical clock shared by every scope.
func (db *DB) Clock() *engine.Clock { return db.engine.Clock() }

// QueueResult queues a success on the root scope.
func (db *DB) QueueResult(v any, opts ...engine.QueueOption) *DB {
	db.engine.QueueResult(v, opts...)
	return db
}

// QueueFailure queues a failure on the root scope.
func (db *DB) QueueFailure(v any, opts ...engine.QueueOption) *DB {
	db.engine.QueueFailure(v, opts...)
	return db
}

// QueueError is an alias for QueueFailure.
func (db *DB) QueueError(v any, opts ...engine.QueueOption) *DB {
	return db.QueueFailure(v, opts...)
}

// UseHandler registers a handler on the root scope.
func (db *DB) UseHandler(h engine.Handler) *DB {
	db.engine.UseHandler(h)
	return db
}

// ClearQueue clears the root scope's queue.
func (db *DB) ClearQueue(opts ...engine.ClearOption) *DB {
	db.engine.ClearQueue(opts...)
	return db
}

// ClearHandlers clears the root scope's handlers.
func (db *DB) ClearHandlers(opts ...engine.ClearOption) *DB {
	db.engine.ClearHandlers(opts...)
	return db
}

// ClearAll clears the root scope's handlers and queue.
func (db *DB) ClearAll(opts ...engine.ClearOption) *DB {
	db.engine.ClearAll(opts...)
	return db
}
