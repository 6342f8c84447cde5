// Package record implements model instances: a bag of attribute values with the
// instance operations an ORM exposes (get, set, validate, save, destroy).
//
// Nothing is persisted. Save only runs queued validation errors and flips the
// new-record flag; Destroy only stamps deletedAt.
package record

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/roach88/ormock/internal/datatype"
	"github.com/roach88/ormock/internal/dberr"
)

// IDSource hands out primary keys. engine.Clock and testutil.DeterministicClock
// both satisfy it.
type IDSource interface {
	Next() int64
}

// Method is an instance method. It receives the record it was called on.
type Method func(ctx context.Context, r *Record, args ...any) (any, error)

// Config describes how records of one model are built.
type Config struct {
	// Model is the owning model name.
	Model string

	// HasPrimaryKey assigns an id from IDs when the values carry none.
	HasPrimaryKey bool

	// Timestamps sets createdAt and updatedAt when the values carry none.
	Timestamps bool

	IDs   IDSource
	Now   func() time.Time
	UUIDs datatype.UUIDGenerator

	// Methods is the model's instance method table. It is copied, never shared.
	Methods map[string]Method
}

type pendingValidation struct {
	col     string
	message string
	typ     string
}

// Record is one model instance. Record is safe for concurrent use.
type Record struct {
	mu         sync.RWMutex
	model      string
	values     map[string]any
	isNew      bool
	validation []pendingValidation
	methods    map[string]Method
	now        func() time.Time
}

// New builds a record from values. values is cloned; datatype placeholders in it
// are replaced with generated values.
func New(values map[string]any, cfg Config) *Record {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	env := datatype.Env{Now: now, UUIDs: cfg.UUIDs}

	vals := make(map[string]any, len(values)+3)
	for k, v := range values {
		vals[k] = datatype.Resolve(v, env)
	}

	if cfg.HasPrimaryKey && isBlank(vals["id"]) && cfg.IDs != nil {
		vals["id"] = cfg.IDs.Next()
	}
	if cfg.Timestamps {
		if isBlank(vals["createdAt"]) {
			vals["createdAt"] = now()
		}
		if isBlank(vals["updatedAt"]) {
			vals["updatedAt"] = now()
		}
	}

	return &Record{
		model:   cfg.Model,
		values:  vals,
		isNew:   true,
		methods: maps.Clone(cfg.Methods),
		now:     now,
	}
}

// isBlank reports whether v would not count as a provided value.
func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case int:
		return x == 0
	case int64:
		return x == 0
	case float64:
		return x == 0
	case time.Time:
		return x.IsZero()
	default:
		return false
	}
}

// Model returns the name of the model the record belongs to.
func (r *Record) Model() string { return r.model }

// IsNewRecord reports whether the record has not been saved yet.
func (r *Record) IsNewRecord() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isNew
}

// Get returns one attribute value.
func (r *Record) Get(key string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values[key]
}

// GetAll returns a copy of every attribute value.
func (r *Record) GetAll() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.values)
}

// Set sets one attribute value.
func (r *Record) Set(key string, value any) *Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return r
}

// SetAll sets every pair in values.
func (r *Record) SetAll(values map[string]any) *Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	maps.Copy(r.values, values)
	return r
}

// AddValidationError queues a validation failure reported by the next Validate
// or Save. Empty message and typ fall back to defaults.
func (r *Record) AddValidationError(col, message, typ string) *Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validation = append(r.validation, pendingValidation{col: col, message: message, typ: typ})
	return r
}

// RemoveValidationError drops every queued failure for col.
func (r *Record) RemoveValidationError(col string) *Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validation = slices.DeleteFunc(r.validation, func(v pendingValidation) bool {
		return v.col == col
	})
	return r
}

// ClearValidationErrors drops every queued failure.
func (r *Record) ClearValidationErrors() *Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validation = nil
	return r
}

// Validate returns a validation error built from the queued failures, or nil.
// The queue is emptied either way.
func (r *Record) Validate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.validation) == 0 {
		return nil
	}

	items := make([]dberr.ValidationItem, len(r.validation))
	for i, v := range r.validation {
		msg := v.message
		if msg == "" {
			msg = "Validation Error for value in column " + v.col
		}
		typ := v.typ
		if typ == "" {
			typ = "Validation error"
		}
		items[i] = dberr.ValidationItem{Message: msg, Type: typ, Path: v.col, Value: r.values[v.col]}
	}
	r.validation = nil
	return dberr.NewValidation("", items...)
}

// Save validates the record and marks it as persisted.
func (r *Record) Save(ctx context.Context) (*Record, error) {
	if err := r.Validate(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.isNew = false
	r.mu.Unlock()
	return r, nil
}

// Destroy stamps deletedAt.
func (r *Record) Destroy(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values["deletedAt"] = r.now()
	return nil
}

// Reload returns the record unchanged.
func (r *Record) Reload(ctx context.Context) (*Record, error) {
	return r, nil
}

// Update sets values and saves.
func (r *Record) Update(ctx context.Context, values map[string]any) (*Record, error) {
	r.SetAll(values)
	return r.Save(ctx)
}

// ToJSON returns the plain attribute values.
func (r *Record) ToJSON() map[string]any {
	return r.GetAll()
}

// MarshalJSON renders the attribute values.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.GetAll())
}

// HasMethod reports whether name is an instance method of the record's model.
func (r *Record) HasMethod(name string) bool {
	_, ok := r.methods[name]
	return ok
}

// Methods returns the sorted instance method names.
func (r *Record) Methods() []string {
	return slices.Sorted(maps.Keys(r.methods))
}

// Call invokes an instance method.
func (r *Record) Call(ctx context.Context, name string, args ...any) (any, error) {
	m, ok := r.methods[name]
	if !ok {
		return nil, fmt.Errorf("%s has no instance method %q", r.modelName(), name)
	}
	return m(ctx, r, args...)
}

func (r *Record) modelName() string {
	if r.model == "" {
		return "record"
	}
	return r.model
}
