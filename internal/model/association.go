package model

import (
	"context"
	"fmt"
	"maps"

	"github.com/roach88/ormock/internal/inflect"
	"github.com/roach88/ormock/internal/record"
)

// AssociationKind is one of the four ORM association types.
type AssociationKind string

const (
	BelongsTo     AssociationKind = "belongsTo"
	HasOne        AssociationKind = "hasOne"
	HasMany       AssociationKind = "hasMany"
	BelongsToMany AssociationKind = "belongsToMany"
)

// Valid reports whether k is a known association kind.
func (k AssociationKind) Valid() bool {
	switch k {
	case BelongsTo, HasOne, HasMany, BelongsToMany:
		return true
	}
	return false
}

// Target is an association target: a *Model, or a bare name from Named.
type Target interface {
	targetName() string
}

type namedTarget string

func (n namedTarget) targetName() string { return string(n) }

// Named returns a target that exists only by name. Its getters build detached
// records instead of resolving queries.
func Named(name string) Target { return namedTarget(name) }

// AssociationOption configures an association.
type AssociationOption func(*assocConfig)

type assocConfig struct {
	as string
}

// As overrides the name accessor methods are derived from.
func As(name string) AssociationOption {
	return func(c *assocConfig) { c.as = name }
}

// Association describes one declared association and the instance methods it
// added to the source model.
type Association struct {
	Kind    AssociationKind
	Source  *Model
	Target  Target
	As      string
	Methods []string

	// Through is the join model of a many association; nil otherwise.
	Through *Model
}

// BelongsTo declares a to-one association and adds get<S>, set<S> and create<S>.
func (m *Model) BelongsTo(target Target, opts ...AssociationOption) *Association {
	return m.associateOne(BelongsTo, target, opts)
}

// HasOne declares a to-one association and adds get<S>, set<S> and create<S>.
func (m *Model) HasOne(target Target, opts ...AssociationOption) *Association {
	return m.associateOne(HasOne, target, opts)
}

// HasMany declares a to-many association and adds the list accessors.
func (m *Model) HasMany(target Target, opts ...AssociationOption) *Association {
	return m.associateMany(HasMany, target, opts)
}

// BelongsToMany declares a to-many association and adds the list accessors.
func (m *Model) BelongsToMany(target Target, opts ...AssociationOption) *Association {
	return m.associateMany(BelongsToMany, target, opts)
}

// Associate declares an association by kind. Used by model definitions loaded
// from files. It fails on an unknown kind or a nil target.
func (m *Model) Associate(kind AssociationKind, target Target, opts ...AssociationOption) (*Association, error) {
	if isNilTarget(target) {
		return nil, fmt.Errorf("model %s: %s association has no target", m.name, kind)
	}
	switch kind {
	case BelongsTo, HasOne:
		return m.associateOne(kind, target, opts), nil
	case HasMany, BelongsToMany:
		return m.associateMany(kind, target, opts), nil
	default:
		return nil, fmt.Errorf("model %s: unknown association kind %q", m.name, kind)
	}
}

func isNilTarget(target Target) bool {
	if target == nil {
		return true
	}
	tm, ok := target.(*Model)
	return ok && tm == nil
}

// Associations returns the declared associations in declaration order.
func (m *Model) Associations() []*Association {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Association(nil), m.assocs...)
}

// applyAssocOptions panics on a nil target; the typed constructors have no
// error return.
func applyAssocOptions(target Target, opts []AssociationOption) (cfg assocConfig, name string) {
	if isNilTarget(target) {
		panic("model: association target is nil")
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	name = cfg.as
	if name == "" {
		name = target.targetName()
	}
	return cfg, name
}

func (m *Model) associateOne(kind AssociationKind, target Target, opts []AssociationOption) *Association {
	cfg, name := applyAssocOptions(target, opts)
	singular, _ := inflect.Names(name, false)

	a := &Association{Kind: kind, Source: m, Target: target, As: cfg.as}

	if tm, ok := target.(*Model); ok {
		a.add("get"+singular, func(ctx context.Context, _ *record.Record, args ...any) (any, error) {
			return tm.FindOne(ctx, queryFromArgs(args))
		})
		a.add("create"+singular, func(ctx context.Context, _ *record.Record, args ...any) (any, error) {
			return tm.Create(ctx, valuesFromArgs(args))
		})
	} else {
		a.add("get"+singular, func(_ context.Context, _ *record.Record, args ...any) (any, error) {
			return m.detached(target.targetName(), queryFromArgs(args).Where), nil
		})
		a.add("create"+singular, returnSelf)
	}
	a.add("set"+singular, returnSelf)

	m.register(a)
	return a
}

func (m *Model) associateMany(kind AssociationKind, target Target, opts []AssociationOption) *Association {
	cfg, name := applyAssocOptions(target, opts)
	singular, plural := inflect.Names(name, cfg.as != "")

	a := &Association{Kind: kind, Source: m, Target: target, As: cfg.as}

	if tm, ok := target.(*Model); ok {
		a.add("get"+plural, func(ctx context.Context, _ *record.Record, args ...any) (any, error) {
			return tm.FindAll(ctx, queryFromArgs(args))
		})
		a.add("create"+singular, func(ctx context.Context, _ *record.Record, args ...any) (any, error) {
			return tm.Create(ctx, valuesFromArgs(args))
		})
	} else {
		a.add("get"+plural, func(_ context.Context, _ *record.Record, args ...any) (any, error) {
			return []*record.Record{m.detached(target.targetName(), queryFromArgs(args).Where)}, nil
		})
		a.add("create"+singular, returnSelf)
	}
	for _, n := range []string{"set" + plural, "add" + singular, "add" + plural, "remove" + singular, "remove" + plural} {
		a.add(n, returnSelf)
	}
	a.add("has"+singular, returnFalse)
	a.add("has"+plural, returnFalse)
	a.add("count"+plural, func(context.Context, *record.Record, ...any) (any, error) { return 0, nil })

	a.Through = New(m.name+plural, nil, m.env)

	m.register(a)
	return a
}

func (a *Association) add(name string, fn record.Method) {
	a.Source.addMethod(name, fn)
	a.Methods = append(a.Methods, name)
}

func (m *Model) register(a *Association) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assocs = append(m.assocs, a)
}

// detached builds a record for a target that has no model of its own.
func (m *Model) detached(name string, values map[string]any) *record.Record {
	cfg := m.recordConfig(name)
	cfg.Methods = nil
	return record.New(maps.Clone(values), cfg)
}

func returnSelf(_ context.Context, r *record.Record, _ ...any) (any, error) {
	return r, nil
}

func returnFalse(context.Context, *record.Record, ...any) (any, error) {
	return false, nil
}

// queryFromArgs reads an optional Query, *Query or where map from args.
func queryFromArgs(args []any) Query {
	if len(args) == 0 {
		return Query{}
	}
	switch q := args[0].(type) {
	case Query:
		return q
	case *Query:
		if q != nil {
			return *q
		}
	case map[string]any:
		return Query{Where: q}
	}
	return Query{}
}

func valuesFromArgs(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	if v, ok := args[0].(map[string]any); ok {
		return v
	}
	return nil
}
