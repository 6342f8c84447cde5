package model

import (
	"context"

	"github.com/roach88/ormock/internal/engine"
	"github.com/roach88/ormock/internal/record"
)

// Operation names as they reach handlers and traces.
const (
	OpFindAll         = "findAll"
	OpFindAndCountAll = "findAndCountAll"
	OpFindOne         = "findOne"
	OpFindByPk        = "findByPk"
	OpCreate          = "create"
	OpBulkCreate      = "bulkCreate"
	OpFindOrCreate    = "findOrCreate"
	OpUpsert          = "upsert"
	OpUpdate          = "update"
	OpDestroy         = "destroy"
	OpMax             = "max"
	OpMin             = "min"
	OpSum             = "sum"
)

// Query carries the options of a finder. Only Where and Limit influence the
// generated fallbacks; the rest are passed to handlers untouched.
type Query struct {
	Where      map[string]any `json:"where,omitempty"`
	Limit      int            `json:"limit,omitempty"`
	Offset     int            `json:"offset,omitempty"`
	Order      []string       `json:"order,omitempty"`
	Attributes []string       `json:"attributes,omitempty"`
}

// CountResult is the result of FindAndCountAll.
type CountResult struct {
	Count int              `json:"count"`
	Rows  []*record.Record `json:"rows"`
}

// resolve issues one resolution on the model scope. fb is attached only when
// the model has auto query fallback on.
func (m *Model) resolve(ctx context.Context, op string, shape engine.Shape, fb engine.Fallback, args ...any) (any, error) {
	req := engine.Request{Operation: op, Args: args, Shape: shape}
	if m.cfg.autoQueryFallback {
		req.Fallback = fb
	}
	return m.engine.Resolve(ctx, req)
}

// FindAll resolves a list of records.
func (m *Model) FindAll(ctx context.Context, q Query) ([]*record.Record, error) {
	v, err := m.resolve(ctx, OpFindAll, engine.ShapePlain, func(context.Context) engine.Result {
		return engine.Value([]*record.Record{m.Build(q.Where)})
	}, q)
	if err != nil {
		return nil, err
	}
	return m.toRecords(OpFindAll, v)
}

// FindAndCountAll resolves a page of records with a total count.
func (m *Model) FindAndCountAll(ctx context.Context, q Query) (CountResult, error) {
	v, err := m.resolve(ctx, OpFindAndCountAll, engine.ShapePlain, func(context.Context) engine.Result {
		return engine.Value(CountResult{Count: 1, Rows: []*record.Record{m.Build(q.Where)}})
	}, q)
	if err != nil {
		return CountResult{}, err
	}
	return m.toCountResult(v)
}

// FindOne resolves a single record. A nil record means not found.
func (m *Model) FindOne(ctx context.Context, q Query) (*record.Record, error) {
	v, err := m.resolve(ctx, OpFindOne, engine.ShapePlain, func(context.Context) engine.Result {
		return engine.Value(m.Build(q.Where))
	}, q)
	if err != nil {
		return nil, err
	}
	return m.toRecord(OpFindOne, v)
}

// FindByPk resolves a record by primary key.
func (m *Model) FindByPk(ctx context.Context, id any) (*record.Record, error) {
	v, err := m.resolve(ctx, OpFindByPk, engine.ShapePlain, func(context.Context) engine.Result {
		return engine.Value(m.Build(map[string]any{"id": id}))
	}, id)
	if err != nil {
		return nil, err
	}
	return m.toRecord(OpFindByPk, v)
}

// FindByID is an alias for FindByPk.
func (m *Model) FindByID(ctx context.Context, id any) (*record.Record, error) {
	return m.FindByPk(ctx, id)
}

// Create resolves a newly created record.
func (m *Model) Create(ctx context.Context, values map[string]any) (*record.Record, error) {
	v, err := m.resolve(ctx, OpCreate, engine.ShapePlain, m.saveFallback(values), values)
	if err != nil {
		return nil, err
	}
	return m.toRecord(OpCreate, v)
}

// BulkCreate resolves a list of created records.
func (m *Model) BulkCreate(ctx context.Context, set []map[string]any) ([]*record.Record, error) {
	v, err := m.resolve(ctx, OpBulkCreate, engine.ShapePlain, func(ctx context.Context) engine.Result {
		out := make([]*record.Record, 0, len(set))
		for _, values := range set {
			r, err := m.Build(values).Save(ctx)
			if err != nil {
				return engine.Failure(err)
			}
			out = append(out, r)
		}
		return engine.Value(out)
	}, set)
	if err != nil {
		return nil, err
	}
	return m.toRecords(OpBulkCreate, v)
}

// FindOrCreate resolves a record and whether it was created.
func (m *Model) FindOrCreate(ctx context.Context, q Query) (*record.Record, bool, error) {
	v, err := m.resolve(ctx, OpFindOrCreate, engine.ShapeWithCreated, func(ctx context.Context) engine.Result {
		r := m.Build(q.Where)
		created := m.engine.CreatedDefault()
		if created {
			if _, err := r.Save(ctx); err != nil {
				return engine.Failure(err)
			}
		}
		return engine.Value(engine.Created{Value: r, Created: created})
	}, q)
	if err != nil {
		return nil, false, err
	}
	return m.toCreated(v)
}

// Upsert resolves whether the row was created (true) or updated (false).
func (m *Model) Upsert(ctx context.Context, values map[string]any) (bool, error) {
	v, err := m.resolve(ctx, OpUpsert, engine.ShapePlain, func(ctx context.Context) engine.Result {
		if _, err := m.Build(values).Save(ctx); err != nil {
			return engine.Failure(err)
		}
		return engine.Value(m.engine.CreatedDefault())
	}, values)
	if err != nil {
		return false, err
	}
	return m.toBool(OpUpsert, v)
}

// InsertOrUpdate is an alias for Upsert.
func (m *Model) InsertOrUpdate(ctx context.Context, values map[string]any) (bool, error) {
	return m.Upsert(ctx, values)
}

// Update resolves the affected row count and the affected rows.
func (m *Model) Update(ctx context.Context, values map[string]any, q Query) (int, []*record.Record, error) {
	v, err := m.resolve(ctx, OpUpdate, engine.ShapeWithAffectedRows, func(context.Context) engine.Result {
		return engine.Value(engine.Affected{Value: 1, Rows: []any{m.Build(values)}})
	}, values, q)
	if err != nil {
		return 0, nil, err
	}
	return m.toAffected(v)
}

// Destroy resolves the number of destroyed rows.
func (m *Model) Destroy(ctx context.Context, q Query) (int, error) {
	v, err := m.resolve(ctx, OpDestroy, engine.ShapePlain, func(context.Context) engine.Result {
		if q.Limit > 0 {
			return engine.Value(q.Limit)
		}
		return engine.Value(1)
	}, q)
	if err != nil {
		return 0, err
	}
	return m.toCount(OpDestroy, v)
}

// Max resolves an aggregate; the fallback is the model default for field.
func (m *Model) Max(ctx context.Context, field string) (any, error) {
	return m.aggregate(ctx, OpMax, field)
}

// Min resolves an aggregate; the fallback is the model default for field.
func (m *Model) Min(ctx context.Context, field string) (any, error) {
	return m.aggregate(ctx, OpMin, field)
}

// Sum resolves an aggregate; the fallback is the model default for field.
func (m *Model) Sum(ctx context.Context, field string) (any, error) {
	return m.aggregate(ctx, OpSum, field)
}

func (m *Model) aggregate(ctx context.Context, op, field string) (any, error) {
	return m.resolve(ctx, op, engine.ShapePlain, func(context.Context) engine.Result {
		return engine.Value(m.defaults[field])
	}, field)
}

func (m *Model) saveFallback(values map[string]any) engine.Fallback {
	return func(ctx context.Context) engine.Result {
		r, err := m.Build(values).Save(ctx)
		if err != nil {
			return engine.Failure(err)
		}
		return engine.Value(r)
	}
}
