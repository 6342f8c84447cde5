package model

import (
	"fmt"
	"math"
	"reflect"

	"github.com/roach88/ormock/internal/engine"
	"github.com/roach88/ormock/internal/record"
)

// ConversionError reports a resolved value that does not fit the result type of
// the operation, e.g. a string queued for FindAll.
type ConversionError struct {
	Model     string
	Operation string
	Want      string
	Value     any
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s.%s: cannot use %T as %s", e.Model, e.Operation, e.Value, e.Want)
}

func (m *Model) conversionError(op, want string, v any) error {
	return &ConversionError{Model: m.name, Operation: op, Want: want, Value: v}
}

// toRecord accepts a record, an attribute map (built into a record) or nil.
// A list yields its first element.
func (m *Model) toRecord(op string, v any) (*record.Record, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case *record.Record:
		return x, nil
	case map[string]any:
		return m.Build(x), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Len() == 0 {
			return nil, nil
		}
		return m.toRecord(op, rv.Index(0).Interface())
	}
	return nil, m.conversionError(op, "record", v)
}

// toRecords converts element-wise. A single record or map becomes a
// one-element list; nil becomes an empty list.
func (m *Model) toRecords(op string, v any) ([]*record.Record, error) {
	switch x := v.(type) {
	case nil:
		return []*record.Record{}, nil
	case []*record.Record:
		return append([]*record.Record{}, x...), nil
	case *record.Record, map[string]any:
		r, err := m.toRecord(op, x)
		if err != nil {
			return nil, err
		}
		return []*record.Record{r}, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, m.conversionError(op, "record list", v)
	}
	out := make([]*record.Record, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		switch elem.(type) {
		case *record.Record, map[string]any:
		default:
			return nil, m.conversionError(op, "record list", v)
		}
		r, err := m.toRecord(op, elem)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *Model) toCountResult(v any) (CountResult, error) {
	switch x := v.(type) {
	case CountResult:
		return x, nil
	case *CountResult:
		if x == nil {
			return CountResult{Rows: []*record.Record{}}, nil
		}
		return *x, nil
	case map[string]any:
		count, err := m.toCount(OpFindAndCountAll, x["count"])
		if err != nil {
			return CountResult{}, err
		}
		rows, err := m.toRecords(OpFindAndCountAll, x["rows"])
		if err != nil {
			return CountResult{}, err
		}
		return CountResult{Count: count, Rows: rows}, nil
	default:
		return CountResult{}, m.conversionError(OpFindAndCountAll, "count result", v)
	}
}

// toCreated accepts the packaged with-created pair, a [record, bool] list, or a
// bare record (created then follows the scope default).
func (m *Model) toCreated(v any) (*record.Record, bool, error) {
	switch x := v.(type) {
	case engine.Created:
		r, err := m.toRecord(OpFindOrCreate, x.Value)
		return r, x.Created, err
	case []any:
		if len(x) == 2 {
			if created, ok := x[1].(bool); ok {
				r, err := m.toRecord(OpFindOrCreate, x[0])
				return r, created, err
			}
		}
		return nil, false, m.conversionError(OpFindOrCreate, "record and created flag", v)
	default:
		r, err := m.toRecord(OpFindOrCreate, v)
		return r, m.engine.CreatedDefault(), err
	}
}

func (m *Model) toBool(op string, v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case engine.Created:
		return x.Created, nil
	default:
		return false, m.conversionError(op, "bool", v)
	}
}

// toAffected accepts the packaged with-affected-rows pair, a [count, rows] list
// or a bare count.
func (m *Model) toAffected(v any) (int, []*record.Record, error) {
	var count, rows any
	switch x := v.(type) {
	case engine.Affected:
		count, rows = x.Value, x.Rows
	case []any:
		if len(x) != 2 {
			return 0, nil, m.conversionError(OpUpdate, "count and rows", v)
		}
		count, rows = x[0], x[1]
	default:
		count = v
	}

	n, err := m.toCount(OpUpdate, count)
	if err != nil {
		return 0, nil, err
	}
	recs, err := m.toRecords(OpUpdate, rows)
	if err != nil {
		return 0, nil, err
	}
	return n, recs, nil
}

// toCount accepts any integer or float.
func (m *Model) toCount(op string, v any) (int, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			break
		}
		return int(f), nil
	}
	return 0, m.conversionError(op, "count", v)
}
