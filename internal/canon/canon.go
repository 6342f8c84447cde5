// Package canon renders resolved values as canonical JSON, so traces and
// journal rows compare byte for byte across runs.
//
// Rules:
//   - object keys are ordered by UTF-16 code units (RFC 8785)
//   - strings are NFC normalized and never HTML-escaped
//   - floats use the shortest form that round-trips; NaN and Inf are rejected
//   - times are RFC 3339 strings in UTC
//   - records render as {"model": ..., "values": {...}}
//   - errors render as {"error": <name>, "message": ...}
package canon

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"time"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/ormock/internal/datatype"
	"github.com/roach88/ormock/internal/dberr"
	"github.com/roach88/ormock/internal/engine"
	"github.com/roach88/ormock/internal/record"
)

// Marshal produces canonical JSON for v.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MustString is Marshal for values known to be encodable. It panics on error.
func MustString(v any) string {
	b, err := Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// Plain converts v into the tree of nil, bool, int64, float64, string, []any and
// map[string]any that Marshal would encode. Records, errors and the engine's
// Created and Affected wrappers are flattened on the way.
func Plain(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return norm.NFC.String(val), nil
	case bool:
		return val, nil
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case uint:
		return int64(val), nil
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer overflows int64: %d", val)
		}
		return int64(val), nil
	case float32:
		return plainFloat(float64(val))
	case float64:
		return plainFloat(val)
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", val, err)
		}
		return plainFloat(f)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), nil
	case datatype.Type:
		return val.String(), nil
	case *datatype.Type:
		if val == nil {
			return nil, nil
		}
		return val.String(), nil
	case *record.Record:
		if val == nil {
			return nil, nil
		}
		values, err := Plain(val.GetAll())
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", val.Model(), err)
		}
		return map[string]any{"model": val.Model(), "values": values}, nil
	case engine.Created:
		inner, err := Plain(val.Value)
		if err != nil {
			return nil, err
		}
		return map[string]any{"value": inner, "created": val.Created}, nil
	case engine.Affected:
		rows, err := Plain(val.Rows)
		if err != nil {
			return nil, err
		}
		inner, err := Plain(val.Value)
		if err != nil {
			return nil, err
		}
		return map[string]any{"value": inner, "rows": rows}, nil
	case *engine.RejectedValue:
		inner, err := Plain(val.Value)
		if err != nil {
			return nil, err
		}
		return map[string]any{"error": "RejectedValue", "value": inner}, nil
	case error:
		return plainError(val), nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			p, err := Plain(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = p
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			p, err := Plain(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[norm.NFC.String(k)] = p
		}
		return out, nil
	}
	return plainReflect(v)
}

func plainFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite float is not valid JSON: %v", f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f), nil
	}
	return f, nil
}

func plainError(err error) map[string]any {
	out := map[string]any{
		"error":   dberr.NameOf(err),
		"message": norm.NFC.String(err.Error()),
	}
	var e *dberr.Error
	if errors.As(err, &e) && len(e.Fields) > 0 {
		fields := make([]any, len(e.Fields))
		for i, f := range e.Fields {
			fields[i] = f
		}
		out["fields"] = fields
	}
	return out
}

// plainReflect handles typed slices, string-keyed maps and anything that
// marshals itself through encoding/json.
func plainReflect(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		if rv.IsNil() {
			return []any{}, nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			p, err := Plain(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = p
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				k := norm.NFC.String(iter.Key().String())
				p, err := Plain(iter.Value().Interface())
				if err != nil {
					return nil, fmt.Errorf("[%q]: %w", k, err)
				}
				out[k] = p
			}
			return out, nil
		}
	case reflect.String:
		return norm.NFC.String(rv.String()), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T: %w", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, err
	}
	return Plain(decoded)
}

func encode(buf *bytes.Buffer, v any) error {
	p, err := Plain(v)
	if err != nil {
		return err
	}
	return encodePlain(buf, p)
}

func encodePlain(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case float64:
		buf.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
	case string:
		return encodeString(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodePlain(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		buf.WriteByte('{')
		for i, k := range SortedKeys(val) {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := encodePlain(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// encodeString writes s as a JSON string with only quote, backslash and
// control characters escaped.
func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators undoes encoding/json's \u2028 and \u2029 escapes.
// An escape preceded by an odd run of backslashes is literal text and stays.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if i+6 <= len(data) && bytes.HasPrefix(data[i:], []byte(`\u202`)) && (data[i+5] == '8' || data[i+5] == '9') {
			slashes := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				slashes++
			}
			if slashes%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}

// SortedKeys returns the keys of m in UTF-16 code unit order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, CompareUTF16)
	return keys
}

// CompareUTF16 orders strings by UTF-16 code units. Plain string comparison
// orders by UTF-8 bytes, which differs for characters above U+FFFF.
func CompareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}
