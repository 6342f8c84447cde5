package datatype

import "time"

// Env supplies the non-deterministic inputs of Generate.
type Env struct {
	Now   func() time.Time
	UUIDs UUIDGenerator
}

func (env Env) now() time.Time {
	if env.Now != nil {
		return env.Now()
	}
	return time.Now()
}

func (env Env) uuids() UUIDGenerator {
	if env.UUIDs != nil {
		return env.UUIDs
	}
	return RandomUUID{}
}

// Generate produces a placeholder value for t.
//
// NOW yields the current time from env, UUIDV1 and UUIDV4 yield fresh UUIDs.
// Every other kind yields its zero value.
func Generate(t Type, env Env) any {
	switch t.Kind {
	case KindNow:
		return env.now()
	case KindUUIDV1, KindUUIDV4:
		return env.uuids().Generate(t.Kind)
	case KindString, KindChar, KindText, KindUUID:
		return ""
	case KindInteger, KindBigInt:
		return int64(0)
	case KindFloat, KindReal, KindDouble, KindDecimal:
		return float64(0)
	case KindBoolean:
		return false
	case KindTime, KindDate, KindDateOnly:
		return time.Time{}
	case KindHStore, KindJSON, KindJSONB:
		return map[string]any{}
	case KindBlob:
		return []byte{}
	case KindArray:
		return []any{}
	case KindEnum:
		if len(t.Values) > 0 {
			return t.Values[0]
		}
		return ""
	default:
		return nil
	}
}

// Resolve replaces a Type or *Type placeholder with its generated value. Any
// other value is returned unchanged.
func Resolve(v any, env Env) any {
	switch t := v.(type) {
	case Type:
		return Generate(t, env)
	case *Type:
		if t == nil {
			return nil
		}
		return Generate(*t, env)
	default:
		return v
	}
}
