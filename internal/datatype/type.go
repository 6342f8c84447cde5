package datatype

import (
	"fmt"
	"strings"
)

// Type is a data type with its parameters. Only the fields relevant to Kind are
// used: Length for STRING and CHAR, Precision and Scale for DECIMAL, Values for
// ENUM, Elem for ARRAY.
type Type struct {
	Kind      Kind
	Length    int
	Precision int
	Scale     int
	Values    []string
	Elem      *Type
}

const defaultStringLength = 255

// Of returns an unparameterised type of kind.
func Of(kind Kind) Type { return Type{Kind: kind} }

// String returns a STRING type. n <= 0 means the default length.
func String(n int) Type { return Type{Kind: KindString, Length: n} }

// Char returns a CHAR type. n <= 0 means the default length.
func Char(n int) Type { return Type{Kind: KindChar, Length: n} }

// Decimal returns a DECIMAL type. Zero precision leaves it unparameterised.
func Decimal(precision, scale int) Type {
	return Type{Kind: KindDecimal, Precision: precision, Scale: scale}
}

// Enum returns an ENUM type over values.
func Enum(values ...string) Type {
	return Type{Kind: KindEnum, Values: append([]string(nil), values...)}
}

// ArrayOf returns an ARRAY of elem.
func ArrayOf(elem Type) Type {
	return Type{Kind: KindArray, Elem: &elem}
}

// Shorthands for the parameterless kinds most definitions use.
var (
	TEXT     = Of(KindText)
	INTEGER  = Of(KindInteger)
	BIGINT   = Of(KindBigInt)
	FLOAT    = Of(KindFloat)
	DOUBLE   = Of(KindDouble)
	BOOLEAN  = Of(KindBoolean)
	DATE     = Of(KindDate)
	DATEONLY = Of(KindDateOnly)
	JSON     = Of(KindJSON)
	NOW      = Of(KindNow)
	UUID     = Of(KindUUID)
	UUIDV1   = Of(KindUUIDV1)
	UUIDV4   = Of(KindUUIDV4)
)

// Key returns the identifier of t's kind.
func (t Type) Key() string { return Key(t.Kind) }

// String implements fmt.Stringer using Format.
func (t Type) String() string { return Format(t) }

// Format renders t the way a dialect would print it in a column definition.
func Format(t Type) string {
	switch t.Kind {
	case KindString:
		return fmt.Sprintf("VARCHAR(%d)", lengthOr(t.Length))
	case KindChar:
		return fmt.Sprintf("CHAR(%d)", lengthOr(t.Length))
	case KindDecimal:
		switch {
		case t.Precision <= 0:
			return "DECIMAL"
		case t.Scale <= 0:
			return fmt.Sprintf("DECIMAL(%d)", t.Precision)
		default:
			return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale)
		}
	case KindDouble:
		return "DOUBLE PRECISION"
	case KindBoolean:
		return "TINYINT(1)"
	case KindDate:
		return "DATETIME"
	case KindDateOnly:
		return "DATE"
	case KindEnum:
		quoted := make([]string, len(t.Values))
		for i, v := range t.Values {
			quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
		}
		return "ENUM(" + strings.Join(quoted, ",") + ")"
	case KindArray:
		if t.Elem == nil {
			return "ARRAY"
		}
		return Format(*t.Elem) + "[]"
	default:
		if n := Name(t.Kind); n != "" {
			return n
		}
		return "UNKNOWN"
	}
}

func lengthOr(n int) int {
	if n <= 0 {
		return defaultStringLength
	}
	return n
}
