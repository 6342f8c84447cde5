// Package datatype provides placeholder data types for model definitions.
//
// Types carry no storage semantics. They exist so model definitions read like
// their ORM counterparts, and so attribute defaults such as NOW or UUIDV4 can be
// turned into concrete placeholder values when a record is built.
package datatype

import "strings"

// Kind is one data type of the closed set.
type Kind int

const (
	KindString Kind = iota + 1
	KindChar
	KindText
	KindInteger
	KindBigInt
	KindFloat
	KindReal
	KindDouble
	KindDecimal
	KindBoolean
	KindTime
	KindDate
	KindDateOnly
	KindHStore
	KindJSON
	KindJSONB
	KindNow
	KindBlob
	KindRange
	KindUUID
	KindUUIDV1
	KindUUIDV4
	KindVirtual
	KindEnum
	KindArray
	KindGeometry
	KindGeography
)

var kindNames = map[Kind]string{
	KindString:    "STRING",
	KindChar:      "CHAR",
	KindText:      "TEXT",
	KindInteger:   "INTEGER",
	KindBigInt:    "BIGINT",
	KindFloat:     "FLOAT",
	KindReal:      "REAL",
	KindDouble:    "DOUBLE",
	KindDecimal:   "DECIMAL",
	KindBoolean:   "BOOLEAN",
	KindTime:      "TIME",
	KindDate:      "DATE",
	KindDateOnly:  "DATEONLY",
	KindHStore:    "HSTORE",
	KindJSON:      "JSON",
	KindJSONB:     "JSONB",
	KindNow:       "NOW",
	KindBlob:      "BLOB",
	KindRange:     "RANGE",
	KindUUID:      "UUID",
	KindUUIDV1:    "UUIDV1",
	KindUUIDV4:    "UUIDV4",
	KindVirtual:   "VIRTUAL",
	KindEnum:      "ENUM",
	KindArray:     "ARRAY",
	KindGeometry:  "GEOMETRY",
	KindGeography: "GEOGRAPHY",
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames))
	for k := KindString; k <= KindGeography; k++ {
		out = append(out, k)
	}
	return out
}

// Name returns the upper-case ORM name of kind, or "" for an unknown kind.
func Name(kind Kind) string {
	return kindNames[kind]
}

// Key returns the lower-case identifier used in CUE definitions and scenarios.
func Key(kind Kind) string {
	return strings.ToLower(kindNames[kind])
}

// ParseKind maps a key or name, in any case, back to its Kind.
func ParseKind(s string) (Kind, bool) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == upper {
			return k, true
		}
	}
	return 0, false
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "UNKNOWN"
}
