package dberr

// Kind identifies one ORM error variant.
//
// Kinds form a small "is-a" graph rather than a class hierarchy: IsA walks the
// parents table, so a unique constraint violation is both a validation error and
// a database error, the same way the mocked ORM reports it.
type Kind int

const (
	KindBase Kind = iota
	KindValidation
	KindDatabase
	KindTimeout
	KindUniqueConstraint
	KindForeignKeyConstraint
	KindExclusionConstraint
	KindConnection
	KindConnectionRefused
	KindAccessDenied
	KindHostNotFound
	KindHostNotReachable
	KindInvalidConnection
	KindConnectionTimedOut
	KindInstance
	KindInvalidQueryResult
	KindEmptyQueryQueue
)

// SQLMarker is stored in the SQL field of database-family errors, since no SQL
// is ever generated.
const SQLMarker = "/* ormock; no SQL generated */"

var kindNames = map[Kind]string{
	KindBase:                 "SequelizeBaseError",
	KindValidation:           "SequelizeValidationError",
	KindDatabase:             "SequelizeDatabaseError",
	KindTimeout:              "SequelizeTimeoutError",
	KindUniqueConstraint:     "SequelizeUniqueConstraintError",
	KindForeignKeyConstraint: "SequelizeForeignKeyConstraintError",
	KindExclusionConstraint:  "SequelizeExclusionConstraintError",
	KindConnection:           "SequelizeConnectionError",
	KindConnectionRefused:    "SequelizeConnectionRefusedError",
	KindAccessDenied:         "SequelizeAccessDeniedError",
	KindHostNotFound:         "SequelizeHostNotFoundError",
	KindHostNotReachable:     "SequelizeHostNotReachableError",
	KindInvalidConnection:    "SequelizeInvalidConnectionError",
	KindConnectionTimedOut:   "SequelizeConnectionTimedOutError",
	KindInstance:             "SequelizeInstanceError",
	KindInvalidQueryResult:   "SequelizeMockInvalidQueryResultError",
	KindEmptyQueryQueue:      "SequelizeMockEmptyQueryQueueError",
}

var kindKeys = map[Kind]string{
	KindBase:                 "base",
	KindValidation:           "validation",
	KindDatabase:             "database",
	KindTimeout:              "timeout",
	KindUniqueConstraint:     "unique_constraint",
	KindForeignKeyConstraint: "foreign_key_constraint",
	KindExclusionConstraint:  "exclusion_constraint",
	KindConnection:           "connection",
	KindConnectionRefused:    "connection_refused",
	KindAccessDenied:         "access_denied",
	KindHostNotFound:         "host_not_found",
	KindHostNotReachable:     "host_not_reachable",
	KindInvalidConnection:    "invalid_connection",
	KindConnectionTimedOut:   "connection_timed_out",
	KindInstance:             "instance",
	KindInvalidQueryResult:   "invalid_query_result",
	KindEmptyQueryQueue:      "empty_query_queue",
}

var defaultMessages = map[Kind]string{
	KindValidation:         "Validation Error",
	KindTimeout:            "Query Timed Out",
	KindConnection:         "Connection Error",
	KindInvalidQueryResult: "Invalid query result was queued. Unable to complete mock query",
	KindEmptyQueryQueue:    "No query results are queued. Unexpected query attempted to be run",
}

// parents lists the direct ancestors of each kind. KindBase has none.
var parents = map[Kind][]Kind{
	KindValidation:           {KindBase},
	KindDatabase:             {KindBase},
	KindTimeout:              {KindDatabase},
	KindUniqueConstraint:     {KindValidation, KindDatabase},
	KindForeignKeyConstraint: {KindDatabase},
	KindExclusionConstraint:  {KindDatabase},
	KindConnection:           {KindBase},
	KindConnectionRefused:    {KindConnection},
	KindAccessDenied:         {KindConnection},
	KindHostNotFound:         {KindConnection},
	KindHostNotReachable:     {KindConnection},
	KindInvalidConnection:    {KindConnection},
	KindConnectionTimedOut:   {KindConnection},
	KindInstance:             {KindBase},
	KindInvalidQueryResult:   {KindBase},
	KindEmptyQueryQueue:      {KindBase},
}

// Name returns the ORM-compatible error name for kind.
// Code under test sometimes switches on error names, so these match the ORM.
func Name(kind Kind) string {
	if n, ok := kindNames[kind]; ok {
		return n
	}
	return kindNames[KindBase]
}

// Key returns the snake_case identifier used in scenario files and the journal.
func Key(kind Kind) string {
	if k, ok := kindKeys[kind]; ok {
		return k
	}
	return kindKeys[KindBase]
}

// ParseKind maps a scenario key (e.g. "unique_constraint") or an ORM error name
// back to its Kind.
func ParseKind(s string) (Kind, bool) {
	for k, key := range kindKeys {
		if key == s || kindNames[k] == s {
			return k, true
		}
	}
	return KindBase, false
}

// DefaultMessage returns the message used when a constructor is given none.
func DefaultMessage(kind Kind) string {
	return defaultMessages[kind]
}

// IsA reports whether kind is ancestor or descends from it.
func IsA(kind, ancestor Kind) bool {
	if kind == ancestor {
		return true
	}
	for _, p := range parents[kind] {
		if IsA(p, ancestor) {
			return true
		}
	}
	return false
}

// carriesSQL reports whether errors of this kind expose the SQL marker.
func carriesSQL(kind Kind) bool {
	return IsA(kind, KindDatabase)
}

func (k Kind) String() string {
	return Key(k)
}
