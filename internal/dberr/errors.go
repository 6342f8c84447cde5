// Package dberr defines the error values an ORM would surface, so code under test
// can exercise its error handling without a database.
package dberr

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Matching follows IsA, so
// errors.Is(uniqueErr, ErrValidation) and errors.Is(uniqueErr, ErrDatabase) both hold.
var (
	ErrBase                 = sentinel(KindBase)
	ErrValidation           = sentinel(KindValidation)
	ErrDatabase             = sentinel(KindDatabase)
	ErrTimeout              = sentinel(KindTimeout)
	ErrUniqueConstraint     = sentinel(KindUniqueConstraint)
	ErrForeignKeyConstraint = sentinel(KindForeignKeyConstraint)
	ErrExclusionConstraint  = sentinel(KindExclusionConstraint)
	ErrConnection           = sentinel(KindConnection)
	ErrConnectionRefused    = sentinel(KindConnectionRefused)
	ErrAccessDenied         = sentinel(KindAccessDenied)
	ErrHostNotFound         = sentinel(KindHostNotFound)
	ErrHostNotReachable     = sentinel(KindHostNotReachable)
	ErrInvalidConnection    = sentinel(KindInvalidConnection)
	ErrConnectionTimedOut   = sentinel(KindConnectionTimedOut)
	ErrInstance             = sentinel(KindInstance)
	ErrInvalidQueryResult   = sentinel(KindInvalidQueryResult)
	ErrEmptyQueryQueue      = sentinel(KindEmptyQueryQueue)
)

// Error is a single ORM error. Only the fields relevant to Kind are populated.
type Error struct {
	Kind    Kind
	Message string

	// Value holds the original value when a non-error was converted by Wrap,
	// or the offending value of a foreign key violation.
	Value any

	// Parent is the underlying error for database and connection kinds.
	Parent error

	// SQL is SQLMarker for database-family kinds.
	SQL string

	// Items lists individual validation failures (validation kinds).
	Items []ValidationItem

	// Fields names the columns involved in a constraint violation.
	Fields []string

	Table      string
	Index      string
	Constraint string

	sentinel bool
}

// ValidationItem is one failed validation on one field.
type ValidationItem struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Path    string `json:"path"`
	Value   any    `json:"value,omitempty"`
}

func sentinel(kind Kind) *Error {
	return &Error{Kind: kind, Message: DefaultMessage(kind), sentinel: true}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = DefaultMessage(e.Kind)
	}
	if msg == "" {
		return Name(e.Kind)
	}
	return msg
}

// Name returns the ORM-compatible name of the error.
func (e *Error) Name() string {
	return Name(e.Kind)
}

// Unwrap returns the parent error, if any.
func (e *Error) Unwrap() error {
	if e.Parent == nil || e.Parent == error(e) {
		return nil
	}
	return e.Parent
}

// Is matches sentinel errors by kind ancestry.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || !t.sentinel {
		return false
	}
	return IsA(e.Kind, t.Kind)
}

// Get returns the validation items recorded for path.
func (e *Error) Get(path string) []ValidationItem {
	var out []ValidationItem
	for _, item := range e.Items {
		if item.Path == path {
			out = append(out, item)
		}
	}
	return out
}

// New creates an error of the given kind. An empty message falls back to the
// kind's default message.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = DefaultMessage(kind)
	}
	e := &Error{Kind: kind, Message: message}
	if carriesSQL(kind) {
		e.SQL = SQLMarker
	}
	return e
}

// Wrap converts an arbitrary value into a base error. Errors pass through unchanged.
func Wrap(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return &Error{Kind: KindBase, Message: fmt.Sprint(v), Value: v}
}

// IsErrorLike reports whether v already behaves like an error.
func IsErrorLike(v any) bool {
	_, ok := v.(error)
	return ok
}

// NewValidation creates a validation error carrying items.
func NewValidation(message string, items ...ValidationItem) *Error {
	e := New(KindValidation, message)
	e.Items = items
	return e
}

// NewDatabase wraps parent as a database error.
func NewDatabase(parent error) *Error {
	e := New(KindDatabase, "")
	if parent != nil {
		e.Message = parent.Error()
	}
	e.Parent = parent
	return e
}

// NewTimeout creates a query timeout error.
func NewTimeout() *Error {
	return New(KindTimeout, "")
}

// UniqueConstraintOptions configures NewUniqueConstraint.
type UniqueConstraintOptions struct {
	Message string
	Items   []ValidationItem
	Fields  []string
	Parent  error
}

// NewUniqueConstraint creates a unique constraint violation.
func NewUniqueConstraint(opts UniqueConstraintOptions) *Error {
	e := New(KindUniqueConstraint, opts.Message)
	if opts.Message == "" {
		e.Message = DefaultMessage(KindValidation)
	}
	e.Items = opts.Items
	e.Fields = nonNil(opts.Fields)
	e.Parent = opts.Parent
	return e
}

// ForeignKeyConstraintOptions configures NewForeignKeyConstraint.
type ForeignKeyConstraintOptions struct {
	Message string
	Fields  []string
	Table   string
	Value   any
	Index   string
	Parent  error
}

// NewForeignKeyConstraint creates a foreign key violation.
func NewForeignKeyConstraint(opts ForeignKeyConstraintOptions) *Error {
	e := New(KindForeignKeyConstraint, opts.Message)
	e.Fields = nonNil(opts.Fields)
	e.Table = opts.Table
	e.Value = opts.Value
	e.Index = opts.Index
	e.Parent = opts.Parent
	return e
}

// ExclusionConstraintOptions configures NewExclusionConstraint.
type ExclusionConstraintOptions struct {
	Message    string
	Fields     []string
	Table      string
	Constraint string
	Parent     error
}

// NewExclusionConstraint creates an exclusion constraint violation.
func NewExclusionConstraint(opts ExclusionConstraintOptions) *Error {
	e := New(KindExclusionConstraint, opts.Message)
	e.Fields = nonNil(opts.Fields)
	e.Table = opts.Table
	e.Constraint = opts.Constraint
	e.Parent = opts.Parent
	return e
}

// NewConnection creates an error from the connection family. kind must be
// KindConnection or one of its descendants.
func NewConnection(kind Kind, parent error) (*Error, error) {
	if !IsA(kind, KindConnection) {
		return nil, fmt.Errorf("kind %s is not a connection error", Key(kind))
	}
	e := New(kind, "")
	if parent != nil {
		e.Message = parent.Error()
	}
	e.Parent = parent
	return e, nil
}

// NewInstance creates an instance error.
func NewInstance(message string) *Error {
	return New(KindInstance, message)
}

// IsKind reports whether err (or anything it wraps) is an *Error of kind or a
// descendant of kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return IsA(e.Kind, kind)
	}
	return false
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return IsKind(err, KindValidation)
}

// IsDatabase reports whether err is a database error.
func IsDatabase(err error) bool {
	return IsKind(err, KindDatabase)
}

// IsConnection reports whether err belongs to the connection family.
func IsConnection(err error) bool {
	return IsKind(err, KindConnection)
}

// NameOf returns the ORM-compatible name of err, or "Error" for foreign errors.
func NameOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Name()
	}
	return "Error"
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
