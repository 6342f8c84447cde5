// Package ormock is an in-process test double for an ORM. It reproduces the call
// shape of a database object, its models, model instances and query results, so
// code under test runs without a database.
//
// Results come from a resolution chain per model: handlers, then a FIFO queue of
// canned outcomes, then the database's root scope, then a generated fallback.
//
//	db := ormock.New()
//	users := db.Define("user", map[string]any{"name": "ada"})
//	users.QueueResult(map[string]any{"name": "grace"})
//	u, err := users.FindOne(ctx, ormock.Query{})
package ormock

import (
	"github.com/roach88/ormock/internal/datatype"
	"github.com/roach88/ormock/internal/dberr"
	"github.com/roach88/ormock/internal/engine"
	"github.com/roach88/ormock/internal/inflect"
	"github.com/roach88/ormock/internal/mockdb"
	"github.com/roach88/ormock/internal/model"
	"github.com/roach88/ormock/internal/record"
)

type (
	DB        = mockdb.DB
	Option    = mockdb.Option
	Tx        = mockdb.Tx
	QueryType = mockdb.QueryType

	Model           = model.Model
	ModelOption     = model.Option
	Query           = model.Query
	CountResult     = model.CountResult
	Association     = model.Association
	AssociationKind = model.AssociationKind
	Target          = model.Target
	ConversionError = model.ConversionError

	Record = record.Record
	Method = record.Method

	Engine        = engine.Engine
	Result        = engine.Result
	Promise       = engine.Promise
	Handler       = engine.Handler
	Fallback      = engine.Fallback
	Request       = engine.Request
	Created       = engine.Created
	Affected      = engine.Affected
	QueueOption   = engine.QueueOption
	ClearOption   = engine.ClearOption
	Observer      = engine.Observer
	Resolution    = engine.Resolution
	Clear         = engine.Clear
	Strategy      = engine.Strategy
	RejectedValue = engine.RejectedValue

	Error                       = dberr.Error
	ErrorKind                   = dberr.Kind
	ValidationItem              = dberr.ValidationItem
	UniqueConstraintOptions     = dberr.UniqueConstraintOptions
	ForeignKeyConstraintOptions = dberr.ForeignKeyConstraintOptions
	ExclusionConstraintOptions  = dberr.ExclusionConstraintOptions

	DataType = datatype.Type
)

// Database construction.
var (
	New                   = mockdb.New
	WithDialect           = mockdb.WithDialect
	WithAutoQueryFallback = mockdb.WithAutoQueryFallback
	WithStopPropagation   = mockdb.WithStopPropagation
	WithLogger            = mockdb.WithLogger
	WithObserver          = mockdb.WithObserver
	WithClock             = mockdb.WithClock
	WithIDSource          = mockdb.WithIDSource
	WithNow               = mockdb.WithNow
	WithUUIDGenerator     = mockdb.WithUUIDGenerator
)

// Model options and association targets.
var (
	WithInstanceMethods    = model.WithInstanceMethods
	WithoutTimestamps      = model.WithoutTimestamps
	WithoutPrimaryKey      = model.WithoutPrimaryKey
	ModelAutoQueryFallback = model.WithAutoQueryFallback
	ModelStopPropagation   = model.WithStopPropagation
	WithCreatedDefault     = model.WithCreatedDefault
	Named                  = model.Named
	As                     = model.As
)

// Handler and fallback results.
var (
	Value      = engine.Value
	NoValue    = engine.NoValue
	Failure    = engine.Failure
	Pending    = engine.Pending
	NewPromise = engine.NewPromise
)

// Queue and clear options.
var (
	WasCreated       = engine.WasCreated
	WithAffectedRows = engine.WithAffectedRows
	KeepNonErrors    = engine.KeepNonErrors
	PropagateClear   = engine.PropagateClear
)

// Errors.
var (
	ErrEmptyResolution     = engine.ErrEmptyResolution
	ErrInvalidQueuedResult = engine.ErrInvalidQueuedResult
	IsEmptyResolution      = engine.IsEmptyResolution
	IsInvalidQueuedResult  = engine.IsInvalidQueuedResult

	ErrBase                 = dberr.ErrBase
	ErrValidation           = dberr.ErrValidation
	ErrDatabase             = dberr.ErrDatabase
	ErrTimeout              = dberr.ErrTimeout
	ErrUniqueConstraint     = dberr.ErrUniqueConstraint
	ErrForeignKeyConstraint = dberr.ErrForeignKeyConstraint
	ErrExclusionConstraint  = dberr.ErrExclusionConstraint
	ErrConnection           = dberr.ErrConnection
	ErrInstance             = dberr.ErrInstance

	NewError                = dberr.New
	NewValidationError      = dberr.NewValidation
	NewDatabaseError        = dberr.NewDatabase
	NewTimeoutError         = dberr.NewTimeout
	NewUniqueConstraint     = dberr.NewUniqueConstraint
	NewForeignKeyConstraint = dberr.NewForeignKeyConstraint
	NewExclusionConstraint  = dberr.NewExclusionConstraint
	NewConnectionError      = dberr.NewConnection
	NewInstanceError        = dberr.NewInstance
)

// Association kinds.
const (
	BelongsTo     = model.BelongsTo
	HasOne        = model.HasOne
	HasMany       = model.HasMany
	BelongsToMany = model.BelongsToMany
)

// Raw query types.
const (
	QueryTypeSelect      = mockdb.QueryTypeSelect
	QueryTypeInsert      = mockdb.QueryTypeInsert
	QueryTypeUpdate      = mockdb.QueryTypeUpdate
	QueryTypeBulkUpdate  = mockdb.QueryTypeBulkUpdate
	QueryTypeBulkDelete  = mockdb.QueryTypeBulkDelete
	QueryTypeDelete      = mockdb.QueryTypeDelete
	QueryTypeUpsert      = mockdb.QueryTypeUpsert
	QueryTypeVersion     = mockdb.QueryTypeVersion
	QueryTypeShowTables  = mockdb.QueryTypeShowTables
	QueryTypeShowIndexes = mockdb.QueryTypeShowIndexes
	QueryTypeDescribe    = mockdb.QueryTypeDescribe
	QueryTypeRaw         = mockdb.QueryTypeRaw
	QueryTypeForeignKeys = mockdb.QueryTypeForeignKeys
)

// Data types for model defaults.
var (
	STRING   = datatype.String
	CHAR     = datatype.Char
	DECIMAL  = datatype.Decimal
	ENUM     = datatype.Enum
	ARRAY    = datatype.ArrayOf
	TEXT     = datatype.TEXT
	INTEGER  = datatype.INTEGER
	BIGINT   = datatype.BIGINT
	FLOAT    = datatype.FLOAT
	DOUBLE   = datatype.DOUBLE
	BOOLEAN  = datatype.BOOLEAN
	DATE     = datatype.DATE
	DATEONLY = datatype.DATEONLY
	JSON     = datatype.JSON
	NOW      = datatype.NOW
	UUID     = datatype.UUID
	UUIDV1   = datatype.UUIDV1
	UUIDV4   = datatype.UUIDV4
)

// Naming helpers.
var (
	UppercaseFirst = inflect.UppercaseFirst
	LowercaseFirst = inflect.LowercaseFirst
	Singularize    = inflect.Singularize
	Pluralize      = inflect.Pluralize
)
