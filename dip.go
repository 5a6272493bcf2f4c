// Package dip is a minimal demand-driven incremental computation engine:
// it memoizes the outputs of registered pure query functions, records the
// dependencies between them as they run, and re-uses cached results until
// an input they (transitively) depend on actually changes value.
//
// The implementation lives in internal/engine; this package re-exports the
// public surface so applications import only the module root.
package dip

import (
	"io"

	"github.com/maya-framework/dip/internal/engine"
	"github.com/maya-framework/dip/internal/events"
)

// Core types.
type (
	// Database ties together the revision clock, the memo store, the query
	// registry, the active-query stack, and an optional event sink.
	Database = engine.Database

	// Value is the scalar domain every query output belongs to.
	Value = engine.Value

	// Key is the tagged { Void, Int(int32) } query argument.
	Key = engine.Key

	// IntoKey is anything coercible to a Key: NoKey, an IntKey, or a Key
	// itself.
	IntoKey = engine.IntoKey

	// QueryID identifies one logical query.
	QueryID = engine.QueryID

	// QueryFunc computes a derived query's value, recursively calling
	// Database.Get for its dependencies.
	QueryFunc = engine.QueryFunc

	// Revision is the database's monotonically increasing clock.
	Revision = engine.Revision

	// Memo is the cached record for one slot, exposed for introspection.
	Memo = engine.Memo

	// Slot is the cache identity (query id, key).
	Slot = engine.Slot

	// Option configures a Database at construction.
	Option = engine.Option

	// Event and Sink form the write-only tracing surface.
	Event     = engine.Event
	EventKind = engine.EventKind
	Sink      = engine.Sink

	// Error is the concrete type behind every engine error.
	Error = engine.Error
)

// New constructs a Database from the input query ids and the derived query
// functions. The two sets must be disjoint.
func New(inputIDs []QueryID, queryFunctions map[QueryID]QueryFunc, opts ...Option) *Database {
	return engine.New(inputIDs, queryFunctions, opts...)
}

// WithEventSink installs an event observer on the constructed Database.
func WithEventSink(sink Sink) Option {
	return engine.WithEventSink(sink)
}

// Key constructors.
var (
	// NoKey is the argument for queries with no logical key.
	NoKey = engine.NoKey

	// Void is the canonical no-argument Key value.
	Void = engine.Void
)

// Int builds an Int key from i.
func Int(i int32) Key { return engine.Int(i) }

// IntKey adapts a plain int32 into an IntoKey.
type IntKey = engine.IntKey

// Sinks.

// NopSink discards every event; it is the default sink.
var NopSink = engine.NopSink

// NewConsoleSink returns a sink writing an indented evaluation trace to w
// (os.Stdout if nil).
func NewConsoleSink(w io.Writer) Sink {
	return events.NewConsoleSink(w)
}

// NewRecordingSink returns a sink that appends every event to a slice.
func NewRecordingSink() *events.RecordingSink {
	return events.NewRecordingSink()
}

// Errors, for errors.Is tests against a specific failure kind.
var (
	ErrUnknownQuery       = engine.ErrUnknownQuery
	ErrMisuseSet          = engine.ErrMisuseSet
	ErrUninitializedInput = engine.ErrUninitializedInput
	ErrMissingDependency  = engine.ErrMissingDependency
	ErrCycle              = engine.ErrCycle
)
