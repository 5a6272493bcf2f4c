package engine

import "fmt"

// Kind enumerates the ways a caller (or the engine itself) can misuse the
// database. Every Kind is fatal to the calling operation; there are no
// recoverable errors in this taxonomy.
type Kind int

const (
	// KindUnknownQuery: Get or Set with an identifier not present in the
	// registry.
	KindUnknownQuery Kind = iota
	// KindMisuseSet: Set applied to a derived (non-input) id.
	KindMisuseSet
	// KindUninitializedInput: Get on an input slot that has never been Set.
	KindUninitializedInput
	// KindMissingDependency: a recorded dependency slot has no stored memo.
	// Indicates an engine-internal invariant breach, since the memo store
	// never shrinks.
	KindMissingDependency
	// KindCycle: re-entering a slot already on the active-query stack.
	KindCycle
)

func (k Kind) String() string {
	switch k {
	case KindUnknownQuery:
		return "unknown-query"
	case KindMisuseSet:
		return "misuse-set"
	case KindUninitializedInput:
		return "uninitialized-input"
	case KindMissingDependency:
		return "missing-dependency"
	case KindCycle:
		return "cycle"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned for every Kind above. Callers
// can test for a specific kind with errors.As and inspecting Kind, or with
// errors.Is against one of the sentinel values below.
type Error struct {
	Kind  Kind
	Query QueryID
	Key   Key
	msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("dip: %s: %s", e.Kind, e.msg)
}

// Is supports errors.Is(err, ErrCycle) and friends by comparing Kind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func newError(kind Kind, query QueryID, key Key, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Query: query, Key: key, msg: fmt.Sprintf(format, args...)}
}

// Sentinel values for errors.Is comparisons against a Kind, ignoring the
// offending query/key.
var (
	ErrUnknownQuery       = &Error{Kind: KindUnknownQuery}
	ErrMisuseSet          = &Error{Kind: KindMisuseSet}
	ErrUninitializedInput = &Error{Kind: KindUninitializedInput}
	ErrMissingDependency  = &Error{Kind: KindMissingDependency}
	ErrCycle              = &Error{Kind: KindCycle}
)
