package engine

import "fmt"

// Value is the single fixed scalar domain every query output belongs to.
type Value = int32

// QueryID is an interned, immutable identifier for a query, unique per
// logical query.
type QueryID = string

// KeyKind distinguishes the variants of the fixed Key domain.
type KeyKind int

const (
	// KeyVoid represents "no key", for queries that take no logical input.
	KeyVoid KeyKind = iota
	// KeyInt wraps a single int32 argument.
	KeyInt
)

// Key is a tagged value drawn from the small fixed variant set
// { Void, Int(int32) }. Keys are hashable and value-equal, which Go's
// comparable struct gives us for free as a map key.
type Key struct {
	kind KeyKind
	i    int32
}

// Void is the canonical no-argument key.
var Void = Key{kind: KeyVoid}

// Int builds an Int(i) key.
func Int(i int32) Key {
	return Key{kind: KeyInt, i: i}
}

// Kind reports which variant this Key holds.
func (k Key) Kind() KeyKind { return k.kind }

// IntValue returns the wrapped integer. It panics if Kind() != KeyInt; a
// key-type mismatch is a programmer error, not a recoverable condition.
func (k Key) IntValue() int32 {
	if k.kind != KeyInt {
		panic("dip: Key is not an Int key")
	}
	return k.i
}

func (k Key) String() string {
	switch k.kind {
	case KeyVoid:
		return "()"
	case KeyInt:
		return fmt.Sprintf("%d", k.i)
	default:
		return "<invalid key>"
	}
}

// IntoKey is implemented by anything that can be coerced into a Key:
// NoKey for "no argument", IntKey for an integer argument, or a Key
// itself.
type IntoKey interface {
	intoKey() Key
}

// noKey lets callers write db.Get(id, engine.NoKey) for queries that take
// no logical key.
type noKey struct{}

func (noKey) intoKey() Key { return Void }

// NoKey is the IntoKey value for queries with no logical key.
var NoKey IntoKey = noKey{}

// IntKey adapts a plain int32 into an IntoKey.
type IntKey int32

func (k IntKey) intoKey() Key { return Int(int32(k)) }

func (k Key) intoKey() Key { return k }
