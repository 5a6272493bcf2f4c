package engine

import (
	"github.com/google/uuid"

	"github.com/maya-framework/dip/internal/logger"
)

// Database is the single object that ties together the revision clock, the
// memo store, the query registry, the active-query stack, and an optional
// event sink. All reads funnel through the read/validate/recompute
// procedure below.
//
// Database is not safe for concurrent use. It expects exactly one logical
// actor, and no internal locking is added to pretend otherwise.
type Database struct {
	id uuid.UUID

	registry *Registry
	storage  map[Slot]Memo
	revision Revision
	stack    activeQueryStack

	sink Sink
}

// Option configures a Database at construction time.
type Option func(*Database)

// WithEventSink installs sink as the Database's event observer. The
// default, if this option is not supplied, is NopSink.
func WithEventSink(sink Sink) Option {
	return func(db *Database) { db.sink = sink }
}

// New constructs a Database. inputIDs and the keys of queryFunctions must
// be disjoint; violating that is a programmer error and New panics, since
// it is detected once at startup wiring time, not at query time.
func New(inputIDs []QueryID, queryFunctions map[QueryID]QueryFunc, opts ...Option) *Database {
	db := &Database{
		id:       uuid.New(),
		registry: newRegistry(inputIDs, queryFunctions),
		storage:  make(map[Slot]Memo),
		revision: 0,
		sink:     NopSink,
	}
	for _, opt := range opts {
		opt(db)
	}
	logger.Debug(logger.TagEngine, "database %s constructed: %d input ids, %d derived queries",
		db.id, len(inputIDs), len(queryFunctions))
	return db
}

// Set assigns the user-provided value for an input query, advancing the
// revision clock by exactly one.
func (db *Database) Set(id QueryID, key IntoKey, value Value) error {
	if !db.registry.isRegistered(id) {
		return newError(KindUnknownQuery, id, Void, "%q is not a registered query", id)
	}
	if !db.registry.isInput(id) {
		return newError(KindMisuseSet, id, Void, "%q is a derived query, not an input", id)
	}

	slot := newSlot(id, key)

	// As all query functions are pure, the only way for database state to
	// change is in response to this call. Each set bumps the revision,
	// even when the value is unchanged.
	db.revision++

	db.sink.Handle(Set(slot, value, db.revision))

	existing, had := db.readMemo(slot)

	// Input-level early cutoff: if the new value equals the existing
	// value, retain the prior ChangedAt instead of advancing it.
	changedAt := db.revision
	if had && existing.Value == value {
		changedAt = existing.ChangedAt
	}

	memo := Memo{
		Value:        value,
		VerifiedAt:   db.revision,
		ChangedAt:    changedAt,
		Dependencies: newDependencySet(), // input slots never have dependencies
	}
	db.storeMemo(slot, memo)
	return nil
}

// Get computes or looks up the value for a query. It is used for both
// input and derived queries.
func (db *Database) Get(id QueryID, key IntoKey) (Value, error) {
	if !db.registry.isRegistered(id) {
		return 0, newError(KindUnknownQuery, id, Void, "%q is not a registered query", id)
	}
	v, _, err := db.getWithTimestamp(newSlot(id, key))
	return v, err
}

// getWithTimestamp is the internal read path used both for top-level Get
// calls and for a derived query's recursive reads of its own dependencies.
// It records the slot as a dependency of whatever query is currently
// active, then pushes a fresh accumulator for the slot's own evaluation.
func (db *Database) getWithTimestamp(slot Slot) (Value, Revision, error) {
	db.sink.Handle(Get(slot))

	if db.stack.contains(slot) {
		return 0, 0, newError(KindCycle, slot.ID, slot.Key,
			"query %s is already being evaluated (cyclic dependency)", slot)
	}

	db.stack.recordDependency(slot)

	db.stack.push(slot)
	db.sink.Handle(PushActiveQuery(slot))

	// read is a separate method only so that the pop below runs on every
	// return path out of it.
	value, changedAt, err := db.read(slot)

	db.stack.pop()
	db.sink.Handle(PopActiveQuery(slot))

	if err != nil {
		return 0, 0, err
	}
	return value, changedAt, nil
}

// read decides between the memoized fast path, a dependency revalidation,
// and a full recomputation.
func (db *Database) read(slot Slot) (Value, Revision, error) {
	memo, had := db.readMemo(slot)

	if db.registry.isInput(slot.ID) {
		if !had {
			return 0, 0, newError(KindUninitializedInput, slot.ID, slot.Key,
				"input %s was read before being set", slot)
		}
		db.sink.Handle(MemoForInputQuery(slot))

		// Lazily refresh VerifiedAt so hasChangedSince never needs a
		// special case for inputs. Input memos cannot be invalidated by
		// other queries, so this is bookkeeping, not validation.
		if memo.VerifiedAt != db.revision {
			memo = memo.withVerifiedAt(db.revision)
			db.storeMemo(slot, memo)
		}
		return memo.Value, memo.ChangedAt, nil
	}

	if had {
		if memo.VerifiedAt == db.revision {
			db.sink.Handle(MemoVerifiedAtCurrentRevision(slot))
			return memo.Value, memo.ChangedAt, nil
		}

		db.sink.Handle(StartedInputChecks(slot, memo.VerifiedAt))
		anyChanged := false
		for dep := range memo.Dependencies {
			changed, err := db.hasChangedSince(dep, memo.VerifiedAt)
			if err != nil {
				return 0, 0, err
			}
			if changed {
				anyChanged = true
				break // any/short-circuit, order is implementation-defined
			}
		}
		db.sink.Handle(CompletedInputChecks(slot, anyChanged))

		if !anyChanged {
			memo = memo.withVerifiedAt(db.revision)
			db.storeMemo(slot, memo)
			return memo.Value, memo.ChangedAt, nil
		}
	}

	// The dependency checks above may have recorded reads on this slot's
	// accumulator; recomputation must capture exactly the slots the query
	// function reads on this run, so it starts from an empty frame. A
	// branch not taken this time therefore drops out of the stored set.
	db.stack.resetTop()

	newValue, err := db.runQueryFunction(slot)
	if err != nil {
		return 0, 0, err
	}

	if had {
		db.sink.Handle(ValueComparison(slot, memo.Value, newValue, db.revision))
	}

	changedAt := db.revision
	if had && memo.Value == newValue {
		changedAt = memo.ChangedAt
	}

	newMemo := Memo{
		Value:        newValue,
		VerifiedAt:   db.revision,
		ChangedAt:    changedAt,
		Dependencies: db.stack.frames[len(db.stack.frames)-1].clone(),
	}
	db.storeMemo(slot, newMemo)
	return newValue, changedAt, nil
}

// hasChangedSince reports whether slot's value has changed since revision.
func (db *Database) hasChangedSince(slot Slot, revision Revision) (bool, error) {
	memo, had := db.storage[slot]
	if !had {
		return false, newError(KindMissingDependency, slot.ID, slot.Key,
			"slot %s was recorded as a dependency but has no stored memo", slot)
	}

	var changedAt Revision
	if memo.VerifiedAt == db.revision {
		changedAt = memo.ChangedAt
	} else {
		_, ca, err := db.getWithTimestamp(slot)
		if err != nil {
			return false, err
		}
		changedAt = ca
	}

	db.sink.Handle(ChangedAt(slot, changedAt))
	return changedAt > revision, nil
}

// runQueryFunction looks up and invokes the registered function for
// slot.ID, which may recursively drive further Get calls whose
// dependencies accumulate on the top of the active-query stack.
func (db *Database) runQueryFunction(slot Slot) (Value, error) {
	fn, ok := db.registry.queryFunc(slot.ID)
	if !ok {
		return 0, newError(KindUnknownQuery, slot.ID, slot.Key, "no query function registered for %q", slot.ID)
	}

	db.sink.Handle(StartedQueryEvaluation(slot))
	value, err := fn(db, slot.Key)
	if err != nil {
		return 0, err
	}
	db.sink.Handle(CompletedQueryEvaluation(slot))
	return value, nil
}

func (db *Database) storeMemo(slot Slot, memo Memo) {
	old, had := db.storage[slot]
	db.storage[slot] = memo
	if had {
		db.sink.Handle(StoreMemo(slot, &old, &memo))
	} else {
		db.sink.Handle(StoreMemo(slot, nil, &memo))
	}
}

func (db *Database) readMemo(slot Slot) (Memo, bool) {
	memo, ok := db.storage[slot]
	if ok {
		db.sink.Handle(ReadMemo(slot, &memo))
	} else {
		db.sink.Handle(ReadMemo(slot, nil))
	}
	return memo, ok
}

// Revision returns the database's current revision.
func (db *Database) Revision() Revision { return db.revision }

// ID returns the database instance's unique id, used to correlate log
// lines across multiple Database instances in one process.
func (db *Database) ID() uuid.UUID { return db.id }

// Slots returns every slot currently memoized, a point-in-time snapshot
// used by DependencyGraph (internal/depgraph) and by tests.
func (db *Database) Slots() []Slot {
	out := make([]Slot, 0, len(db.storage))
	for s := range db.storage {
		out = append(out, s)
	}
	return out
}

// MemoAt returns the currently stored memo for slot, if any. Exposed for
// introspection tooling (internal/depgraph) and tests; evaluation itself
// never needs a public accessor since it always goes through read/get.
func (db *Database) MemoAt(slot Slot) (Memo, bool) {
	m, ok := db.storage[slot]
	return m, ok
}
