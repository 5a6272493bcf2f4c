package engine_test

import (
	"errors"
	"testing"

	"github.com/maya-framework/dip/internal/engine"
	"github.com/maya-framework/dip/internal/events"
)

// The fee fixture from the walkthrough: inputs base, discount, limit and
// derived queries
//
//	one(a) = if a <= limit { base - discount } else { base }
//	two(a) = one(a) + one(a+1)
func newFeeDB(opts ...engine.Option) *engine.Database {
	one := func(db *engine.Database, key engine.Key) (engine.Value, error) {
		a := key.IntValue()
		limit, err := db.Get("limit", engine.NoKey)
		if err != nil {
			return 0, err
		}
		if a <= limit {
			base, err := db.Get("base", engine.NoKey)
			if err != nil {
				return 0, err
			}
			discount, err := db.Get("discount", engine.NoKey)
			if err != nil {
				return 0, err
			}
			return base - discount, nil
		}
		return db.Get("base", engine.NoKey)
	}

	two := func(db *engine.Database, key engine.Key) (engine.Value, error) {
		a := key.IntValue()
		this, err := db.Get("one", engine.IntKey(a))
		if err != nil {
			return 0, err
		}
		next, err := db.Get("one", engine.IntKey(a+1))
		if err != nil {
			return 0, err
		}
		return this + next, nil
	}

	return engine.New(
		[]engine.QueryID{"base", "discount", "limit"},
		map[engine.QueryID]engine.QueryFunc{"one": one, "two": two},
		opts...,
	)
}

func mustSet(t *testing.T, db *engine.Database, id engine.QueryID, value engine.Value) {
	t.Helper()
	if err := db.Set(id, engine.NoKey, value); err != nil {
		t.Fatalf("Set(%s) failed: %v", id, err)
	}
}

func mustGet(t *testing.T, db *engine.Database, id engine.QueryID, key engine.IntoKey) engine.Value {
	t.Helper()
	v, err := db.Get(id, key)
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", id, err)
	}
	return v
}

func memoAt(t *testing.T, db *engine.Database, id engine.QueryID, key engine.Key) engine.Memo {
	t.Helper()
	m, ok := db.MemoAt(engine.Slot{ID: id, Key: key})
	if !ok {
		t.Fatalf("no memo stored for %s(%s)", id, key)
	}
	return m
}

// checkInvariants asserts the timing and dependency invariants over every
// stored memo: changedAt <= verifiedAt <= revision, and no dangling
// dependency edges.
func checkInvariants(t *testing.T, db *engine.Database) {
	t.Helper()
	for _, slot := range db.Slots() {
		m, ok := db.MemoAt(slot)
		if !ok {
			t.Fatalf("Slots() returned %s but MemoAt found nothing", slot)
		}
		if m.ChangedAt > m.VerifiedAt {
			t.Errorf("%s: changedAt %d > verifiedAt %d", slot, m.ChangedAt, m.VerifiedAt)
		}
		if m.VerifiedAt > db.Revision() {
			t.Errorf("%s: verifiedAt %d > revision %d", slot, m.VerifiedAt, db.Revision())
		}
		for dep := range m.Dependencies {
			if _, ok := db.MemoAt(dep); !ok {
				t.Errorf("%s: dependency %s has no stored memo", slot, dep)
			}
		}
	}
}

func TestWalkthroughScenarios(t *testing.T) {
	sink := events.NewRecordingSink()
	db := newFeeDB(engine.WithEventSink(sink))

	// Scenario 1: first evaluation, full computation.
	mustSet(t, db, "base", 100)
	mustSet(t, db, "discount", 30)
	mustSet(t, db, "limit", 16)

	if v := mustGet(t, db, "one", engine.IntKey(16)); v != 70 {
		t.Fatalf("one(16) = %d, want 70", v)
	}
	if v := mustGet(t, db, "one", engine.IntKey(17)); v != 100 {
		t.Fatalf("one(17) = %d, want 100", v)
	}
	if v := mustGet(t, db, "two", engine.IntKey(17)); v != 200 {
		t.Fatalf("two(17) = %d, want 200", v)
	}

	wantSlots := []engine.Slot{
		{ID: "base", Key: engine.Void},
		{ID: "discount", Key: engine.Void},
		{ID: "limit", Key: engine.Void},
		{ID: "one", Key: engine.Int(16)},
		{ID: "one", Key: engine.Int(17)},
		{ID: "one", Key: engine.Int(18)},
		{ID: "two", Key: engine.Int(17)},
	}
	if got := len(db.Slots()); got != len(wantSlots) {
		t.Errorf("memoized %d slots, want %d", got, len(wantSlots))
	}
	for _, slot := range wantSlots {
		if _, ok := db.MemoAt(slot); !ok {
			t.Errorf("expected a memo for %s", slot)
		}
	}
	checkInvariants(t, db)

	one17Before := memoAt(t, db, "one", engine.Int(17))

	// Scenario 2: output-level cutoff. Raising the discount changes
	// nothing for a 17 year old, so changedAt must not advance and
	// two(17) must not be recomputed.
	mustSet(t, db, "discount", 40)

	if v := mustGet(t, db, "one", engine.IntKey(17)); v != 100 {
		t.Fatalf("one(17) after discount change = %d, want 100", v)
	}
	one17After := memoAt(t, db, "one", engine.Int(17))
	if one17After.ChangedAt != one17Before.ChangedAt {
		t.Errorf("one(17).changedAt advanced from %d to %d despite unchanged value",
			one17Before.ChangedAt, one17After.ChangedAt)
	}
	if one17After.VerifiedAt != db.Revision() {
		t.Errorf("one(17).verifiedAt = %d, want current revision %d", one17After.VerifiedAt, db.Revision())
	}

	if v := mustGet(t, db, "one", engine.IntKey(16)); v != 60 {
		t.Fatalf("one(16) after discount change = %d, want 60", v)
	}
	if m := memoAt(t, db, "one", engine.Int(16)); m.ChangedAt != db.Revision() {
		t.Errorf("one(16).changedAt = %d, want %d (value changed)", m.ChangedAt, db.Revision())
	}

	sink.Reset()
	if v := mustGet(t, db, "two", engine.IntKey(17)); v != 200 {
		t.Fatalf("two(17) after discount change = %d, want 200", v)
	}
	for _, e := range sink.Events {
		if e.Kind == engine.EventStartedQueryEvaluation && e.Slot.ID == "two" {
			t.Error("two(17) was recomputed even though no dependency changed value")
		}
	}
	checkInvariants(t, db)

	// Scenario 3: propagation across the guard. Raising the age limit to
	// 17 changes one(17), leaves one(18) alone, and forces two(17) to
	// recompute.
	mustSet(t, db, "limit", 17)

	one18Before := memoAt(t, db, "one", engine.Int(18))
	if v := mustGet(t, db, "two", engine.IntKey(17)); v != 160 {
		t.Fatalf("two(17) after limit change = %d, want 160", v)
	}
	if m := memoAt(t, db, "one", engine.Int(17)); m.ChangedAt != db.Revision() {
		t.Errorf("one(17).changedAt = %d, want %d", m.ChangedAt, db.Revision())
	}
	if m := memoAt(t, db, "one", engine.Int(18)); m.ChangedAt != one18Before.ChangedAt {
		t.Errorf("one(18).changedAt advanced to %d despite unchanged value", m.ChangedAt)
	}
	if v := mustGet(t, db, "one", engine.IntKey(16)); v != 60 {
		t.Fatalf("one(16) after limit change = %d, want 60", v)
	}
	checkInvariants(t, db)

	// Scenario 4: a no-op set bumps the revision but revalidation
	// restores verifiedAt without running any query function.
	revBefore := db.Revision()
	mustSet(t, db, "base", 100)
	if db.Revision() != revBefore+1 {
		t.Fatalf("no-op Set did not bump revision: %d -> %d", revBefore, db.Revision())
	}
	if m := memoAt(t, db, "base", engine.Void); m.ChangedAt == db.Revision() {
		t.Error("no-op Set advanced base.changedAt")
	}

	sink.Reset()
	if v := mustGet(t, db, "one", engine.IntKey(16)); v != 60 {
		t.Fatalf("one(16) after no-op set = %d, want 60", v)
	}
	if n := sink.CountKind(engine.EventStartedQueryEvaluation); n != 0 {
		t.Errorf("no-op set triggered %d query evaluations, want 0", n)
	}
	if m := memoAt(t, db, "one", engine.Int(16)); m.VerifiedAt != db.Revision() {
		t.Errorf("one(16).verifiedAt = %d, want %d after revalidation", m.VerifiedAt, db.Revision())
	}

	// Scenario 5: a second get in the same revision takes the
	// fresh-verification shortcut: no dependency walk, no evaluation.
	sink.Reset()
	if v := mustGet(t, db, "one", engine.IntKey(16)); v != 60 {
		t.Fatalf("one(16) on fast path = %d, want 60", v)
	}
	if n := sink.CountKind(engine.EventStartedQueryEvaluation); n != 0 {
		t.Errorf("fast path ran %d query evaluations, want 0", n)
	}
	if n := sink.CountKind(engine.EventStartedInputChecks); n != 0 {
		t.Errorf("fast path walked dependencies %d times, want 0", n)
	}
	checkInvariants(t, db)
}

func TestDependencyCaptureVariesByPath(t *testing.T) {
	// Scenario 6: with limit = 10, one(5) reads limit, base and discount.
	// After limit drops to 3 the discount branch is no longer taken, so
	// the stored dependency set shrinks and a later discount change no
	// longer invalidates one(5).
	sink := events.NewRecordingSink()
	db := newFeeDB(engine.WithEventSink(sink))
	mustSet(t, db, "base", 100)
	mustSet(t, db, "discount", 30)
	mustSet(t, db, "limit", 10)

	if v := mustGet(t, db, "one", engine.IntKey(5)); v != 70 {
		t.Fatalf("one(5) = %d, want 70", v)
	}
	m := memoAt(t, db, "one", engine.Int(5))
	if len(m.Dependencies) != 3 {
		t.Fatalf("one(5) has %d dependencies, want 3 (limit, base, discount)", len(m.Dependencies))
	}

	mustSet(t, db, "limit", 3)
	if v := mustGet(t, db, "one", engine.IntKey(5)); v != 100 {
		t.Fatalf("one(5) after limit change = %d, want 100", v)
	}
	m = memoAt(t, db, "one", engine.Int(5))
	if len(m.Dependencies) != 2 {
		t.Fatalf("one(5) has %d dependencies after branch change, want 2 (limit, base)", len(m.Dependencies))
	}
	if _, ok := m.Dependencies[engine.Slot{ID: "discount", Key: engine.Void}]; ok {
		t.Error("one(5) still records discount as a dependency after the branch stopped reading it")
	}

	// A discount-only change must now leave one(5) untouched.
	mustSet(t, db, "discount", 99)
	sink.Reset()
	if v := mustGet(t, db, "one", engine.IntKey(5)); v != 100 {
		t.Fatalf("one(5) after discount-only change = %d, want 100", v)
	}
	if n := sink.CountKind(engine.EventStartedQueryEvaluation); n != 0 {
		t.Errorf("discount-only change recomputed one(5): %d evaluations, want 0", n)
	}
	checkInvariants(t, db)
}

func TestInputEarlyCutoff(t *testing.T) {
	db := newFeeDB()
	mustSet(t, db, "base", 100)

	m := memoAt(t, db, "base", engine.Void)
	firstChangedAt := m.ChangedAt

	// Two same-value sets in a row: two revision bumps, one changedAt.
	mustSet(t, db, "base", 100)
	mustSet(t, db, "base", 100)
	if db.Revision() != 3 {
		t.Fatalf("revision = %d, want 3", db.Revision())
	}
	m = memoAt(t, db, "base", engine.Void)
	if m.ChangedAt != firstChangedAt {
		t.Errorf("changedAt advanced to %d on same-value sets, want %d", m.ChangedAt, firstChangedAt)
	}
	if m.VerifiedAt != 3 {
		t.Errorf("verifiedAt = %d, want 3", m.VerifiedAt)
	}

	mustSet(t, db, "base", 101)
	m = memoAt(t, db, "base", engine.Void)
	if m.ChangedAt != 4 {
		t.Errorf("changedAt = %d after a real change, want 4", m.ChangedAt)
	}
}

func TestRepeatedGetsAreStable(t *testing.T) {
	// Consecutive gets with no intervening set return equal values, keep
	// changedAt, and never decrease verifiedAt.
	db := newFeeDB()
	mustSet(t, db, "base", 100)
	mustSet(t, db, "discount", 30)
	mustSet(t, db, "limit", 16)

	first := mustGet(t, db, "two", engine.IntKey(17))
	m1 := memoAt(t, db, "two", engine.Int(17))
	second := mustGet(t, db, "two", engine.IntKey(17))
	m2 := memoAt(t, db, "two", engine.Int(17))

	if first != second {
		t.Errorf("consecutive gets disagree: %d then %d", first, second)
	}
	if m2.ChangedAt != m1.ChangedAt {
		t.Errorf("changedAt moved from %d to %d with no intervening set", m1.ChangedAt, m2.ChangedAt)
	}
	if m2.VerifiedAt < m1.VerifiedAt {
		t.Errorf("verifiedAt decreased from %d to %d", m1.VerifiedAt, m2.VerifiedAt)
	}
}

func TestConstantDerivedQuery(t *testing.T) {
	// A derived query with an empty dependency set is always valid once
	// verified and revalidates trivially on revision change.
	fortyTwo := func(db *engine.Database, key engine.Key) (engine.Value, error) {
		return 42, nil
	}
	db := engine.New(
		[]engine.QueryID{"in"},
		map[engine.QueryID]engine.QueryFunc{"const": fortyTwo},
	)

	if v := mustGet(t, db, "const", engine.NoKey); v != 42 {
		t.Fatalf("const() = %d, want 42", v)
	}
	m := memoAt(t, db, "const", engine.Void)
	if len(m.Dependencies) != 0 {
		t.Fatalf("const() recorded %d dependencies, want 0", len(m.Dependencies))
	}

	sink := events.NewRecordingSink()
	db2 := engine.New(
		[]engine.QueryID{"in"},
		map[engine.QueryID]engine.QueryFunc{"const": fortyTwo},
		engine.WithEventSink(sink),
	)
	mustGet(t, db2, "const", engine.NoKey)
	if err := db2.Set("in", engine.NoKey, 1); err != nil {
		t.Fatal(err)
	}

	sink.Reset()
	if v := mustGet(t, db2, "const", engine.NoKey); v != 42 {
		t.Fatalf("const() after revision bump = %d, want 42", v)
	}
	if n := sink.CountKind(engine.EventStartedQueryEvaluation); n != 0 {
		t.Errorf("constant query re-ran %d times on revision change, want 0", n)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	t.Run("unknown_query", func(t *testing.T) {
		db := newFeeDB()
		if _, err := db.Get("no_such_query", engine.NoKey); !errors.Is(err, engine.ErrUnknownQuery) {
			t.Errorf("Get on unknown id: got %v, want ErrUnknownQuery", err)
		}
		if err := db.Set("no_such_query", engine.NoKey, 1); !errors.Is(err, engine.ErrUnknownQuery) {
			t.Errorf("Set on unknown id: got %v, want ErrUnknownQuery", err)
		}
	})

	t.Run("misuse_set", func(t *testing.T) {
		db := newFeeDB()
		if err := db.Set("one", engine.IntKey(5), 1); !errors.Is(err, engine.ErrMisuseSet) {
			t.Errorf("Set on derived id: got %v, want ErrMisuseSet", err)
		}
	})

	t.Run("uninitialized_input", func(t *testing.T) {
		db := newFeeDB()
		if _, err := db.Get("base", engine.NoKey); !errors.Is(err, engine.ErrUninitializedInput) {
			t.Errorf("Get on never-set input: got %v, want ErrUninitializedInput", err)
		}
		// A derived query that reads the missing input fails the same way.
		if _, err := db.Get("one", engine.IntKey(5)); !errors.Is(err, engine.ErrUninitializedInput) {
			t.Errorf("derived get over never-set input: got %v, want ErrUninitializedInput", err)
		}
	})

	t.Run("cycle", func(t *testing.T) {
		a := func(db *engine.Database, key engine.Key) (engine.Value, error) {
			return db.Get("b", engine.NoKey)
		}
		b := func(db *engine.Database, key engine.Key) (engine.Value, error) {
			return db.Get("a", engine.NoKey)
		}
		db := engine.New(nil, map[engine.QueryID]engine.QueryFunc{"a": a, "b": b})
		if _, err := db.Get("a", engine.NoKey); !errors.Is(err, engine.ErrCycle) {
			t.Errorf("mutually recursive queries: got %v, want ErrCycle", err)
		}
	})

	t.Run("self_cycle", func(t *testing.T) {
		self := func(db *engine.Database, key engine.Key) (engine.Value, error) {
			return db.Get("self", engine.NoKey)
		}
		db := engine.New(nil, map[engine.QueryID]engine.QueryFunc{"self": self})
		if _, err := db.Get("self", engine.NoKey); !errors.Is(err, engine.ErrCycle) {
			t.Errorf("self-recursive query: got %v, want ErrCycle", err)
		}
	})

	t.Run("double_registration_panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("registering an id as both input and derived did not panic")
			}
		}()
		engine.New(
			[]engine.QueryID{"x"},
			map[engine.QueryID]engine.QueryFunc{
				"x": func(db *engine.Database, key engine.Key) (engine.Value, error) { return 0, nil },
			},
		)
	})
}

func TestFailedGetLeavesNoPartialMemo(t *testing.T) {
	// A derived query whose evaluation fails must not leave a memo behind.
	db := newFeeDB()
	mustSet(t, db, "base", 100)
	// limit and discount never set: one(5) reads limit first and fails.
	if _, err := db.Get("one", engine.IntKey(5)); err == nil {
		t.Fatal("expected failure reading an unset input")
	}
	if _, ok := db.MemoAt(engine.Slot{ID: "one", Key: engine.Int(5)}); ok {
		t.Error("failed evaluation left a half-written memo for one(5)")
	}
}

func TestKeyCoercions(t *testing.T) {
	if engine.Int(7).Kind() != engine.KeyInt {
		t.Error("Int(7) should have kind KeyInt")
	}
	if engine.Int(7).IntValue() != 7 {
		t.Error("Int(7).IntValue() should be 7")
	}
	if engine.Void.Kind() != engine.KeyVoid {
		t.Error("Void should have kind KeyVoid")
	}
	if engine.Int(7) != engine.Int(7) {
		t.Error("equal Int keys should compare equal")
	}
	if engine.Int(7) == engine.Int(8) {
		t.Error("distinct Int keys should compare unequal")
	}

	t.Run("int_value_on_void_panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("Void.IntValue() did not panic")
			}
		}()
		_ = engine.Void.IntValue()
	})

	t.Run("strings", func(t *testing.T) {
		s := engine.Slot{ID: "one", Key: engine.Int(17)}
		if s.String() != "one(17)" {
			t.Errorf("Slot string = %q, want %q", s.String(), "one(17)")
		}
		v := engine.Slot{ID: "base", Key: engine.Void}
		if v.String() != "base()" {
			t.Errorf("Slot string = %q, want %q", v.String(), "base()")
		}
	})
}

func TestDependencyGraphSnapshot(t *testing.T) {
	db := newFeeDB()
	mustSet(t, db, "base", 100)
	mustSet(t, db, "discount", 30)
	mustSet(t, db, "limit", 16)
	mustGet(t, db, "two", engine.IntKey(17))

	g, err := db.DependencyGraph()
	if err != nil {
		t.Fatalf("DependencyGraph failed: %v", err)
	}
	if !g.IsDAG() {
		t.Error("dependency snapshot should be acyclic")
	}
	if g.NodeCount() != len(db.Slots()) {
		t.Errorf("graph has %d nodes, want %d", g.NodeCount(), len(db.Slots()))
	}

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort failed: %v", err)
	}
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[string(id)] = i
	}
	// Inputs come before the queries that read them.
	if pos["limit()"] > pos["one(17)"] {
		t.Error("limit() should sort before one(17)")
	}
	if pos["one(17)"] > pos["two(17)"] {
		t.Error("one(17) should sort before two(17)")
	}

	deps := g.GetDependencies("two(17)")
	if len(deps) != 2 {
		t.Errorf("two(17) has %d graph dependencies, want 2", len(deps))
	}
	dependents := g.GetDependents("limit()")
	if len(dependents) == 0 {
		t.Error("limit() should have dependents in the graph")
	}
}
