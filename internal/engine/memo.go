package engine

// Revision is the database's monotonically increasing clock. It is bumped
// exactly once per successful Set.
type Revision uint64

// DependencySet is an unordered set of slots read during the computation
// that produced a Memo's value.
type DependencySet map[Slot]struct{}

func newDependencySet() DependencySet {
	return make(DependencySet)
}

func (d DependencySet) add(s Slot) {
	d[s] = struct{}{}
}

func (d DependencySet) clone() DependencySet {
	out := make(DependencySet, len(d))
	for s := range d {
		out[s] = struct{}{}
	}
	return out
}

// Memo is the cached record for one slot.
//
// Invariant: ChangedAt <= VerifiedAt <= the database's current revision,
// for every Memo ever stored.
type Memo struct {
	// Value is the last computed output for this slot.
	Value Value
	// VerifiedAt is the revision at which this memo was most recently
	// confirmed consistent with its dependencies.
	VerifiedAt Revision
	// ChangedAt is the revision at which Value most recently differed from
	// what was previously stored for this slot. This is what early cutoff
	// is built on: a downstream memo can be reused if none of its
	// dependencies' ChangedAt exceeds the downstream's VerifiedAt.
	ChangedAt Revision
	// Dependencies is the set of slots read while computing Value. Always
	// empty for an input slot.
	Dependencies DependencySet
}

// withVerifiedAt returns a copy of m with VerifiedAt replaced. The memo
// store only changes by whole-record replacement; callers never mutate a
// stored Memo in place.
func (m Memo) withVerifiedAt(r Revision) Memo {
	m.VerifiedAt = r
	return m
}
