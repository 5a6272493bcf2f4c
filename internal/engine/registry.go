package engine

// QueryFunc is a derived query's computation: a pure function of the
// database and a key that may recursively call back into Database.Get to
// read its own dependencies. An error from a nested Get should be returned
// unchanged so it propagates to the outermost caller.
type QueryFunc func(db *Database, key Key) (Value, error)

// Registry is the immutable mapping from query identifier to either an
// "input" marker or a derived computation function, built once at
// construction time and never mutated afterward.
type Registry struct {
	inputs  map[QueryID]struct{}
	derived map[QueryID]QueryFunc
}

// newRegistry builds a Registry, panicking if the caller's wiring is
// inconsistent (an id registered as both input and derived). A caller that
// gets this wrong has a bug in code that runs once at startup, not a
// runtime condition a library consumer should need to handle with an
// error return.
func newRegistry(inputIDs []QueryID, queryFunctions map[QueryID]QueryFunc) *Registry {
	r := &Registry{
		inputs:  make(map[QueryID]struct{}, len(inputIDs)),
		derived: make(map[QueryID]QueryFunc, len(queryFunctions)),
	}
	for _, id := range inputIDs {
		r.inputs[id] = struct{}{}
	}
	for id, fn := range queryFunctions {
		if _, clash := r.inputs[id]; clash {
			panic("dip: query id " + id + " registered as both an input and a derived query")
		}
		r.derived[id] = fn
	}
	return r
}

func (r *Registry) isInput(id QueryID) bool {
	_, ok := r.inputs[id]
	return ok
}

func (r *Registry) isRegistered(id QueryID) bool {
	if r.isInput(id) {
		return true
	}
	_, ok := r.derived[id]
	return ok
}

func (r *Registry) queryFunc(id QueryID) (QueryFunc, bool) {
	fn, ok := r.derived[id]
	return fn, ok
}
