package engine

// activeQueryStack is the stack of dependency accumulators used while
// (re)evaluating queries, one frame per slot currently being evaluated.
//
// Database is single-actor only, so the stack is simply owned by the
// Database value itself - no goroutine indirection, no locking.
type activeQueryStack struct {
	frames []DependencySet
	onTop  []Slot // the slot each frame was pushed for, for cycle detection
}

func (s *activeQueryStack) push(slot Slot) {
	s.frames = append(s.frames, newDependencySet())
	s.onTop = append(s.onTop, slot)
}

func (s *activeQueryStack) pop() DependencySet {
	n := len(s.frames)
	top := s.frames[n-1]
	s.frames = s.frames[:n-1]
	s.onTop = s.onTop[:n-1]
	return top
}

// resetTop replaces the top accumulator with a fresh empty set. Used just
// before recomputation: the dependency checks that led to the recompute may
// have recorded reads on this frame, and the query function must record its
// own reads from scratch so the stored set reflects exactly this
// evaluation's path.
func (s *activeQueryStack) resetTop() {
	s.frames[len(s.frames)-1] = newDependencySet()
}

// recordDependency registers slot as a dependency of whichever query is
// currently on top of the stack, if any.
func (s *activeQueryStack) recordDependency(slot Slot) {
	if n := len(s.frames); n > 0 {
		s.frames[n-1].add(slot)
	}
}

// contains reports whether slot is already being evaluated somewhere on
// the stack - re-entering it would be a dependency cycle.
func (s *activeQueryStack) contains(slot Slot) bool {
	for _, onTop := range s.onTop {
		if onTop == slot {
			return true
		}
	}
	return false
}

func (s *activeQueryStack) depth() int {
	return len(s.frames)
}
