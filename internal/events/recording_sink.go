// Package events holds concrete implementations of engine.Sink. It imports
// internal/engine one-directionally; the event vocabulary itself lives in
// engine.Event/engine.Sink so that database.go can emit without an import
// cycle.
package events

import "github.com/maya-framework/dip/internal/engine"

// RecordingSink accumulates every event it receives, in order, for
// assertions in tests that want to check the exact shape of an evaluation.
type RecordingSink struct {
	Events []engine.Event
}

// NewRecordingSink returns an empty RecordingSink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

func (s *RecordingSink) Handle(e engine.Event) {
	s.Events = append(s.Events, e)
}

// Reset discards all recorded events, for reuse across sub-tests.
func (s *RecordingSink) Reset() {
	s.Events = s.Events[:0]
}

// CountKind returns how many recorded events have the given kind.
func (s *RecordingSink) CountKind(kind engine.EventKind) int {
	n := 0
	for _, e := range s.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
