package events

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/maya-framework/dip/internal/engine"
)

const tab = "|  "

// ConsoleSink writes an indented trace of query evaluation to a writer.
// Indentation follows the active-query stack: each nested evaluation or
// dependency check shifts its lines one level right, so the printed trace
// reads as the call tree of the evaluation.
type ConsoleSink struct {
	w      io.Writer
	indent int
}

// NewConsoleSink returns a ConsoleSink writing to w, or to os.Stdout if w
// is nil.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{w: w}
}

func (s *ConsoleSink) logf(format string, args ...interface{}) {
	fmt.Fprint(s.w, strings.Repeat(tab, s.indent))
	fmt.Fprintf(s.w, format+"\n", args...)
}

func (s *ConsoleSink) Handle(e engine.Event) {
	switch e.Kind {
	case engine.EventSet:
		s.logf("Setting (%s, %s) to %d", e.Slot.ID, e.Slot.Key, e.Value)
		s.logf("Global revision is now %d", e.Revision)
	case engine.EventGet:
		s.logf("Query %s", e.Slot)
	case engine.EventStartedQueryEvaluation:
		s.logf("Running query function")
		s.indent++
	case engine.EventCompletedQueryEvaluation:
		s.indent--
	case engine.EventStoreMemo:
		if e.OldMemo != nil {
			s.logf("Updating stored memo to: %s", printMemo(e.NewMemo))
		} else {
			s.logf("Storing memo: %s", printMemo(e.NewMemo))
		}
	case engine.EventReadMemo:
		if e.NewMemo != nil {
			s.logf("Existing memo: %s", printMemo(e.NewMemo))
		} else {
			s.logf("No memo currently exists")
		}
	case engine.EventValueComparison:
		if e.OldValue == e.Value {
			s.logf("New value %d is the same as the memo value, so not updating changed_at", e.Value)
		} else {
			s.logf("New value %d != memo value %d, so updating changed_at to %d", e.Value, e.OldValue, e.Revision)
		}
	case engine.EventStartedInputChecks:
		s.logf("Checking inputs to see if any have changed since revision %d, when this memo was last verified", e.VerifiedAt)
		s.indent++
	case engine.EventCompletedInputChecks:
		s.indent--
		if e.Changed {
			s.logf("Memo is invalid as an input has changed")
		} else {
			s.logf("Memo is valid as no inputs have changed")
		}
	case engine.EventMemoForInputQuery:
		s.logf("Memo is valid as this is an input query")
	case engine.EventMemoVerifiedAtCurrentRevision:
		s.logf("Memo is valid as it was verified at the current revision")
	case engine.EventChangedAt:
		s.logf("Dependency %s last changed at revision %d", e.Slot, e.ChangedAt)
	case engine.EventPushActiveQuery:
		s.indent++
	case engine.EventPopActiveQuery:
		s.indent--
	}
}

func printMemo(m *engine.Memo) string {
	deps := make([]string, 0, len(m.Dependencies))
	for dep := range m.Dependencies {
		deps = append(deps, fmt.Sprintf("(%s, %s)", dep.ID, dep.Key))
	}
	sort.Strings(deps)
	return fmt.Sprintf("(value: %d, verified_at: %d, changed_at: %d, dependencies: {%s})",
		m.Value, m.VerifiedAt, m.ChangedAt, strings.Join(deps, ", "))
}
