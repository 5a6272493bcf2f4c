package logger

import "strings"

// Debug tags for filtering log output by subsystem.
const (
	TagEngine    = "ENGINE"
	TagMemo      = "MEMO"
	TagRevision  = "REVISION"
	TagRegistry  = "REGISTRY"
	TagEventSink = "EVENTSINK"
	TagDepGraph  = "DEPGRAPH"
)

// EngineGroup covers every tag emitted by the evaluation engine itself.
var EngineGroup = []string{TagEngine, TagMemo, TagRevision, TagRegistry}

// EnableGroup enables every tag in a group.
func EnableGroup(group []string) {
	for _, tag := range group {
		EnableCategory(tag)
	}
}

// DisableGroup disables every tag in a group.
func DisableGroup(group []string) {
	for _, tag := range group {
		DisableCategory(tag)
	}
}

// ParseDebugTags parses a comma-separated tag list, e.g. "memo,revision".
// The special name "engine" expands to EngineGroup.
func ParseDebugTags(tags string) []string {
	if tags == "" {
		return nil
	}

	if tags == "engine" {
		return EngineGroup
	}

	result := []string{}
	for _, tag := range strings.Split(strings.ToUpper(tags), ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			result = append(result, tag)
		}
	}
	return result
}
