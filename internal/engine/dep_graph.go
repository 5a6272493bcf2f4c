package engine

import (
	"github.com/maya-framework/dip/internal/depgraph"
	"github.com/maya-framework/dip/internal/logger"
)

// DependencyGraph builds a point-in-time snapshot of the memo store's
// dependency edges: one node per memoized slot, one edge from each
// dependency to the slot that read it. Topological order therefore runs
// from inputs to the most derived queries.
//
// The snapshot is for tooling and debugging only. It never feeds back into
// evaluation, and it goes stale the moment the next Set or Get mutates the
// store.
func (db *Database) DependencyGraph() (*depgraph.Graph, error) {
	g := depgraph.NewGraph()

	for slot, memo := range db.storage {
		memo := memo // each node keeps its own slot's memo
		if err := g.AddNode(depgraph.NodeID(slot.String()), &memo); err != nil {
			return nil, err
		}
	}
	for slot, memo := range db.storage {
		for dep := range memo.Dependencies {
			if _, err := g.AddEdge(depgraph.NodeID(dep.String()), depgraph.NodeID(slot.String())); err != nil {
				return nil, err
			}
		}
	}

	logger.Debug(logger.TagDepGraph, "database %s: snapshot with %d slots, %d edges",
		db.id, g.NodeCount(), g.EdgeCount())
	return g, nil
}
