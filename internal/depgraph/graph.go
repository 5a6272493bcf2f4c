// Package depgraph provides a read-only directed-graph view over a set of
// memoized slots and their recorded dependencies. It is introspection
// tooling only: nothing in query evaluation reads from it.
package depgraph

import "fmt"

// NodeID uniquely identifies a node in the graph.
type NodeID string

// EdgeID uniquely identifies an edge in the graph.
type EdgeID string

// Node represents one memoized slot in the dependency graph.
type Node struct {
	ID   NodeID
	Data interface{}

	InEdges  []EdgeID
	OutEdges []EdgeID
}

// Edge is a directed edge from a dependency to the node that reads it.
type Edge struct {
	ID   EdgeID
	From NodeID
	To   NodeID
}

// Graph is a directed acyclic graph of slot dependencies. It is built as a
// point-in-time snapshot and read by a single caller; there is no internal
// locking.
type Graph struct {
	nodes map[NodeID]*Node
	edges map[EdgeID]*Edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[NodeID]*Node),
		edges: make(map[EdgeID]*Edge),
	}
}

// AddNode adds a node to the graph.
func (g *Graph) AddNode(id NodeID, data interface{}) error {
	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("node %s already exists", id)
	}

	g.nodes[id] = &Node{
		ID:       id,
		Data:     data,
		InEdges:  []EdgeID{},
		OutEdges: []EdgeID{},
	}
	return nil
}

// GetNode retrieves a node by ID.
func (g *Graph) GetNode(id NodeID) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// AddEdge creates a directed edge from one node to another. Adding an edge
// that would create a cycle is rejected and rolled back.
func (g *Graph) AddEdge(from, to NodeID) (EdgeID, error) {
	fromNode, fromExists := g.nodes[from]
	if !fromExists {
		return "", fmt.Errorf("source node %s not found", from)
	}

	toNode, toExists := g.nodes[to]
	if !toExists {
		return "", fmt.Errorf("target node %s not found", to)
	}

	edgeID := EdgeID(fmt.Sprintf("%s->%s", from, to))
	if _, exists := g.edges[edgeID]; exists {
		return "", fmt.Errorf("edge %s already exists", edgeID)
	}

	g.edges[edgeID] = &Edge{ID: edgeID, From: from, To: to}
	fromNode.OutEdges = append(fromNode.OutEdges, edgeID)
	toNode.InEdges = append(toNode.InEdges, edgeID)

	if g.hasCycle() {
		// Rollback
		delete(g.edges, edgeID)
		fromNode.OutEdges = fromNode.OutEdges[:len(fromNode.OutEdges)-1]
		toNode.InEdges = toNode.InEdges[:len(toNode.InEdges)-1]

		return "", fmt.Errorf("adding edge would create a cycle")
	}

	return edgeID, nil
}

// GetDependencies returns the nodes that the given node depends on.
func (g *Graph) GetDependencies(nodeID NodeID) []NodeID {
	node, exists := g.nodes[nodeID]
	if !exists {
		return nil
	}

	dependencies := make([]NodeID, 0, len(node.InEdges))
	for _, edgeID := range node.InEdges {
		if edge, ok := g.edges[edgeID]; ok {
			dependencies = append(dependencies, edge.From)
		}
	}
	return dependencies
}

// GetDependents returns the nodes that depend on the given node.
func (g *Graph) GetDependents(nodeID NodeID) []NodeID {
	node, exists := g.nodes[nodeID]
	if !exists {
		return nil
	}

	dependents := make([]NodeID, 0, len(node.OutEdges))
	for _, edgeID := range node.OutEdges {
		if edge, ok := g.edges[edgeID]; ok {
			dependents = append(dependents, edge.To)
		}
	}
	return dependents
}

// TopologicalSort returns node IDs in dependency order: every node appears
// after all of its dependencies.
func (g *Graph) TopologicalSort() ([]NodeID, error) {
	inDegrees := make(map[NodeID]int)
	for nodeID, node := range g.nodes {
		inDegrees[nodeID] = len(node.InEdges)
	}

	queue := make([]NodeID, 0)
	for nodeID, degree := range inDegrees {
		if degree == 0 {
			queue = append(queue, nodeID)
		}
	}

	result := make([]NodeID, 0, len(g.nodes))
	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]
		result = append(result, nodeID)

		node := g.nodes[nodeID]
		for _, edgeID := range node.OutEdges {
			if edge, ok := g.edges[edgeID]; ok {
				inDegrees[edge.To]--
				if inDegrees[edge.To] == 0 {
					queue = append(queue, edge.To)
				}
			}
		}
	}

	if len(result) != len(g.nodes) {
		return nil, fmt.Errorf("graph contains a cycle")
	}
	return result, nil
}

func (g *Graph) hasCycle() bool {
	_, err := g.TopologicalSort()
	return err != nil
}

// IsDAG checks if the graph is a directed acyclic graph.
func (g *Graph) IsDAG() bool {
	return !g.hasCycle()
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}
