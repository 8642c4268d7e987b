// Package graph keeps the in-memory multigraph mirror of the persisted
// model. The database is authoritative; the graph exists for traversal
// (predecessor lookups during quantification) and edge-key assignment.
package graph

import "fmt"

// Edge is one directed causal edge. Parallel edges between the same
// node pair carry distinct integer keys.
type Edge struct {
	Parent string
	Child  string
	Key    int
	LinkID string
}

// MultiDiGraph is a directed graph allowing parallel edges. Not safe for
// concurrent use; the model service serializes access.
type MultiDiGraph struct {
	nodes map[string]struct{}
	// child -> parent -> key -> link id
	in map[string]map[string]map[int]string
	// parent -> child -> key -> link id
	out map[string]map[string]map[int]string
}

func New() *MultiDiGraph {
	return &MultiDiGraph{
		nodes: make(map[string]struct{}),
		in:    make(map[string]map[string]map[int]string),
		out:   make(map[string]map[string]map[int]string),
	}
}

func (g *MultiDiGraph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

func (g *MultiDiGraph) AddNode(id string) {
	g.nodes[id] = struct{}{}
}

// RemoveNode deletes the node and every edge incident to it.
func (g *MultiDiGraph) RemoveNode(id string) {
	delete(g.nodes, id)
	for parent := range g.in[id] {
		delete(g.out[parent], id)
	}
	for child := range g.out[id] {
		delete(g.in[child], id)
	}
	delete(g.in, id)
	delete(g.out, id)
}

// NewEdgeKey returns the smallest unused key for the (parent, child)
// pair, matching how parallel edges pick up consecutive keys.
func (g *MultiDiGraph) NewEdgeKey(parent, child string) int {
	keys := g.out[parent][child]
	for k := 0; ; k++ {
		if _, taken := keys[k]; !taken {
			return k
		}
	}
}

func (g *MultiDiGraph) AddEdge(parent, child string, key int, linkID string) error {
	if !g.HasNode(parent) {
		return fmt.Errorf("unknown parent node [%s]", parent)
	}
	if !g.HasNode(child) {
		return fmt.Errorf("unknown child node [%s]", child)
	}
	if _, taken := g.out[parent][child][key]; taken {
		return fmt.Errorf("edge (%s, %s, %d) already exists", parent, child, key)
	}
	if g.out[parent] == nil {
		g.out[parent] = make(map[string]map[int]string)
	}
	if g.out[parent][child] == nil {
		g.out[parent][child] = make(map[int]string)
	}
	g.out[parent][child][key] = linkID

	if g.in[child] == nil {
		g.in[child] = make(map[string]map[int]string)
	}
	if g.in[child][parent] == nil {
		g.in[child][parent] = make(map[int]string)
	}
	g.in[child][parent][key] = linkID
	return nil
}

func (g *MultiDiGraph) RemoveEdge(parent, child string, key int) {
	if keys := g.out[parent][child]; keys != nil {
		delete(keys, key)
		if len(keys) == 0 {
			delete(g.out[parent], child)
		}
	}
	if keys := g.in[child][parent]; keys != nil {
		delete(keys, key)
		if len(keys) == 0 {
			delete(g.in[child], parent)
		}
	}
}

// Predecessors returns the distinct parent node ids with at least one
// edge into the given node.
func (g *MultiDiGraph) Predecessors(id string) []string {
	var parents []string
	for parent, keys := range g.in[id] {
		if len(keys) > 0 {
			parents = append(parents, parent)
		}
	}
	return parents
}

// EdgeData returns every edge from parent to child.
func (g *MultiDiGraph) EdgeData(parent, child string) []Edge {
	var edges []Edge
	for key, linkID := range g.out[parent][child] {
		edges = append(edges, Edge{Parent: parent, Child: child, Key: key, LinkID: linkID})
	}
	return edges
}

func (g *MultiDiGraph) Nodes() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	return ids
}

func (g *MultiDiGraph) Clear() {
	g.nodes = make(map[string]struct{})
	g.in = make(map[string]map[string]map[int]string)
	g.out = make(map[string]map[string]map[int]string)
}
