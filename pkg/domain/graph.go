package domain

import (
	"fmt"
	"sort"
)

// Graph is an arena-backed directed graph over bundle nodes. Nodes live in a
// slice and are addressed by int32 indices; adjacency lists store indices
// rather than pointers so traversal never chases object references. A Graph
// is immutable once its bundle has been parsed.
type Graph struct {
	nodes []Node
	index map[string]int32
	out   [][]halfEdge
	in    [][]halfEdge
}

type halfEdge struct {
	to   int32
	role EdgeRole
}

// NewGraph returns an empty graph sized for the given node count.
func NewGraph(capacity int) *Graph {
	return &Graph{
		nodes: make([]Node, 0, capacity),
		index: make(map[string]int32, capacity),
	}
}

// AddNode appends a node to the arena. Adding a duplicate id is an error;
// duplicate ids within one bundle are a referential-integrity defect the
// parser must surface, never paper over.
func (g *Graph) AddNode(n Node) error {
	if _, exists := g.index[n.ID]; exists {
		return fmt.Errorf("duplicate node id %s", n.ID)
	}
	idx := int32(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.index[n.ID] = idx
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return nil
}

// AddEdge records a directed edge. Both endpoints must already be present.
func (g *Graph) AddEdge(e Edge) error {
	src, ok := g.index[e.SourceID]
	if !ok {
		return fmt.Errorf("edge source %s not in bundle", e.SourceID)
	}
	dst, ok := g.index[e.DestinationID]
	if !ok {
		return fmt.Errorf("edge destination %s not in bundle", e.DestinationID)
	}
	if g.nodes[src].Type != e.SourceType {
		return fmt.Errorf("edge source %s declared %s but parsed as %s", e.SourceID, e.SourceType, g.nodes[src].Type)
	}
	if g.nodes[dst].Type != e.DestinationType {
		return fmt.Errorf("edge destination %s declared %s but parsed as %s", e.DestinationID, e.DestinationType, g.nodes[dst].Type)
	}
	g.out[src] = append(g.out[src], halfEdge{to: dst, role: e.Role})
	g.in[dst] = append(g.in[dst], halfEdge{to: src, role: e.Role})
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node stored at index i.
func (g *Graph) Node(i int32) Node { return g.nodes[i] }

// Lookup resolves a node id to its arena index.
func (g *Graph) Lookup(id string) (int32, bool) {
	i, ok := g.index[id]
	return i, ok
}

// NodeByID resolves a node by id.
func (g *Graph) NodeByID(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// NodesOfType returns all nodes of the given type ordered by id so that
// iteration order is stable across runs.
func (g *Graph) NodesOfType(t NodeType) []Node {
	var out []Node
	for _, n := range g.nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Outgoing returns the arena indices reachable over out-edges of node i.
func (g *Graph) Outgoing(i int32) []int32 {
	return neighborIndices(g.out[i])
}

// Incoming returns the arena indices reaching node i over in-edges.
func (g *Graph) Incoming(i int32) []int32 {
	return neighborIndices(g.in[i])
}

func neighborIndices(edges []halfEdge) []int32 {
	if len(edges) == 0 {
		return nil
	}
	out := make([]int32, len(edges))
	for i, e := range edges {
		out[i] = e.to
	}
	return out
}
