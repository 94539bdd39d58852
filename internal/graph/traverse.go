package graph

import (
	"sort"

	"bundleindex/pkg/domain"
)

// DefaultMaxHops bounds traversal depth for pathological graphs. Real bundle
// graphs are shallow (donor -> specimen -> suspension -> process -> file is
// five hops); anything past this limit is simply not visited.
const DefaultMaxHops = 32

// Ancestors returns the transitive closure of nodes reachable from nodeID by
// following edges against their direction, up to maxHops. Ancestors reached by
// multiple paths appear once; path distance is not recorded. The result is
// ordered by node id so output is stable across runs. A traversal cycle
// yields CyclicGraphError and no partial result.
func Ancestors(b domain.Bundle, nodeID string, maxHops int) ([]domain.Node, error) {
	return closure(b, nodeID, maxHops, b.Graph.Incoming, nil)
}

// DescendantFiles returns the file nodes reachable forward from nodeID up to
// maxHops, deduplicated and ordered by node id.
func DescendantFiles(b domain.Bundle, nodeID string, maxHops int) ([]domain.Node, error) {
	fileOnly := func(n domain.Node) bool { return n.Type == domain.NodeFile }
	return closure(b, nodeID, maxHops, b.Graph.Outgoing, fileOnly)
}

// closure runs a depth-first walk from start using the supplied neighbor
// accessor, collecting every reached node that passes keep (nil keeps all).
// Nodes on the current path are marked so that revisiting one is recognised
// as a cycle rather than a diamond. Each node remembers the largest hop
// budget it has been visited with: a node first reached near the bound is
// re-expanded when a shorter path reaches it with budget to spare, so the
// closure never misses nodes that are within maxHops of the start.
func closure(b domain.Bundle, start string, maxHops int, neighbors func(int32) []int32, keep func(domain.Node) bool) ([]domain.Node, error) {
	g := b.Graph
	startIdx, ok := g.Lookup(start)
	if !ok {
		return nil, domain.MalformedBundleError{
			BundleUUID:    b.UUID,
			BundleVersion: b.Version,
			Reason:        "traversal start node " + start + " not in bundle",
		}
	}
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}

	onPath := make([]bool, g.Len())
	budget := make([]int, g.Len())
	for i := range budget {
		budget[i] = -1
	}
	collected := make(map[string]domain.Node)

	var visit func(idx int32, remaining int) error
	visit = func(idx int32, remaining int) error {
		if remaining <= budget[idx] {
			// Already expanded with at least this much budget left.
			return nil
		}
		budget[idx] = remaining
		if remaining == 0 {
			return nil
		}
		onPath[idx] = true
		for _, next := range neighbors(idx) {
			if onPath[next] {
				return domain.CyclicGraphError{
					BundleUUID:    b.UUID,
					BundleVersion: b.Version,
					NodeID:        g.Node(next).ID,
				}
			}
			n := g.Node(next)
			if keep == nil || keep(n) {
				collected[n.ID] = n
			}
			if err := visit(next, remaining-1); err != nil {
				return err
			}
		}
		onPath[idx] = false
		return nil
	}
	if err := visit(startIdx, maxHops); err != nil {
		return nil, err
	}

	out := make([]domain.Node, 0, len(collected))
	for _, n := range collected {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
