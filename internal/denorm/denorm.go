package denorm

import (
	"bundleindex/internal/graph"
	"bundleindex/pkg/domain"
)

// Denormalizer turns a parsed bundle into one contribution per entity per
// configured shape. It is pure computation over immutable inputs: the same
// bundle always produces byte-identical contributions.
type Denormalizer struct {
	table   Table
	maxHops int
}

// Option configures a Denormalizer.
type Option func(*Denormalizer)

// WithMaxHops overrides the traversal depth bound.
func WithMaxHops(hops int) Option {
	return func(d *Denormalizer) { d.maxHops = hops }
}

// New constructs a Denormalizer over the given rule table.
func New(table Table, opts ...Option) *Denormalizer {
	d := &Denormalizer{table: table, maxHops: graph.DefaultMaxHops}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Contributions produces the denormalized documents for every shape. Shapes
// and entities are visited in a fixed order so output ordering is stable.
// Traversal errors (cycles, malformed starts) abort the whole bundle: a
// defective bundle yields no partial output.
func (d *Denormalizer) Contributions(b domain.Bundle) ([]domain.Contribution, error) {
	var out []domain.Contribution

	projects := b.Graph.NodesOfType(domain.NodeProject)

	for _, f := range b.Graph.NodesOfType(domain.NodeFile) {
		ancestors, err := graph.Ancestors(b, f.ID, d.maxHops)
		if err != nil {
			return nil, err
		}
		sources := append([]domain.Node{f}, ancestors...)
		sources = append(sources, projects...)
		out = append(out, d.contribution(b, ShapeFiles, f.ID, sources))
	}

	for _, bm := range b.Graph.NodesOfType(domain.NodeBiomaterial) {
		ancestors, err := graph.Ancestors(b, bm.ID, d.maxHops)
		if err != nil {
			return nil, err
		}
		descendants, err := graph.DescendantFiles(b, bm.ID, d.maxHops)
		if err != nil {
			return nil, err
		}
		sources := append([]domain.Node{bm}, ancestors...)
		sources = append(sources, descendants...)
		sources = append(sources, projects...)
		out = append(out, d.contribution(b, ShapeBiomaterials, bm.ID, sources))
	}

	// The project descriptor annotates the whole bundle rather than hanging
	// off the link graph, so its contribution draws from every node.
	for _, p := range projects {
		all := make([]domain.Node, 0, b.Graph.Len())
		for i := 0; i < b.Graph.Len(); i++ {
			all = append(all, b.Graph.Node(int32(i)))
		}
		out = append(out, d.contribution(b, ShapeProjects, p.ID, all))
	}

	return out, nil
}

// Deletions produces deletion-marker contributions for every entity the
// bundle contributes to, used when a bundle delete notification arrives.
func (d *Denormalizer) Deletions(b domain.Bundle) ([]domain.Contribution, error) {
	contribs, err := d.Contributions(b)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Contribution, len(contribs))
	for i, c := range contribs {
		out[i] = domain.Contribution{
			EntityID:      c.EntityID,
			EntityType:    c.EntityType,
			BundleUUID:    c.BundleUUID,
			BundleVersion: c.BundleVersion,
			Deleted:       true,
		}
	}
	return out, nil
}

// SingleValuedFacets exposes the table's single-valued facet names for
// aggregator construction.
func (d *Denormalizer) SingleValuedFacets() map[string]bool {
	return d.table.SingleValued()
}

func (d *Denormalizer) contribution(b domain.Bundle, shape Shape, entityID string, sources []domain.Node) domain.Contribution {
	rules := d.table.Shapes[shape]
	facets := make(map[string]domain.Facet, len(rules))
	for _, r := range rules {
		var values []string
		for _, n := range sources {
			if n.Type != r.Source {
				continue
			}
			values = append(values, extract(n.Content, r.Path)...)
		}
		if len(values) == 0 {
			facets[r.Facet] = domain.AbsentFacet()
			continue
		}
		facets[r.Facet] = domain.NewFacet(values...)
	}
	return domain.Contribution{
		EntityID:      entityID,
		EntityType:    string(shape),
		BundleUUID:    b.UUID,
		BundleVersion: b.Version,
		Facets:        facets,
	}
}
