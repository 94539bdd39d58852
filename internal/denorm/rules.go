// Package denorm flattens bundle graphs into contribution documents using a
// data-driven facet rule table. Keeping the table as data (entity type plus
// content path per facet) isolates metadata schema evolution from the
// traversal and merge logic.
package denorm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bundleindex/pkg/domain"
)

// Shape names a contribution output shape. Shapes double as the entity_type of
// the contributions they produce.
type Shape string

// Supported contribution shapes.
const (
	// ShapeFiles produces one file-centric contribution per file node.
	ShapeFiles Shape = "files"
	// ShapeBiomaterials produces one biomaterial-centric contribution per
	// biomaterial node.
	ShapeBiomaterials Shape = "biomaterials"
	// ShapeProjects produces one project-centric contribution per project node.
	ShapeProjects Shape = "projects"
)

// Rule copies one semantic facet from nodes of a given type into the output
// document. Path is a dotted path into the node content; intermediate JSON
// arrays are traversed element-wise. Single marks the facet as single-valued
// for cross-bundle conflict resolution.
type Rule struct {
	Source domain.NodeType `yaml:"source"`
	Path   string          `yaml:"path"`
	Facet  string          `yaml:"facet"`
	Single bool            `yaml:"single,omitempty"`
}

// Table enumerates, per shape, which facets to copy from which node types.
type Table struct {
	Shapes map[Shape][]Rule `yaml:"shapes"`
}

// Validate checks the table for unknown node types, empty paths, duplicate
// facet names within a shape, and facets whose single-valued marking differs
// between shapes (the aggregator resolves conflicts per facet name, so the
// marking must be consistent).
func (t Table) Validate() error {
	single := make(map[string]bool)
	for shape, rules := range t.Shapes {
		seen := make(map[string]struct{}, len(rules))
		for _, r := range rules {
			if !domain.KnownNodeType(r.Source) {
				return fmt.Errorf("shape %s: unknown source node type %q", shape, r.Source)
			}
			if r.Path == "" || r.Facet == "" {
				return fmt.Errorf("shape %s: rule needs both path and facet", shape)
			}
			if _, dup := seen[r.Facet]; dup {
				return fmt.Errorf("shape %s: facet %s configured twice", shape, r.Facet)
			}
			seen[r.Facet] = struct{}{}
			if prev, ok := single[r.Facet]; ok && prev != r.Single {
				return fmt.Errorf("facet %s is marked single-valued in one shape but not another", r.Facet)
			}
			single[r.Facet] = r.Single
		}
	}
	return nil
}

// SingleValued returns the facet names marked single-valued anywhere in the
// table. The aggregator uses this to pick a winner instead of unioning.
func (t Table) SingleValued() map[string]bool {
	out := make(map[string]bool)
	for _, rules := range t.Shapes {
		for _, r := range rules {
			if r.Single {
				out[r.Facet] = true
			}
		}
	}
	return out
}

// DefaultTable returns the built-in rule table covering the facets the search
// surface exposes today.
func DefaultTable() Table {
	return Table{Shapes: map[Shape][]Rule{
		ShapeFiles: {
			{Source: domain.NodeFile, Path: "file_core.file_name", Facet: "file_name", Single: true},
			{Source: domain.NodeFile, Path: "file_core.file_format", Facet: "file_format", Single: true},
			{Source: domain.NodeBiomaterial, Path: "organ.text", Facet: "organ"},
			{Source: domain.NodeBiomaterial, Path: "genus_species.text", Facet: "genus_species"},
			{Source: domain.NodeBiomaterial, Path: "disease.text", Facet: "disease"},
			{Source: domain.NodeProtocol, Path: "library_construction_approach", Facet: "library_construction_approach", Single: true},
			{Source: domain.NodeProtocol, Path: "instrument_manufacturer_model.text", Facet: "instrument_manufacturer_model"},
			{Source: domain.NodeProject, Path: "project_core.project_title", Facet: "project_title", Single: true},
			{Source: domain.NodeProject, Path: "project_core.project_short_name", Facet: "project_short_name", Single: true},
		},
		ShapeBiomaterials: {
			{Source: domain.NodeBiomaterial, Path: "organ.text", Facet: "organ"},
			{Source: domain.NodeBiomaterial, Path: "genus_species.text", Facet: "genus_species"},
			{Source: domain.NodeBiomaterial, Path: "disease.text", Facet: "disease"},
			{Source: domain.NodeFile, Path: "file_core.file_name", Facet: "file_names"},
			{Source: domain.NodeProtocol, Path: "library_construction_approach", Facet: "library_construction_approach", Single: true},
			{Source: domain.NodeProject, Path: "project_core.project_title", Facet: "project_title", Single: true},
		},
		ShapeProjects: {
			{Source: domain.NodeProject, Path: "project_core.project_title", Facet: "project_title", Single: true},
			{Source: domain.NodeProject, Path: "project_core.project_short_name", Facet: "project_short_name", Single: true},
			{Source: domain.NodeBiomaterial, Path: "organ.text", Facet: "organ"},
			{Source: domain.NodeBiomaterial, Path: "genus_species.text", Facet: "genus_species"},
			{Source: domain.NodeFile, Path: "file_core.file_name", Facet: "file_names"},
			{Source: domain.NodeProtocol, Path: "library_construction_approach", Facet: "library_construction_approach", Single: true},
		},
	}}
}

// LoadTable parses a YAML rule table.
func LoadTable(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("parse facet rules: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// LoadTableFile reads and parses a YAML rule table from disk.
func LoadTableFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read facet rules: %w", err)
	}
	return LoadTable(data)
}
