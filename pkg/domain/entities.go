// Package domain defines the core value types of the bundle indexing
// pipeline: metadata graph nodes and edges, versioned bundles, denormalized
// contributions, aggregated entity views, and the error taxonomy shared by
// every layer above the infra adapters.
package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// NodeType identifies the kind of metadata document a graph node was parsed from.
type NodeType string

// Supported node types. Every document in a bundle resolves to exactly one of
// these; anything else is a malformed bundle.
const (
	// NodeBiomaterial identifies a biological input or intermediate (donor,
	// specimen, cell suspension, ...).
	NodeBiomaterial NodeType = "biomaterial"
	// NodeProcess identifies a transformation step linking biomaterials,
	// protocols and files.
	NodeProcess NodeType = "process"
	// NodeProtocol identifies a reusable method description attached to a process.
	NodeProtocol NodeType = "protocol"
	// NodeFile identifies a data file produced by a process.
	NodeFile NodeType = "file"
	// NodeProject identifies the bundle-level project descriptor.
	NodeProject NodeType = "project"
)

// KnownNodeType reports whether t is one of the supported node types.
func KnownNodeType(t NodeType) bool {
	switch t {
	case NodeBiomaterial, NodeProcess, NodeProtocol, NodeFile, NodeProject:
		return true
	}
	return false
}

// EdgeRole labels the relation an edge models between its endpoints.
type EdgeRole string

// Edge roles recognised by the link graph parser.
const (
	// RoleInputTo connects an upstream biomaterial to the process consuming it.
	RoleInputTo EdgeRole = "input_to"
	// RoleProducedBy connects a process to the biomaterial or file it produced.
	RoleProducedBy EdgeRole = "produced_by"
	// RoleProtocolUsed connects a protocol to the process applying it.
	RoleProtocolUsed EdgeRole = "protocol_used"
	// RoleSupplementaryFileOf connects a project to a supplementary file.
	RoleSupplementaryFileOf EdgeRole = "supplementary_file_of"
)

// KnownEdgeRole reports whether r is one of the supported edge roles.
func KnownEdgeRole(r EdgeRole) bool {
	switch r {
	case RoleInputTo, RoleProducedBy, RoleProtocolUsed, RoleSupplementaryFileOf:
		return true
	}
	return false
}

// Provenance carries the source system's lifecycle timestamps for a node.
type Provenance struct {
	SubmissionDate time.Time `json:"submission_date"`
	UpdateDate     time.Time `json:"update_date"`
}

// Node is a typed metadata document inside a bundle graph. Content is kept
// verbatim (no field projection at parse time) so later schema versions
// survive the round trip untouched.
type Node struct {
	ID         string          `json:"id"`
	Type       NodeType        `json:"type"`
	Content    json.RawMessage `json:"content"`
	Provenance Provenance      `json:"provenance"`
}

// Edge is a directed, typed relation between two nodes of the same bundle.
// The source is upstream: ancestry traversal follows edges against their
// direction.
type Edge struct {
	SourceID        string   `json:"source_id"`
	SourceType      NodeType `json:"source_type"`
	DestinationID   string   `json:"destination_id"`
	DestinationType NodeType `json:"destination_type"`
	Role            EdgeRole `json:"role"`
}

// Bundle is an immutable, versioned snapshot of one submission's metadata
// graph. The same UUID recurs with increasing timestamp-derived versions as
// the submission is edited; versions order lexicographically.
type Bundle struct {
	UUID    string
	Version string
	Graph   *Graph
}

// Facet is a named, searchable attribute on a denormalized document. A facet
// that does not apply carries Present=false, which downstream faceted search
// must be able to distinguish from an empty-but-applicable value. Values are
// kept sorted and deduplicated so repeated runs produce byte-identical
// documents.
type Facet struct {
	Present bool     `json:"present"`
	Values  []string `json:"values,omitempty"`
}

// AbsentFacet returns the explicit not-present sentinel.
func AbsentFacet() Facet {
	return Facet{Present: false}
}

// NewFacet returns a present facet with values sorted and deduplicated.
func NewFacet(values ...string) Facet {
	return Facet{Present: true, Values: NormalizeValues(values)}
}

// NormalizeValues sorts and deduplicates facet values in place-stable fashion.
// The input slice is not modified.
func NormalizeValues(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Contribution is one bundle version's denormalized view of one entity. It is
// a write-once fact: later bundle versions supersede it, deletion markers
// retire it, but it is never mutated in place.
type Contribution struct {
	EntityID      string           `json:"entity_id"`
	EntityType    string           `json:"entity_type"`
	BundleUUID    string           `json:"bundle_uuid"`
	BundleVersion string           `json:"bundle_version"`
	Deleted       bool             `json:"deleted"`
	Facets        map[string]Facet `json:"facets,omitempty"`
}

// AggregateState is the lifecycle state of an entity's merged view.
type AggregateState string

// Aggregate lifecycle states.
const (
	// StateAbsent means no contribution has ever been recorded.
	StateAbsent AggregateState = "absent"
	// StateLive means at least one bundle currently contributes to the entity.
	StateLive AggregateState = "live"
	// StateTombstoned means the last contributing bundle was deleted; the
	// entity must be removed from the index.
	StateTombstoned AggregateState = "tombstoned"
)

// Aggregate is the merged, current view of one entity across all contributing
// bundle versions. Versions records the highest version observed per bundle
// UUID and is the basis for staleness filtering.
type Aggregate struct {
	EntityID   string            `json:"entity_id"`
	EntityType string            `json:"entity_type"`
	State      AggregateState    `json:"state"`
	Facets     map[string]Facet  `json:"facets,omitempty"`
	Versions   map[string]string `json:"versions,omitempty"`
	// Revision counts state changes for this entity. Snapshots with a lower
	// revision than one already written must never reach the sink, or a slow
	// writer would overwrite a newer document with an older one.
	Revision uint64 `json:"-"`
}

// Document renders the aggregate's facets as a canonical JSON document.
// encoding/json emits map keys in sorted order, and facet values are kept
// sorted, so the result is byte-stable for a given aggregate.
func (a Aggregate) Document() (json.RawMessage, error) {
	return json.Marshal(a.Facets)
}

// OperationKind discriminates sink operations.
type OperationKind string

// Sink operation kinds.
const (
	// OpUpsert writes or replaces the entity document.
	OpUpsert OperationKind = "upsert"
	// OpDelete removes the entity document.
	OpDelete OperationKind = "delete"
)

// Operation is one idempotent instruction for the external document index.
type Operation struct {
	Kind       OperationKind   `json:"operation"`
	EntityID   string          `json:"entity_id"`
	EntityType string          `json:"entity_type"`
	Document   json.RawMessage `json:"document,omitempty"`
}
