// Package graph parses bundle metadata documents into an arena-backed link
// graph and provides the ancestry traversal used by denormalization.
package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"bundleindex/pkg/domain"
)

// Document schema types recognised by the parser. The links document carries
// the edge list; every other document describes exactly one graph node.
const (
	schemaLinks       = "links"
	schemaBiomaterial = "biomaterial"
	schemaProcess     = "process"
	schemaProtocol    = "protocol"
	schemaFile        = "file"
	schemaProject     = "project"
)

type envelope struct {
	DescribedBy   string `json:"describedBy"`
	SchemaType    string `json:"schema_type"`
	SchemaVersion string `json:"schema_version"`
	Provenance    struct {
		DocumentID     string    `json:"document_id"`
		SubmissionDate time.Time `json:"submission_date"`
		UpdateDate     time.Time `json:"update_date"`
	} `json:"provenance"`
}

type linksDocument struct {
	DescribedBy string        `json:"describedBy"`
	SchemaType  string        `json:"schema_type"`
	Links       []domain.Edge `json:"links"`
}

// Parse builds the bundle graph from a mapping of document names to raw JSON.
// Node content is stored verbatim. Any schema-shape defect, duplicate id,
// unknown type, or edge referencing an id absent from the bundle yields a
// MalformedBundleError; a dangling edge is never silently dropped.
func Parse(uuid, version string, docs map[string]json.RawMessage) (domain.Bundle, error) {
	malformed := func(format string, args ...any) error {
		return domain.MalformedBundleError{
			BundleUUID:    uuid,
			BundleVersion: version,
			Reason:        fmt.Sprintf(format, args...),
		}
	}

	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)

	g := domain.NewGraph(len(docs))
	var edges []domain.Edge
	sawLinks := false

	for _, name := range names {
		raw := docs[name]
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return domain.Bundle{}, malformed("document %s is not valid JSON: %v", name, err)
		}
		if env.DescribedBy == "" || env.SchemaType == "" {
			return domain.Bundle{}, malformed("document %s is missing describedBy or schema_type", name)
		}
		if env.SchemaType == schemaLinks {
			if sawLinks {
				return domain.Bundle{}, malformed("document %s duplicates the links document", name)
			}
			sawLinks = true
			var ld linksDocument
			if err := json.Unmarshal(raw, &ld); err != nil {
				return domain.Bundle{}, malformed("links document %s does not match the links shape: %v", name, err)
			}
			edges = append(edges, ld.Links...)
			continue
		}

		nodeType, err := nodeTypeFor(env.SchemaType)
		if err != nil {
			return domain.Bundle{}, malformed("document %s: %v", name, err)
		}
		if env.Provenance.DocumentID == "" {
			return domain.Bundle{}, malformed("document %s is missing provenance.document_id", name)
		}
		node := domain.Node{
			ID:      env.Provenance.DocumentID,
			Type:    nodeType,
			Content: raw,
			Provenance: domain.Provenance{
				SubmissionDate: env.Provenance.SubmissionDate,
				UpdateDate:     env.Provenance.UpdateDate,
			},
		}
		if err := g.AddNode(node); err != nil {
			return domain.Bundle{}, malformed("document %s: %v", name, err)
		}
	}

	if !sawLinks {
		return domain.Bundle{}, malformed("bundle has no links document")
	}

	for _, e := range edges {
		if !domain.KnownEdgeRole(e.Role) {
			return domain.Bundle{}, malformed("link %s -> %s has unknown role %q", e.SourceID, e.DestinationID, e.Role)
		}
		if err := g.AddEdge(e); err != nil {
			return domain.Bundle{}, malformed("link: %v", err)
		}
	}

	return domain.Bundle{UUID: uuid, Version: version, Graph: g}, nil
}

func nodeTypeFor(schemaType string) (domain.NodeType, error) {
	switch schemaType {
	case schemaBiomaterial:
		return domain.NodeBiomaterial, nil
	case schemaProcess:
		return domain.NodeProcess, nil
	case schemaProtocol:
		return domain.NodeProtocol, nil
	case schemaFile:
		return domain.NodeFile, nil
	case schemaProject:
		return domain.NodeProject, nil
	}
	return "", fmt.Errorf("unknown schema_type %q", schemaType)
}
