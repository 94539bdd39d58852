package domain

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNormalizeValuesSortsAndDeduplicates(t *testing.T) {
	got := NormalizeValues([]string{"lymph node", "blood", "lymph node", "blood", "aorta"})
	want := []string{"aorta", "blood", "lymph node"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestNormalizeValuesEmptyIsNil(t *testing.T) {
	if got := NormalizeValues(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestAbsentFacetDistinctFromEmptyValue(t *testing.T) {
	absent, err := json.Marshal(AbsentFacet())
	if err != nil {
		t.Fatalf("marshal absent facet: %v", err)
	}
	empty, err := json.Marshal(NewFacet(""))
	if err != nil {
		t.Fatalf("marshal empty facet: %v", err)
	}
	if bytes.Equal(absent, empty) {
		t.Fatalf("absent facet must not serialize identically to an empty value: %s", absent)
	}
}

func TestAggregateDocumentIsByteStable(t *testing.T) {
	agg := Aggregate{
		EntityID:   "e1",
		EntityType: "files",
		State:      StateLive,
		Facets: map[string]Facet{
			"organ":         NewFacet("lymph node"),
			"genus_species": NewFacet("Mus musculus"),
			"disease":       AbsentFacet(),
		},
	}
	first, err := agg.Document()
	if err != nil {
		t.Fatalf("render document: %v", err)
	}
	second, err := agg.Document()
	if err != nil {
		t.Fatalf("render document again: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("document rendering is not deterministic:\n%s\n%s", first, second)
	}
}

func TestKnownNodeTypeAndEdgeRole(t *testing.T) {
	for _, nt := range []NodeType{NodeBiomaterial, NodeProcess, NodeProtocol, NodeFile, NodeProject} {
		if !KnownNodeType(nt) {
			t.Fatalf("expected %s to be a known node type", nt)
		}
	}
	if KnownNodeType("organism") {
		t.Fatalf("unexpected node type accepted")
	}
	for _, r := range []EdgeRole{RoleInputTo, RoleProducedBy, RoleProtocolUsed, RoleSupplementaryFileOf} {
		if !KnownEdgeRole(r) {
			t.Fatalf("expected %s to be a known edge role", r)
		}
	}
	if KnownEdgeRole("derived_from") {
		t.Fatalf("unexpected edge role accepted")
	}
}
