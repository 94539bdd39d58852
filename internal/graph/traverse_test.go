package graph

import (
	"encoding/json"
	"errors"
	"testing"

	"bundleindex/pkg/domain"
)

// chainBundle builds donor -> sampling process -> specimen -> suspension
// process -> cell suspension -> {libprep, sequencing} -> two files, with a
// protocol on each of the two trailing processes.
func chainBundle(t *testing.T) domain.Bundle {
	t.Helper()
	docs := map[string]json.RawMessage{
		"donor_organism_0.json":          entityDoc("biomaterial", "donor"),
		"specimen_from_organism_0.json":  entityDoc("biomaterial", "specimen"),
		"cell_suspension_0.json":         entityDoc("biomaterial", "suspension"),
		"process_0.json":                 entityDoc("process", "sampling"),
		"process_1.json":                 entityDoc("process", "dissociation"),
		"process_2.json":                 entityDoc("process", "libprep"),
		"process_3.json":                 entityDoc("process", "sequencing"),
		"library_preparation_0.json":     entityDoc("protocol", "libprep-protocol"),
		"sequencing_protocol_0.json":     entityDoc("protocol", "sequencing-protocol"),
		"sequence_file_0.json":           entityDoc("file", "file-r1"),
		"sequence_file_1.json":           entityDoc("file", "file-r2"),
		"links.json": linksDoc(
			link("donor", domain.NodeBiomaterial, "sampling", domain.NodeProcess, domain.RoleInputTo),
			link("sampling", domain.NodeProcess, "specimen", domain.NodeBiomaterial, domain.RoleProducedBy),
			link("specimen", domain.NodeBiomaterial, "dissociation", domain.NodeProcess, domain.RoleInputTo),
			link("dissociation", domain.NodeProcess, "suspension", domain.NodeBiomaterial, domain.RoleProducedBy),
			link("suspension", domain.NodeBiomaterial, "libprep", domain.NodeProcess, domain.RoleInputTo),
			link("suspension", domain.NodeBiomaterial, "sequencing", domain.NodeProcess, domain.RoleInputTo),
			link("libprep-protocol", domain.NodeProtocol, "libprep", domain.NodeProcess, domain.RoleProtocolUsed),
			link("sequencing-protocol", domain.NodeProtocol, "sequencing", domain.NodeProcess, domain.RoleProtocolUsed),
			link("libprep", domain.NodeProcess, "file-r1", domain.NodeFile, domain.RoleProducedBy),
			link("libprep", domain.NodeProcess, "file-r2", domain.NodeFile, domain.RoleProducedBy),
			link("sequencing", domain.NodeProcess, "file-r1", domain.NodeFile, domain.RoleProducedBy),
			link("sequencing", domain.NodeProcess, "file-r2", domain.NodeFile, domain.RoleProducedBy),
		),
	}
	b, err := Parse("bundle-chain", "v1", docs)
	if err != nil {
		t.Fatalf("parse chain bundle: %v", err)
	}
	return b
}

func idsOf(nodes []domain.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestAncestorsCollectsFullChainOnce(t *testing.T) {
	b := chainBundle(t)
	ancestors, err := Ancestors(b, "file-r1", 0)
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	want := map[string]bool{
		"donor": true, "sampling": true, "specimen": true, "dissociation": true,
		"suspension": true, "libprep": true, "sequencing": true,
		"libprep-protocol": true, "sequencing-protocol": true,
	}
	got := idsOf(ancestors)
	if len(got) != len(want) {
		t.Fatalf("expected %d ancestors, got %v", len(want), got)
	}
	for _, id := range got {
		if !want[id] {
			t.Fatalf("unexpected ancestor %s in %v", id, got)
		}
	}
	// suspension is reachable over both libprep and sequencing; one copy only.
	count := 0
	for _, id := range got {
		if id == "suspension" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected diamond ancestor deduplicated, got %d copies", count)
	}
}

func TestAncestorsOrderIsStable(t *testing.T) {
	b := chainBundle(t)
	first, err := Ancestors(b, "file-r1", 0)
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	second, err := Ancestors(b, "file-r1", 0)
	if err != nil {
		t.Fatalf("ancestors again: %v", err)
	}
	firstIDs, secondIDs := idsOf(first), idsOf(second)
	for i := range firstIDs {
		if firstIDs[i] != secondIDs[i] {
			t.Fatalf("ancestor order differs between runs: %v vs %v", firstIDs, secondIDs)
		}
	}
}

func TestAncestorsHonorsHopLimit(t *testing.T) {
	b := chainBundle(t)
	ancestors, err := Ancestors(b, "file-r1", 1)
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	got := idsOf(ancestors)
	if len(got) != 2 {
		t.Fatalf("expected only the two producing processes at one hop, got %v", got)
	}
}

func TestShorterPathReexpandsNodeTruncatedAtHopLimit(t *testing.T) {
	// sampling produces file-1 both directly and through the long
	// suspension/libprep chain. The long path reaches sampling with its hop
	// budget spent; the direct path reaches it later with budget to spare
	// and must still pick up donor behind it.
	docs := map[string]json.RawMessage{
		"donor_organism_0.json":  entityDoc("biomaterial", "donor"),
		"process_0.json":         entityDoc("process", "sampling"),
		"cell_suspension_0.json": entityDoc("biomaterial", "suspension"),
		"process_1.json":         entityDoc("process", "libprep"),
		"sequence_file_0.json":   entityDoc("file", "file-1"),
		"links.json": linksDoc(
			link("libprep", domain.NodeProcess, "file-1", domain.NodeFile, domain.RoleProducedBy),
			link("sampling", domain.NodeProcess, "file-1", domain.NodeFile, domain.RoleProducedBy),
			link("suspension", domain.NodeBiomaterial, "libprep", domain.NodeProcess, domain.RoleInputTo),
			link("sampling", domain.NodeProcess, "suspension", domain.NodeBiomaterial, domain.RoleProducedBy),
			link("donor", domain.NodeBiomaterial, "sampling", domain.NodeProcess, domain.RoleInputTo),
		),
	}
	b, err := Parse("bundle-diamond", "v1", docs)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ancestors, err := Ancestors(b, "file-1", 3)
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	got := idsOf(ancestors)
	want := []string{"donor", "libprep", "sampling", "suspension"}
	if len(got) != len(want) {
		t.Fatalf("expected ancestors %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected ancestors %v, got %v", want, got)
		}
	}
}

func TestDescendantFilesFromBiomaterial(t *testing.T) {
	b := chainBundle(t)
	files, err := DescendantFiles(b, "specimen", 0)
	if err != nil {
		t.Fatalf("descendant files: %v", err)
	}
	got := idsOf(files)
	if len(got) != 2 || got[0] != "file-r1" || got[1] != "file-r2" {
		t.Fatalf("expected [file-r1 file-r2], got %v", got)
	}
}

func TestCycleRaisesCyclicGraphErrorWithoutPartialOutput(t *testing.T) {
	docs := map[string]json.RawMessage{
		"cell_suspension_0.json": entityDoc("biomaterial", "suspension"),
		"process_0.json":         entityDoc("process", "proc"),
		"sequence_file_0.json":   entityDoc("file", "f"),
		"links.json": linksDoc(
			link("suspension", domain.NodeBiomaterial, "proc", domain.NodeProcess, domain.RoleInputTo),
			link("proc", domain.NodeProcess, "suspension", domain.NodeBiomaterial, domain.RoleProducedBy),
			link("proc", domain.NodeProcess, "f", domain.NodeFile, domain.RoleProducedBy),
		),
	}
	b, err := Parse("bundle-cycle", "v1", docs)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	nodes, err := Ancestors(b, "f", 0)
	var cyclic domain.CyclicGraphError
	if !errors.As(err, &cyclic) {
		t.Fatalf("expected CyclicGraphError, got %v", err)
	}
	if nodes != nil {
		t.Fatalf("cycle detection must not yield partial output, got %v", idsOf(nodes))
	}
}

func TestTraversalFromUnknownNodeIsMalformed(t *testing.T) {
	b := chainBundle(t)
	_, err := Ancestors(b, "nope", 0)
	var malformed domain.MalformedBundleError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedBundleError, got %v", err)
	}
}
