package denorm

import (
	"bytes"
	"encoding/json"
	"testing"

	"bundleindex/internal/graph"
	"bundleindex/pkg/domain"
	"bundleindex/testutil"
)

func melanomaBundle(t *testing.T) domain.Bundle {
	t.Helper()
	b, err := graph.Parse(testutil.MelanomaBundleUUID, testutil.MelanomaVersion1, testutil.MelanomaBundleDocuments())
	if err != nil {
		t.Fatalf("parse melanoma bundle: %v", err)
	}
	return b
}

func contributionFor(t *testing.T, contribs []domain.Contribution, entityType, entityID string) domain.Contribution {
	t.Helper()
	for _, c := range contribs {
		if c.EntityType == entityType && c.EntityID == entityID {
			return c
		}
	}
	t.Fatalf("no %s contribution for %s", entityType, entityID)
	return domain.Contribution{}
}

func assertFacet(t *testing.T, c domain.Contribution, name string, want ...string) {
	t.Helper()
	f, ok := c.Facets[name]
	if !ok {
		t.Fatalf("facet %s missing from %s/%s", name, c.EntityType, c.EntityID)
	}
	if !f.Present {
		t.Fatalf("facet %s unexpectedly absent on %s/%s", name, c.EntityType, c.EntityID)
	}
	if len(f.Values) != len(want) {
		t.Fatalf("facet %s: expected %v, got %v", name, want, f.Values)
	}
	for i := range want {
		if f.Values[i] != want[i] {
			t.Fatalf("facet %s: expected %v, got %v", name, want, f.Values)
		}
	}
}

func TestFileContributionCarriesAncestorFacets(t *testing.T) {
	b := melanomaBundle(t)
	contribs, err := New(DefaultTable()).Contributions(b)
	if err != nil {
		t.Fatalf("denormalize: %v", err)
	}
	file := contributionFor(t, contribs, "files", testutil.MelanomaFile1ID)
	assertFacet(t, file, "organ", "lymph node")
	assertFacet(t, file, "genus_species", "Mus musculus")
	assertFacet(t, file, "library_construction_approach", "Smart-seq2")
	assertFacet(t, file, "file_name", "WT_1_S82_L005_R1_001.fastq.gz")
	assertFacet(t, file, "project_title", "Melanoma infiltration of mouse lymph nodes")
}

func TestAbsentFacetGetsSentinelNotOmission(t *testing.T) {
	b := melanomaBundle(t)
	contribs, err := New(DefaultTable()).Contributions(b)
	if err != nil {
		t.Fatalf("denormalize: %v", err)
	}
	file := contributionFor(t, contribs, "files", testutil.MelanomaFile1ID)
	disease, ok := file.Facets["disease"]
	if !ok {
		t.Fatalf("disease facet must be emitted with a sentinel, not omitted")
	}
	if disease.Present {
		t.Fatalf("disease is not populated in the fixture; expected not-present sentinel, got %+v", disease)
	}
}

func TestBiomaterialContributionSeesDescendantFiles(t *testing.T) {
	b := melanomaBundle(t)
	contribs, err := New(DefaultTable()).Contributions(b)
	if err != nil {
		t.Fatalf("denormalize: %v", err)
	}
	specimen := contributionFor(t, contribs, "biomaterials", testutil.MelanomaSpecimenID)
	assertFacet(t, specimen, "organ", "lymph node")
	assertFacet(t, specimen, "file_names",
		"WT_1_S82_L005_R1_001.fastq.gz", "WT_1_S82_L005_R2_001.fastq.gz")
}

func TestProjectContributionAggregatesWholeBundle(t *testing.T) {
	b := melanomaBundle(t)
	contribs, err := New(DefaultTable()).Contributions(b)
	if err != nil {
		t.Fatalf("denormalize: %v", err)
	}
	project := contributionFor(t, contribs, "projects", testutil.MelanomaProjectID)
	assertFacet(t, project, "project_short_name", "Mouse Melanoma")
	assertFacet(t, project, "organ", "lymph node")
	assertFacet(t, project, "file_names",
		"WT_1_S82_L005_R1_001.fastq.gz", "WT_1_S82_L005_R2_001.fastq.gz")
}

func TestContributionsAreByteIdenticalAcrossRuns(t *testing.T) {
	b := melanomaBundle(t)
	d := New(DefaultTable())
	first, err := d.Contributions(b)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := d.Contributions(b)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal first: %v", err)
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal second: %v", err)
	}
	if !bytes.Equal(firstJSON, secondJSON) {
		t.Fatalf("denormalization is not deterministic")
	}
}

func TestDeletionsMirrorContributionIdentity(t *testing.T) {
	b := melanomaBundle(t)
	d := New(DefaultTable())
	contribs, err := d.Contributions(b)
	if err != nil {
		t.Fatalf("contributions: %v", err)
	}
	deletions, err := d.Deletions(b)
	if err != nil {
		t.Fatalf("deletions: %v", err)
	}
	if len(deletions) != len(contribs) {
		t.Fatalf("expected %d deletions, got %d", len(contribs), len(deletions))
	}
	for i, del := range deletions {
		if !del.Deleted {
			t.Fatalf("deletion %d not marked deleted", i)
		}
		if del.Facets != nil {
			t.Fatalf("deletion %d must not carry facets", i)
		}
		if del.EntityID != contribs[i].EntityID || del.EntityType != contribs[i].EntityType {
			t.Fatalf("deletion %d identity mismatch", i)
		}
	}
}

func TestCyclicBundleYieldsNoPartialContributions(t *testing.T) {
	docs := testutil.MelanomaBundleDocuments()
	// Introduce a back edge from a file to the process that produced it.
	docs["links.json"] = json.RawMessage(`{
		"describedBy": "https://schema.example.org/system/links",
		"schema_type": "links",
		"links": [
			{"source_id":"` + testutil.MelanomaLibPrepProcID + `","source_type":"process","destination_id":"` + testutil.MelanomaFile1ID + `","destination_type":"file","role":"produced_by"},
			{"source_id":"` + testutil.MelanomaFile1ID + `","source_type":"file","destination_id":"` + testutil.MelanomaLibPrepProcID + `","destination_type":"process","role":"input_to"}
		]
	}`)
	b, err := graph.Parse(testutil.MelanomaBundleUUID, testutil.MelanomaVersion1, docs)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	contribs, err := New(DefaultTable()).Contributions(b)
	if err == nil {
		t.Fatalf("expected cycle rejection")
	}
	if contribs != nil {
		t.Fatalf("cycle must not produce partial output")
	}
}
