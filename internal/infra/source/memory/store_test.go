package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"bundleindex/internal/source/core"
)

func TestSeedAndFetch(t *testing.T) {
	s := New()
	s.Seed("u1", "v1", map[string]json.RawMessage{"donor.json": json.RawMessage(`{"a":1}`)})

	docs, err := s.Fetch(context.Background(), "u1", "v1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(docs["donor.json"]) != `{"a":1}` {
		t.Fatalf("unexpected doc: %s", docs["donor.json"])
	}
}

func TestFetchReturnsCopies(t *testing.T) {
	s := New()
	s.Seed("u1", "v1", map[string]json.RawMessage{"donor.json": json.RawMessage(`{"a":1}`)})

	docs, err := s.Fetch(context.Background(), "u1", "v1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	docs["donor.json"][1] = 'X'
	delete(docs, "donor.json")

	again, err := s.Fetch(context.Background(), "u1", "v1")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if string(again["donor.json"]) != `{"a":1}` {
		t.Fatalf("seeded doc mutated through fetched copy: %s", again["donor.json"])
	}
}

func TestRemoveYieldsNotFound(t *testing.T) {
	s := New()
	s.Seed("u1", "v1", map[string]json.RawMessage{"donor.json": json.RawMessage(`{}`)})
	s.Remove("u1", "v1")

	_, err := s.Fetch(context.Background(), "u1", "v1")
	var nf core.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.UUID != "u1" || nf.Version != "v1" {
		t.Fatalf("unexpected identity in error: %+v", nf)
	}
}
