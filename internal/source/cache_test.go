package source

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"bundleindex/internal/infra/source/memory"
	"bundleindex/internal/source/core"
)

// countingStore wraps a store and counts backend fetches.
type countingStore struct {
	inner core.Store
	calls atomic.Int64
}

func (c *countingStore) Driver() core.Driver { return c.inner.Driver() }

func (c *countingStore) Fetch(ctx context.Context, uuid, version string) (map[string]json.RawMessage, error) {
	c.calls.Add(1)
	return c.inner.Fetch(ctx, uuid, version)
}

func TestCachedFetchHitsBackendOnce(t *testing.T) {
	mem := memory.New()
	mem.Seed("u1", "v1", map[string]json.RawMessage{"donor.json": json.RawMessage(`{"a":1}`)})
	counting := &countingStore{inner: mem}
	cached, err := NewCached(counting, 4)
	if err != nil {
		t.Fatalf("new cached: %v", err)
	}

	for i := 0; i < 3; i++ {
		docs, err := cached.Fetch(context.Background(), "u1", "v1")
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if string(docs["donor.json"]) != `{"a":1}` {
			t.Fatalf("fetch %d: unexpected doc %s", i, docs["donor.json"])
		}
	}
	if got := counting.calls.Load(); got != 1 {
		t.Fatalf("expected 1 backend fetch, got %d", got)
	}
}

func TestCachedFetchReturnsCopies(t *testing.T) {
	mem := memory.New()
	mem.Seed("u1", "v1", map[string]json.RawMessage{"donor.json": json.RawMessage(`{"a":1}`)})
	cached, err := NewCached(mem, 4)
	if err != nil {
		t.Fatalf("new cached: %v", err)
	}

	docs, err := cached.Fetch(context.Background(), "u1", "v1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	docs["donor.json"][1] = 'X'

	again, err := cached.Fetch(context.Background(), "u1", "v1")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if string(again["donor.json"]) != `{"a":1}` {
		t.Fatalf("cached doc mutated through returned copy: %s", again["donor.json"])
	}
}

func TestCachedMissesAreNotCached(t *testing.T) {
	mem := memory.New()
	counting := &countingStore{inner: mem}
	cached, err := NewCached(counting, 4)
	if err != nil {
		t.Fatalf("new cached: %v", err)
	}

	_, err = cached.Fetch(context.Background(), "u1", "v1")
	var nf NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	mem.Seed("u1", "v1", map[string]json.RawMessage{"donor.json": json.RawMessage(`{}`)})
	if _, err := cached.Fetch(context.Background(), "u1", "v1"); err != nil {
		t.Fatalf("fetch after seed: %v", err)
	}
	if got := counting.calls.Load(); got != 2 {
		t.Fatalf("expected 2 backend fetches, got %d", got)
	}
}
