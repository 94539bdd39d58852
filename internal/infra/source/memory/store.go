// Package memory implements an in-memory bundle metadata source for tests.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"bundleindex/internal/source/core"
)

// Store implements core.Store backed by process memory. Intended for tests.
type Store struct {
	mu      sync.RWMutex
	bundles map[string]map[string]json.RawMessage
}

// New returns an empty in-memory source.
func New() *Store {
	return &Store{bundles: make(map[string]map[string]json.RawMessage)}
}

// Driver returns the source driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Seed registers the documents of one bundle version.
func (s *Store) Seed(uuid, version string, docs map[string]json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := make(map[string]json.RawMessage, len(docs))
	for name, doc := range docs {
		entry[name] = append(json.RawMessage(nil), doc...)
	}
	s.bundles[uuid+"."+version] = entry
}

// Remove forgets a bundle version; subsequent fetches report NotFoundError.
func (s *Store) Remove(uuid, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bundles, uuid+"."+version)
}

// Fetch returns a copy of the seeded documents.
func (s *Store) Fetch(_ context.Context, uuid, version string) (map[string]json.RawMessage, error) {
	s.mu.RLock()
	entry, ok := s.bundles[uuid+"."+version]
	s.mu.RUnlock()
	if !ok {
		return nil, core.NotFoundError{UUID: uuid, Version: version}
	}
	out := make(map[string]json.RawMessage, len(entry))
	for name, doc := range entry {
		out[name] = append(json.RawMessage(nil), doc...)
	}
	return out, nil
}
