// Package memory implements an in-memory document index sink for tests.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"bundleindex/internal/sink/core"
	"bundleindex/pkg/domain"
)

// Sink implements core.Sink backed by process memory. Besides the port
// surface it exposes inspection hooks and error injection for tests.
type Sink struct {
	mu      sync.Mutex
	docs    map[string]json.RawMessage
	applied int
	pending []error
}

// New returns an empty in-memory sink.
func New() *Sink {
	return &Sink{docs: make(map[string]json.RawMessage)}
}

// Driver returns the sink driver identifier.
func (s *Sink) Driver() core.Driver { return core.DriverMemory }

// Apply upserts or deletes the entity document. Injected errors are returned
// first, one per call, in FIFO order.
func (s *Sink) Apply(_ context.Context, op domain.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) > 0 {
		err := s.pending[0]
		s.pending = s.pending[1:]
		return err
	}
	s.applied++
	switch op.Kind {
	case domain.OpUpsert:
		s.docs[docKey(op.EntityType, op.EntityID)] = append(json.RawMessage(nil), op.Document...)
	case domain.OpDelete:
		delete(s.docs, docKey(op.EntityType, op.EntityID))
	}
	return nil
}

// FailNext queues an error to be returned by upcoming Apply calls.
func (s *Sink) FailNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, errs...)
}

// Document returns the stored document for an entity, if present.
func (s *Sink) Document(entityType, entityID string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docKey(entityType, entityID)]
	if !ok {
		return nil, false
	}
	return append(json.RawMessage(nil), doc...), true
}

// Len returns the number of stored documents.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Applied returns the count of successfully applied operations.
func (s *Sink) Applied() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

func docKey(entityType, entityID string) string {
	return entityType + "/" + entityID
}
