package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"bundleindex/pkg/domain"
)

const defaultMaxRetries = 5

// entityWriter serializes sink writes for one entity and remembers the
// highest aggregate revision written so far. Without it, two tasks merging
// into the same entity concurrently could land their snapshots in reversed
// order and leave an older document in the index.
type entityWriter struct {
	mu       sync.Mutex
	revision uint64
}

func (s *Service) entityWriter(entityType, entityID string) *entityWriter {
	key := entityType + "/" + entityID
	s.writersMu.Lock()
	defer s.writersMu.Unlock()
	w, ok := s.writers[key]
	if !ok {
		w = &entityWriter{}
		s.writers[key] = w
	}
	return w
}

// retryExhaustedError records how many attempts a sink operation consumed
// before giving up, for the fail-queue report.
type retryExhaustedError struct {
	attempts int
	err      error
}

func (e retryExhaustedError) Error() string {
	return fmt.Sprintf("sink apply failed after %d attempts: %v", e.attempts, e.err)
}

func (e retryExhaustedError) Unwrap() error { return e.err }

// writeAggregate turns an aggregate into the corresponding sink operation
// and applies it under the entity's write owner. Tombstoned aggregates delete
// the entity document; anything live is upserted. Snapshots at or below the
// last written revision are discarded: a newer document is already in the
// index. Transient sink failures are retried with exponential backoff;
// everything else fails immediately.
func (s *Service) writeAggregate(ctx context.Context, agg domain.Aggregate) error {
	op := domain.Operation{
		EntityID:   agg.EntityID,
		EntityType: agg.EntityType,
	}
	switch agg.State {
	case domain.StateTombstoned:
		op.Kind = domain.OpDelete
	case domain.StateLive:
		op.Kind = domain.OpUpsert
		doc, err := agg.Document()
		if err != nil {
			return err
		}
		op.Document = doc
	default:
		// Absent aggregates never reach the sink.
		return nil
	}

	w := s.entityWriter(agg.EntityType, agg.EntityID)
	w.mu.Lock()
	defer w.mu.Unlock()
	if agg.Revision <= w.revision {
		s.metrics.IncResult("sink_apply", "superseded")
		return nil
	}
	if err := s.applyWithRetry(ctx, op); err != nil {
		return err
	}
	w.revision = agg.Revision
	return nil
}

func (s *Service) applyWithRetry(ctx context.Context, op domain.Operation) error {
	attempt := 0
	apply := func() error {
		attempt++
		start := time.Now()
		err := s.sink.Apply(ctx, op)
		s.metrics.ObserveDuration("sink_apply", time.Since(start))
		if err == nil {
			s.metrics.IncResult("sink_apply", "ok")
			return nil
		}
		var transient domain.TransientSinkError
		if errors.As(err, &transient) {
			s.metrics.IncResult("sink_apply", "retried")
			s.log.Warn("transient sink failure",
				"entity_id", op.EntityID,
				"entity_type", op.EntityType,
				"attempt", attempt,
				"error", err)
			return err
		}
		s.metrics.IncResult("sink_apply", "failed")
		return backoff.Permanent(err)
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	if err := backoff.Retry(apply, backoff.WithContext(backoff.WithMaxRetries(bo, s.maxRetries), ctx)); err != nil {
		return retryExhaustedError{attempts: attempt, err: err}
	}
	return nil
}
