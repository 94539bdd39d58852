// Package indexer coordinates the notification-to-document pipeline: it
// receives bundle notifications, fetches and parses metadata, denormalizes
// contributions, folds them into aggregates, and writes the results to the
// document sink. Bundles are processed concurrently; per-bundle failures go
// to the fail queue instead of stopping the worker.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"bundleindex/internal/aggregate"
	"bundleindex/internal/denorm"
	"bundleindex/internal/graph"
	queuecore "bundleindex/internal/queue/core"
	sourcecore "bundleindex/internal/source/core"
	"bundleindex/pkg/domain"
)

// Logger is the logging surface the service emits to. Args are alternating
// key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// MetricsRecorder receives pipeline timing and outcome counts. Ops are stage
// names ("notification", "fetch", "sink_apply"); statuses are "ok", "stale",
// "failed".
type MetricsRecorder interface {
	ObserveDuration(op string, d time.Duration)
	IncResult(op string, status string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveDuration(string, time.Duration) {}
func (nopMetrics) IncResult(string, string)              {}

// Defaults for service tuning knobs.
const (
	DefaultWorkers     = 4
	DefaultBatchSize   = 8
	DefaultTaskTimeout = 2 * time.Minute
)

// Service is the indexing pipeline.
type Service struct {
	store   sourcecore.Store
	sink    domain.Sink
	queue   queuecore.Queue
	failq   queuecore.FailQueue
	den     *denorm.Denormalizer
	agg     *aggregate.Aggregator
	log     Logger
	metrics MetricsRecorder

	writersMu sync.Mutex
	writers   map[string]*entityWriter

	workers     int
	batchSize   int
	taskTimeout time.Duration
	maxRetries  uint64
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics attaches a metrics recorder. The default discards everything.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithWorkers bounds how many bundles are processed concurrently.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithTaskTimeout bounds the wall time spent on a single notification.
func WithTaskTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.taskTimeout = d
		}
	}
}

// WithMaxSinkRetries bounds how many times a transient sink failure is
// retried before the bundle is reported as failed.
func WithMaxSinkRetries(n uint64) Option {
	return func(s *Service) { s.maxRetries = n }
}

// New assembles a Service. The fail queue may be nil; terminal failures are
// then only logged.
func New(store sourcecore.Store, sink domain.Sink, q queuecore.Queue, failq queuecore.FailQueue, den *denorm.Denormalizer, opts ...Option) *Service {
	s := &Service{
		store:       store,
		sink:        sink,
		queue:       q,
		failq:       failq,
		den:         den,
		agg:         aggregate.New(den.SingleValuedFacets()),
		writers:     make(map[string]*entityWriter),
		log:         nopLogger{},
		metrics:     nopMetrics{},
		workers:     DefaultWorkers,
		batchSize:   DefaultBatchSize,
		taskTimeout: DefaultTaskTimeout,
		maxRetries:  defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Aggregates exposes the in-memory aggregation state, mainly for inspection
// in tests and diagnostics.
func (s *Service) Aggregates() *aggregate.Aggregator { return s.agg }

// Run receives and processes notifications until ctx is cancelled. Workers
// share an errgroup with a concurrency limit; a failing bundle never takes
// the loop down.
func (s *Service) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	s.log.Info("indexer started", "workers", s.workers, "queue_driver", string(s.queue.Driver()))
	for {
		if err := gctx.Err(); err != nil {
			break
		}
		msgs, err := s.queue.Receive(gctx, s.batchSize)
		if err != nil {
			if gctx.Err() != nil {
				break
			}
			s.log.Error("receive failed", "error", err)
			select {
			case <-gctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		if len(msgs) == 0 {
			select {
			case <-gctx.Done():
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		for _, msg := range msgs {
			g.Go(func() error {
				s.handle(gctx, msg)
				return nil
			})
		}
	}
	err := g.Wait()
	s.log.Info("indexer stopped")
	return err
}

// handle runs one message through the pipeline under the task deadline and
// decides its fate: ack on success or terminal failure, leave for redelivery
// on shutdown or task timeout.
func (s *Service) handle(ctx context.Context, msg queuecore.Message) {
	tctx, cancel := context.WithTimeout(ctx, s.taskTimeout)
	defer cancel()
	start := time.Now()
	err := s.ProcessNotification(tctx, msg.Notification)
	s.metrics.ObserveDuration("notification", time.Since(start))
	switch {
	case err == nil:
		s.metrics.IncResult("notification", "ok")
	case ctx.Err() != nil:
		// Shutdown mid-flight; leave the message for redelivery.
		return
	case tctx.Err() != nil:
		// Task deadline expired. The task is abandoned, not failed: the
		// queue redelivers it and a healthier attempt may finish.
		s.metrics.IncResult("notification", "timeout")
		s.log.Warn("task deadline exceeded, leaving for redelivery",
			"bundle_uuid", msg.Notification.BundleUUID,
			"bundle_version", msg.Notification.BundleVersion)
		return
	default:
		s.metrics.IncResult("notification", "failed")
		s.reportFailure(ctx, msg.Notification, err)
	}
	if err := s.queue.Ack(ctx, msg); err != nil {
		s.log.Warn("ack failed", "message_id", msg.ID, "error", err)
	}
}

// ProcessNotification runs the full pipeline for one notification. The
// returned error is terminal for this bundle version; stale contributions
// inside an otherwise healthy bundle are logged and skipped, not errors.
func (s *Service) ProcessNotification(ctx context.Context, n domain.Notification) error {
	switch n.Action {
	case domain.ActionAdd:
		return s.processAdd(ctx, n)
	case domain.ActionDelete:
		return s.processDelete(ctx, n)
	default:
		return fmt.Errorf("unknown notification action %q", n.Action)
	}
}

func (s *Service) processAdd(ctx context.Context, n domain.Notification) error {
	bundle, err := s.fetchBundle(ctx, n)
	if err != nil {
		return err
	}
	contribs, err := s.den.Contributions(bundle)
	if err != nil {
		return err
	}
	return s.applyAll(ctx, contribs)
}

// processDelete re-fetches the bundle to recover the entity identities it
// contributed, then applies deletion contributions. A bundle already gone
// from the source has nothing left to tombstone.
func (s *Service) processDelete(ctx context.Context, n domain.Notification) error {
	bundle, err := s.fetchBundle(ctx, n)
	if err != nil {
		var nf sourcecore.NotFoundError
		if errors.As(err, &nf) {
			s.log.Warn("delete for unknown bundle, nothing to do",
				"bundle_uuid", n.BundleUUID, "bundle_version", n.BundleVersion)
			return nil
		}
		return err
	}
	contribs, err := s.den.Deletions(bundle)
	if err != nil {
		return err
	}
	return s.applyAll(ctx, contribs)
}

func (s *Service) fetchBundle(ctx context.Context, n domain.Notification) (domain.Bundle, error) {
	start := time.Now()
	docs, err := s.store.Fetch(ctx, n.BundleUUID, n.BundleVersion)
	s.metrics.ObserveDuration("fetch", time.Since(start))
	if err != nil {
		return domain.Bundle{}, err
	}
	return graph.Parse(n.BundleUUID, n.BundleVersion, docs)
}

// applyAll folds contributions into the aggregator and writes each resulting
// aggregate to the sink. Stale contributions are skipped without touching the
// sink; the recorded state is already newer.
func (s *Service) applyAll(ctx context.Context, contribs []domain.Contribution) error {
	for _, c := range contribs {
		agg, err := s.agg.Apply(c)
		if err != nil {
			var stale domain.StaleContributionError
			if errors.As(err, &stale) {
				s.metrics.IncResult("contribution", "stale")
				s.log.Warn("stale contribution skipped",
					"entity_id", stale.EntityID,
					"bundle_uuid", stale.BundleUUID,
					"bundle_version", stale.BundleVersion,
					"known_version", stale.KnownVersion)
				continue
			}
			return err
		}
		if err := s.writeAggregate(ctx, agg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) reportFailure(ctx context.Context, n domain.Notification, cause error) {
	report := domain.FailureReport{
		BundleUUID:    n.BundleUUID,
		BundleVersion: n.BundleVersion,
		Stage:         classifyStage(cause),
		Reason:        cause.Error(),
		OccurredAt:    time.Now().UTC(),
	}
	var exhausted retryExhaustedError
	if errors.As(cause, &exhausted) {
		report.Attempts = exhausted.attempts
	}
	s.log.Error("bundle failed",
		"bundle_uuid", n.BundleUUID,
		"bundle_version", n.BundleVersion,
		"stage", report.Stage,
		"error", cause)
	if s.failq == nil {
		return
	}
	if err := s.failq.Publish(ctx, report); err != nil {
		s.log.Error("failure report not published", "bundle_uuid", n.BundleUUID, "error", err)
	}
}

// classifyStage names the pipeline stage a terminal error came from, for
// operator triage on the fail queue.
func classifyStage(err error) string {
	var (
		malformed domain.MalformedBundleError
		cyclic    domain.CyclicGraphError
		transient domain.TransientSinkError
		notFound  sourcecore.NotFoundError
	)
	switch {
	case errors.As(err, &notFound):
		return "fetch"
	case errors.As(err, &malformed), errors.As(err, &cyclic):
		return "parse"
	case errors.As(err, &transient):
		return "sink"
	default:
		return "process"
	}
}
