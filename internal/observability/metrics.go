// Package observability provides metrics recorders for the indexing
// pipeline: a process-local expvar exporter and a Prometheus exporter.
package observability

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"bundleindex/internal/indexer"
)

var expvarSeq uint64

var (
	_ indexer.MetricsRecorder = (*ExpvarMetricsRecorder)(nil)
	_ indexer.MetricsRecorder = (*PrometheusMetricsRecorder)(nil)
)

// ExpvarMetricsRecorder publishes pipeline timing totals and result counters
// via expvar, for deployments that prefer process-local metrics without an
// external scrape target. Durations accumulate in milliseconds per operation.
type ExpvarMetricsRecorder struct {
	name      string
	mu        sync.Mutex
	durations map[string]float64
	results   map[string]map[string]int64
}

// ExpvarMetricsSnapshot captures a read-only view of the recorded metrics.
type ExpvarMetricsSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder constructs an expvar-backed recorder and publishes
// it under the supplied name. When name is empty, a unique identifier is
// generated.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("indexer_metrics_%d", id)
	}
	rec := &ExpvarMetricsRecorder{
		name:      name,
		durations: make(map[string]float64),
		results:   make(map[string]map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name associated with the recorder.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot returns an immutable copy of the aggregated metrics.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	durations := make(map[string]float64, len(r.durations))
	for op, total := range r.durations {
		durations[op] = total
	}

	results := make(map[string]map[string]int64, len(r.results))
	for op, statusCounts := range r.results {
		cpy := make(map[string]int64, len(statusCounts))
		for status, count := range statusCounts {
			cpy[status] = count
		}
		results[op] = cpy
	}

	return ExpvarMetricsSnapshot{
		DurationsMS: durations,
		Results:     results,
		RecordedAt:  time.Now().UTC(),
	}
}

// ObserveDuration accumulates elapsed time for an operation.
func (r *ExpvarMetricsRecorder) ObserveDuration(op string, d time.Duration) {
	if op == "" {
		return
	}
	ms := float64(d) / float64(time.Millisecond)
	r.mu.Lock()
	r.durations[op] += ms
	r.mu.Unlock()
}

// IncResult counts one outcome for an operation.
func (r *ExpvarMetricsRecorder) IncResult(op string, status string) {
	if op == "" || status == "" {
		return
	}
	r.mu.Lock()
	statuses, ok := r.results[op]
	if !ok {
		statuses = make(map[string]int64)
		r.results[op] = statuses
	}
	statuses[status]++
	r.mu.Unlock()
}

// PrometheusMetricsRecorder exports pipeline metrics as a Prometheus
// histogram and counter vector.
type PrometheusMetricsRecorder struct {
	durations *prometheus.HistogramVec
	results   *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder constructs a recorder and registers its
// collectors with the given registerer (prometheus.DefaultRegisterer when
// nil).
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	rec := &PrometheusMetricsRecorder{
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bundleindex",
			Name:      "operation_duration_seconds",
			Help:      "Pipeline stage latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bundleindex",
			Name:      "operation_results_total",
			Help:      "Pipeline stage outcomes.",
		}, []string{"operation", "status"}),
	}
	for _, c := range []prometheus.Collector{rec.durations, rec.results} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return rec, nil
}

// ObserveDuration records elapsed time for an operation.
func (r *PrometheusMetricsRecorder) ObserveDuration(op string, d time.Duration) {
	if op == "" {
		return
	}
	r.durations.WithLabelValues(op).Observe(d.Seconds())
}

// IncResult counts one outcome for an operation.
func (r *PrometheusMetricsRecorder) IncResult(op string, status string) {
	if op == "" || status == "" {
		return
	}
	r.results.WithLabelValues(op, status).Inc()
}
