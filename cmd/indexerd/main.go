// Command indexerd runs the bundle metadata indexing daemon: it consumes
// bundle notifications, transforms bundle graphs into entity documents, and
// keeps the configured document sink in sync.
package main

import (
	"context"
	"expvar"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bundleindex/internal/denorm"
	"bundleindex/internal/indexer"
	"bundleindex/internal/logging"
	"bundleindex/internal/observability"
	"bundleindex/internal/queue"
	"bundleindex/internal/sink"
	"bundleindex/internal/source"
)

var exitFunc = os.Exit

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "indexerd:", err)
		exitFunc(1)
	}
}

func run() error {
	var (
		envFile     = flag.String("env-file", "", "optional .env file loaded before reading configuration")
		metricsAddr = flag.String("metrics-addr", ":9102", "listen address for /metrics and /debug/vars (empty disables)")
		workers     = flag.Int("workers", 0, "concurrent bundle workers (default from BUNDLEINDEX_WORKERS or 4)")
	)
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else {
		// Best effort; a missing local .env is not an error.
		_ = godotenv.Load()
	}

	log, err := logging.NewFromEnv()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table, err := loadFacetTable()
	if err != nil {
		return err
	}
	den := denorm.New(table)

	store, err := source.Open(ctx)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	docSink, err := sink.Open()
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}
	q, failq, err := queue.Open(ctx)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}

	metrics, err := observability.NewPrometheusMetricsRecorder(nil)
	if err != nil {
		return err
	}
	expvarRec := observability.NewExpvarMetricsRecorder("indexer_metrics")

	opts := []indexer.Option{
		indexer.WithLogger(log),
		indexer.WithMetrics(teeMetrics{metrics, expvarRec}),
	}
	if n := workerCount(*workers); n > 0 {
		opts = append(opts, indexer.WithWorkers(n))
	}
	svc := indexer.New(store, docSink, q, failq, den, opts...)

	if *metricsAddr != "" {
		go serveMetrics(log, *metricsAddr)
	}

	log.Info("indexerd starting",
		"source_driver", string(store.Driver()),
		"sink_driver", string(docSink.Driver()),
		"queue_driver", string(q.Driver()))
	return svc.Run(ctx)
}

// loadFacetTable reads the facet rule table from BUNDLEINDEX_FACET_RULES when
// set, falling back to the built-in defaults.
func loadFacetTable() (denorm.Table, error) {
	path := os.Getenv("BUNDLEINDEX_FACET_RULES")
	if path == "" {
		return denorm.DefaultTable(), nil
	}
	table, err := denorm.LoadTableFile(path)
	if err != nil {
		return denorm.Table{}, fmt.Errorf("load facet rules %s: %w", path, err)
	}
	return table, nil
}

func workerCount(flagValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	if raw := os.Getenv("BUNDLEINDEX_WORKERS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return 0
}

func serveMetrics(log logging.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/vars", expvar.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("metrics server stopped", "error", err)
	}
}

// teeMetrics fans recordings out to both exporters.
type teeMetrics struct {
	prom   indexer.MetricsRecorder
	expvar indexer.MetricsRecorder
}

func (t teeMetrics) ObserveDuration(op string, d time.Duration) {
	t.prom.ObserveDuration(op, d)
	t.expvar.ObserveDuration(op, d)
}

func (t teeMetrics) IncResult(op string, status string) {
	t.prom.IncResult(op, status)
	t.expvar.IncResult(op, status)
}
