// Package postgres implements a Postgres-backed document index sink. Network
// and serialization failures are classified as transient so the writer retries
// them; constraint and encoding rejections surface as permanent errors.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"bundleindex/internal/sink/core"
	"bundleindex/pkg/domain"
)

// Compile-time contract assertion ensuring the sink satisfies the port.
var _ core.Sink = (*Sink)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/bundleindex?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Sink implements core.Sink over a jsonb documents table.
type Sink struct {
	db *sql.DB
}

// New opens a Postgres-backed sink using the provided DSN (falls back to
// defaultDSN) and ensures the documents table exists.
func New(dsn string) (*Sink, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS documents (
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		payload JSONB NOT NULL,
		PRIMARY KEY (entity_type, entity_id)
	)`); err != nil {
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &Sink{db: db}, nil
}

// Driver returns the sink driver identifier.
func (s *Sink) Driver() core.Driver { return core.DriverPostgres }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Sink) DB() *sql.DB { return s.db }

// Apply upserts or deletes the entity document.
func (s *Sink) Apply(ctx context.Context, op domain.Operation) error {
	switch op.Kind {
	case domain.OpUpsert:
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO documents(entity_type, entity_id, payload) VALUES($1,$2,$3)
			 ON CONFLICT(entity_type, entity_id) DO UPDATE SET payload=excluded.payload`,
			op.EntityType, op.EntityID, []byte(op.Document))
		return classify(op, err)
	case domain.OpDelete:
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM documents WHERE entity_type=$1 AND entity_id=$2`,
			op.EntityType, op.EntityID)
		return classify(op, err)
	}
	return fmt.Errorf("unknown sink operation %q", op.Kind)
}

// classify wraps retryable failures in TransientSinkError.
func classify(op domain.Operation, err error) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s %s/%s: %w", op.Kind, op.EntityType, op.EntityID, err)

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.TransientSinkError{Err: wrapped}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		// serialization_failure, deadlock_detected, too_many_connections,
		// admin/crash shutdown, cannot_connect_now
		case "40001", "40P01", "53300", "57P01", "57P02", "57P03":
			return domain.TransientSinkError{Err: wrapped}
		}
		return wrapped
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.TransientSinkError{Err: wrapped}
	}
	return wrapped
}
