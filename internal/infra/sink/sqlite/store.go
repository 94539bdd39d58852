// Package sqlite implements a SQLite-backed document index sink using the
// pure-Go driver. Suitable for development and single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"bundleindex/internal/sink/core"
	"bundleindex/pkg/domain"
)

// Sink implements core.Sink over a single documents table keyed by
// (entity_type, entity_id).
type Sink struct {
	db   *sql.DB
	path string
}

// New opens (creating if needed) a SQLite-backed sink at path.
func New(path string) (*Sink, error) {
	if path == "" {
		path = "bundleindex.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (entity_type, entity_id)
	)`); err != nil {
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &Sink{db: db, path: path}, nil
}

// Driver returns the sink driver identifier.
func (s *Sink) Driver() core.Driver { return core.DriverSQLite }

// Apply upserts or deletes the entity document.
func (s *Sink) Apply(ctx context.Context, op domain.Operation) error {
	switch op.Kind {
	case domain.OpUpsert:
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO documents(entity_type, entity_id, payload) VALUES(?,?,?)
			 ON CONFLICT(entity_type, entity_id) DO UPDATE SET payload=excluded.payload`,
			op.EntityType, op.EntityID, []byte(op.Document))
		if err != nil {
			return fmt.Errorf("upsert %s/%s: %w", op.EntityType, op.EntityID, err)
		}
		return nil
	case domain.OpDelete:
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM documents WHERE entity_type=? AND entity_id=?`,
			op.EntityType, op.EntityID)
		if err != nil {
			return fmt.Errorf("delete %s/%s: %w", op.EntityType, op.EntityID, err)
		}
		return nil
	}
	return fmt.Errorf("unknown sink operation %q", op.Kind)
}

// Document returns the stored document for an entity, if present.
func (s *Sink) Document(ctx context.Context, entityType, entityID string) (json.RawMessage, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM documents WHERE entity_type=? AND entity_id=?`,
		entityType, entityID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// Close releases the database handle.
func (s *Sink) Close() error { return s.db.Close() }
