// Package core defines the document index sink abstraction shared by the sink
// factory and its infra drivers.
package core

import "bundleindex/pkg/domain"

// Driver identifies a concrete sink backend implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory (tests)
	DriverSQLite   Driver = "sqlite"   // embedded SQLite (default, dev)
	DriverPostgres Driver = "postgres" // Postgres-backed index
)

// Sink is the driver-facing extension of the domain sink port.
type Sink interface {
	domain.Sink
	// Driver returns the configured backend driver identifier.
	Driver() Driver
}
