// Package sink re-exports the document index abstractions for stable imports
// and selects a driver from the environment.
package sink

import (
	"fmt"
	"os"

	"bundleindex/internal/infra/sink/memory"
	"bundleindex/internal/infra/sink/postgres"
	"bundleindex/internal/infra/sink/sqlite"
	"bundleindex/internal/sink/core"
)

type (
	// Driver identifies a sink driver.
	Driver = core.Driver
	// Sink is the interface for document index backends.
	Sink = core.Sink
)

const (
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
	// DriverSQLite is the embedded SQLite driver.
	DriverSQLite = core.DriverSQLite
	// DriverPostgres is the Postgres driver.
	DriverPostgres = core.DriverPostgres
)

// Open selects a sink.Sink implementation using environment variables.
//
//	BUNDLEINDEX_SINK_DRIVER: sqlite|postgres|memory (default sqlite)
//	BUNDLEINDEX_SINK_SQLITE_PATH: database path when driver=sqlite (default ./bundleindex.db)
//	BUNDLEINDEX_SINK_POSTGRES_DSN: DSN when driver=postgres
func Open() (Sink, error) {
	driver := os.Getenv("BUNDLEINDEX_SINK_DRIVER")
	if driver == "" {
		driver = string(DriverSQLite)
	}
	switch Driver(driver) {
	case DriverSQLite:
		return sqlite.New(os.Getenv("BUNDLEINDEX_SINK_SQLITE_PATH"))
	case DriverPostgres:
		return postgres.New(os.Getenv("BUNDLEINDEX_SINK_POSTGRES_DSN"))
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown sink driver %s", driver)
	}
}
