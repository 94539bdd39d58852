// Package core defines the bundle metadata source abstraction shared by the
// source factory and its infra drivers. Keeping the interface here breaks the
// import cycle between the factory and driver packages.
package core

import (
	"context"
	"encoding/json"
	"fmt"
)

// Driver identifies a concrete metadata source backend implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local filesystem (default, dev)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests)
)

// Store retrieves the named metadata documents of one bundle version. Bundle
// versions are immutable snapshots, so implementations may cache freely.
type Store interface {
	// Fetch returns the mapping of document name to raw JSON for the bundle.
	// Returns NotFoundError if the bundle version does not exist.
	Fetch(ctx context.Context, uuid, version string) (map[string]json.RawMessage, error)
	// Driver returns the configured backend driver identifier.
	Driver() Driver
}

// NotFoundError reports a missing bundle version.
type NotFoundError struct {
	UUID    string
	Version string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("bundle %s.%s not found", e.UUID, e.Version)
}
