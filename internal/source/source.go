// Package source re-exports the bundle metadata source abstractions for
// stable imports and selects a driver from the environment.
package source

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"bundleindex/internal/infra/source/fs"
	"bundleindex/internal/infra/source/memory"
	"bundleindex/internal/infra/source/s3"
	"bundleindex/internal/source/core"
)

type (
	// Driver identifies a metadata source driver.
	Driver = core.Driver
	// Store is the interface for bundle metadata backends.
	Store = core.Store
	// NotFoundError reports a missing bundle version.
	NotFoundError = core.NotFoundError
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// Open selects a source.Store implementation using environment variables.
//
//	BUNDLEINDEX_SOURCE_DRIVER: fs|s3|memory (default fs)
//	BUNDLEINDEX_SOURCE_FS_ROOT: directory root when driver=fs (default ./bundledata)
//	BUNDLEINDEX_SOURCE_CACHE_SIZE: LRU entries for fetched bundles (default 128, 0 disables)
//	(S3 specific variables documented in the s3 driver)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("BUNDLEINDEX_SOURCE_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	var (
		store Store
		err   error
	)
	switch Driver(driver) {
	case DriverFilesystem:
		store, err = fs.New(os.Getenv("BUNDLEINDEX_SOURCE_FS_ROOT"))
	case DriverS3:
		store, err = s3.OpenFromEnv(ctx)
	case DriverMemory:
		store, err = memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown source driver %s", driver)
	}
	if err != nil {
		return nil, err
	}

	size := 128
	if raw := os.Getenv("BUNDLEINDEX_SOURCE_CACHE_SIZE"); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid BUNDLEINDEX_SOURCE_CACHE_SIZE: %w", err)
		}
	}
	if size <= 0 {
		return store, nil
	}
	return NewCached(store, size)
}
