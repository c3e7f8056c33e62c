// Package factory selects an artifact store backend from environment
// variables or an explicit driver name.
package factory

import (
	"context"
	"fmt"
	"os"

	"crmcore/internal/infra/blob"
	"crmcore/internal/infra/blob/fs"
	"crmcore/internal/infra/blob/memory"
	"crmcore/internal/infra/blob/s3"
)

// Open builds the artifact store for the named driver. An empty driver
// falls back to the filesystem backend.
//
//	fs:     root directory from CRMCORE_BLOB_FS_ROOT (default ./crmcore-archive)
//	s3:     bucket and endpoint from CRMCORE_BLOB_S3_* (see the s3 package)
//	memory: process-local, for tests
func Open(ctx context.Context, driver blob.Driver) (blob.Store, error) {
	if driver == "" {
		driver = blob.DriverFilesystem
	}
	switch driver {
	case blob.DriverFilesystem:
		return fs.New(os.Getenv("CRMCORE_BLOB_FS_ROOT"))
	case blob.DriverS3:
		return s3.OpenFromEnv(ctx)
	case blob.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// OpenFromEnv reads the driver name from CRMCORE_BLOB_DRIVER.
func OpenFromEnv(ctx context.Context) (blob.Store, error) {
	return Open(ctx, blob.Driver(os.Getenv("CRMCORE_BLOB_DRIVER")))
}
