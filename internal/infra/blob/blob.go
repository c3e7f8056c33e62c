// Package blob defines the artifact store contract used to archive
// generated report documents, with filesystem, in-memory, and S3
// compatible backends underneath.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete artifact store backend.
type Driver string

const (
	// DriverFilesystem stores artifacts under a local directory.
	DriverFilesystem Driver = "fs"
	// DriverS3 stores artifacts in an S3 or MinIO compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps artifacts in process memory, for tests.
	DriverMemory Driver = "memory"
)

// ErrNotFound is returned when no artifact exists under a key.
var ErrNotFound = errors.New("artifact not found")

// PutOptions carries optional artifact attributes.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes one stored artifact.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is the artifact persistence surface. Put overwrites an
// existing key so a rerun archiving the same period is idempotent.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// CloneMetadata copies a metadata map so stored attributes cannot be
// mutated through the caller's reference.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
