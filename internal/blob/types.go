// Package blob implements the report cache: a thin byte-stream store used to
// keep copies of successfully fetched assembly reports so repeated enrichment
// runs do not hit the remote archive again. Backends: local filesystem,
// S3-compatible object storage, and an in-memory store for tests.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete cache backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3" // S3 / MinIO compatible
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory" // in-memory (tests)
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // User metadata (small, flat key-value)
}

// Info describes a stored report blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store provides the cache abstraction used by the ENA datasource. Put
// replaces any existing entry for the key; cached reports are refreshed in
// place when a newer copy is fetched.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// ErrNotFound is returned when a key has no cached report.
var ErrNotFound = errors.New("blob: not found")
