// Package objectstore provides byte-level CRUD over local filesystem or
// S3-compatible object storage, mirroring the capability surface the
// Mosaico core needs: read, write, list-with-extension-filter, size,
// delete, and recursive delete.
package objectstore

import (
	"context"
	"net/url"
)

// Store is the capability interface every backend implements.
type Store interface {
	// URLSchema identifies the backend for diagnostics and REPL use:
	// "file://" for local filesystem, "s3://<bucket>" for S3-compatible.
	URLSchema() *url.URL

	ReadBytes(ctx context.Context, path string) ([]byte, error)
	WriteBytes(ctx context.Context, path string, data []byte) error

	// List returns object keys under prefix. When extension is non-empty,
	// only keys whose extension matches exactly are returned; keys with no
	// extension, or a different one, are excluded.
	List(ctx context.Context, prefix, extension string) ([]string, error)

	Size(ctx context.Context, path string) (int64, error)
	Delete(ctx context.Context, path string) error
	DeleteRecursive(ctx context.Context, prefix string) error
}
