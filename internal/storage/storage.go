// Package storage persists batch artifacts. It hides whether artifacts land
// in a local directory or an S3-compatible bucket.
package storage

import (
	"context"
	"io"
)

// FileStore is a minimal interface for artifact storage.
//
// Paths are forward-slash separated and relative to the store root.
type FileStore interface {
	// Read opens the named artifact. The caller must close it. A missing
	// artifact yields an error wrapping os.ErrNotExist.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named artifact for writing, truncating any previous
	// content. Data is durable only after Close returns nil.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Exists reports whether the named artifact exists.
	Exists(ctx context.Context, path string) (bool, error)

	// Location returns a human-readable locator for path, such as a file
	// path or an s3:// URL.
	Location(path string) string
}
