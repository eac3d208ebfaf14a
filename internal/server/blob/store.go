// Package blob abstracts where uploaded file contents live. Metadata stays in
// PostgreSQL; the bytes go either to local disk or to an S3-compatible bucket.
package blob

import (
	"context"
	"io"
)

// Store persists file contents under a storage name assigned at upload time.
type Store interface {
	Save(ctx context.Context, name string, data io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Remove(ctx context.Context, name string) error
}
