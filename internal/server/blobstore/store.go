// Package blobstore persists raw archive bytes by key.
//
// Two backends are provided: S3Store for S3-compatible object storage and
// FSStore for a local directory. Both report common.ErrorNotFound for a
// missing key.
package blobstore

import (
	"context"
	"io"
)

// Info describes a stored object.
type Info struct {
	ETag        string
	Size        int64
	ContentType string
}

// Store is the durable blob store used by ingestion, download and delete.
type Store interface {
	// Put streams r under key. The object is not visible until Put returns
	// without error.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Get(ctx context.Context, key string) (io.ReadCloser, Info, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Presigner hands out time-limited direct download URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key, filename string) (string, error)
}
