// Package blobstore provides object storage for uploaded prescription
// documents. It defines the Store interface, an S3 implementation, and an
// in-memory implementation suitable for testing and development.
package blobstore

import (
	"context"
	"errors"
	"time"
)

// ErrBlobNotFound is returned when a key does not exist in the store.
var ErrBlobNotFound = errors.New("blob not found")

// Store is the object storage surface the document domain needs.
type Store interface {
	// Put stores data under key, overwriting any existing object.
	Put(ctx context.Context, key, contentType string, data []byte) error
	// Get returns the object's bytes, or ErrBlobNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) bool
	// DeleteIfExists removes key; a missing object is not an error.
	DeleteIfExists(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL. disposition, when
	// non-empty, is passed through as the response Content-Disposition.
	PresignGet(ctx context.Context, key, disposition string, expires time.Duration) (string, error)
}
