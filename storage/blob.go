// Package storage holds the blob-store collaborator and the payment artifact store.
package storage

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by Read when nothing is stored under the key.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore persists opaque bytes under slash-separated keys.
// Write returns the public reference for the stored object.
type BlobStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
}
