package blobstore

import (
	"context"
	"errors"
	"os"
)

var (
	// ErrNotFound is returned when a blob does not exist.
	ErrNotFound = os.ErrNotExist

	// ErrAlreadyExists is returned by conditional writes when the blob was
	// written by someone else first.
	ErrAlreadyExists = errors.New("blobstore: blob already exists")
)

// Store reads and writes whole blobs.
type Store interface {
	// Get returns the content of a blob.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put writes a blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names of blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
