// Package blobstore stores archived ranking lists as named, immutable blobs.
//
// Store is the interface every backend implements. Implementations must be
// safe for concurrent use and report missing blobs with an error satisfying
// errors.Is(err, ErrNotFound).
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, used by tests and when no archive is configured
//   - LocalStore: local filesystem, atomic writes and mmap reads
//   - minio.Store: MinIO and other S3-compatible services
//   - s3.Store: Amazon S3, optionally fronted by s3.DDBCommitStore
//
// CachingStore wraps any Store with a byte-bounded read cache.
package blobstore
