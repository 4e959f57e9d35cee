// Package mmap maps archive files read-only into memory.
//
// Mapping is safe for concurrent reads. Close is idempotent; the slice
// returned by Bytes must not be used after Close.
package mmap
