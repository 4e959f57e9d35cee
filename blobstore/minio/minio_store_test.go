package minio

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/visor/blobstore"
)

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	bucket := "test-visor"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, fmt.Sprintf("test-%d/", time.Now().UnixNano()))

	_, err = store.Get(ctx, "missing.vrl")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "lists/a.vrl", data))

	got, err := store.Get(ctx, "lists/a.vrl")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	assert.ErrorIs(t, store.PutIfAbsent(ctx, "lists/a.vrl", []byte("other")), blobstore.ErrAlreadyExists)
	require.NoError(t, store.PutIfAbsent(ctx, "lists/b.vrl", []byte("b")))

	names, err := store.List(ctx, "lists/")
	require.NoError(t, err)
	assert.Equal(t, []string{"lists/a.vrl", "lists/b.vrl"}, names)

	require.NoError(t, store.Delete(ctx, "lists/a.vrl"))
	require.NoError(t, store.Delete(ctx, "lists/b.vrl"))
	require.NoError(t, store.Delete(ctx, "lists/b.vrl"))
}
