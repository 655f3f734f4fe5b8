package storage

import (
	"context"
	"testing"
	"time"

	"github.com/localnerve/lxnotes/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DisabledWithoutBucket(t *testing.T) {
	store, err := New(&config.Config{}, nil)
	require.NoError(t, err)
	assert.False(t, store.Enabled())

	ctx := context.Background()
	assert.ErrorIs(t, store.Put(ctx, "k", []byte("x"), "text/plain"), ErrDisabled)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = store.PresignGet(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNewS3Store_Validation(t *testing.T) {
	_, err := NewS3Store(&config.Config{StorageBucket: "lx"}, nil)
	assert.ErrorContains(t, err, "credentials")

	store, err := NewS3Store(&config.Config{
		StorageBucket:       "lx",
		StorageAccessKey:    "key",
		StorageSecretKey:    "secret",
		StorageEndpoint:     "minio:9000",
		StorageUsePathStyle: true,
	}, nil)
	require.NoError(t, err)
	assert.True(t, store.Enabled())

	link, err := store.PresignGet(context.Background(), ReportKey("p1", time.Date(2026, 3, 1, 19, 30, 0, 0, time.UTC)), time.Hour)
	require.NoError(t, err)
	assert.Contains(t, link, "https://minio:9000/lx/reports/p1/20260301T193000Z-notes.pdf")
	assert.Contains(t, link, "X-Amz-Signature")
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "checkpoints/p1/c1.json", CheckpointKey("p1", "c1"))
}
