package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerBackend_InMemory(t *testing.T) {
	backend, err := NewBadgerBackend("", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	runBackendContract(t, backend)
	assert.Equal(t, "badger://?memory=true", backend.LocationURI())
}

func TestBadgerBackend_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "records.db")

	backend, err := NewBadgerBackend(dir, testLogger())
	require.NoError(t, err)
	require.NoError(t, backend.Write(ctx, "kept.json", []byte("persisted")))
	require.NoError(t, backend.Close())

	reopened, err := NewBadgerBackend(dir, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	data, err := reopened.Read(ctx, "kept.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), data)
}

func TestBadgerBackend_ListHonorsContext(t *testing.T) {
	backend, err := NewBadgerBackend("", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	ctx := context.Background()
	require.NoError(t, backend.Write(ctx, "a.json", []byte("a")))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	_, err = backend.List(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}
