package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/record-store/interfaces"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runBackendContract exercises the behavior every RecordBackend must share.
func runBackendContract(t *testing.T, backend interfaces.RecordBackend) {
	t.Helper()
	ctx := context.Background()
	key := interfaces.StorageKey("alpha.json")

	t.Run("absent key", func(t *testing.T) {
		exists, err := backend.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = backend.Read(ctx, key)
		assert.ErrorIs(t, err, interfaces.ErrRecordNotFound)

		err = backend.Delete(ctx, key)
		assert.ErrorIs(t, err, interfaces.ErrRecordNotFound)
	})

	t.Run("create", func(t *testing.T) {
		require.NoError(t, backend.Create(ctx, key))

		exists, err := backend.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists)

		data, err := backend.Read(ctx, key)
		require.NoError(t, err)
		assert.Empty(t, data)

		err = backend.Create(ctx, key)
		assert.ErrorIs(t, err, interfaces.ErrRecordExists)
	})

	t.Run("write and overwrite", func(t *testing.T) {
		require.NoError(t, backend.Write(ctx, key, []byte(`{"a":1}`)))
		data, err := backend.Read(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"a":1}`), data)

		require.NoError(t, backend.Write(ctx, key, []byte(`{"a":2}`)))
		data, err = backend.Read(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"a":2}`), data)
	})

	t.Run("write creates missing key", func(t *testing.T) {
		require.NoError(t, backend.Write(ctx, "beta.json", []byte("b")))
		exists, err := backend.Exists(ctx, "beta.json")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("list", func(t *testing.T) {
		keys, err := backend.List(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []interfaces.StorageKey{"alpha.json", "beta.json"}, keys)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, key))

		exists, err := backend.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists)

		keys, err := backend.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []interfaces.StorageKey{"beta.json"}, keys)
	})

	t.Run("identity", func(t *testing.T) {
		assert.NotEmpty(t, backend.Name())
		assert.NotEmpty(t, backend.LocationURI())
	})
}
