package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend(t *testing.T) {
	runBackendContract(t, NewMemoryBackend("test"))
}

func TestMemoryBackend_CopiesData(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend("copy")

	data := []byte("original")
	require.NoError(t, backend.Write(ctx, "a.json", data))
	data[0] = 'X'

	stored, err := backend.Read(ctx, "a.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), stored)

	stored[0] = 'Y'
	again, err := backend.Read(ctx, "a.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)

	assert.Equal(t, "mem-copy", backend.Name())
	assert.Equal(t, "mem://copy", backend.LocationURI())
}
