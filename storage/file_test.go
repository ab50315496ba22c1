package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/record-store/interfaces"
)

func TestFileBackend(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)
	runBackendContract(t, backend)
}

func TestFileBackend_MemMapFs(t *testing.T) {
	backend, err := NewFileBackendFs(afero.NewMemMapFs(), "/records", testLogger())
	require.NoError(t, err)
	runBackendContract(t, backend)
}

func TestFileBackend_Layout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	backend, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)

	require.NoError(t, backend.Write(ctx, "profile.json", []byte(`{"ok":true}`)))

	// Records are plain files named after their key.
	path := filepath.Join(dir, "profile.json")
	assert.Equal(t, path, backend.Path("profile.json"))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(content))

	assert.Equal(t, "file-"+filepath.Base(dir), backend.Name())
	assert.Equal(t, "file://"+filepath.ToSlash(dir), backend.LocationURI())
}

func TestFileBackend_IgnoresDirectories(t *testing.T) {
	ctx := context.Background()
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/records/nested.json", 0755))

	backend, err := NewFileBackendFs(fsys, "/records", testLogger())
	require.NoError(t, err)

	exists, err := backend.Exists(ctx, "nested.json")
	require.NoError(t, err)
	assert.False(t, exists)

	keys, err := backend.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFileBackend_BaseIsFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/records", []byte("x"), 0644))

	_, err := NewFileBackendFs(fsys, "/records", testLogger())
	assert.Error(t, err)
}

func TestFileBackend_CreatesBaseDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	backend, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	keys, err := backend.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []interfaces.StorageKey{}, keys)
}
