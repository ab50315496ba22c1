package storage

import (
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/record-store/interfaces"
)

func TestStorageBackendFactory(t *testing.T) {
	factory := NewStorageBackendFactory(testLogger())
	dir := t.TempDir()

	tests := []struct {
		name     string
		uri      string
		wantType interface{}
		wantErr  error
	}{
		{name: "file", uri: "file://" + filepath.ToSlash(dir), wantType: &FileBackend{}},
		{name: "memory", uri: "mem://scratch", wantType: &MemoryBackend{}},
		{name: "badger in memory", uri: "badger://?memory=true", wantType: &BadgerBackend{}},
		{name: "badger on disk", uri: "badger://" + filepath.ToSlash(filepath.Join(dir, "db")), wantType: &BadgerBackend{}},
		{name: "s3", uri: "s3://AKID:SECRET@bucket/prefix/?region=eu-west-1&path_style=true", wantType: &S3Backend{}},
		{name: "vault", uri: "vault://127.0.0.1:8200/secret/records?token=t&tls=false", wantType: &VaultBackend{}},
		{name: "ipfs", uri: "ipfs://127.0.0.1:5001/records?timeout=5s", wantType: &IPFSBackend{}},
		{name: "redis", uri: "redis://:pw@127.0.0.1:6379/2?prefix=app:", wantType: &RedisBackend{}},
		{name: "unsupported scheme", uri: "ftp://host/path", wantErr: interfaces.ErrInvalidLocationURI},
		{name: "empty file path", uri: "file://", wantErr: interfaces.ErrInvalidLocationURI},
		{name: "vault without host", uri: "vault:///secret/records", wantErr: interfaces.ErrInvalidLocationURI},
		{name: "bad ipfs timeout", uri: "ipfs://127.0.0.1:5001/?timeout=soon", wantErr: interfaces.ErrInvalidLocationURI},
		{name: "bad redis database", uri: "redis://127.0.0.1:6379/zero", wantErr: interfaces.ErrInvalidLocationURI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := factory.BackendFromURI(tt.uri)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, backend)
			if closer, ok := backend.(*BadgerBackend); ok {
				require.NoError(t, closer.Close())
			}
		})
	}
}

func TestStorageBackendFactory_BackendDetails(t *testing.T) {
	factory := NewStorageBackendFactory(testLogger())

	backend, err := factory.BackendFromURI("s3://AKID:SECRET@bucket/prefix/?region=eu-west-1")
	require.NoError(t, err)
	s3Backend := backend.(*S3Backend)
	assert.Equal(t, "prefix/a.json", s3Backend.objectKey("a.json"))
	assert.Equal(t, "s3://AKID:***@bucket/prefix?region=eu-west-1", s3Backend.LocationURI())
	assert.Equal(t, "s3-bucket", s3Backend.Name())

	backend, err = factory.BackendFromURI("vault://127.0.0.1:8200/kv/app/records?tls=false")
	require.NoError(t, err)
	vaultBackend := backend.(*VaultBackend)
	assert.Equal(t, "kv/data/app/records/a.json", vaultBackend.secretPath("data", "a.json"))
	assert.Equal(t, "kv/metadata/app/records", vaultBackend.basePath("metadata"))

	backend, err = factory.BackendFromURI("ipfs://localhost")
	require.NoError(t, err)
	ipfsBackend := backend.(*IPFSBackend)
	assert.Equal(t, "/records/a.json", ipfsBackend.filePath("a.json"))
	assert.Equal(t, "ipfs://localhost:5001/records", ipfsBackend.LocationURI())

	backend, err = factory.BackendFromURI("redis://127.0.0.1:6379/3?prefix=app:")
	require.NoError(t, err)
	redisBackend := backend.(*RedisBackend)
	assert.Equal(t, "app:a.json", redisBackend.redisKey("a.json"))
	assert.Equal(t, "redis-app", redisBackend.Name())
}

func TestIsS3NotFound(t *testing.T) {
	assert.False(t, isS3NotFound(nil))
	assert.False(t, isS3NotFound(errors.New("boom")))
	assert.True(t, isS3NotFound(awserr.New(s3.ErrCodeNoSuchKey, "missing", nil)))
	assert.True(t, isS3NotFound(awserr.New("NotFound", "missing", nil)))
	assert.True(t, isS3NotFound(awserr.NewRequestFailure(awserr.New("Unknown", "", nil), http.StatusNotFound, "req")))
	assert.False(t, isS3NotFound(awserr.NewRequestFailure(awserr.New("AccessDenied", "", nil), http.StatusForbidden, "req")))
}

func TestIsIPFSNotExist(t *testing.T) {
	assert.False(t, isIPFSNotExist(nil))
	assert.True(t, isIPFSNotExist(errors.New("files/stat: file does not exist")))
	assert.False(t, isIPFSNotExist(errors.New("connection refused")))
}
