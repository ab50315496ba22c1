package interfaces

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorageBackendLocation(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		scheme   string
		host     string
		path     string
		username string
		password string
		wantErr  bool
	}{
		{
			name:   "file",
			uri:    "file:///var/lib/records",
			scheme: "file",
			path:   "/var/lib/records",
		},
		{
			name:     "s3 with credentials",
			uri:      "s3://AKID:secret@bucket/prefix?region=eu-west-1",
			scheme:   "s3",
			host:     "bucket",
			path:     "/prefix",
			username: "AKID",
			password: "secret",
		},
		{
			name:   "scheme is case insensitive",
			uri:    "REDIS://localhost:6379/0",
			scheme: "redis",
			host:   "localhost:6379",
			path:   "/0",
		},
		{
			name:    "unsupported scheme",
			uri:     "ftp://example.com/records",
			wantErr: true,
		},
		{
			name:    "malformed",
			uri:     "s3://bucket/%zz",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := NewStorageBackendLocation(tt.uri)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLocationURI)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.scheme, loc.Scheme)
			assert.Equal(t, tt.host, loc.Host)
			assert.Equal(t, tt.path, loc.Path)
			assert.Equal(t, tt.username, loc.Username())
			assert.Equal(t, tt.password, loc.Password())
			assert.Equal(t, tt.uri, loc.String())
		})
	}
}

func TestStorageBackendLocation_Params(t *testing.T) {
	loc, err := NewStorageBackendLocation("badger:///tmp/db?memory=yes&prefix=r:")
	require.NoError(t, err)

	assert.True(t, loc.GetParamBool("memory"))
	assert.False(t, loc.GetParamBool("missing"))
	assert.Equal(t, "r:", loc.GetParam("prefix"))
}

func TestStorageKey_HasExtension(t *testing.T) {
	assert.True(t, StorageKey("report.json").HasExtension(".json"))
	assert.False(t, StorageKey(".json").HasExtension(".json"))
	assert.False(t, StorageKey("report.yaml").HasExtension(".json"))
}

func TestFormatError(t *testing.T) {
	cause := errors.New("unexpected end of input")
	err := error(&FormatError{Format: "json", Err: cause})

	assert.ErrorIs(t, err, ErrMalformedRecord)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "json")
}
