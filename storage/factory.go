package storage

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ruteri/record-store/interfaces"
)

var (
	_ interfaces.StorageBackendFactory = (*StorageBackendFactory)(nil)

	_ interfaces.RecordBackend = (*FileBackend)(nil)
	_ interfaces.RecordBackend = (*MemoryBackend)(nil)
	_ interfaces.RecordBackend = (*S3Backend)(nil)
	_ interfaces.RecordBackend = (*VaultBackend)(nil)
	_ interfaces.RecordBackend = (*IPFSBackend)(nil)
	_ interfaces.RecordBackend = (*RedisBackend)(nil)
	_ interfaces.RecordBackend = (*BadgerBackend)(nil)
)

// StorageBackendFactory creates record backends from location URIs.
type StorageBackendFactory struct {
	log *slog.Logger
}

// NewStorageBackendFactory creates a new factory instance that can create storage backends.
func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageBackendFactory{
		log: logger,
	}
}

// BackendFromURI parses uri and creates the matching backend.
func (sf *StorageBackendFactory) BackendFromURI(uri string) (interfaces.RecordBackend, error) {
	loc, err := interfaces.NewStorageBackendLocation(uri)
	if err != nil {
		return nil, err
	}
	return sf.StorageBackendFor(loc)
}

// StorageBackendFor creates a storage backend from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - file:// - Local filesystem directory
//   - mem:// - Process memory, for tests and dry runs
//   - s3:// - Amazon S3 or compatible object storage
//   - vault:// - HashiCorp Vault KV v2 secrets engine
//   - ipfs:// - IPFS mutable file system
//   - redis:// - Redis string values
//   - badger:// - Embedded BadgerDB
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (sf *StorageBackendFactory) StorageBackendFor(loc interfaces.StorageBackendLocation) (interfaces.RecordBackend, error) {
	switch loc.Scheme {
	case "file":
		return sf.createFileBackend(loc)
	case "mem":
		return NewMemoryBackend(loc.Host), nil
	case "s3":
		return sf.createS3Backend(loc)
	case "vault":
		return sf.createVaultBackend(loc)
	case "ipfs":
		return sf.createIPFSBackend(loc)
	case "redis":
		return sf.createRedisBackend(loc)
	case "badger":
		return sf.createBadgerBackend(loc)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme %s", interfaces.ErrInvalidLocationURI, loc.Scheme)
	}
}

// createFileBackend creates a file system storage backend.
// URI format: file:///absolute/path/ or file://./relative/path/
func (sf *StorageBackendFactory) createFileBackend(loc interfaces.StorageBackendLocation) (interfaces.RecordBackend, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", loc.String()))

	dir := loc.Path
	if loc.Host != "" {
		dir = loc.Host + "/" + strings.TrimPrefix(dir, "/")
	}
	if dir == "" {
		return nil, fmt.Errorf("%w: empty path in file URI %s", interfaces.ErrInvalidLocationURI, loc.String())
	}

	return NewFileBackend(dir, sf.log)
}

// createS3Backend creates an S3 or S3-compatible storage backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=custom.s3.com&path_style=true
func (sf *StorageBackendFactory) createS3Backend(loc interfaces.StorageBackendLocation) (interfaces.RecordBackend, error) {
	sf.log.Debug("Creating S3 backend", slog.String("bucket", loc.Host))

	return NewS3Backend(S3Config{
		Bucket:    loc.Host,
		Prefix:    loc.Path,
		Region:    loc.GetParam("region"),
		Endpoint:  loc.GetParam("endpoint"),
		AccessKey: loc.Username(),
		SecretKey: loc.Password(),
		PathStyle: loc.GetParamBool("path_style"),
	}, sf.log)
}

// createVaultBackend creates a Vault KV v2 backend.
// URI format: vault://vault.example.com:8200/mount/path?token=...&tls=false
// TLS is used unless tls=false is given.
func (sf *StorageBackendFactory) createVaultBackend(loc interfaces.StorageBackendLocation) (interfaces.RecordBackend, error) {
	sf.log.Debug("Creating Vault backend", slog.String("host", loc.Host))

	if loc.Host == "" {
		return nil, fmt.Errorf("%w: missing Vault address in %s", interfaces.ErrInvalidLocationURI, loc.String())
	}

	scheme := "https"
	if v := loc.GetParam("tls"); v == "false" || v == "0" || v == "no" {
		scheme = "http"
	}

	mount, dataPath, _ := strings.Cut(strings.Trim(loc.Path, "/"), "/")

	return NewVaultBackend(VaultConfig{
		Address:   fmt.Sprintf("%s://%s", scheme, loc.Host),
		MountPath: mount,
		DataPath:  dataPath,
		Token:     loc.GetParam("token"),
	}, sf.log)
}

// createIPFSBackend creates an IPFS MFS backend.
// URI format: ipfs://host:port/mfs/root?timeout=30s
func (sf *StorageBackendFactory) createIPFSBackend(loc interfaces.StorageBackendLocation) (interfaces.RecordBackend, error) {
	sf.log.Debug("Creating IPFS backend", slog.String("host", loc.Host))

	host, port, found := strings.Cut(loc.Host, ":")
	if !found {
		port = ""
	}

	var timeout time.Duration
	if raw := loc.GetParam("timeout"); raw != "" {
		var err error
		timeout, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timeout %q: %v", interfaces.ErrInvalidLocationURI, raw, err)
		}
	}

	return NewIPFSBackend(host, port, loc.Path, timeout, sf.log)
}

// createRedisBackend creates a Redis backend.
// URI format: redis://[:password@]host:6379/0?prefix=records:
func (sf *StorageBackendFactory) createRedisBackend(loc interfaces.StorageBackendLocation) (interfaces.RecordBackend, error) {
	sf.log.Debug("Creating Redis backend", slog.String("addr", loc.Host))

	db := 0
	if raw := strings.Trim(loc.Path, "/"); raw != "" {
		var err error
		db, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid redis database %q", interfaces.ErrInvalidLocationURI, raw)
		}
	}

	return NewRedisBackend(RedisConfig{
		Addr:      loc.Host,
		Password:  loc.Password(),
		DB:        db,
		KeyPrefix: loc.GetParam("prefix"),
	}, sf.log)
}

// createBadgerBackend creates an embedded Badger backend.
// URI format: badger:///absolute/path or badger://?memory=true
func (sf *StorageBackendFactory) createBadgerBackend(loc interfaces.StorageBackendLocation) (interfaces.RecordBackend, error) {
	sf.log.Debug("Creating badger backend", slog.String("uri", loc.String()))

	if loc.GetParamBool("memory") {
		return NewBadgerBackend("", sf.log)
	}

	dir := loc.Path
	if loc.Host != "" {
		dir = loc.Host + "/" + strings.TrimPrefix(dir, "/")
	}
	if dir == "" {
		return nil, fmt.Errorf("%w: empty path in badger URI %s", interfaces.ErrInvalidLocationURI, loc.String())
	}
	return NewBadgerBackend(dir, sf.log)
}
