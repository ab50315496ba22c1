package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/record-store/interfaces"
	"github.com/ruteri/record-store/storage"
)

// Config holds everything a Manager needs. The storage mode is derived from
// which backends are configured: local only, remote only, or both (Dual).
type Config[R any] struct {
	// Serializer converts records to bytes and declares the key extension. Required.
	Serializer interfaces.RecordSerializer[R]

	// LocalDir is the root directory of the local filesystem backend.
	LocalDir string

	// Local overrides LocalDir with an arbitrary local backend.
	Local interfaces.RecordBackend

	// Remote is the remote backend, if any.
	Remote interfaces.RecordBackend

	// Instrument, when set, wraps both backends once they are resolved
	// (e.g. with metrics.Recorder.Instrument).
	Instrument func(interfaces.RecordBackend) interfaces.RecordBackend

	// Log defaults to slog.Default().
	Log *slog.Logger
}

// localPather is implemented by backends whose records are plain files.
type localPather interface {
	Path(key interfaces.StorageKey) string
}

// Manager stores and retrieves structured records without exposing where they
// live. It holds no per-record state and takes no locks; concurrent callers
// operating on the same name are not isolated from each other.
type Manager[R any] struct {
	mode       StorageMode
	sanitizer  *Sanitizer
	serializer interfaces.RecordSerializer[R]
	dispatch   *dispatcher
	localFiles localPather
	log        *slog.Logger
}

// New creates a Manager from cfg.
func New[R any](cfg Config[R]) (*Manager[R], error) {
	if cfg.Serializer == nil {
		return nil, errors.New("records: serializer is required")
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	sanitizer, err := NewSanitizer(cfg.Serializer.Extension())
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}

	local := cfg.Local
	if local == nil && cfg.LocalDir != "" {
		local, err = storage.NewFileBackend(cfg.LocalDir, log)
		if err != nil {
			return nil, fmt.Errorf("records: local backend: %w", err)
		}
	}
	localFiles, _ := local.(localPather)

	remote := cfg.Remote
	if cfg.Instrument != nil {
		if local != nil {
			local = cfg.Instrument(local)
		}
		if remote != nil {
			remote = cfg.Instrument(remote)
		}
	}

	var mode StorageMode
	switch {
	case local != nil && remote != nil:
		mode = Dual
	case local != nil:
		mode = LocalOnly
	case remote != nil:
		mode = RemoteOnly
	default:
		return nil, fmt.Errorf("records: %w: neither a local nor a remote backend is configured", ErrInvalidMode)
	}

	m := &Manager[R]{
		mode:       mode,
		sanitizer:  sanitizer,
		serializer: cfg.Serializer,
		dispatch:   newDispatcher(mode, local, remote, log),
		localFiles: localFiles,
		log:        log,
	}

	attrs := []any{slog.String("mode", mode.String()), slog.String("extension", sanitizer.Extension())}
	if mode.usesLocal() {
		attrs = append(attrs, slog.String("local", local.LocationURI()))
	}
	if mode.usesRemote() {
		attrs = append(attrs, slog.String("remote", remote.LocationURI()))
	}
	log.Debug("Record manager configured", attrs...)

	return m, nil
}

// Mode returns the storage mode fixed at construction.
func (m *Manager[R]) Mode() StorageMode {
	return m.mode
}

// Key returns the storage key name maps to.
func (m *Manager[R]) Key(name string) (interfaces.StorageKey, error) {
	return m.sanitizer.Sanitize(name)
}

// LocalPath returns the path of the file backing name. It fails with
// ErrInvalidMode when no local directory is in use, in particular in
// RemoteOnly mode.
func (m *Manager[R]) LocalPath(name string) (string, error) {
	if !m.mode.usesLocal() || m.localFiles == nil {
		return "", fmt.Errorf("%w: %s has no local directory", ErrInvalidMode, m.mode)
	}

	key, err := m.sanitizer.Sanitize(name)
	if err != nil {
		return "", err
	}
	return m.localFiles.Path(key), nil
}

type existsOptions struct {
	mustExist  bool
	consistent bool
}

// ExistsOption changes how Exists treats absent or divergent records.
type ExistsOption func(*existsOptions)

// MustExist makes Exists fail with ErrNotFound instead of returning false.
func MustExist() ExistsOption {
	return func(o *existsOptions) { o.mustExist = true }
}

// RequireConsistent makes Exists fail with a mismatch when, in Dual mode,
// only one backend holds the record.
func RequireConsistent() ExistsOption {
	return func(o *existsOptions) { o.consistent = true }
}

// Exists reports whether a record called name exists. In Dual mode it exists
// only if both backends hold it.
func (m *Manager[R]) Exists(ctx context.Context, name string, opts ...ExistsOption) (bool, error) {
	var o existsOptions
	for _, opt := range opts {
		opt(&o)
	}

	key, err := m.sanitizer.Sanitize(name)
	if err != nil {
		return false, err
	}

	ok, err := m.dispatch.exists(ctx, key, o.consistent)
	if err != nil {
		return false, err
	}

	if !ok && o.mustExist {
		return false, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return ok, nil
}

// Create creates an empty record called name. It fails with ErrAlreadyExists
// if any active backend already holds the key.
func (m *Manager[R]) Create(ctx context.Context, name string) error {
	key, err := m.sanitizer.Sanitize(name)
	if err != nil {
		return err
	}
	return m.create(ctx, key)
}

func (m *Manager[R]) create(ctx context.Context, key interfaces.StorageKey) error {
	holder, err := m.dispatch.presentIn(ctx, key)
	if err != nil {
		return err
	}
	if holder != "" {
		return fmt.Errorf("%w: %s (%s)", ErrAlreadyExists, key, holder)
	}

	if err := m.dispatch.create(ctx, key); err != nil {
		return err
	}

	m.log.Debug("Created record", slog.String("key", key.String()))
	return nil
}

// Read returns the record called name. It fails with ErrNotFound if absent and,
// in Dual mode, with a mismatch if the two copies differ.
func (m *Manager[R]) Read(ctx context.Context, name string) (R, error) {
	var zero R

	key, err := m.sanitizer.Sanitize(name)
	if err != nil {
		return zero, err
	}

	data, err := m.dispatch.read(ctx, key)
	if err != nil {
		return zero, err
	}

	record, err := m.serializer.Deserialize(data)
	if err != nil {
		return zero, fmt.Errorf("read %s: %w", key, err)
	}
	return record, nil
}

// Write stores record under name. If the record is absent it is created first
// when createIfAbsent is set, otherwise Write fails with ErrNotFound.
func (m *Manager[R]) Write(ctx context.Context, name string, record R, createIfAbsent bool) error {
	start := time.Now()

	key, err := m.sanitizer.Sanitize(name)
	if err != nil {
		return err
	}

	data, err := m.serializer.Serialize(record)
	if err != nil {
		return fmt.Errorf("write %s: serialize: %w", key, err)
	}

	exists, err := m.dispatch.exists(ctx, key, true)
	if err != nil {
		return err
	}
	if !exists {
		if !createIfAbsent {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		if err := m.create(ctx, key); err != nil {
			return err
		}
	}

	if err := m.dispatch.write(ctx, key, data); err != nil {
		return err
	}

	m.log.Debug("Wrote record",
		slog.String("key", key.String()),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Delete removes the record called name from every active backend. It fails
// with ErrNotFound if absent.
func (m *Manager[R]) Delete(ctx context.Context, name string) error {
	key, err := m.sanitizer.Sanitize(name)
	if err != nil {
		return err
	}

	if m.mode == Dual {
		exists, err := m.dispatch.exists(ctx, key, true)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
	}

	if err := m.dispatch.delete(ctx, key); err != nil {
		return err
	}

	m.log.Debug("Deleted record", slog.String("key", key.String()))
	return nil
}

// ListContents returns every stored record in backend listing order. Any
// mismatch or read failure aborts the listing; no partial result is returned.
func (m *Manager[R]) ListContents(ctx context.Context) ([]R, error) {
	contents, err := m.dispatch.list(ctx, m.sanitizer.Extension())
	if err != nil {
		return nil, err
	}

	result := make([]R, 0, len(contents))
	for _, c := range contents {
		record, err := m.serializer.Deserialize(c.data)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", c.key, err)
		}
		result = append(result, record)
	}
	return result, nil
}
