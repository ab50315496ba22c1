package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/ruteri/record-store/interfaces"
)

// FileBackend implements a record backend on a directory of a filesystem.
// Every record is one regular file named after its key directly under the base directory.
type FileBackend struct {
	fs          afero.Fs
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a file backend rooted at baseDir on the OS filesystem.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	absDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	return NewFileBackendFs(afero.NewOsFs(), absDir, log)
}

// NewFileBackendFs creates a file backend rooted at baseDir on fsys.
// The base directory is created if it doesn't exist.
func NewFileBackendFs(fsys afero.Fs, baseDir string, log *slog.Logger) (*FileBackend, error) {
	if log == nil {
		log = slog.Default()
	}

	if err := fsys.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	info, err := fsys.Stat(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base directory %s is not a directory", baseDir)
	}

	return &FileBackend{
		fs:          fsys,
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", filepath.ToSlash(baseDir)),
	}, nil
}

// Path returns the file path a key is stored at.
func (b *FileBackend) Path(key interfaces.StorageKey) string {
	return filepath.Join(b.baseDir, string(key))
}

// Exists reports whether a regular file exists for key.
func (b *FileBackend) Exists(ctx context.Context, key interfaces.StorageKey) (bool, error) {
	info, err := b.fs.Stat(b.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return !info.IsDir(), nil
}

// Read returns the file content for key.
// Returns ErrRecordNotFound if the file doesn't exist.
func (b *FileBackend) Read(ctx context.Context, key interfaces.StorageKey) ([]byte, error) {
	filePath := b.Path(key)

	data, err := afero.ReadFile(b.fs, filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, interfaces.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.Debug("Read record from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Create creates an empty file for key. Returns ErrRecordExists if it already exists.
func (b *FileBackend) Create(ctx context.Context, key interfaces.StorageKey) error {
	filePath := b.Path(key)

	f, err := b.fs.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return interfaces.ErrRecordExists
	}
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	b.log.Debug("Created record file", slog.String("path", filePath))
	return nil
}

// Write replaces the file content for key, creating the file if needed.
func (b *FileBackend) Write(ctx context.Context, key interfaces.StorageKey, data []byte) error {
	filePath := b.Path(key)

	if err := afero.WriteFile(b.fs, filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	b.log.Debug("Wrote record to file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))
	return nil
}

// Delete removes the file for key. Returns ErrRecordNotFound if it doesn't exist.
func (b *FileBackend) Delete(ctx context.Context, key interfaces.StorageKey) error {
	filePath := b.Path(key)

	err := b.fs.Remove(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return interfaces.ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove file: %w", err)
	}

	b.log.Debug("Deleted record file", slog.String("path", filePath))
	return nil
}

// List returns the names of all regular files in the base directory.
func (b *FileBackend) List(ctx context.Context) ([]interfaces.StorageKey, error) {
	entries, err := afero.ReadDir(b.fs, b.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read base directory: %w", err)
	}

	keys := make([]interfaces.StorageKey, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		keys = append(keys, interfaces.StorageKey(entry.Name()))
	}
	return keys, nil
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}
