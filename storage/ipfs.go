package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/ruteri/record-store/interfaces"
)

// IPFSBackend implements a record backend on the mutable file system (MFS) of
// an IPFS node. Records are files inside one MFS directory.
type IPFSBackend struct {
	shell       *shell.Shell
	host        string
	port        string
	root        string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates a new IPFS record backend connected to the specified
// host and port, storing records under the MFS directory root.
func NewIPFSBackend(host, port, root string, timeout time.Duration, log *slog.Logger) (*IPFSBackend, error) {
	if log == nil {
		log = slog.Default()
	}
	if host == "" {
		return nil, fmt.Errorf("IPFS host is required")
	}
	if port == "" {
		port = "5001" // Default IPFS API port
	}

	root = "/" + strings.Trim(root, "/")
	if root == "/" {
		root = "/records"
	}

	apiURL := fmt.Sprintf("%s:%s", host, port)
	sh := shell.NewShell(apiURL)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}

	return &IPFSBackend{
		shell:       sh,
		host:        host,
		port:        port,
		root:        root,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s%s", apiURL, root),
	}, nil
}

// Exists stats the MFS file for key.
func (b *IPFSBackend) Exists(ctx context.Context, key interfaces.StorageKey) (bool, error) {
	_, err := b.shell.FilesStat(ctx, b.filePath(key))
	if isIPFSNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, err)
	}
	return true, nil
}

// Read returns the content of the MFS file for key.
// Returns ErrRecordNotFound if the file doesn't exist.
func (b *IPFSBackend) Read(ctx context.Context, key interfaces.StorageKey) ([]byte, error) {
	start := time.Now()
	filePath := b.filePath(key)

	reader, err := b.shell.FilesRead(ctx, filePath)
	if err != nil {
		if isIPFSNotExist(err) {
			return nil, interfaces.ErrRecordNotFound
		}
		b.log.Error("Failed to read record from IPFS",
			slog.String("path", filePath),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to read from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		if isIPFSNotExist(err) {
			return nil, interfaces.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to read data from IPFS: %w", err)
	}

	b.log.Debug("Read record from IPFS",
		slog.String("path", filePath),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Create writes an empty MFS file after checking that none exists.
func (b *IPFSBackend) Create(ctx context.Context, key interfaces.StorageKey) error {
	exists, err := b.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return interfaces.ErrRecordExists
	}
	return b.Write(ctx, key, nil)
}

// Write replaces the MFS file for key, creating parent directories as needed.
func (b *IPFSBackend) Write(ctx context.Context, key interfaces.StorageKey, data []byte) error {
	filePath := b.filePath(key)

	err := b.shell.FilesWrite(ctx, filePath, bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return fmt.Errorf("failed to write to IPFS: %w", err)
	}

	b.log.Debug("Stored record in IPFS",
		slog.String("path", filePath),
		slog.Int("size", len(data)))
	return nil
}

// Delete removes the MFS file for key.
func (b *IPFSBackend) Delete(ctx context.Context, key interfaces.StorageKey) error {
	exists, err := b.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return interfaces.ErrRecordNotFound
	}

	if err := b.shell.FilesRm(ctx, b.filePath(key), true); err != nil {
		return fmt.Errorf("failed to remove from IPFS: %w", err)
	}
	return nil
}

// List returns the names of the entries of the MFS root directory.
// A missing root directory lists as empty.
func (b *IPFSBackend) List(ctx context.Context) ([]interfaces.StorageKey, error) {
	entries, err := b.shell.FilesLs(ctx, b.root)
	if isIPFSNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list IPFS directory: %w", err)
	}

	keys := make([]interfaces.StorageKey, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, interfaces.StorageKey(entry.Name))
	}
	return keys, nil
}

// Name returns a unique identifier for this storage backend.
func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

func (b *IPFSBackend) filePath(key interfaces.StorageKey) string {
	return path.Join(b.root, string(key))
}

// isIPFSNotExist recognizes the "file does not exist" errors of the MFS API.
func isIPFSNotExist(err error) bool {
	return err != nil && strings.Contains(err.Error(), "does not exist")
}
