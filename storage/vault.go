package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/ruteri/record-store/interfaces"
)

// VaultConfig describes a HashiCorp Vault KV v2 location holding records.
type VaultConfig struct {
	// Address of the Vault server (e.g. https://vault.example.com:8200)
	Address string
	// MountPath of the KV v2 engine (e.g. "secret")
	MountPath string
	// DataPath within the mount (e.g. "records")
	DataPath string
	// Token authenticates requests. Falls back to VAULT_TOKEN when empty.
	Token string
	// ClientCert enables TLS client certificate authentication when set.
	ClientCert *tls.Certificate
}

// VaultBackend implements a record backend on a Vault KV v2 secrets engine.
// Each record is one secret whose "content" field holds the serialized record.
type VaultBackend struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultBackend creates a new Vault record backend.
func NewVaultBackend(cfg VaultConfig, log *slog.Logger) (*VaultBackend, error) {
	if log == nil {
		log = slog.Default()
	}

	config := api.DefaultConfig()
	if config.Error != nil {
		return nil, fmt.Errorf("failed to read Vault environment: %w", config.Error)
	}
	if cfg.Address != "" {
		config.Address = cfg.Address
	}
	if cfg.ClientCert != nil {
		config.HttpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					Certificates: []tls.Certificate{*cfg.ClientCert},
				},
			},
			Timeout: 30 * time.Second,
		}
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	mountPath := strings.Trim(cfg.MountPath, "/")
	if mountPath == "" {
		mountPath = "secret"
	}
	dataPath := strings.Trim(cfg.DataPath, "/")

	return &VaultBackend{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(config.Address, "https://"), "http://"), mountPath, dataPath),
	}, nil
}

// Exists reports whether a secret is stored for key.
func (b *VaultBackend) Exists(ctx context.Context, key interfaces.StorageKey) (bool, error) {
	_, err := b.Read(ctx, key)
	if errors.Is(err, interfaces.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Read retrieves the record stored for key.
// It uses the KV v2 API which requires a specific path structure.
func (b *VaultBackend) Read(ctx context.Context, key interfaces.StorageKey) ([]byte, error) {
	path := b.secretPath("data", key)

	secret, err := b.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		b.log.Error("Failed to read from Vault",
			slog.String("path", path),
			"err", err)
		return nil, fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, err)
	}

	if secret == nil || secret.Data == nil || secret.Data["data"] == nil {
		return nil, interfaces.ErrRecordNotFound
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}

	content, ok := data["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content key not found in Vault data")
	}

	b.log.Debug("Read record from Vault",
		slog.String("path", path),
		slog.Int("size", len(content)))

	return []byte(content), nil
}

// Create stores an empty record using check-and-set version 0, which Vault
// only accepts when no secret exists yet.
func (b *VaultBackend) Create(ctx context.Context, key interfaces.StorageKey) error {
	path := b.secretPath("data", key)

	_, err := b.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"options": map[string]interface{}{
			"cas": 0,
		},
		"data": map[string]interface{}{
			"content": "",
		},
	})
	if err != nil {
		if strings.Contains(err.Error(), "check-and-set") {
			return interfaces.ErrRecordExists
		}
		return fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, err)
	}
	return nil
}

// Write stores data for key as a new secret version.
func (b *VaultBackend) Write(ctx context.Context, key interfaces.StorageKey, data []byte) error {
	start := time.Now()
	path := b.secretPath("data", key)

	_, err := b.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"data": map[string]interface{}{
			"content": string(data),
		},
	})
	if err != nil {
		b.log.Error("Failed to write to Vault",
			slog.String("path", path),
			"err", err)
		return fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Debug("Stored record in Vault",
		slog.String("path", path),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Delete removes key with all of its versions.
func (b *VaultBackend) Delete(ctx context.Context, key interfaces.StorageKey) error {
	exists, err := b.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return interfaces.ErrRecordNotFound
	}

	if _, err := b.client.Logical().DeleteWithContext(ctx, b.secretPath("metadata", key)); err != nil {
		return fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, err)
	}
	return nil
}

// List returns the keys stored directly under the data path.
func (b *VaultBackend) List(ctx context.Context) ([]interfaces.StorageKey, error) {
	path := b.basePath("metadata")

	secret, err := b.client.Logical().ListWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}

	entries, _ := secret.Data["keys"].([]interface{})
	keys := make([]interfaces.StorageKey, 0, len(entries))
	for _, entry := range entries {
		name, ok := entry.(string)
		if !ok || strings.HasSuffix(name, "/") {
			continue
		}
		keys = append(keys, interfaces.StorageKey(name))
	}
	return keys, nil
}

// Name returns a unique identifier for this storage backend.
func (b *VaultBackend) Name() string {
	return fmt.Sprintf("vault-%s-%s", b.mountPath, b.dataPath)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}

// basePath returns the KV v2 path of the record folder for the given API
// section ("data" or "metadata").
func (b *VaultBackend) basePath(section string) string {
	if b.dataPath == "" {
		return fmt.Sprintf("%s/%s", b.mountPath, section)
	}
	return fmt.Sprintf("%s/%s/%s", b.mountPath, section, b.dataPath)
}

func (b *VaultBackend) secretPath(section string, key interfaces.StorageKey) string {
	return b.basePath(section) + "/" + string(key)
}
