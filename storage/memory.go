package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/ruteri/record-store/interfaces"
)

// MemoryBackend keeps records in process memory. It is safe for concurrent use.
type MemoryBackend struct {
	mu      sync.RWMutex
	name    string
	records map[interfaces.StorageKey][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(name string) *MemoryBackend {
	return &MemoryBackend{
		name:    name,
		records: make(map[interfaces.StorageKey][]byte),
	}
}

func (b *MemoryBackend) Exists(ctx context.Context, key interfaces.StorageKey) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.records[key]
	return ok, nil
}

func (b *MemoryBackend) Read(ctx context.Context, key interfaces.StorageKey) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.records[key]
	if !ok {
		return nil, interfaces.ErrRecordNotFound
	}
	return append([]byte(nil), data...), nil
}

func (b *MemoryBackend) Create(ctx context.Context, key interfaces.StorageKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.records[key]; ok {
		return interfaces.ErrRecordExists
	}
	b.records[key] = []byte{}
	return nil
}

func (b *MemoryBackend) Write(ctx context.Context, key interfaces.StorageKey, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[key] = append([]byte{}, data...)
	return nil
}

func (b *MemoryBackend) Delete(ctx context.Context, key interfaces.StorageKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.records[key]; !ok {
		return interfaces.ErrRecordNotFound
	}
	delete(b.records, key)
	return nil
}

func (b *MemoryBackend) List(ctx context.Context) ([]interfaces.StorageKey, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]interfaces.StorageKey, 0, len(b.records))
	for key := range b.records {
		keys = append(keys, key)
	}
	return keys, nil
}

func (b *MemoryBackend) Name() string {
	return fmt.Sprintf("mem-%s", b.name)
}

func (b *MemoryBackend) LocationURI() string {
	return fmt.Sprintf("mem://%s", b.name)
}
