package metrics

import (
	"context"
	"time"

	"github.com/ruteri/record-store/interfaces"
)

type pather interface {
	Path(key interfaces.StorageKey) string
}

type instrumentedBackend struct {
	next interfaces.RecordBackend
	rec  *Recorder
}

type instrumentedFileBackend struct {
	*instrumentedBackend
	pather
}

func (b *instrumentedBackend) Exists(ctx context.Context, key interfaces.StorageKey) (bool, error) {
	start := time.Now()
	ok, err := b.next.Exists(ctx, key)
	b.rec.observe(b.next.Name(), "exists", start, err)
	return ok, err
}

func (b *instrumentedBackend) Read(ctx context.Context, key interfaces.StorageKey) ([]byte, error) {
	start := time.Now()
	data, err := b.next.Read(ctx, key)
	b.rec.observe(b.next.Name(), "read", start, err)
	return data, err
}

func (b *instrumentedBackend) Create(ctx context.Context, key interfaces.StorageKey) error {
	start := time.Now()
	err := b.next.Create(ctx, key)
	b.rec.observe(b.next.Name(), "create", start, err)
	return err
}

func (b *instrumentedBackend) Write(ctx context.Context, key interfaces.StorageKey, data []byte) error {
	start := time.Now()
	err := b.next.Write(ctx, key, data)
	b.rec.observe(b.next.Name(), "write", start, err)
	return err
}

func (b *instrumentedBackend) Delete(ctx context.Context, key interfaces.StorageKey) error {
	start := time.Now()
	err := b.next.Delete(ctx, key)
	b.rec.observe(b.next.Name(), "delete", start, err)
	return err
}

func (b *instrumentedBackend) List(ctx context.Context) ([]interfaces.StorageKey, error) {
	start := time.Now()
	keys, err := b.next.List(ctx)
	b.rec.observe(b.next.Name(), "list", start, err)
	return keys, err
}

func (b *instrumentedBackend) Name() string {
	return b.next.Name()
}

func (b *instrumentedBackend) LocationURI() string {
	return b.next.LocationURI()
}
