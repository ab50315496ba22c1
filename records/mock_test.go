package records

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/ruteri/record-store/interfaces"
)

// MockRecordBackend implements interfaces.RecordBackend for testing
type MockRecordBackend struct {
	mock.Mock
	name string
}

func (m *MockRecordBackend) Exists(ctx context.Context, key interfaces.StorageKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockRecordBackend) Read(ctx context.Context, key interfaces.StorageKey) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockRecordBackend) Create(ctx context.Context, key interfaces.StorageKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockRecordBackend) Write(ctx context.Context, key interfaces.StorageKey, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

func (m *MockRecordBackend) Delete(ctx context.Context, key interfaces.StorageKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockRecordBackend) List(ctx context.Context) ([]interfaces.StorageKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.StorageKey), args.Error(1)
}

func (m *MockRecordBackend) Name() string {
	return m.name
}

func (m *MockRecordBackend) LocationURI() string {
	return "mock://" + m.name
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
