package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	badgerdb "github.com/dgraph-io/badger/v3"

	"github.com/ruteri/record-store/interfaces"
)

const badgerKeyPrefix = "record/"

// BadgerBackend implements a record backend on an embedded BadgerDB.
type BadgerBackend struct {
	db          *badgerdb.DB
	log         *slog.Logger
	locationURI string
}

// NewBadgerBackend opens (or creates) a Badger database at dir. An empty dir
// opens a purely in-memory database.
func NewBadgerBackend(dir string, log *slog.Logger) (*BadgerBackend, error) {
	if log == nil {
		log = slog.Default()
	}

	opts := badgerdb.DefaultOptions(dir)
	uri := fmt.Sprintf("badger://%s", dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
		uri = "badger://?memory=true"
	}
	opts = opts.WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	log.Debug("Opened badger database", slog.String("uri", uri))

	return &BadgerBackend{
		db:          db,
		log:         log,
		locationURI: uri,
	}, nil
}

// Close closes the underlying database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

func (b *BadgerBackend) Exists(ctx context.Context, key interfaces.StorageKey) (bool, error) {
	var exists bool
	err := b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(badgerKey(key))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to look up key: %w", err)
	}
	return exists, nil
}

func (b *BadgerBackend) Read(ctx context.Context, key interfaces.StorageKey) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(badgerKey(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, interfaces.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}
	return data, nil
}

// Create checks and inserts within one transaction; a concurrent creator
// fails with a conflict.
func (b *BadgerBackend) Create(ctx context.Context, key interfaces.StorageKey) error {
	err := b.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(badgerKey(key))
		if err == nil {
			return interfaces.ErrRecordExists
		}
		if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}
		return txn.Set(badgerKey(key), []byte{})
	})
	if errors.Is(err, interfaces.ErrRecordExists) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to create key: %w", err)
	}
	return nil
}

func (b *BadgerBackend) Write(ctx context.Context, key interfaces.StorageKey, data []byte) error {
	err := b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(badgerKey(key), append([]byte{}, data...))
	})
	if err != nil {
		return fmt.Errorf("failed to write key: %w", err)
	}
	return nil
}

func (b *BadgerBackend) Delete(ctx context.Context, key interfaces.StorageKey) error {
	err := b.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(badgerKey(key)); err != nil {
			return err
		}
		return txn.Delete(badgerKey(key))
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return interfaces.ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// List iterates over the record prefix without fetching values.
func (b *BadgerBackend) List(ctx context.Context) ([]interfaces.StorageKey, error) {
	var keys []interfaces.StorageKey
	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(badgerKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			k := it.Item().Key()
			keys = append(keys, interfaces.StorageKey(k[len(badgerKeyPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

func (b *BadgerBackend) Name() string {
	return "badger"
}

func (b *BadgerBackend) LocationURI() string {
	return b.locationURI
}

func badgerKey(key interfaces.StorageKey) []byte {
	return []byte(badgerKeyPrefix + string(key))
}
