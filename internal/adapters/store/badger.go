package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/iigoraya/p2p-auction/internal/domain/shared"
)

// BadgerStore implements the durable ordered store on an embedded badger
// database. Badger persists through an append-only value log and iterates
// keys in order, which matches the store contract: crash-consistent point
// lookups and upserts with single-writer read-after-write consistency.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

type BadgerStoreParams struct {
	Dir        string
	SyncWrites bool
	Logger     zerolog.Logger
}

// NewBadgerStore opens (or creates) the badger database at the configured
// directory
func NewBadgerStore(params BadgerStoreParams) (*BadgerStore, error) {
	opts := badger.DefaultOptions(params.Dir).
		WithSyncWrites(params.SyncWrites).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store at %s: %w", params.Dir, err)
	}

	return &BadgerStore{
		db:     db,
		logger: params.Logger.With().Str("component", "badger_store").Logger(),
	}, nil
}

// Get retrieves the value stored for key
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, shared.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}

	return value, nil
}

// Put upserts the value stored for key
func (s *BadgerStore) Put(ctx context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// PutIfAbsent stores the value only if the key does not exist yet
func (s *BadgerStore) PutIfAbsent(ctx context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == nil {
			return shared.ErrKeyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set([]byte(key), value)
	})

	if err != nil {
		if errors.Is(err, shared.ErrKeyExists) {
			return shared.ErrKeyExists
		}
		return fmt.Errorf("failed to conditionally write key %s: %w", key, err)
	}
	return nil
}

// Scan visits every key/value pair in key order
func (s *BadgerStore) Scan(ctx context.Context, fn func(key string, value []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("failed to read key %s: %w", string(item.Key()), err)
			}
			if err := fn(string(item.Key()), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the underlying badger database
func (s *BadgerStore) Close() error {
	s.logger.Debug().Msg("Closing badger store")
	return s.db.Close()
}
