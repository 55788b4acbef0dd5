// Package badger provides the durable task store backed by BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/mynkchaudhry/VendorDocComparsion/core"
	"github.com/mynkchaudhry/VendorDocComparsion/task"
)

// Key prefixes. Task records live under taskPrefix; the owner index
// maps owner to task ids for listing.
const (
	taskPrefix  = "task"
	ownerPrefix = "taskown"
)

func makeTaskKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", taskPrefix, id))
}

func makeOwnerKey(owner, id string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", ownerPrefix, owner, id))
}

func makeOwnerScanPrefix(owner string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", ownerPrefix, owner))
}

// Store persists tasks in BadgerDB. Terminal records are written with
// a TTL so finished work ages out without a sweeper.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ task.Store = (*Store)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens the task store at path. Creates the directory if it
// doesn't exist. With inMemory set, nothing touches disk; that mode is
// for tests, not the degraded fallback (see task.MemoryStore).
func Open(path string, inMemory bool) (*Store, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(path, 0755); err != nil {
				return nil, err
			}
			info, err = os.Stat(path)
			if err != nil {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", path)
		}
		opts = badger.DefaultOptions(path)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:     db,
		logger: slog.Default().With("component", "task-store"),
	}, nil
}

// Put implements task.Store.
func (s *Store) Put(_ context.Context, t *core.Task) error {
	return s.write(t, 0)
}

// PutWithTTL implements task.Store.
func (s *Store) PutWithTTL(_ context.Context, t *core.Task, ttl time.Duration) error {
	return s.write(t, ttl)
}

func (s *Store) write(t *core.Task, ttl time.Duration) error {
	data, err := task.MarshalTask(t)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		record := badger.NewEntry(makeTaskKey(t.ID), data)
		index := badger.NewEntry(makeOwnerKey(t.Owner, t.ID), []byte(t.ID))
		if ttl > 0 {
			record = record.WithTTL(ttl)
			index = index.WithTTL(ttl)
		}
		if err := txn.SetEntry(record); err != nil {
			return err
		}
		return txn.SetEntry(index)
	})
}

// Get implements task.Store.
func (s *Store) Get(_ context.Context, id string) (*core.Task, error) {
	var t *core.Task
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeTaskKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			t, err = task.UnmarshalTask(val)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, task.ErrTaskNotFound
		}
		return nil, err
	}
	return t, nil
}

// ListByOwner implements task.Store.
func (s *Store) ListByOwner(_ context.Context, owner string) ([]*core.Task, error) {
	var tasks []*core.Task

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeOwnerScanPrefix(owner)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id string
			if err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			item, err := txn.Get(makeTaskKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				// Record expired ahead of its index entry.
				continue
			}
			if err != nil {
				return err
			}
			if err := item.Value(func(val []byte) error {
				t, err := task.UnmarshalTask(val)
				if err != nil {
					return err
				}
				tasks = append(tasks, t)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Durable implements task.Store.
func (s *Store) Durable() bool { return true }

// Close implements task.Store.
func (s *Store) Close() error {
	return s.db.Close()
}
