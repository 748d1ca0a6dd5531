package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Aidin1998/todos/common/dbutil"
	"github.com/Aidin1998/todos/common/errors"
	"github.com/Aidin1998/todos/internal/todos"
	"github.com/dgraph-io/badger/v3"
)

const (
	badgerKeyPrefix = "todo:"
	// maxTxnAttempts bounds retries of find-and-modify transactions that lose
	// to a concurrent writer of the same key.
	maxTxnAttempts = 10
)

// BadgerStore is an embedded document store. Each todo is a JSON value under
// "todo:<hex id>"; find-and-modify operations run inside one transaction.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens a store at path, or a purely in-memory one.
func NewBadgerStore(path string, inMemory bool) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // disable internal logging
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger db: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func badgerKey(id todos.ID) []byte {
	return []byte(badgerKeyPrefix + id.Hex())
}

func (s *BadgerStore) Create(ctx context.Context, t *todos.Todo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.ID.IsZero() {
		t.ID = todos.NewID()
	}
	val, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		key := badgerKey(t.ID)
		_, err := txn.Get(key)
		if err == nil {
			return errors.Conflict.Explain("duplication of key %s", t.ID.Hex())
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, val)
	})
}

func (s *BadgerStore) FindAll(ctx context.Context) ([]*todos.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list := make([]*todos.Todo, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			t, err := decodeBadgerItem(it.Item())
			if err != nil {
				return err
			}
			list = append(list, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *BadgerStore) FindByID(ctx context.Context, id todos.ID) (*todos.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var t *todos.Todo
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		t, err = getBadgerTodo(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *BadgerStore) FindByIDAndRemove(ctx context.Context, id todos.ID) (*todos.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var t *todos.Todo
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		if t, err = getBadgerTodo(txn, id); err != nil {
			return err
		}
		return txn.Delete(badgerKey(id))
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *BadgerStore) FindByIDAndUpdate(ctx context.Context, id todos.ID, u todos.Update) (*todos.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var t *todos.Todo
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		if t, err = getBadgerTodo(txn, id); err != nil {
			return err
		}
		u.Apply(t)
		val, err := json.Marshal(t)
		if err != nil {
			return err
		}
		return txn.Set(badgerKey(id), val)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.Unavailable.Explain("badger store is closed")
	}
	return ctx.Err()
}

func (s *BadgerStore) Close(context.Context) error {
	return s.db.Close()
}

// update runs fn in a read-write transaction, retrying when the commit
// conflicts with a concurrent transaction on the same keys.
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		if err = s.db.Update(fn); !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return errors.Conflict.Explain("todo modified concurrently").Wrap(err)
}

func getBadgerTodo(txn *badger.Txn, id todos.ID) (*todos.Todo, error) {
	item, err := txn.Get(badgerKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, todos.ErrNotFound.Wrap(err)
	}
	if err != nil {
		return nil, dbutil.WrapError(err)
	}
	return decodeBadgerItem(item)
}

func decodeBadgerItem(item *badger.Item) (*todos.Todo, error) {
	var t todos.Todo
	err := item.Value(func(v []byte) error {
		return json.Unmarshal(v, &t)
	})
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", item.Key(), err)
	}
	return &t, nil
}
