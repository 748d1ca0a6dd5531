package database

import (
	"context"
	"sync"

	"github.com/Aidin1998/todos/common/errors"
	"github.com/Aidin1998/todos/internal/todos"
	"github.com/tidwall/btree"
)

// MemoryStore keeps todos in an ordered in-process map. ObjectID hex keys
// sort by creation time, so FindAll returns insertion order.
type MemoryStore struct {
	mu   sync.RWMutex
	docs btree.Map[string, *todos.Todo]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(ctx context.Context, t *todos.Todo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.ID.IsZero() {
		t.ID = todos.NewID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs.Get(t.ID.Hex()); ok {
		return errors.Conflict.Explain("duplication of key %s", t.ID.Hex())
	}
	s.docs.Set(t.ID.Hex(), t.Clone())
	return nil
}

func (s *MemoryStore) FindAll(ctx context.Context) ([]*todos.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*todos.Todo, 0, s.docs.Len())
	s.docs.Scan(func(_ string, t *todos.Todo) bool {
		list = append(list, t.Clone())
		return true
	})
	return list, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id todos.ID) (*todos.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.docs.Get(id.Hex())
	if !ok {
		return nil, todos.ErrNotFound
	}
	return t.Clone(), nil
}

func (s *MemoryStore) FindByIDAndRemove(ctx context.Context, id todos.ID) (*todos.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.docs.Delete(id.Hex())
	if !ok {
		return nil, todos.ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) FindByIDAndUpdate(ctx context.Context, id todos.ID, u todos.Update) (*todos.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.docs.Get(id.Hex())
	if !ok {
		return nil, todos.ErrNotFound
	}
	updated := t.Clone()
	u.Apply(updated)
	s.docs.Set(id.Hex(), updated)
	return updated.Clone(), nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close(context.Context) error {
	return nil
}
