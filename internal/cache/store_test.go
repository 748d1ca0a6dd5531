package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Aidin1998/todos/common/errors"
	"github.com/Aidin1998/todos/internal/database"
	"github.com/Aidin1998/todos/internal/todos"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *database.MemoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	backing := database.NewMemoryStore()
	return NewStore(backing, client, time.Minute, nil), backing, mr
}

func TestStore_CreatePopulatesCache(t *testing.T) {
	ctx := context.Background()
	store, _, mr := newTestStore(t)

	todo := &todos.Todo{Text: "First to-do"}
	require.NoError(t, store.Create(ctx, todo))

	key := defaultKeyPrefix + todo.ID.Hex()
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	got, err := store.FindByID(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, todo, got)
	assert.Equal(t, Stats{Hits: 1}, store.Stats())
}

func TestStore_ReadThrough(t *testing.T) {
	ctx := context.Background()
	store, backing, mr := newTestStore(t)

	todo := &todos.Todo{Text: "Second to-do"}
	require.NoError(t, backing.Create(ctx, todo))

	got, err := store.FindByID(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, "Second to-do", got.Text)
	assert.True(t, mr.Exists(defaultKeyPrefix+todo.ID.Hex()))

	_, err = store.FindByID(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, Stats{Hits: 1, Misses: 1}, store.Stats())
}

func TestStore_MissingTodoIsNotCached(t *testing.T) {
	ctx := context.Background()
	store, _, mr := newTestStore(t)

	id := todos.NewID()
	_, err := store.FindByID(ctx, id)
	require.ErrorIs(t, err, errors.NotFound)
	assert.False(t, mr.Exists(defaultKeyPrefix+id.Hex()))
}

func TestStore_UpdateInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	store, _, mr := newTestStore(t)

	todo := &todos.Todo{Text: "First to-do"}
	require.NoError(t, store.Create(ctx, todo))

	at := int64(1_700_000_000_000)
	text := "X"
	_, err := store.FindByIDAndUpdate(ctx, todo.ID, todos.Update{Text: &text, Completed: true, CompletedAt: &at})
	require.NoError(t, err)
	assert.False(t, mr.Exists(defaultKeyPrefix+todo.ID.Hex()))

	got, err := store.FindByID(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", got.Text)
	assert.True(t, got.Completed)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, at, *got.CompletedAt)
	assert.Equal(t, Stats{Misses: 1}, store.Stats())

	got, err = store.FindByID(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", got.Text)
	assert.Equal(t, int64(1), store.Stats().Hits)
}

func TestStore_RemoveDropsEntry(t *testing.T) {
	ctx := context.Background()
	store, _, mr := newTestStore(t)

	todo := &todos.Todo{Text: "First to-do"}
	require.NoError(t, store.Create(ctx, todo))

	removed, err := store.FindByIDAndRemove(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, todo.ID, removed.ID)
	assert.False(t, mr.Exists(defaultKeyPrefix+todo.ID.Hex()))

	_, err = store.FindByID(ctx, todo.ID)
	assert.ErrorIs(t, err, errors.NotFound)
}

func TestStore_RedisDownFallsBack(t *testing.T) {
	ctx := context.Background()
	store, _, mr := newTestStore(t)

	todo := &todos.Todo{Text: "First to-do"}
	require.NoError(t, store.Create(ctx, todo))
	mr.Close()

	got, err := store.FindByID(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, "First to-do", got.Text)
	assert.NoError(t, store.Ping(ctx))
	assert.Positive(t, store.Stats().Errors)
}

func TestStore_CorruptEntryFallsBack(t *testing.T) {
	ctx := context.Background()
	store, backing, mr := newTestStore(t)

	todo := &todos.Todo{Text: "First to-do"}
	require.NoError(t, backing.Create(ctx, todo))
	require.NoError(t, mr.Set(defaultKeyPrefix+todo.ID.Hex(), "{not json"))

	got, err := store.FindByID(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, "First to-do", got.Text)
	assert.Equal(t, int64(1), store.Stats().Errors)
}

// pausingStore holds one FindByID after it has read from the backing store
// until release is closed.
type pausingStore struct {
	todos.Store
	armed   atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func (p *pausingStore) FindByID(ctx context.Context, id todos.ID) (*todos.Todo, error) {
	t, err := p.Store.FindByID(ctx, id)
	if p.armed.CompareAndSwap(true, false) {
		close(p.read)
		<-p.release
	}
	return t, err
}

func TestStore_MutationDuringMissIsNotCached(t *testing.T) {
	text := "X"
	tests := []struct {
		name   string
		mutate func(context.Context, *Store, todos.ID) error
		check  func(*testing.T, *todos.Todo, error)
	}{
		{
			name: "remove",
			mutate: func(ctx context.Context, s *Store, id todos.ID) error {
				_, err := s.FindByIDAndRemove(ctx, id)
				return err
			},
			check: func(t *testing.T, _ *todos.Todo, err error) {
				assert.ErrorIs(t, err, errors.NotFound)
			},
		},
		{
			name: "update",
			mutate: func(ctx context.Context, s *Store, id todos.ID) error {
				_, err := s.FindByIDAndUpdate(ctx, id, todos.Update{Text: &text})
				return err
			},
			check: func(t *testing.T, got *todos.Todo, err error) {
				require.NoError(t, err)
				assert.Equal(t, "X", got.Text)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { client.Close() })

			backing := &pausingStore{
				Store:   database.NewMemoryStore(),
				read:    make(chan struct{}),
				release: make(chan struct{}),
			}
			store := NewStore(backing, client, 5*time.Minute, nil)

			todo := &todos.Todo{Text: "First to-do"}
			require.NoError(t, backing.Create(ctx, todo))
			backing.armed.Store(true)

			done := make(chan error, 1)
			go func() {
				_, err := store.FindByID(ctx, todo.ID)
				done <- err
			}()

			<-backing.read
			require.NoError(t, tt.mutate(ctx, store, todo.ID))
			close(backing.release)
			require.NoError(t, <-done)

			assert.False(t, mr.Exists(defaultKeyPrefix+todo.ID.Hex()))
			got, err := store.FindByID(ctx, todo.ID)
			tt.check(t, got, err)
		})
	}
}

func TestStore_FailedInvalidationBypassesCache(t *testing.T) {
	ctx := context.Background()
	store, _, mr := newTestStore(t)

	todo := &todos.Todo{Text: "First to-do"}
	require.NoError(t, store.Create(ctx, todo))
	key := defaultKeyPrefix + todo.ID.Hex()

	mr.Close()
	_, err := store.FindByIDAndRemove(ctx, todo.ID)
	require.NoError(t, err)

	require.NoError(t, mr.Restart())
	require.True(t, mr.Exists(key))

	_, err = store.FindByID(ctx, todo.ID)
	assert.ErrorIs(t, err, errors.NotFound)
	assert.False(t, mr.Exists(key))
}
