package database

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Aidin1998/todos/common/errors"
	"github.com/Aidin1998/todos/internal/todos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// StoreSuite runs the same contract against every backend.
type StoreSuite struct {
	suite.Suite
	newStore func() todos.Store
	store    todos.Store
	ctx      context.Context
	seeded   []*todos.Todo
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore()

	completedAt := int64(333)
	s.seeded = []*todos.Todo{
		{ID: todos.NewID(), Text: "First to-do"},
		{ID: todos.NewID(), Text: "Second to-do", Completed: true, CompletedAt: &completedAt},
	}
	for _, t := range s.seeded {
		s.Require().NoError(s.store.Create(s.ctx, t.Clone()))
	}
}

func (s *StoreSuite) TearDownTest() {
	if d, ok := s.store.(interface{ Drop(context.Context) error }); ok {
		s.NoError(d.Drop(s.ctx))
	}
	s.NoError(s.store.Close(s.ctx))
}

func (s *StoreSuite) TestCreateAssignsID() {
	t := &todos.Todo{Text: "Test todo text"}
	s.Require().NoError(s.store.Create(s.ctx, t))
	s.False(t.ID.IsZero())

	got, err := s.store.FindByID(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal("Test todo text", got.Text)
	s.False(got.Completed)
	s.Nil(got.CompletedAt)
}

func (s *StoreSuite) TestCreateDuplicateID() {
	err := s.store.Create(s.ctx, &todos.Todo{ID: s.seeded[0].ID, Text: "dup"})
	s.Require().Error(err)
}

func (s *StoreSuite) TestFindAll() {
	list, err := s.store.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(s.seeded[0].ID, list[0].ID)
	s.Equal("First to-do", list[0].Text)
	s.Equal(s.seeded[1].ID, list[1].ID)
	s.Require().NotNil(list[1].CompletedAt)
	s.Equal(int64(333), *list[1].CompletedAt)
}

func (s *StoreSuite) TestFindByID() {
	got, err := s.store.FindByID(s.ctx, s.seeded[1].ID)
	s.Require().NoError(err)
	s.Equal(s.seeded[1], got)

	_, err = s.store.FindByID(s.ctx, todos.NewID())
	s.ErrorIs(err, errors.NotFound)
}

func (s *StoreSuite) TestFindByIDAndRemove() {
	removed, err := s.store.FindByIDAndRemove(s.ctx, s.seeded[1].ID)
	s.Require().NoError(err)
	s.Equal(s.seeded[1].ID, removed.ID)
	s.Equal("Second to-do", removed.Text)

	_, err = s.store.FindByID(s.ctx, s.seeded[1].ID)
	s.ErrorIs(err, errors.NotFound)

	_, err = s.store.FindByIDAndRemove(s.ctx, s.seeded[1].ID)
	s.ErrorIs(err, errors.NotFound)

	list, err := s.store.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *StoreSuite) TestFindByIDAndUpdate() {
	text := "X"
	updated, err := s.store.FindByIDAndUpdate(s.ctx, s.seeded[1].ID, todos.Update{Text: &text})
	s.Require().NoError(err)
	s.Equal("X", updated.Text)
	s.False(updated.Completed)
	s.Nil(updated.CompletedAt)

	at := time.Now().UnixMilli()
	updated, err = s.store.FindByIDAndUpdate(s.ctx, s.seeded[0].ID, todos.Update{Completed: true, CompletedAt: &at})
	s.Require().NoError(err)
	s.Equal("First to-do", updated.Text)
	s.True(updated.Completed)
	s.Require().NotNil(updated.CompletedAt)
	s.Equal(at, *updated.CompletedAt)

	got, err := s.store.FindByID(s.ctx, s.seeded[0].ID)
	s.Require().NoError(err)
	s.Equal(updated, got)

	_, err = s.store.FindByIDAndUpdate(s.ctx, todos.NewID(), todos.Update{})
	s.ErrorIs(err, errors.NotFound)
}

func (s *StoreSuite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func() todos.Store { return NewMemoryStore() }})
}

func TestBadgerStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func() todos.Store {
		store, err := NewBadgerStore("", true)
		if err != nil {
			t.Fatalf("open badger: %v", err)
		}
		return store
	}})
}

func TestBadgerStore_OnDisk(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func() todos.Store {
		store, err := NewBadgerStore(t.TempDir(), false)
		if err != nil {
			t.Fatalf("open badger: %v", err)
		}
		return store
	}})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func() todos.Store {
		db, err := NewSQLiteDB(":memory:")
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		store, err := NewSQLStore(context.Background(), db)
		if err != nil {
			t.Fatalf("migrate sqlite: %v", err)
		}
		return store
	}})
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TODOS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TODOS_TEST_POSTGRES_DSN not set")
	}
	suite.Run(t, &StoreSuite{newStore: func() todos.Store {
		db, err := NewPostgresDB(dsn, 0, 0, 0)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		if err := db.Exec("DROP TABLE IF EXISTS todos").Error; err != nil {
			t.Fatalf("reset postgres: %v", err)
		}
		store, err := NewSQLStore(context.Background(), db)
		if err != nil {
			t.Fatalf("migrate postgres: %v", err)
		}
		return store
	}})
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("TODOS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TODOS_TEST_MONGO_URI not set")
	}
	suite.Run(t, &StoreSuite{newStore: func() todos.Store {
		store, err := NewMongoStore(context.Background(), MongoOptions{
			URI:        uri,
			Database:   "TodoAppTest",
			Collection: "todos_" + todos.NewID().Hex(),
			Timeout:    5 * time.Second,
		})
		if err != nil {
			t.Fatalf("connect mongo: %v", err)
		}
		return store
	}})
}

func TestBadgerStore_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	store, err := NewBadgerStore("", true)
	require.NoError(t, err)
	defer store.Close(ctx)

	todo := &todos.Todo{Text: "First to-do"}
	require.NoError(t, store.Create(ctx, todo))

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := fmt.Sprintf("edit %d", i)
			_, err := store.FindByIDAndUpdate(ctx, todo.ID, todos.Update{Text: &text})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	got, err := store.FindByID(ctx, todo.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Text, "edit ")
}
