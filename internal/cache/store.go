package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aidin1998/todos/internal/todos"
	"github.com/Aidin1998/todos/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "todos:todo:"

// errStale aborts a cache fill that lost a race with a mutation.
var errStale = errors.New("cache: todo changed during fill")

// Store is a Redis read-through cache in front of a todos.Store. Only
// FindByID is served from Redis. Mutations go to the backing store first and
// then bump a per-todo generation key and drop the cached entry; a miss only
// fills the cache when the generation is unchanged since before its read.
// Ids whose invalidation failed bypass Redis until a later drop succeeds.
// Redis failures never fail a request.
type Store struct {
	next      todos.Store
	client    redis.UniversalClient
	ttl       time.Duration
	keyPrefix string
	logger    *zap.Logger

	dirty sync.Map

	hits     atomic.Int64
	misses   atomic.Int64
	failures atomic.Int64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits   int64
	Misses int64
	Errors int64
}

// NewStore wraps next with a Redis cache whose entries expire after ttl.
func NewStore(next todos.Store, client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		next:      next,
		client:    client,
		ttl:       ttl,
		keyPrefix: defaultKeyPrefix,
		logger:    logger.Named("cache"),
	}
}

func (s *Store) key(id todos.ID) string {
	return s.keyPrefix + id.Hex()
}

func (s *Store) genKey(id todos.ID) string {
	return s.keyPrefix + id.Hex() + ":gen"
}

func (s *Store) Create(ctx context.Context, t *todos.Todo) error {
	if err := s.next.Create(ctx, t); err != nil {
		return err
	}
	s.fill(ctx, t, "")
	return nil
}

func (s *Store) FindAll(ctx context.Context) ([]*todos.Todo, error) {
	return s.next.FindAll(ctx)
}

func (s *Store) FindByID(ctx context.Context, id todos.ID) (*todos.Todo, error) {
	if _, dirty := s.dirty.Load(id); dirty {
		t, err := s.next.FindByID(ctx, id)
		s.invalidate(ctx, id)
		return t, err
	}

	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	switch {
	case err == nil:
		var t todos.Todo
		if err := json.Unmarshal(data, &t); err == nil {
			s.hits.Add(1)
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return &t, nil
		}
		s.fail("decode cached todo", err)
	case err == redis.Nil:
		s.misses.Add(1)
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		s.fail("get cached todo", err)
		return s.next.FindByID(ctx, id)
	}

	gen, err := s.client.Get(ctx, s.genKey(id)).Result()
	if err != nil && err != redis.Nil {
		s.fail("get generation", err)
		return s.next.FindByID(ctx, id)
	}

	t, err := s.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, t, gen)
	return t, nil
}

func (s *Store) FindByIDAndRemove(ctx context.Context, id todos.ID) (*todos.Todo, error) {
	t, err := s.next.FindByIDAndRemove(ctx, id)
	s.invalidate(ctx, id)
	return t, err
}

func (s *Store) FindByIDAndUpdate(ctx context.Context, id todos.ID, u todos.Update) (*todos.Todo, error) {
	t, err := s.next.FindByIDAndUpdate(ctx, id, u)
	s.invalidate(ctx, id)
	return t, err
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.fail("ping", err)
	}
	return s.next.Ping(ctx)
}

// Close closes the backing store. The Redis client is owned by the caller.
func (s *Store) Close(ctx context.Context) error {
	return s.next.Close(ctx)
}

// Stats returns the current hit/miss/error counters.
func (s *Store) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load(), Errors: s.failures.Load()}
}

// fill caches t if the generation key still holds gen. The check and the SET
// run under WATCH, so a mutation landing in between aborts the fill.
func (s *Store) fill(ctx context.Context, t *todos.Todo, gen string) {
	data, err := json.Marshal(t)
	if err != nil {
		s.fail("encode todo", err)
		return
	}
	genKey := s.genKey(t.ID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key(t.ID), data, s.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		s.logger.Debug("skipped stale cache fill", zap.String("id", t.ID.Hex()))
	default:
		s.fail("set cached todo", err)
	}
}

// invalidate bumps the generation and drops the entry in one transaction.
// The generation outlives the entry so that late fills still see the bump.
func (s *Store) invalidate(ctx context.Context, id todos.ID) {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, s.genKey(id))
		pipe.Expire(ctx, s.genKey(id), 2*s.ttl)
		pipe.Del(ctx, s.key(id))
		return nil
	})
	if err != nil {
		s.dirty.Store(id, struct{}{})
		s.fail("invalidate cached todo", err)
		return
	}
	s.dirty.Delete(id)
}

func (s *Store) fail(op string, err error) {
	s.failures.Add(1)
	metrics.CacheLookups.WithLabelValues("error").Inc()
	s.logger.Warn("redis cache "+op, zap.Error(err))
}
