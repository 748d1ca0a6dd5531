package todos

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Service implements the todo operations on top of a Store.
type Service struct {
	logger    *zap.Logger
	store     Store
	publisher Publisher
	now       func() time.Time
}

type Option func(*Service)

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithClock overrides the time source used for completedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(logger *zap.Logger, store Store, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		logger:    logger.Named("todos"),
		store:     store,
		publisher: NopPublisher(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new incomplete todo with the trimmed text.
func (s *Service) Create(ctx context.Context, text string) (*Todo, error) {
	text, err := NormalizeText(text)
	if err != nil {
		return nil, err
	}
	todo := &Todo{Text: text}
	if err := s.store.Create(ctx, todo); err != nil {
		s.logger.Error("create todo", zap.Error(err))
		return nil, err
	}
	s.logger.Debug("todo created", zap.String("id", todo.ID.Hex()))
	s.publish(ctx, EventCreated, todo)
	return todo, nil
}

// List returns every todo; the result is never nil.
func (s *Service) List(ctx context.Context) ([]*Todo, error) {
	list, err := s.store.FindAll(ctx)
	if err != nil {
		s.logger.Error("list todos", zap.Error(err))
		return nil, err
	}
	if list == nil {
		list = []*Todo{}
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id ID) (*Todo, error) {
	return s.store.FindByID(ctx, id)
}

// Remove deletes the todo and returns it as it was.
func (s *Service) Remove(ctx context.Context, id ID) (*Todo, error) {
	todo, err := s.store.FindByIDAndRemove(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("todo removed", zap.String("id", id.Hex()))
	s.publish(ctx, EventRemoved, todo)
	return todo, nil
}

// Update applies the patch, deriving completedAt from completed, and returns
// the updated todo.
func (s *Service) Update(ctx context.Context, id ID, p Patch) (*Todo, error) {
	if p.Text != nil {
		text, err := NormalizeText(*p.Text)
		if err != nil {
			return nil, err
		}
		p.Text = &text
	}
	todo, err := s.store.FindByIDAndUpdate(ctx, id, p.Derive(s.now()))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("todo updated",
		zap.String("id", id.Hex()),
		zap.Bool("completed", todo.Completed))
	s.publish(ctx, EventUpdated, todo)
	return todo, nil
}

func (s *Service) publish(ctx context.Context, typ EventType, todo *Todo) {
	event := Event{Type: typ, Todo: todo.Clone(), OccurredAt: s.now().UTC()}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish todo event",
			zap.String("type", string(typ)),
			zap.String("id", todo.ID.Hex()),
			zap.Error(err))
	}
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
