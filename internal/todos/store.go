package todos

import "context"

// Store is the document storage collaborator. Implementations must make
// FindByIDAndRemove and FindByIDAndUpdate atomic for a single document and
// return ErrNotFound (errors.NotFound kind) when no document matches.
type Store interface {
	// Create persists t, assigning t.ID when it is zero.
	Create(ctx context.Context, t *Todo) error
	FindAll(ctx context.Context) ([]*Todo, error)
	FindByID(ctx context.Context, id ID) (*Todo, error)
	FindByIDAndRemove(ctx context.Context, id ID) (*Todo, error)
	// FindByIDAndUpdate returns the document as it is after the update.
	FindByIDAndUpdate(ctx context.Context, id ID, u Update) (*Todo, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
