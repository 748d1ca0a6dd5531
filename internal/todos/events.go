package todos

import (
	"context"
	"time"
)

type EventType string

const (
	EventCreated EventType = "todo.created"
	EventUpdated EventType = "todo.updated"
	EventRemoved EventType = "todo.removed"
)

// Event describes a completed mutation.
type Event struct {
	Type       EventType `json:"type"`
	Todo       *Todo     `json:"todo"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers lifecycle events. Delivery is best-effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }
func (nopPublisher) Close() error                         { return nil }

// NopPublisher discards every event.
func NopPublisher() Publisher { return nopPublisher{} }
