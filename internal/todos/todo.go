package todos

import (
	"strings"
	"time"

	"github.com/Aidin1998/todos/common/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ID is the storage-assigned identifier of a Todo. It is a 12-byte ObjectID
// rendered as 24 hex characters on the wire.
type ID = primitive.ObjectID

var (
	// ErrInvalidID is returned for identifiers that can never exist in storage.
	ErrInvalidID = errors.NotFound.Explain("invalid todo id")
	// ErrNotFound is returned when a well-formed identifier matches nothing.
	ErrNotFound = errors.NotFound.Explain("todo not found")
	// ErrEmptyText is returned when text is missing or blank after trimming.
	ErrEmptyText = errors.Invalid.Explain("text is required").WithField("required", "text", "text must not be empty")
)

// Todo is the single persisted resource.
type Todo struct {
	ID          ID     `json:"_id" bson:"_id"`
	Text        string `json:"text" bson:"text"`
	Completed   bool   `json:"completed" bson:"completed"`
	CompletedAt *int64 `json:"completedAt" bson:"completedAt"`
}

// NewID returns a fresh identifier.
func NewID() ID {
	return primitive.NewObjectID()
}

// ParseID validates the identifier format. Malformed identifiers yield
// ErrInvalidID so callers can answer "not found" without a storage round-trip.
func ParseID(s string) (ID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID.Wrap(err)
	}
	return id, nil
}

// IsValidID reports whether s is a well-formed identifier.
func IsValidID(s string) bool {
	return primitive.IsValidObjectID(s)
}

// NormalizeText trims surrounding whitespace and rejects empty text.
func NormalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

// Patch is the allow-listed subset of an update request. Any other field a
// client submits never reaches it.
type Patch struct {
	Text      *string
	Completed *bool
}

// Update is the set of fields written by a find-and-update. Completed and
// CompletedAt are always written; Text only when non-nil.
type Update struct {
	Text        *string
	Completed   bool
	CompletedAt *int64
}

// Derive turns a patch into an update, applying the completion rule:
// completed=true stamps CompletedAt with now in epoch milliseconds, anything
// else (false or absent) clears both fields.
func (p Patch) Derive(now time.Time) Update {
	u := Update{Text: p.Text}
	if p.Completed != nil && *p.Completed {
		at := now.UnixMilli()
		u.Completed = true
		u.CompletedAt = &at
	}
	return u
}

// Apply writes the update onto t.
func (u Update) Apply(t *Todo) {
	if u.Text != nil {
		t.Text = *u.Text
	}
	t.Completed = u.Completed
	t.CompletedAt = nil
	if u.CompletedAt != nil {
		at := *u.CompletedAt
		t.CompletedAt = &at
	}
}

// Clone returns a deep copy of t.
func (t *Todo) Clone() *Todo {
	if t == nil {
		return nil
	}
	c := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}
