package database

import (
	"context"
	"fmt"

	"github.com/Aidin1998/todos/common/dbutil"
	"github.com/Aidin1998/todos/common/errors"
	"github.com/Aidin1998/todos/internal/todos"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

// todoRow is the relational form of a todo; ids are stored as hex strings.
type todoRow struct {
	ID          string `gorm:"primaryKey;type:varchar(24)"`
	Text        string `gorm:"type:text;not null"`
	Completed   bool   `gorm:"not null;default:false"`
	CompletedAt *int64
}

func (todoRow) TableName() string { return "todos" }

func rowFromTodo(t *todos.Todo) todoRow {
	return todoRow{
		ID:          t.ID.Hex(),
		Text:        t.Text,
		Completed:   t.Completed,
		CompletedAt: t.CompletedAt,
	}
}

func (r todoRow) todo() (*todos.Todo, error) {
	id, err := primitive.ObjectIDFromHex(r.ID)
	if err != nil {
		return nil, fmt.Errorf("corrupt todo id %q: %w", r.ID, err)
	}
	return &todos.Todo{
		ID:          id,
		Text:        r.Text,
		Completed:   r.Completed,
		CompletedAt: r.CompletedAt,
	}, nil
}

// SQLStore keeps todos in a relational table through gorm (PostgreSQL or
// SQLite). Find-and-modify operations run in a transaction.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore migrates the todos table and returns the store.
func NewSQLStore(ctx context.Context, db *gorm.DB) (*SQLStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&todoRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate todos table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Create(ctx context.Context, t *todos.Todo) error {
	if t.ID.IsZero() {
		t.ID = todos.NewID()
	}
	row := rowFromTodo(t)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return dbutil.WrapError(err)
	}
	return nil
}

func (s *SQLStore) FindAll(ctx context.Context) ([]*todos.Todo, error) {
	var rows []todoRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, dbutil.WrapError(err)
	}
	list := make([]*todos.Todo, 0, len(rows))
	for _, row := range rows {
		t, err := row.todo()
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, nil
}

func (s *SQLStore) FindByID(ctx context.Context, id todos.ID) (*todos.Todo, error) {
	row, err := findRow(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return row.todo()
}

func (s *SQLStore) FindByIDAndRemove(ctx context.Context, id todos.ID) (*todos.Todo, error) {
	var removed *todoRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := findRow(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(&todoRow{}, "id = ?", row.ID).Error; err != nil {
			return dbutil.WrapError(err)
		}
		removed = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed.todo()
}

func (s *SQLStore) FindByIDAndUpdate(ctx context.Context, id todos.ID, u todos.Update) (*todos.Todo, error) {
	var updated *todoRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findRow(tx, id); err != nil {
			return err
		}
		values := map[string]any{
			"completed":    u.Completed,
			"completed_at": u.CompletedAt,
		}
		if u.Text != nil {
			values["text"] = *u.Text
		}
		if err := tx.Model(&todoRow{}).Where("id = ?", id.Hex()).Updates(values).Error; err != nil {
			return dbutil.WrapError(err)
		}
		row, err := findRow(tx, id)
		if err != nil {
			return err
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated.todo()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Unavailable.Wrap(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Unavailable.Explain("database ping failed").Wrap(err)
	}
	return nil
}

func (s *SQLStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func findRow(db *gorm.DB, id todos.ID) (*todoRow, error) {
	row, err := dbutil.FindOne[todoRow](db.Where("id = ?", id.Hex()))
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			return nil, todos.ErrNotFound
		}
		return nil, err
	}
	return row, nil
}
