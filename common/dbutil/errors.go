package dbutil

import (
	"github.com/Aidin1998/todos/common/errors"
	"github.com/dgraph-io/badger/v3"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

const DuplicateKeyErrorCode = "23505"

// WrapError maps a driver error onto an error kind. Errors that already carry
// a kind are returned as-is; unknown driver failures are left unwrapped.
func WrapError(err error) error {
	var pgErr *pgconn.PgError

	if err == nil {
		return nil
	} else if _, ok := err.(*errors.Error); ok {
		return err
	} else if errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, mongo.ErrNoDocuments) ||
		errors.Is(err, badger.ErrKeyNotFound) {
		return errors.NotFound.Wrap(err)
	} else if mongo.IsDuplicateKeyError(err) {
		return errors.Conflict.Explain("duplication of key").Wrap(err)
	} else if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case DuplicateKeyErrorCode:
			return errors.Conflict.
				Explain("duplication of key").
				Wrap(err)
		}
	}

	return err
}
