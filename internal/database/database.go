// Package database provides the todo document stores and their wiring
package database

import (
	"context"
	"fmt"

	"github.com/Aidin1998/todos/internal/config"
	"github.com/Aidin1998/todos/internal/todos"
	"go.uber.org/zap"
)

// Open connects to the backend selected by cfg.Storage.Driver and returns an
// instrumented store.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (todos.Store, error) {
	var (
		store todos.Store
		err   error
	)

	switch cfg.Storage.Driver {
	case config.DriverMongo:
		store, err = NewMongoStore(ctx, MongoOptions{
			URI:        cfg.MongoURI(),
			Database:   cfg.MongoDatabase(),
			Collection: cfg.Mongo.Collection,
			Timeout:    cfg.Mongo.Timeout,
		})
	case config.DriverBadger:
		store, err = NewBadgerStore(cfg.Badger.Path, cfg.Badger.InMemory)
	case config.DriverMemory:
		store = NewMemoryStore()
	case config.DriverPostgres:
		db, dbErr := NewPostgresDB(cfg.SQL.DSN, 0, 0, 0)
		if dbErr != nil {
			return nil, dbErr
		}
		store, err = NewSQLStore(ctx, db)
	case config.DriverSQLite:
		db, dbErr := NewSQLiteDB(cfg.SQL.DSN)
		if dbErr != nil {
			return nil, dbErr
		}
		store, err = NewSQLStore(ctx, db)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Connected to todo store",
		zap.String("driver", cfg.Storage.Driver),
		zap.Bool("remote", cfg.Storage.Remote))

	return Instrument(cfg.Storage.Driver, store), nil
}
