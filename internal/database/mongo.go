package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Aidin1998/todos/common/dbutil"
	"github.com/Aidin1998/todos/common/errors"
	"github.com/Aidin1998/todos/internal/todos"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoOptions struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// MongoStore keeps todos in a MongoDB collection and relies on
// findOneAndUpdate / findOneAndDelete for single-document atomicity.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.Timeout).
		SetServerSelectionTimeout(opts.Timeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return NewMongoStoreFromClient(client, opts.Database, opts.Collection), nil
}

// NewMongoStoreFromClient builds a store on an existing client.
func NewMongoStoreFromClient(client *mongo.Client, database, collection string) *MongoStore {
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}
}

func (s *MongoStore) Create(ctx context.Context, t *todos.Todo) error {
	if t.ID.IsZero() {
		t.ID = todos.NewID()
	}
	if _, err := s.collection.InsertOne(ctx, t); err != nil {
		return dbutil.WrapError(err)
	}
	return nil
}

func (s *MongoStore) FindAll(ctx context.Context) ([]*todos.Todo, error) {
	cursor, err := s.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, dbutil.WrapError(err)
	}
	list := make([]*todos.Todo, 0)
	if err := cursor.All(ctx, &list); err != nil {
		return nil, dbutil.WrapError(err)
	}
	return list, nil
}

func (s *MongoStore) FindByID(ctx context.Context, id todos.ID) (*todos.Todo, error) {
	var t todos.Todo
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err != nil {
		return nil, mongoError(err)
	}
	return &t, nil
}

func (s *MongoStore) FindByIDAndRemove(ctx context.Context, id todos.ID) (*todos.Todo, error) {
	var t todos.Todo
	err := s.collection.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&t)
	if err != nil {
		return nil, mongoError(err)
	}
	return &t, nil
}

func (s *MongoStore) FindByIDAndUpdate(ctx context.Context, id todos.ID, u todos.Update) (*todos.Todo, error) {
	set := bson.M{
		"completed":   u.Completed,
		"completedAt": u.CompletedAt,
	}
	if u.Text != nil {
		set["text"] = *u.Text
	}

	var t todos.Todo
	err := s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if err != nil {
		return nil, mongoError(err)
	}
	return &t, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return errors.Unavailable.Explain("mongo ping failed").Wrap(err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Drop removes the collection. Used to reset state between test runs.
func (s *MongoStore) Drop(ctx context.Context) error {
	return s.collection.Drop(ctx)
}

func mongoError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return todos.ErrNotFound.Wrap(err)
	}
	return dbutil.WrapError(err)
}
