// Package mongostore persists albums in a MongoDB collection.
package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/goliatone/go-profiles/album"
)

const (
	DefaultDatabase   = "music"
	DefaultCollection = "album"
)

// Store implements album.Repository over one collection.
type Store struct {
	collection *mongo.Collection
}

var _ album.Repository = (*Store)(nil)

// New wraps an existing collection.
func New(collection *mongo.Collection) *Store {
	return &Store{collection: collection}
}

// Open connects to uri, pings the primary and returns a store on the
// album collection of database. The caller disconnects the client.
func Open(ctx context.Context, uri, database string) (*Store, *mongo.Client, error) {
	if uri == "" {
		return nil, nil, fmt.Errorf("mongostore: uri must be provided")
	}
	if database == "" {
		database = DefaultDatabase
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongostore: ping: %w", err)
	}
	return New(client.Database(database).Collection(DefaultCollection)), client, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	count, err := s.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("mongostore: count: %w", err)
	}
	return count, nil
}

func (s *Store) Save(ctx context.Context, a *album.Album) error {
	if a == nil {
		return fmt.Errorf("mongostore: album must not be nil")
	}
	album.EnsureID(a)
	_, err := s.collection.ReplaceOne(ctx, bson.D{{Key: "_id", Value: a.ID}}, a, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongostore: save %s: %w", a.ID, err)
	}
	return nil
}

func (s *Store) FindAll(ctx context.Context) ([]album.Album, error) {
	cursor, err := s.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongostore: find all: %w", err)
	}
	out := []album.Album{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongostore: decode: %w", err)
	}
	return out, nil
}
