package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	flowio "github.com/flowforge/flowforge/pkg/io"
)

const collectionName = "programs"

// Mongo is a Store backed by a MongoDB collection. Programs are stored
// one document per name, keyed by the name field.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// document is the stored shape of one named program.
type document struct {
	Name      string         `bson:"name"`
	Program   flowio.Program `bson:"program"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

// NewMongo connects to MongoDB at uri and returns a store using the given
// database. The connection is verified with a ping before the store is
// returned.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	return &Mongo{
		client:     client,
		collection: client.Database(database).Collection(collectionName),
	}, nil
}

// Close disconnects the underlying client.
func (s *Mongo) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect from MongoDB: %w", err)
	}
	return nil
}

// Save upserts the program document for name.
func (s *Mongo) Save(ctx context.Context, name string, p flowio.Program) error {
	p.Name = name
	doc := document{Name: name, Program: p, UpdatedAt: time.Now().UTC()}
	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"name": name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// Load returns the program stored under name.
func (s *Mongo) Load(ctx context.Context, name string) (flowio.Program, error) {
	var doc document
	err := s.collection.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return flowio.Program{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return flowio.Program{}, fmt.Errorf("load %s: %w", name, err)
	}
	return doc.Program, nil
}

// List returns all stored program names, sorted by name.
func (s *Mongo) List(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"name": 1}).
		SetSort(bson.M{"name": 1})
	cur, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	defer cur.Close(ctx)

	var names []string
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode program name: %w", err)
		}
		names = append(names, doc.Name)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	return names, nil
}

// Delete removes the program stored under name.
func (s *Mongo) Delete(ctx context.Context, name string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"name": name})
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

var _ Store = (*Mongo)(nil)
