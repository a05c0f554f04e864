package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "searches"

// Mongo stores records as documents keyed by search id, with an index on the
// position hash.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	ctxConnect, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctxConnect, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctxConnect, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(collectionName)
	_, err = coll.Indexes().CreateOne(ctxConnect, mongo.IndexModel{
		Keys: bson.D{{Key: "hash", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create hash index: %w", err)
	}
	return &Mongo{client: client, collection: coll}, nil
}

func (m *Mongo) Save(ctx context.Context, rec Record) error {
	_, err := m.collection.ReplaceOne(ctx, bson.D{{Key: "_id", Value: rec.ID}}, rec,
		options.Replace().SetUpsert(true))
	return err
}

func (m *Mongo) Load(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := m.collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return rec, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

func (m *Mongo) ByHash(ctx context.Context, hash string) ([]Record, error) {
	cur, err := m.collection.Find(ctx, bson.D{{Key: "hash", Value: hash}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var recs []Record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (m *Mongo) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
