// Package store archives scan results in MongoDB.
//
// Archiving is optional: the CLI and server run fine without a store, but
// when one is configured every completed scan is written as a
// [ScanRecord], so integration points can be compared across time without
// re-running the extractors.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mfeldweg/crossgraph/pkg/errors"
	"github.com/mfeldweg/crossgraph/pkg/integration"
	"github.com/mfeldweg/crossgraph/pkg/manager"
)

// ScanRecord is one archived scan.
type ScanRecord struct {
	SessionID string              `bson:"session_id" json:"session_id"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	Repos     []manager.RepoInfo  `bson:"repos" json:"repos"`
	Points    []integration.Point `bson:"points" json:"points"`
	Warnings  []string            `bson:"warnings,omitempty" json:"warnings,omitempty"`
	GraphHash string              `bson:"graph_hash" json:"graph_hash"`
}

// MongoStore persists scan records in a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

// Save archives one scan record.
func (s *MongoStore) Save(ctx context.Context, rec ScanRecord) error {
	if rec.SessionID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "scan record has no session id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "insert scan record")
	}
	return nil
}

// Latest returns up to limit records, newest first.
func (s *MongoStore) Latest(ctx context.Context, limit int64) ([]ScanRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "query scan records")
	}
	defer cur.Close(ctx)

	var records []ScanRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "decode scan records")
	}
	return records, nil
}

// BySession returns the record for one scan session.
func (s *MongoStore) BySession(ctx context.Context, sessionID string) (*ScanRecord, error) {
	var rec ScanRecord
	err := s.coll.FindOne(ctx, bson.D{{Key: "session_id", Value: sessionID}}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeNotFound, "no scan record for session %s", sessionID)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "load scan record")
	}
	return &rec, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
