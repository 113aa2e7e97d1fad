// Package mongostore is the MongoDB batch sink. Documents keep the source
// JSON field names and use the hotspot address as _id.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/hotspot-sync/pkg/hotspot"
	"github.com/Sternrassler/hotspot-sync/pkg/sink"
	"github.com/Sternrassler/hotspot-sync/pkg/syncerr"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Name is the sink label used in logs and metrics.
const Name = "mongo"

// duplicateKeyCode is the server error code for a unique index violation.
const duplicateKeyCode = 11000

// Store inserts hotspot batches into a MongoDB collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     zerolog.Logger
}

var _ sink.BatchWriter = (*Store)(nil)

// Connect dials uri and verifies the primary is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, syncerr.Connect("connect to mongodb", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, syncerr.Connect("ping mongodb", err)
	}
	return client, nil
}

// NewStore creates a store writing to database.collection.
func NewStore(client *mongo.Client, database, collection string) *Store {
	return &Store{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     log.With().Str("component", "mongo-sink").Str("sink", Name).Logger(),
	}
}

// document is the stored shape of a hotspot: its fields inline plus _id.
type document struct {
	ID              string `bson:"_id"`
	hotspot.Hotspot `bson:",inline"`
}

// toDocument wraps h with _id set to the address.
func toDocument(h *hotspot.Hotspot) document {
	return document{ID: h.Address, Hotspot: *h}
}

// InsertBatch inserts all records in one unordered InsertMany. Duplicate
// _id errors are counted as skipped; any other write error is fatal.
func (s *Store) InsertBatch(ctx context.Context, records []hotspot.Hotspot) (sink.Result, error) {
	var res sink.Result
	if len(records) == 0 {
		return res, nil
	}
	start := time.Now()

	docs := make([]interface{}, len(records))
	for i := range records {
		docs[i] = toDocument(&records[i])
	}

	_, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	skipped, err := duplicatesOnly(err)
	if err != nil {
		return res, syncerr.Write("insert hotspots", err)
	}
	res.Skipped = skipped
	res.Inserted = len(records) - skipped

	sink.ObserveBatch(Name, start, res)
	s.logger.Info().
		Int("records", len(records)).
		Int("inserted", res.Inserted).
		Int("skipped", res.Skipped).
		Dur("duration", time.Since(start)).
		Msg("Batch committed")

	return res, nil
}

// duplicatesOnly returns the number of duplicate-key failures in err, or err
// itself when it contains anything else.
func duplicatesOnly(err error) (int, error) {
	if err == nil {
		return 0, nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return 0, err
	}
	if bwe.WriteConcernError != nil {
		return 0, err
	}

	dups := 0
	for _, we := range bwe.WriteErrors {
		if we.Code != duplicateKeyCode {
			return 0, fmt.Errorf("write error at index %d (code %d): %s", we.Index, we.Code, we.Message)
		}
		dups++
	}
	return dups, nil
}

// Count returns the number of stored hotspots.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.collection.CountDocuments(ctx, bson.D{})
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}
