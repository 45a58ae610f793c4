package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentalspot/internal/app/middleware"
)

type IdempotencyStore struct {
	col *mongo.Collection
}

// NewIdempotencyStore keeps records for ttl through a TTL index on created_at.
func NewIdempotencyStore(ctx context.Context, db *mongo.Database, ttl time.Duration) (*IdempotencyStore, error) {
	col := db.Collection("app_idempotency")
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
	}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, classify("mongo.NewIdempotencyStore", err)
	}
	return &IdempotencyStore{col: col}, nil
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	var doc idempotencyDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	return doc.toRecord(), true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	doc := idempotencyDocument{
		Key:         rec.Key,
		Command:     rec.Command,
		Payload:     rec.Payload,
		Error:       rec.Error,
		ErrorKind:   rec.ErrorKind,
		ErrorReason: rec.ErrorReason,
		OccurredAt:  rec.OccurredAt,
		CreatedAt:   time.Now().UTC(),
	}
	if u := rec.Unavailable; u != nil {
		doc.UnavailableProperty = u.PropertyID
		doc.UnavailableDates = u.Dates
	}
	_, err := s.col.UpdateByID(ctx, doc.Key, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type idempotencyDocument struct {
	Key         string    `bson:"_id"`
	Command     string    `bson:"command"`
	Payload     []byte    `bson:"payload"`
	Error       string    `bson:"error,omitempty"`
	ErrorKind   string    `bson:"error_kind,omitempty"`
	ErrorReason string    `bson:"error_reason,omitempty"`
	OccurredAt  time.Time `bson:"occurred_at"`
	CreatedAt   time.Time `bson:"created_at"`

	UnavailableProperty string      `bson:"unavailable_property,omitempty"`
	UnavailableDates    []time.Time `bson:"unavailable_dates,omitempty"`
}

func (d idempotencyDocument) toRecord() middleware.IdempotencyRecord {
	rec := middleware.IdempotencyRecord{
		Key:         d.Key,
		Command:     d.Command,
		Payload:     d.Payload,
		Error:       d.Error,
		ErrorKind:   d.ErrorKind,
		ErrorReason: d.ErrorReason,
		OccurredAt:  d.OccurredAt,
	}
	if len(d.UnavailableDates) > 0 {
		dates := make([]time.Time, len(d.UnavailableDates))
		for i, t := range d.UnavailableDates {
			dates[i] = t.UTC()
		}
		rec.Unavailable = &middleware.UnavailableNights{PropertyID: d.UnavailableProperty, Dates: dates}
	}
	return rec
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
