package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func TestIdempotencyDocumentKeepsContestedNights(t *testing.T) {
	night := time.Date(2025, 7, 21, 0, 0, 0, 0, time.UTC)
	doc := idempotencyDocument{
		Key:                 "booking.hold:k1",
		Error:               "nights unavailable",
		ErrorKind:           "conflict",
		UnavailableProperty: "p1",
		UnavailableDates:    []time.Time{night},
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var stored idempotencyDocument
	if err := bson.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rec := stored.toRecord()
	if rec.Unavailable == nil || rec.Unavailable.PropertyID != "p1" {
		t.Fatalf("record = %+v", rec)
	}
	if len(rec.Unavailable.Dates) != 1 || !rec.Unavailable.Dates[0].Equal(night) || rec.Unavailable.Dates[0].Location() != time.UTC {
		t.Fatalf("dates = %v", rec.Unavailable.Dates)
	}

	if plain := (idempotencyDocument{Key: "k2", Payload: []byte(`{}`)}).toRecord(); plain.Unavailable != nil {
		t.Fatalf("success record carries nights: %+v", plain.Unavailable)
	}
}
