package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "rentalspot/internal/domain/booking"
	"rentalspot/internal/domain/calendar"
	domainpricing "rentalspot/internal/domain/pricing"
	"rentalspot/internal/domain/shared/apperr"
	domainrange "rentalspot/internal/domain/shared/daterange"
	"rentalspot/internal/domain/shared/money"
)

const bookingCollection = "agg_booking"

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingCollection)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, classify("mongo.BookingByID", err)
	}
	return doc.toAggregate(), nil
}

// Save applies optimistic concurrency: the stored version must match b.Version.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	const op = "mongo.SaveBooking"
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict(op, domainbooking.ErrConcurrentUpdate)
		}
		return classify(op, err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return apperr.Conflict(op, domainbooking.ErrConcurrentUpdate)
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListExpired(ctx context.Context, now time.Time) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"status":   bson.M{"$in": bson.A{string(domainbooking.StatusPending), string(domainbooking.StatusOnHold)}},
		"deadline": bson.M{"$lt": now.UTC()},
	}
	return r.find(ctx, "mongo.ListExpiredBookings", filter)
}

func (r *BookingRepository) ListByStatus(ctx context.Context, statuses ...domainbooking.Status) ([]*domainbooking.Booking, error) {
	values := make(bson.A, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	return r.find(ctx, "mongo.ListBookingsByStatus", bson.M{"status": bson.M{"$in": values}})
}

func (r *BookingRepository) find(ctx context.Context, op string, filter bson.M) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(op, err)
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(op, err)
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

type bookingDocument struct {
	ID                string                  `bson:"_id"`
	PropertyID        string                  `bson:"property_id"`
	Range             rangeDocument           `bson:"range"`
	Guests            int                     `bson:"guests"`
	Guest             guestDocument           `bson:"guest"`
	Pricing           *domainpricing.Snapshot `bson:"pricing"`
	Status            string                  `bson:"status"`
	HoldUntil         *time.Time              `bson:"hold_until,omitempty"`
	PaymentDueBy      *time.Time              `bson:"payment_due_by,omitempty"`
	Deadline          *time.Time              `bson:"deadline"`
	HoldFee           money.Money             `bson:"hold_fee"`
	PaymentReference  string                  `bson:"payment_reference,omitempty"`
	AmountPaid        money.Money             `bson:"amount_paid"`
	AppliedCouponCode string                  `bson:"applied_coupon_code,omitempty"`
	CancelReason      string                  `bson:"cancel_reason,omitempty"`
	CreatedAt         time.Time               `bson:"created_at"`
	UpdatedAt         time.Time               `bson:"updated_at"`
	Version           int64                   `bson:"version"`
}

type guestDocument struct {
	Name  string `bson:"name"`
	Email string `bson:"email"`
	Phone string `bson:"phone,omitempty"`
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:                string(b.ID),
		PropertyID:        string(b.PropertyID),
		Range:             rangeDocument{CheckIn: b.Range.CheckIn.UnixMilli(), CheckOut: b.Range.CheckOut.UnixMilli()},
		Guests:            b.Guests,
		Guest:             guestDocument{Name: b.Guest.Name, Email: b.Guest.Email, Phone: b.Guest.Phone},
		Pricing:           b.Pricing,
		Status:            string(b.Status),
		HoldUntil:         b.HoldUntil,
		PaymentDueBy:      b.PaymentDueBy,
		Deadline:          b.Deadline(),
		HoldFee:           b.HoldFee,
		PaymentReference:  b.PaymentReference,
		AmountPaid:        b.AmountPaid,
		AppliedCouponCode: b.AppliedCouponCode,
		CancelReason:      b.CancelReason,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
		Version:           b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:                domainbooking.BookingID(d.ID),
		PropertyID:        calendar.PropertyID(d.PropertyID),
		Range:             domainrange.DateRange{CheckIn: timestampToTime(d.Range.CheckIn), CheckOut: timestampToTime(d.Range.CheckOut)},
		Guests:            d.Guests,
		Guest:             domainbooking.GuestInfo{Name: d.Guest.Name, Email: d.Guest.Email, Phone: d.Guest.Phone},
		Pricing:           d.Pricing,
		Status:            domainbooking.Status(d.Status),
		HoldUntil:         utcPtr(d.HoldUntil),
		PaymentDueBy:      utcPtr(d.PaymentDueBy),
		HoldFee:           d.HoldFee,
		PaymentReference:  d.PaymentReference,
		AmountPaid:        d.AmountPaid,
		AppliedCouponCode: d.AppliedCouponCode,
		CancelReason:      d.CancelReason,
		CreatedAt:         d.CreatedAt.UTC(),
		UpdatedAt:         d.UpdatedAt.UTC(),
		Version:           d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
