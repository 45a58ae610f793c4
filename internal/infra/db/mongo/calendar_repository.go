package mongo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/apperr"
)

const calendarCollection = "calendar_shards"

// CalendarRepository stores one document per property and month under the
// key "{propertyId}_{YYYY-MM}". Every call reads and writes its shards inside
// one session transaction; claims and releases also carry per-night guards
// in the update filter so a concurrent writer can never be overwritten.
type CalendarRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewCalendarRepository(db *mongo.Database) *CalendarRepository {
	return &CalendarRepository{col: db.Collection(calendarCollection), now: time.Now}
}

type shardDocument struct {
	ID         string            `bson:"_id"`
	PropertyID string            `bson:"property_id"`
	Month      string            `bson:"month"`
	Available  map[string]bool   `bson:"available"`
	Holds      map[string]string `bson:"holds,omitempty"`
	UpdatedAt  time.Time         `bson:"updated_at"`
}

func (d shardDocument) toShard() (*calendar.Shard, error) {
	month, err := calendar.ParseMonth(d.Month)
	if err != nil {
		return nil, err
	}
	s := &calendar.Shard{
		PropertyID: calendar.PropertyID(d.PropertyID),
		Month:      month,
		Available:  make(map[int]bool, len(d.Available)),
		Holds:      make(map[int]string, len(d.Holds)),
		UpdatedAt:  d.UpdatedAt,
	}
	for k, v := range d.Available {
		day, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("shard %s: day %q: %w", d.ID, k, err)
		}
		s.Available[day] = v
	}
	for k, v := range d.Holds {
		day, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("shard %s: day %q: %w", d.ID, k, err)
		}
		if v != "" {
			s.Holds[day] = v
		}
	}
	return s, nil
}

func (r *CalendarRepository) ReadShards(ctx context.Context, propertyID calendar.PropertyID, months []calendar.Month) (map[calendar.Month]*calendar.Shard, error) {
	out, err := r.read(ctx, propertyID, months)
	return out, classify("mongo.ReadShards", err)
}

func (r *CalendarRepository) read(ctx context.Context, propertyID calendar.PropertyID, months []calendar.Month) (map[calendar.Month]*calendar.Shard, error) {
	out := make(map[calendar.Month]*calendar.Shard, len(months))
	if len(months) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(months))
	for _, m := range months {
		keys = append(keys, calendar.ShardKey(propertyID, m))
	}
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var doc shardDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		s, err := doc.toShard()
		if err != nil {
			return nil, err
		}
		out[s.Month] = s
	}
	return out, cur.Err()
}

func (r *CalendarRepository) ApplyNightChanges(ctx context.Context, propertyID calendar.PropertyID, changes []calendar.NightChange) error {
	const op = "mongo.ApplyNightChanges"
	months := monthsOf(changes)
	return r.transact(ctx, op, func(sc mongo.SessionContext) error {
		current, err := r.read(sc, propertyID, months)
		if err != nil {
			return err
		}
		writes, err := calendar.PlanChanges(propertyID, current, changes)
		if err != nil {
			return apperr.Validation(op, err)
		}
		return r.write(sc, writes, nil, true)
	})
}

func (r *CalendarRepository) ClaimNights(ctx context.Context, propertyID calendar.PropertyID, dates []time.Time, holdID string) error {
	const op = "mongo.ClaimNights"
	err := r.transact(ctx, op, func(sc mongo.SessionContext) error {
		current, err := r.read(sc, propertyID, calendar.MonthsSpanning(dates))
		if err != nil {
			return err
		}
		writes, err := calendar.PlanClaim(propertyID, current, dates, holdID)
		if err != nil {
			return planError(op, err)
		}
		guard := func(f calendar.FieldWrite) bson.M {
			day := strconv.Itoa(f.Day)
			return bson.M{"$or": bson.A{
				bson.M{"holds." + day: holdID},
				bson.M{"holds." + day: nil, "available." + day: bson.M{"$ne": false}},
			}}
		}
		return r.write(sc, writes, guard, true)
	})
	return claimFailure(op, propertyID, dates, err)
}

func (r *CalendarRepository) ReleaseNights(ctx context.Context, propertyID calendar.PropertyID, dates []time.Time, holdID string) error {
	const op = "mongo.ReleaseNights"
	return r.transact(ctx, op, func(sc mongo.SessionContext) error {
		current, err := r.read(sc, propertyID, calendar.MonthsSpanning(dates))
		if err != nil {
			return err
		}
		writes, err := calendar.PlanRelease(propertyID, current, dates, holdID)
		if err != nil {
			return planError(op, err)
		}
		guard := func(f calendar.FieldWrite) bson.M {
			return bson.M{"holds." + strconv.Itoa(f.Day): holdID}
		}
		// a shard losing its guard was released concurrently; nothing to undo
		return r.write(sc, writes, guard, false)
	})
}

func (r *CalendarRepository) HeldNights(ctx context.Context, propertyID calendar.PropertyID) ([]calendar.HeldNight, error) {
	const op = "mongo.HeldNights"
	filter := bson.M{"holds": bson.M{"$exists": true, "$ne": bson.M{}}}
	if propertyID != "" {
		filter["property_id"] = string(propertyID)
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, classify(op, err)
	}
	defer cur.Close(ctx)
	var out []calendar.HeldNight
	for cur.Next(ctx) {
		var doc shardDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, classify(op, err)
		}
		s, err := doc.toShard()
		if err != nil {
			return nil, classify(op, err)
		}
		out = append(out, s.HeldNights()...)
	}
	return out, classify(op, cur.Err())
}

// write applies every shard write with one UpdateOne. With upsert a guard
// that fails on an existing document surfaces as a duplicate key error.
func (r *CalendarRepository) write(sc mongo.SessionContext, writes []calendar.ShardWrite, guard func(calendar.FieldWrite) bson.M, upsert bool) error {
	now := r.now().UTC()
	for _, w := range writes {
		filter := bson.M{"_id": w.Key()}
		var and bson.A
		set := bson.M{"updated_at": now}
		unset := bson.M{}
		touched := make(map[int]bool, len(w.Fields))
		for _, f := range w.Fields {
			day := strconv.Itoa(f.Day)
			touched[f.Day] = true
			set["available."+day] = f.Available
			if f.HoldID == "" {
				unset["holds."+day] = ""
			} else {
				set["holds."+day] = f.HoldID
			}
			if guard != nil {
				and = append(and, guard(f))
			}
		}
		if len(and) > 0 {
			filter["$and"] = and
		}
		onInsert := bson.M{"property_id": string(w.PropertyID), "month": w.Month.String()}
		for d := 1; d <= w.Month.Days(); d++ {
			if !touched[d] {
				onInsert["available."+strconv.Itoa(d)] = true
			}
		}
		update := bson.M{"$set": set, "$setOnInsert": onInsert}
		if len(unset) > 0 {
			update["$unset"] = unset
		}
		if _, err := r.col.UpdateOne(sc, filter, update, options.Update().SetUpsert(upsert)); err != nil {
			return err
		}
	}
	return nil
}

// transact runs fn in a session transaction and classifies its failure.
// Transient aborts such as write conflicts rerun fn from a fresh read, so a
// concurrent claim is seen by the per-night guards on the next attempt.
func (r *CalendarRepository) transact(ctx context.Context, op string, fn func(mongo.SessionContext) error) error {
	sess, err := r.col.Database().Client().StartSession()
	if err != nil {
		return classify(op, fmt.Errorf("start session: %w", err))
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return classify(op, err)
}

// claimFailure reports a guard that lost to another writer as unavailable
// nights. A write conflict that outlived the transaction retries is the same
// race seen from the other side.
func claimFailure(op string, propertyID calendar.PropertyID, dates []time.Time, err error) error {
	if err != nil && (mongo.IsDuplicateKeyError(err) || isWriteConflict(err)) {
		return apperr.Conflict(op, &calendar.UnavailableError{PropertyID: propertyID, Dates: dates})
	}
	return err
}

func planError(op string, err error) error {
	var unavailable *calendar.UnavailableError
	if errors.As(err, &unavailable) {
		return apperr.Conflict(op, err)
	}
	return apperr.Validation(op, err)
}

func monthsOf(changes []calendar.NightChange) []calendar.Month {
	dates := make([]time.Time, 0, len(changes))
	for _, c := range changes {
		dates = append(dates, c.Date)
	}
	return calendar.MonthsSpanning(dates)
}

var _ calendar.Repository = (*CalendarRepository)(nil)
