package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rentalspot/internal/domain/booking"
	"rentalspot/internal/domain/shared/apperr"
	"rentalspot/internal/domain/shared/events"
)

type BookingRepository struct {
	mu    sync.RWMutex
	items map[booking.BookingID]*booking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[booking.BookingID]*booking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id booking.BookingID) (*booking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

// Save applies optimistic concurrency on Version.
func (r *BookingRepository) Save(ctx context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.items[b.ID]; ok && cur.Version != b.Version {
		return apperr.Conflict("memory.SaveBooking", booking.ErrConcurrentUpdate)
	}
	b.Version++
	r.items[b.ID] = cloneBooking(b)
	return nil
}

func (r *BookingRepository) ListExpired(ctx context.Context, now time.Time) ([]*booking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*booking.Booking
	for _, b := range r.items {
		if b.IsExpired(now) {
			out = append(out, cloneBooking(b))
		}
	}
	sortBookings(out)
	return out, nil
}

func (r *BookingRepository) ListByStatus(ctx context.Context, statuses ...booking.Status) ([]*booking.Booking, error) {
	want := make(map[booking.Status]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*booking.Booking
	for _, b := range r.items {
		if want[b.Status] {
			out = append(out, cloneBooking(b))
		}
	}
	sortBookings(out)
	return out, nil
}

func cloneBooking(b *booking.Booking) *booking.Booking {
	c := *b
	c.EventRecorder = events.EventRecorder{}
	c.Pricing = b.Pricing.Copy()
	if b.HoldUntil != nil {
		t := *b.HoldUntil
		c.HoldUntil = &t
	}
	if b.PaymentDueBy != nil {
		t := *b.PaymentDueBy
		c.PaymentDueBy = &t
	}
	return &c
}

func sortBookings(list []*booking.Booking) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

var _ booking.Repository = (*BookingRepository)(nil)
