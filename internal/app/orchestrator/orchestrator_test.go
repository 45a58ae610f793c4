package orchestrator_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"rentalspot/internal/app/commands"
	"rentalspot/internal/app/dto"
	availabilityhandlers "rentalspot/internal/app/handlers/availability"
	bookinghandlers "rentalspot/internal/app/handlers/booking"
	couponhandlers "rentalspot/internal/app/handlers/coupons"
	"rentalspot/internal/app/orchestrator"
	"rentalspot/internal/app/queries"
	"rentalspot/internal/domain/booking"
	"rentalspot/internal/domain/coupon"
	"rentalspot/internal/domain/property"
	"rentalspot/internal/domain/shared/apperr"
	"rentalspot/internal/domain/shared/daterange"
	"rentalspot/internal/infra/currency"
	"rentalspot/internal/infra/storage/memory"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	orch     *orchestrator.Orchestrator
	calendar *memory.CalendarRepository
	bookings *memory.BookingRepository
	outbox   *memory.Outbox
	clock    *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		calendar: memory.NewCalendarRepository(),
		bookings: memory.NewBookingRepository(),
		outbox:   memory.NewOutbox(nil),
		clock:    &clock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
	}
	properties := memory.NewPropertyRepository()
	if err := properties.Save(ctx, &property.Property{
		ID:            "p1",
		Currency:      "EUR",
		PricePerNight: 10000,
		CleaningFee:   2500,
		BaseOccupancy: 2,
		MaxGuests:     4,
		HoldFeeAmount: 5000,
		Active:        true,
	}); err != nil {
		t.Fatalf("save property: %v", err)
	}
	coupons := memory.NewCouponRepository()
	if err := coupons.Save(ctx, &coupon.Coupon{
		Code:               "SUMMER",
		DiscountPercentage: 10,
		IsActive:           true,
		ExclusionPeriods:   []coupon.Period{{Start: date("2025-07-01"), End: date("2025-07-10")}},
	}); err != nil {
		t.Fatalf("save coupon: %v", err)
	}

	orch, err := orchestrator.New(orchestrator.Deps{
		Calendar:    f.calendar,
		Bookings:    f.bookings,
		Properties:  properties,
		Coupons:     coupons,
		Locker:      memory.NewLocker(),
		Converter:   currency.NewRateTable("EUR", map[string]float64{"USD": 1.1}, nil),
		Outbox:      f.outbox,
		Idempotency: memory.NewIdempotencyStore(0),
		Logger:      slog.New(slog.DiscardHandler),
		Now:         f.clock.Now,
		Settings: orchestrator.Settings{
			HoldDuration: time.Hour,
			PaymentTTL:   30 * time.Minute,
			HorizonDays:  60,
			RetryBackoff: []time.Duration{time.Millisecond},
		},
	})
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	f.orch = orch
	return f
}

func date(s string) time.Time {
	t, err := daterange.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func stay(in, out string) bookinghandlers.StayRequest {
	return bookinghandlers.StayRequest{
		PropertyID: "p1",
		CheckIn:    date(in),
		CheckOut:   date(out),
		Guests:     2,
		GuestName:  "Ana Guest",
		GuestEmail: "ana@example.com",
	}
}

func (f *fixture) hold(ctx context.Context, in, out, key string) (*bookinghandlers.CreateHoldResult, error) {
	return commands.Dispatch[bookinghandlers.CreateHoldCommand, *bookinghandlers.CreateHoldResult](ctx, f.orch.Commands, bookinghandlers.CreateHoldCommand{
		StayRequest:     stay(in, out),
		IdempotencyKeyV: key,
	})
}

func (f *fixture) check(ctx context.Context, in, out string, suggest bool) (dto.Availability, error) {
	return queries.Ask[availabilityhandlers.CheckAvailabilityQuery, dto.Availability](ctx, f.orch.Queries, availabilityhandlers.CheckAvailabilityQuery{
		PropertyID: "p1",
		CheckIn:    date(in),
		CheckOut:   date(out),
		Suggest:    suggest,
	})
}

func TestCheckAvailabilityOnUntouchedMonthWritesNothing(t *testing.T) {
	f := newFixture(t)
	res, err := f.check(context.Background(), "2025-08-10", "2025-08-14", false)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.IsAvailable || len(res.UnavailableDates) != 0 {
		t.Fatalf("availability = %+v", res)
	}
	if f.calendar.Writes() != 0 {
		t.Fatalf("reads created %d shard writes", f.calendar.Writes())
	}
}

func TestCheckAvailabilityRejectsEmptyRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.check(context.Background(), "2025-08-10", "2025-08-10", false)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestStaysLongerThanAYearAreRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.check(ctx, "2025-07-01", "2026-07-03", false); !apperr.Is(err, apperr.KindValidation) || !errors.Is(err, daterange.ErrRangeTooLong) {
		t.Fatalf("check err = %v", err)
	}
	_, err := queries.Ask[availabilityhandlers.GetPricingQuery, dto.Quote](ctx, f.orch.Queries, availabilityhandlers.GetPricingQuery{
		PropertyID: "p1",
		CheckIn:    date("2025-07-01"),
		CheckOut:   date("2026-07-03"),
		Guests:     2,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("pricing err = %v", err)
	}
	if _, err := f.hold(ctx, "2025-07-01", "2026-07-03", ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("hold err = %v", err)
	}
	if f.calendar.Writes() != 0 {
		t.Fatalf("rejected stays wrote %d shards", f.calendar.Writes())
	}
}

func TestConcurrentHoldsOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const contenders = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		won       int
		conflicts int
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.hold(ctx, "2025-07-20", "2025-07-23", "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case apperr.Is(err, apperr.KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if won != 1 || conflicts != contenders-1 {
		t.Fatalf("won=%d conflicts=%d", won, conflicts)
	}

	res, err := f.check(ctx, "2025-07-21", "2025-07-22", true)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.IsAvailable {
		t.Fatal("held night reported available")
	}
	if res.Suggestion == nil || res.Suggestion.CheckIn != "2025-07-23" {
		t.Fatalf("suggestion = %+v", res.Suggestion)
	}
}

func TestExpiredHoldIsSweptAndDatesReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.hold(ctx, "2025-07-20", "2025-07-23", "")
	if err != nil {
		t.Fatalf("hold: %v", err)
	}

	f.clock.Advance(2 * time.Hour)
	report, err := f.orch.Sweeper(time.Minute).SweepOnce(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.Expired != 1 {
		t.Fatalf("report = %+v", report)
	}
	b, err := f.bookings.ByID(ctx, booking.BookingID(first.BookingID))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Status != booking.StatusCancelled || b.CancelReason != booking.ReasonExpired {
		t.Fatalf("expired booking = %s/%s", b.Status, b.CancelReason)
	}
	if _, err := f.hold(ctx, "2025-07-20", "2025-07-23", ""); err != nil {
		t.Fatalf("hold after expiry: %v", err)
	}
}

func TestConflictingRequestReleasesExpiredHolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.hold(ctx, "2025-07-20", "2025-07-23", ""); err != nil {
		t.Fatalf("hold: %v", err)
	}
	f.clock.Advance(2 * time.Hour)
	res, err := commands.Dispatch[bookinghandlers.RequestBookingCommand, *bookinghandlers.RequestBookingResult](ctx, f.orch.Commands, bookinghandlers.RequestBookingCommand{
		StayRequest: stay("2025-07-21", "2025-07-24"),
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.Booking.Status != string(booking.StatusPending) || res.Booking.PaymentDueBy == nil {
		t.Fatalf("booking = %+v", res.Booking)
	}
}

func TestIdempotentHoldReplaysResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.hold(ctx, "2025-07-20", "2025-07-23", "key-1")
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	again, err := f.hold(ctx, "2025-07-20", "2025-07-23", "key-1")
	if err != nil {
		t.Fatalf("replayed hold: %v", err)
	}
	if again.BookingID != first.BookingID {
		t.Fatalf("replay returned %s, want %s", again.BookingID, first.BookingID)
	}
}

func TestConfirmAndPaymentCallbacks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	held, err := f.hold(ctx, "2025-07-20", "2025-07-23", "")
	if err != nil {
		t.Fatalf("hold: %v", err)
	}

	confirmed, err := commands.Dispatch[bookinghandlers.PaymentCallbackCommand, *dto.Booking](ctx, f.orch.Commands, bookinghandlers.PaymentCallbackCommand{
		EventID:   "evt-1",
		BookingID: held.BookingID,
		Status:    bookinghandlers.PaymentSucceeded,
		Reference: "pay-1",
	})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if confirmed.Status != string(booking.StatusConfirmed) || confirmed.AmountPaid == nil || confirmed.AmountPaid.Amount != 32500 {
		t.Fatalf("confirmed = %+v", confirmed)
	}

	failed, err := commands.Dispatch[bookinghandlers.PaymentCallbackCommand, *dto.Booking](ctx, f.orch.Commands, bookinghandlers.PaymentCallbackCommand{
		EventID:   "evt-2",
		BookingID: held.BookingID,
		Status:    bookinghandlers.PaymentFailed,
	})
	if err != nil {
		t.Fatalf("late failure callback: %v", err)
	}
	if failed.Status != string(booking.StatusConfirmed) {
		t.Fatalf("late failure changed booking to %s", failed.Status)
	}

	_, err = commands.Dispatch[bookinghandlers.ConfirmBookingCommand, *dto.Booking](ctx, f.orch.Commands, bookinghandlers.ConfirmBookingCommand{
		BookingID:        held.BookingID,
		PaymentReference: "pay-2",
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second payment err = %v", err)
	}
}

func TestPaymentAfterHoldDeadlineIsRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	held, err := f.hold(ctx, "2025-07-20", "2025-07-23", "")
	if err != nil {
		t.Fatalf("hold: %v", err)
	}

	f.clock.Advance(time.Hour + time.Minute)
	_, err = commands.Dispatch[bookinghandlers.PaymentCallbackCommand, *dto.Booking](ctx, f.orch.Commands, bookinghandlers.PaymentCallbackCommand{
		EventID:   "evt-late",
		BookingID: held.BookingID,
		Status:    bookinghandlers.PaymentSucceeded,
		Reference: "pay-late",
	})
	if !apperr.Is(err, apperr.KindConflict) || !errors.Is(err, booking.ErrHoldExpired) {
		t.Fatalf("late payment err = %v", err)
	}
	b, err := f.bookings.ByID(ctx, booking.BookingID(held.BookingID))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Status != booking.StatusOnHold || b.PaymentReference != "" {
		t.Fatalf("booking = %s ref=%q", b.Status, b.PaymentReference)
	}

	report, err := f.orch.Sweeper(time.Minute).SweepOnce(ctx)
	if err != nil || report.Expired != 1 {
		t.Fatalf("sweep = %+v, %v", report, err)
	}
}

func TestCancelReleasesNights(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	held, err := f.hold(ctx, "2025-07-20", "2025-07-23", "")
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	out, err := commands.Dispatch[bookinghandlers.CancelBookingCommand, *dto.Booking](ctx, f.orch.Commands, bookinghandlers.CancelBookingCommand{
		BookingID: held.BookingID,
		Reason:    booking.ReasonGuest,
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if out.Status != string(booking.StatusCancelled) {
		t.Fatalf("status = %s", out.Status)
	}
	res, err := f.check(ctx, "2025-07-20", "2025-07-23", false)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.IsAvailable {
		t.Fatalf("cancelled nights still unavailable: %v", res.UnavailableDates)
	}
}

func TestBlockRefusesHeldNightsAndRetriesTransientWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.hold(ctx, "2025-07-20", "2025-07-23", ""); err != nil {
		t.Fatalf("hold: %v", err)
	}
	_, err := commands.Dispatch[availabilityhandlers.BlockNightsCommand, *availabilityhandlers.EditNightsResult](ctx, f.orch.Commands, availabilityhandlers.BlockNightsCommand{
		PropertyID: "p1",
		From:       date("2025-07-18"),
		To:         date("2025-07-21"),
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("block over held nights err = %v", err)
	}

	f.calendar.FailNextWrite(errors.New("connection reset"))
	res, err := commands.Dispatch[availabilityhandlers.BlockNightsCommand, *availabilityhandlers.EditNightsResult](ctx, f.orch.Commands, availabilityhandlers.BlockNightsCommand{
		PropertyID: "p1",
		From:       date("2025-07-10"),
		To:         date("2025-07-12"),
	})
	if err != nil {
		t.Fatalf("block after transient failure: %v", err)
	}
	if res.Nights != 2 || res.Available {
		t.Fatalf("result = %+v", res)
	}
	avail, err := f.check(ctx, "2025-07-11", "2025-07-12", false)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if avail.IsAvailable {
		t.Fatal("blocked night reported available")
	}
}

func TestReconcileReleasesOrphansAndReclaimsLiveBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	held, err := f.hold(ctx, "2025-07-20", "2025-07-23", "")
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	orphan := []time.Time{date("2025-07-01"), date("2025-07-02")}
	if err := f.calendar.ClaimNights(ctx, "p1", orphan, "ghost"); err != nil {
		t.Fatalf("claim orphan: %v", err)
	}
	live := daterange.DateRange{CheckIn: date("2025-07-20"), CheckOut: date("2025-07-23")}
	if err := f.calendar.ReleaseNights(ctx, "p1", live.Dates(), held.BookingID); err != nil {
		t.Fatalf("release: %v", err)
	}

	report, err := f.orch.Reconciler.Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if report.Reclaimed != 1 || report.ReleasedNights != 2 {
		t.Fatalf("report = %+v", report)
	}
	cal, err := queries.Ask[availabilityhandlers.GetCalendarQuery, dto.Calendar](ctx, f.orch.Queries, availabilityhandlers.GetCalendarQuery{
		PropertyID: "p1",
		From:       date("2025-07-01"),
		To:         date("2025-07-23"),
	})
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	for _, n := range cal.Nights {
		switch n.Date {
		case "2025-07-01", "2025-07-02":
			if !n.Available {
				t.Fatalf("orphaned night %s still held", n.Date)
			}
		case "2025-07-20", "2025-07-21", "2025-07-22":
			if n.HoldID != held.BookingID {
				t.Fatalf("night %s not reclaimed: %+v", n.Date, n)
			}
		}
	}
}

func TestPricingWithCouponAndDisplayCurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quote, err := queries.Ask[availabilityhandlers.GetPricingQuery, dto.Quote](ctx, f.orch.Queries, availabilityhandlers.GetPricingQuery{
		PropertyID: "p1",
		CheckIn:    date("2025-06-10"),
		CheckOut:   date("2025-06-12"),
		Guests:     3,
		CouponCode: "summer",
		Currency:   "USD",
	})
	if err != nil {
		t.Fatalf("pricing: %v", err)
	}
	if quote.Pricing.Total.Amount != 20250 || quote.Pricing.AppliedCouponCode != "SUMMER" {
		t.Fatalf("pricing = %+v", quote.Pricing)
	}
	if quote.Display == nil || quote.Display.Currency != "USD" || quote.Display.Total.Amount != 22275 {
		t.Fatalf("display = %+v", quote.Display)
	}

	_, err = queries.Ask[availabilityhandlers.GetPricingQuery, dto.Quote](ctx, f.orch.Queries, availabilityhandlers.GetPricingQuery{
		PropertyID: "p1",
		CheckIn:    date("2025-07-05"),
		CheckOut:   date("2025-07-08"),
		Guests:     2,
		CouponCode: "SUMMER",
	})
	if !apperr.Is(err, apperr.KindCoupon) || apperr.ReasonOf(err) != string(coupon.ReasonExcluded) {
		t.Fatalf("excluded coupon err = %v", err)
	}

	_, err = queries.Ask[availabilityhandlers.GetPricingQuery, dto.Quote](ctx, f.orch.Queries, availabilityhandlers.GetPricingQuery{
		PropertyID: "p1",
		CheckIn:    date("2025-07-05"),
		CheckOut:   date("2025-07-08"),
		Guests:     0,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("zero guests err = %v", err)
	}
}

func TestValidateCoupon(t *testing.T) {
	f := newFixture(t)
	check, err := queries.Ask[couponhandlers.ValidateCouponQuery, dto.CouponCheck](context.Background(), f.orch.Queries, couponhandlers.ValidateCouponQuery{
		Code:       "summer",
		PropertyID: "p1",
		CheckIn:    date("2025-07-09"),
		CheckOut:   date("2025-07-15"),
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if check.Applicable || check.Reason != string(coupon.ReasonExcluded) {
		t.Fatalf("check = %+v", check)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := orchestrator.New(orchestrator.Deps{}); !errors.Is(err, orchestrator.ErrMissingDependency) {
		t.Fatalf("err = %v", err)
	}
}
