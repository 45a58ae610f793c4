package orchestrator

import (
	"errors"
	"log/slog"
	"time"

	appavailability "rentalspot/internal/app/availability"
	"rentalspot/internal/app/commands"
	"rentalspot/internal/app/dto"
	availabilityhandlers "rentalspot/internal/app/handlers/availability"
	bookinghandlers "rentalspot/internal/app/handlers/booking"
	couponhandlers "rentalspot/internal/app/handlers/coupons"
	"rentalspot/internal/app/holds"
	"rentalspot/internal/app/middleware"
	"rentalspot/internal/app/outbox"
	"rentalspot/internal/app/policies"
	"rentalspot/internal/app/queries"
	"rentalspot/internal/app/quoting"
	"rentalspot/internal/app/schedule"
	"rentalspot/internal/domain/booking"
	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/coupon"
	"rentalspot/internal/domain/property"
)

var ErrMissingDependency = errors.New("orchestrator: missing dependency")

// Settings are the tunables read from configuration.
type Settings struct {
	HoldDuration time.Duration
	PaymentTTL   time.Duration
	LockTTL      time.Duration
	HorizonDays  int
	RetryBackoff []time.Duration
}

type Deps struct {
	Calendar    calendar.Repository
	Bookings    booking.Repository
	Properties  property.Repository
	Coupons     coupon.Repository
	Locker      policies.Locker
	Scheduler   schedule.Scheduler
	Converter   policies.CurrencyConverter
	Outbox      outbox.Outbox
	Idempotency middleware.IdempotencyStore
	Logger      *slog.Logger
	Now         func() time.Time
	Settings    Settings
}

// Orchestrator exposes the booking engine through its command and query buses.
type Orchestrator struct {
	Commands   commands.Bus
	Queries    queries.Bus
	Holds      *holds.Manager
	Reconciler *holds.Reconciler
	Checker    *appavailability.Checker
	Quoter     *quoting.Quoter
	Bookings   booking.Repository
	Logger     *slog.Logger
}

func New(d Deps) (*Orchestrator, error) {
	if d.Calendar == nil || d.Bookings == nil || d.Properties == nil || d.Coupons == nil {
		return nil, ErrMissingDependency
	}
	if d.Outbox == nil || d.Idempotency == nil {
		return nil, ErrMissingDependency
	}

	checker := &appavailability.Checker{
		Calendar:    d.Calendar,
		HorizonDays: d.Settings.HorizonDays,
		Now:         d.Now,
	}
	quoter := &quoting.Quoter{
		Properties: d.Properties,
		Coupons:    d.Coupons,
		Converter:  d.Converter,
		Now:        d.Now,
	}
	manager := &holds.Manager{
		Calendar:  d.Calendar,
		Bookings:  d.Bookings,
		Checker:   checker,
		Locker:    d.Locker,
		LockTTL:   d.Settings.LockTTL,
		Scheduler: d.Scheduler,
		Events:    outbox.Recorder{Box: d.Outbox},
		Logger:    d.Logger,
		Now:       d.Now,
	}
	reconciler := &holds.Reconciler{
		Manager:  manager,
		Bookings: d.Bookings,
		Calendar: d.Calendar,
		Logger:   d.Logger,
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookinghandlers.CreateHoldCommand, *bookinghandlers.CreateHoldResult](commandBus, &bookinghandlers.CreateHoldHandler{
		Quoter:       quoter,
		Holds:        manager,
		HoldDuration: d.Settings.HoldDuration,
		Now:          d.Now,
	})
	commands.RegisterHandler[bookinghandlers.RequestBookingCommand, *bookinghandlers.RequestBookingResult](commandBus, &bookinghandlers.RequestBookingHandler{
		Quoter:     quoter,
		Holds:      manager,
		PaymentTTL: d.Settings.PaymentTTL,
		Now:        d.Now,
	})
	commands.RegisterHandler[bookinghandlers.ConfirmBookingCommand, *dto.Booking](commandBus, &bookinghandlers.ConfirmBookingHandler{Holds: manager})
	commands.RegisterHandler[bookinghandlers.CancelBookingCommand, *dto.Booking](commandBus, &bookinghandlers.CancelBookingHandler{Holds: manager})
	commands.RegisterHandler[bookinghandlers.PaymentCallbackCommand, *dto.Booking](commandBus, &bookinghandlers.PaymentCallbackHandler{Holds: manager})
	commands.RegisterHandler[availabilityhandlers.BlockNightsCommand, *availabilityhandlers.EditNightsResult](commandBus, &availabilityhandlers.BlockNightsHandler{Holds: manager})
	commands.RegisterHandler[availabilityhandlers.UnblockNightsCommand, *availabilityhandlers.EditNightsResult](commandBus, &availabilityhandlers.UnblockNightsHandler{Holds: manager})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[availabilityhandlers.CheckAvailabilityQuery, dto.Availability](queryBus, &availabilityhandlers.CheckAvailabilityHandler{Checker: checker})
	queries.RegisterHandler[availabilityhandlers.GetPricingQuery, dto.Quote](queryBus, &availabilityhandlers.GetPricingHandler{Quoter: quoter})
	queries.RegisterHandler[availabilityhandlers.GetCalendarQuery, dto.Calendar](queryBus, &availabilityhandlers.GetCalendarHandler{Calendar: d.Calendar})
	queries.RegisterHandler[couponhandlers.ValidateCouponQuery, dto.CouponCheck](queryBus, &couponhandlers.ValidateCouponHandler{Quoter: quoter})
	queries.RegisterHandler[bookinghandlers.GetBookingQuery, dto.Booking](queryBus, &bookinghandlers.GetBookingHandler{Holds: manager})

	validator := middleware.NewStructValidator()
	retry := middleware.RetryPolicy{Backoff: d.Settings.RetryBackoff, Logger: d.Logger}

	return &Orchestrator{
		Commands: middleware.ChainCommands(
			commandBus,
			middleware.Logging(d.Logger),
			middleware.OutboxFlush(d.Outbox),
			middleware.Validation(validator),
			middleware.Idempotency(d.Idempotency, nil),
			middleware.Retry(retry),
		),
		Queries: middleware.ChainQueries(
			queryBus,
			middleware.QueryValidation(validator),
			middleware.QueryRetry(retry),
		),
		Holds:      manager,
		Reconciler: reconciler,
		Checker:    checker,
		Quoter:     quoter,
		Bookings:   d.Bookings,
		Logger:     d.Logger,
	}, nil
}

// Sweeper runs expiry, completion and reconciliation every interval.
func (o *Orchestrator) Sweeper(interval time.Duration) *holds.Sweeper {
	return &holds.Sweeper{
		Manager:    o.Holds,
		Bookings:   o.Bookings,
		Reconciler: o.Reconciler,
		Interval:   interval,
		Logger:     o.Logger,
	}
}
