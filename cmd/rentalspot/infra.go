package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"rentalspot/internal/app/middleware"
	appoutbox "rentalspot/internal/app/outbox"
	"rentalspot/internal/app/policies"
	"rentalspot/internal/app/schedule"
	"rentalspot/internal/domain/booking"
	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/coupon"
	"rentalspot/internal/domain/property"
	"rentalspot/internal/infra/broker/kafka"
	"rentalspot/internal/infra/config"
	mongodb "rentalspot/internal/infra/db/mongo"
	"rentalspot/internal/infra/inbox"
	"rentalspot/internal/infra/lock/redislock"
	"rentalspot/internal/infra/obs"
	"rentalspot/internal/infra/outbox"
	"rentalspot/internal/infra/storage/memory"
	"rentalspot/internal/infra/tasks"
)

const paymentsConsumer = "payments"

// infrastructure holds the adapters chosen by configuration.
type infrastructure struct {
	calendar    calendar.Repository
	bookings    booking.Repository
	properties  property.Repository
	coupons     coupon.Repository
	idempotency middleware.IdempotencyStore
	outbox      appoutbox.Outbox
	inbox       kafka.Inbox
	locker      policies.Locker
	scheduler   schedule.Scheduler
	relay       *outbox.Worker
	tasksRedis  asynq.RedisClientOpt
	checks      map[string]obs.Check
	closers     []func(context.Context) error
}

func buildInfrastructure(ctx context.Context, cfg config.Config, logger *slog.Logger) (*infrastructure, error) {
	infra := &infrastructure{checks: map[string]obs.Check{}}
	var err error
	switch cfg.StorageDriver {
	case config.DriverMongo:
		err = infra.useMongo(ctx, cfg, logger)
	default:
		infra.useMemory(cfg, logger)
	}
	if err != nil {
		infra.close(logger)
		return nil, err
	}
	if cfg.RedisEnabled() {
		infra.useRedis(cfg)
	}
	return infra, nil
}

func (i *infrastructure) useMemory(cfg config.Config, logger *slog.Logger) {
	i.calendar = memory.NewCalendarRepository()
	i.bookings = memory.NewBookingRepository()
	i.properties = memory.NewPropertyRepository()
	i.coupons = memory.NewCouponRepository()
	i.idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	i.outbox = memory.NewOutbox(logger)
	i.inbox = memory.NewInbox(paymentsConsumer)
	i.locker = memory.NewLocker()
	logger.Info("storage ready", "driver", config.DriverMemory)
}

func (i *infrastructure) useMongo(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	i.closers = append(i.closers, client.Close)
	i.checks["mongo"] = client.Ping
	if err := client.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}

	i.calendar = mongodb.NewCalendarRepository(client.DB)
	i.bookings = mongodb.NewBookingRepository(client.DB)
	i.properties = mongodb.NewPropertyRepository(client.DB)
	i.coupons = mongodb.NewCouponRepository(client.DB)
	if i.idempotency, err = mongodb.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL); err != nil {
		return fmt.Errorf("idempotency store: %w", err)
	}
	store, err := outbox.NewStore(ctx, client.DB)
	if err != nil {
		return fmt.Errorf("outbox store: %w", err)
	}
	i.outbox = store
	if i.inbox, err = inbox.NewStore(ctx, client.DB, paymentsConsumer); err != nil {
		return fmt.Errorf("inbox store: %w", err)
	}
	i.locker = memory.NewLocker()

	if cfg.KafkaEnabled() {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		i.closers = append(i.closers, func(context.Context) error { return producer.Close() })
		i.relay = &outbox.Worker{
			Store:       store,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			ID:          "rentalspot-" + uuid.NewString(),
			Backoff:     cfg.RetryBackoff,
			Logger:      logger,
		}
	}
	logger.Info("storage ready", "driver", config.DriverMongo, "database", cfg.MongoDB)
	return nil
}

// useRedis swaps the in-process lock for a shared one and schedules precise
// hold expiry through asynq.
func (i *infrastructure) useRedis(cfg config.Config) {
	client := redislock.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisLockDB)
	locker := redislock.New(client)
	i.locker = locker
	i.checks["redis"] = locker.Ping
	i.closers = append(i.closers, func(context.Context) error { return client.Close() })

	i.tasksRedis = asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisTasksDB}
	scheduler := tasks.NewScheduler(i.tasksRedis)
	i.scheduler = scheduler
	i.closers = append(i.closers, func(context.Context) error { return scheduler.Close() })
}

func (i *infrastructure) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for j := len(i.closers) - 1; j >= 0; j-- {
		if err := i.closers[j](ctx); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}

