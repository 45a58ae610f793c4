package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"rentalspot/internal/app/orchestrator"
	"rentalspot/internal/infra/broker/kafka"
	"rentalspot/internal/infra/config"
	"rentalspot/internal/infra/currency"
	ginserver "rentalspot/internal/infra/http/gin"
	"rentalspot/internal/infra/obs"
	"rentalspot/internal/infra/tasks"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("dev", "info").Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("rentalspot stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("rentalspot stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	infra, err := buildInfrastructure(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.close(logger)

	app, err := orchestrator.New(orchestrator.Deps{
		Calendar:    infra.calendar,
		Bookings:    infra.bookings,
		Properties:  infra.properties,
		Coupons:     infra.coupons,
		Locker:      infra.locker,
		Scheduler:   infra.scheduler,
		Converter:   currency.NewRateTable(cfg.DisplayBaseCurrency, cfg.DisplayRates, logger),
		Outbox:      infra.outbox,
		Idempotency: infra.idempotency,
		Logger:      logger,
		Settings: orchestrator.Settings{
			HoldDuration: cfg.HoldDuration,
			PaymentTTL:   cfg.PendingPaymentTTL,
			LockTTL:      cfg.LockTTL,
			HorizonDays:  cfg.SuggestionHorizonDays,
			RetryBackoff: cfg.RetryBackoff,
		},
	})
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	if cfg.FixturesPath != "" {
		if err := loadFixtures(ctx, cfg.FixturesPath, infra.properties, infra.coupons, logger); err != nil {
			logger.Warn("fixtures load failed", "error", err, "path", cfg.FixturesPath)
		}
	}

	obsMW := obs.Middleware{Logger: logger}
	server := ginserver.NewServer(cfg, obsMW, obs.HealthHandlers{Checks: infra.checks}, ginserver.Handlers{
		Availability: ginserver.AvailabilityHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Booking:      ginserver.BookingHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		PublicLimit:  ginserver.NewRateLimiter(cfg.RateLimitPerMin, logger).Middleware(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return app.Sweeper(cfg.SweepInterval).Run(gctx)
	})
	if infra.relay != nil {
		g.Go(func() error {
			return infra.relay.Run(gctx)
		})
	}
	if cfg.KafkaEnabled() {
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, nil, &kafka.PaymentsHandler{
			Commands: app.Commands,
			Inbox:    infra.inbox,
			Logger:   logger,
		}, logger)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		infra.closers = append(infra.closers, func(context.Context) error { return consumer.Close() })
		topic := cfg.KafkaTopicPrefix + cfg.KafkaPaymentsTopic
		g.Go(func() error {
			logger.Info("payments consumer starting", "topic", topic, "group", cfg.KafkaConsumerGroup)
			return consumer.Run(gctx, []string{topic})
		})
	}
	if cfg.RedisEnabled() {
		worker := tasks.NewServer(infra.tasksRedis, app.Holds, logger)
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}
	return g.Wait()
}
