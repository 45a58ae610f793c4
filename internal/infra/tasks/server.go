package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"rentalspot/internal/app/schedule"
	"rentalspot/internal/domain/booking"
	"rentalspot/internal/domain/shared/apperr"
)

// HoldExpirer releases a hold once its deadline passed.
type HoldExpirer interface {
	ExpireHold(ctx context.Context, id booking.BookingID) (bool, error)
}

type Server struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewServer(opt asynq.RedisClientOpt, holds HoldExpirer, logger *slog.Logger) *Server {
	cfg := asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"default": 1,
		},
	}
	if logger != nil {
		cfg.Logger = slogAdapter{logger}
	}
	mux := asynq.NewServeMux()
	mux.HandleFunc(schedule.TaskExpireHold, ExpireHoldHandler(holds, logger))
	return &Server{srv: asynq.NewServer(opt, cfg), mux: mux}
}

// Run processes tasks until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	if err := s.srv.Start(s.mux); err != nil {
		return fmt.Errorf("tasks: start server: %w", err)
	}
	<-ctx.Done()
	s.srv.Shutdown()
	return nil
}

// ExpireHoldHandler releases the hold named in the payload. Unknown bookings
// and bad payloads are not retried; storage failures are.
func ExpireHoldHandler(holds HoldExpirer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p schedule.ExpireHoldPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return fmt.Errorf("decode %s: %v: %w", task.Type(), err, asynq.SkipRetry)
		}
		expired, err := holds.ExpireHold(ctx, booking.BookingID(p.BookingID))
		switch {
		case err == nil:
		case apperr.Is(err, apperr.KindNotFound):
			return fmt.Errorf("booking %s: %v: %w", p.BookingID, err, asynq.SkipRetry)
		case apperr.IsTransient(err), apperr.KindOf(err) == "":
			return err
		default:
			return errors.Join(err, asynq.SkipRetry)
		}
		if logger != nil {
			logger.Debug("hold expiry task handled", "booking_id", p.BookingID, "expired", expired)
		}
		return nil
	}
}

type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...), "component", "asynq") }
func (a slogAdapter) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...), "component", "asynq") }
func (a slogAdapter) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...), "component", "asynq") }
func (a slogAdapter) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...), "component", "asynq") }
func (a slogAdapter) Fatal(args ...interface{}) { a.l.Error(fmt.Sprint(args...), "component", "asynq", "fatal", true) }
