package middleware

import (
	"context"
	"log/slog"
	"time"

	"rentalspot/internal/app/commands"
	"rentalspot/internal/app/queries"
	"rentalspot/internal/domain/shared/apperr"
)

// RetryableCommand marks commands that are safe to re-run after a transient
// storage failure.
type RetryableCommand interface {
	commands.Command
	Retryable() bool
}

// RetryPolicy waits Backoff[i] before attempt i+2. An empty policy never retries.
type RetryPolicy struct {
	Backoff []time.Duration
	Logger  *slog.Logger
}

func (p RetryPolicy) run(ctx context.Context, name string, fn func(context.Context) (any, error)) (any, error) {
	res, err := fn(ctx)
	for attempt := 0; err != nil && apperr.IsTransient(err) && attempt < len(p.Backoff); attempt++ {
		if p.Logger != nil {
			p.Logger.Warn("retrying after transient failure", "operation", name, "attempt", attempt+1, "error", err)
		}
		timer := time.NewTimer(p.Backoff[attempt])
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, apperr.Storage(name, ctx.Err(), true)
		case <-timer.C:
		}
		res, err = fn(ctx)
	}
	return res, err
}

func Retry(policy RetryPolicy) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			rc, ok := cmd.(RetryableCommand)
			if !ok || !rc.Retryable() {
				return nextFn(ctx, cmd)
			}
			return policy.run(ctx, cmd.Key(), func(ctx context.Context) (any, error) {
				return nextFn(ctx, cmd)
			})
		})
	}
}

// QueryRetry retries every query; reads have no side effects.
func QueryRetry(policy RetryPolicy) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			return policy.run(ctx, q.Key(), func(ctx context.Context) (any, error) {
				return nextFn(ctx, q)
			})
		})
	}
}
