package middleware

import (
	"context"
	"log/slog"
	"time"

	"rentalspot/internal/app/commands"
	"rentalspot/internal/domain/shared/apperr"
)

// Logging records every command outcome. Expected failures (validation,
// conflict, coupon, not found) log at info, the rest at error.
func Logging(logger *slog.Logger) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		if logger == nil {
			return nextFn
		}
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, cmd)
			attrs := []any{"command", cmd.Key(), "duration", time.Since(start)}
			switch {
			case err == nil:
				logger.Debug("command handled", attrs...)
			case apperr.KindOf(err) == "" || apperr.Is(err, apperr.KindStorage):
				logger.Error("command failed", append(attrs, "error", err)...)
			default:
				logger.Info("command rejected", append(attrs, "kind", apperr.KindOf(err), "error", err)...)
			}
			return res, err
		})
	}
}
