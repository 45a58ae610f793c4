package middleware

import (
	"context"
	"errors"

	"rentalspot/internal/app/commands"
	"rentalspot/internal/app/outbox"
)

// OutboxFlush flushes recorded events after every command, including failed
// ones: a rejected claim still records the prevented overbooking.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if flushErr := box.Flush(context.WithoutCancel(ctx)); flushErr != nil {
				return nil, errors.Join(err, flushErr)
			}
			return res, err
		})
	}
}
