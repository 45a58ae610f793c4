package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"rentalspot/internal/app/commands"
	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/apperr"
)

// IdempotentCommand must be implemented by commands that want replay protection.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // pointer matching the handler result type
}

type IdempotencyRecord struct {
	Key         string
	Command     string
	Payload     []byte
	Error       string
	ErrorKind   string
	ErrorReason string
	// Unavailable keeps the contested nights of a recorded conflict.
	Unavailable *UnavailableNights
	OccurredAt  time.Time
}

type UnavailableNights struct {
	PropertyID string
	Dates      []time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// Idempotency replays the stored outcome of a command seen with the same key.
// Keys are scoped per command. Transient storage failures are not recorded so
// the caller may try again.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return nextFn(ctx, cmd)
			}
			key := cmd.Key() + ":" + idCmd.IdempotencyKey()
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, apperr.Storage("idempotency.get", err, true)
			}
			if found {
				return replay(rec, idCmd, codec)
			}

			result, err := nextFn(ctx, cmd)
			record := IdempotencyRecord{Key: key, Command: cmd.Key(), OccurredAt: time.Now().UTC()}
			if err != nil {
				if apperr.IsTransient(err) {
					return nil, err
				}
				record.Error = err.Error()
				record.ErrorKind = string(apperr.KindOf(err))
				record.ErrorReason = apperr.ReasonOf(err)
				var unavailable *calendar.UnavailableError
				if errors.As(err, &unavailable) {
					record.Unavailable = &UnavailableNights{PropertyID: string(unavailable.PropertyID), Dates: unavailable.Dates}
				}
				if saveErr := store.Save(ctx, record); saveErr != nil {
					return nil, errors.Join(err, saveErr)
				}
				return nil, err
			}
			if result != nil {
				payload, encErr := codec.Encode(result)
				if encErr != nil {
					return nil, encErr
				}
				record.Payload = payload
			}
			if saveErr := store.Save(ctx, record); saveErr != nil {
				return nil, apperr.Storage("idempotency.save", saveErr, true)
			}
			return result, nil
		})
	}
}

func replay(rec IdempotencyRecord, cmd IdempotentCommand, codec ResultCodec) (any, error) {
	if rec.Error != "" {
		cause := errors.New(rec.Error)
		if u := rec.Unavailable; u != nil {
			cause = &calendar.UnavailableError{PropertyID: calendar.PropertyID(u.PropertyID), Dates: u.Dates}
		}
		if rec.ErrorKind == "" {
			return nil, cause
		}
		return nil, &apperr.Error{Kind: apperr.Kind(rec.ErrorKind), Op: "idempotency.replay", Reason: rec.ErrorReason, Err: cause}
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if len(rec.Payload) == 0 {
		return nil, nil
	}
	if err := codec.Decode(rec.Payload, proto); err != nil {
		return nil, err
	}
	return normalizePrototype(proto), nil
}

func normalizePrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface()
	}
	return proto
}
