package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"rentalspot/internal/app/commands"
	"rentalspot/internal/app/dto"
	bookingapp "rentalspot/internal/app/handlers/booking"
	"rentalspot/internal/domain/shared/apperr"
)

// Inbox remembers consumed event ids.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// PaymentCallback is the data of a payment verdict event.
type PaymentCallback struct {
	BookingID  string `json:"booking_id"`
	AmountPaid int64  `json:"amount_paid"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
	Reference  string `json:"reference"`
}

type cloudEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// PaymentsHandler turns payment verdicts into booking commands. Redeliveries
// are dropped by the inbox; rejected verdicts are logged and acknowledged,
// transient failures are left for redelivery.
type PaymentsHandler struct {
	Commands commands.Bus
	Inbox    Inbox
	Logger   *slog.Logger
}

func (h *PaymentsHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	eventID, callback, err := decodePayment(msg)
	if err != nil {
		h.log(slog.LevelWarn, "payment message dropped", "offset", msg.Offset, "error", err)
		return nil
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, eventID)
		if err != nil {
			return fmt.Errorf("inbox: %w", err)
		}
		if seen {
			h.log(slog.LevelDebug, "payment event already processed", "event_id", eventID)
			return nil
		}
	}

	_, err = commands.Dispatch[bookingapp.PaymentCallbackCommand, *dto.Booking](ctx, h.Commands, bookingapp.PaymentCallbackCommand{
		EventID:    eventID,
		BookingID:  callback.BookingID,
		AmountPaid: callback.AmountPaid,
		Currency:   callback.Currency,
		Status:     callback.Status,
		Reference:  callback.Reference,
	})
	switch {
	case err == nil:
		h.log(slog.LevelInfo, "payment applied", "event_id", eventID, "booking_id", callback.BookingID, "status", callback.Status)
		return nil
	case apperr.IsTransient(err) || apperr.KindOf(err) == "":
		if h.Inbox != nil {
			if ferr := h.Inbox.Forget(context.WithoutCancel(ctx), eventID); ferr != nil {
				err = errors.Join(err, ferr)
			}
		}
		return err
	default:
		h.log(slog.LevelWarn, "payment rejected", "event_id", eventID, "booking_id", callback.BookingID, "kind", apperr.KindOf(err), "error", err)
		return nil
	}
}

// decodePayment accepts a CloudEvents envelope or a bare callback body. The
// event id falls back to the message coordinates.
func decodePayment(msg *sarama.ConsumerMessage) (string, PaymentCallback, error) {
	var cb PaymentCallback
	var evt cloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return "", cb, fmt.Errorf("decode payment event: %w", err)
	}
	body := []byte(msg.Value)
	if len(evt.Data) > 0 {
		body = evt.Data
	}
	if err := json.Unmarshal(body, &cb); err != nil {
		return "", cb, fmt.Errorf("decode payment data: %w", err)
	}
	if cb.BookingID == "" {
		return "", cb, errors.New("payment event without booking_id")
	}
	id := evt.ID
	if id == "" {
		for _, h := range msg.Headers {
			if h != nil && string(h.Key) == "ce_id" {
				id = string(h.Value)
			}
		}
	}
	if id == "" {
		id = fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	}
	return id, cb, nil
}

func (h *PaymentsHandler) log(level slog.Level, msg string, args ...any) {
	if h.Logger != nil {
		h.Logger.Log(context.Background(), level, msg, args...)
	}
}

var _ MessageHandler = (*PaymentsHandler)(nil)
