package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"

	"rentalspot/internal/app/commands"
	"rentalspot/internal/app/dto"
	bookingapp "rentalspot/internal/app/handlers/booking"
	"rentalspot/internal/domain/shared/apperr"
	"rentalspot/internal/infra/storage/memory"
)

type recordingBus struct {
	seen []bookingapp.PaymentCallbackCommand
	errs []error
}

func (b *recordingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.seen = append(b.seen, cmd.(bookingapp.PaymentCallbackCommand))
	if len(b.errs) > 0 {
		err := b.errs[0]
		b.errs = b.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &dto.Booking{ID: "b1", Status: "confirmed"}, nil
}

func message(value string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{Topic: "rentalspot.payments", Partition: 0, Offset: 7, Value: []byte(value)}
}

const cloudEventPayment = `{"id":"evt-1","type":"payment.succeeded","data":{"booking_id":"b1","status":"succeeded","reference":"pay-1"}}`

func TestPaymentsHandlerDropsRedeliveries(t *testing.T) {
	bus := &recordingBus{}
	h := &PaymentsHandler{Commands: bus, Inbox: memory.NewInbox("payments")}
	for i := 0; i < 2; i++ {
		if err := h.Handle(context.Background(), message(cloudEventPayment)); err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
	}
	if len(bus.seen) != 1 {
		t.Fatalf("dispatched %d commands", len(bus.seen))
	}
	cmd := bus.seen[0]
	if cmd.EventID != "evt-1" || cmd.BookingID != "b1" || cmd.Reference != "pay-1" {
		t.Fatalf("command = %+v", cmd)
	}
}

func TestPaymentsHandlerForgetsOnTransientFailure(t *testing.T) {
	bus := &recordingBus{errs: []error{apperr.Storage("op", errors.New("timeout"), true)}}
	h := &PaymentsHandler{Commands: bus, Inbox: memory.NewInbox("payments")}
	if err := h.Handle(context.Background(), message(cloudEventPayment)); err == nil {
		t.Fatal("transient failure should be returned for redelivery")
	}
	if err := h.Handle(context.Background(), message(cloudEventPayment)); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(bus.seen) != 2 {
		t.Fatalf("dispatched %d commands", len(bus.seen))
	}
}

func TestPaymentsHandlerAcknowledgesRejections(t *testing.T) {
	bus := &recordingBus{errs: []error{apperr.Conflict("op", errors.New("already confirmed"))}}
	h := &PaymentsHandler{Commands: bus, Inbox: memory.NewInbox("payments")}
	if err := h.Handle(context.Background(), message(cloudEventPayment)); err != nil {
		t.Fatalf("rejected verdict should be acknowledged: %v", err)
	}
}

func TestDecodePaymentFallsBackToCoordinates(t *testing.T) {
	id, cb, err := decodePayment(message(`{"booking_id":"b2","status":"failed"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id != "rentalspot.payments/0/7" || cb.BookingID != "b2" {
		t.Fatalf("id=%q cb=%+v", id, cb)
	}
	if _, _, err := decodePayment(message(`{"status":"failed"}`)); err == nil {
		t.Fatal("payment without booking id accepted")
	}
}
