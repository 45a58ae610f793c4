package memory

import (
	"context"
	"log/slog"
	"sync"

	appoutbox "rentalspot/internal/app/outbox"
)

// Outbox buffers records until Flush, then moves them to the published log
// and logs each one.
type Outbox struct {
	mu        sync.Mutex
	pending   []appoutbox.EventRecord
	published []appoutbox.EventRecord
	logger    *slog.Logger
}

func NewOutbox(logger *slog.Logger) *Outbox {
	return &Outbox{logger: logger}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range o.pending {
		if o.logger != nil {
			o.logger.Debug("event published", "event", rec.Name, "aggregate", rec.Aggregate, "event_id", rec.ID)
		}
	}
	o.published = append(o.published, o.pending...)
	o.pending = nil
	return nil
}

// Published returns the names of flushed events in order.
func (o *Outbox) Published() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.published))
	for _, rec := range o.published {
		out = append(out, rec.Name)
	}
	return out
}

var _ appoutbox.Outbox = (*Outbox)(nil)
