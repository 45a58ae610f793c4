package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeQueue struct {
	mu     sync.Mutex
	docs   []*EventDocument
	sent   []string
	failed map[string]string
}

func (q *fakeQueue) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.docs) == 0 {
		return nil, nil
	}
	doc := q.docs[0]
	q.docs = q.docs[1:]
	return doc, nil
}

func (q *fakeQueue) MarkSent(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, id)
	return nil
}

func (q *fakeQueue) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failed == nil {
		q.failed = map[string]string{}
	}
	q.failed[id] = errMsg
	return nil
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	msgs []published
	err  error
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic, key, payload, headers})
	return nil
}

func TestWorkerDrainPublishesCloudEvents(t *testing.T) {
	q := &fakeQueue{docs: []*EventDocument{
		{ID: "e1", Name: "calendar.nights_claimed", Aggregate: "p1", Payload: []byte(`{"hold_id":"b1"}`)},
		{ID: "e2", Name: "booking.held", Aggregate: "b1", Payload: []byte(`{"booking_id":"b1"}`)},
	}}
	p := &fakeProducer{}
	w := &Worker{Store: q, Producer: p, TopicPrefix: "test."}

	n, err := w.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if n != 2 || len(q.sent) != 2 {
		t.Fatalf("sent = %d / %v", n, q.sent)
	}
	if p.msgs[0].topic != "test.calendar.events.v1" || p.msgs[1].topic != "test.booking.events.v1" {
		t.Fatalf("topics = %s, %s", p.msgs[0].topic, p.msgs[1].topic)
	}
	var evt map[string]any
	if err := json.Unmarshal(p.msgs[0].payload, &evt); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if evt["id"] != "e1" || evt["type"] != "calendar.nights_claimed.v1" || evt["source"] != "app://rentalspot" {
		t.Fatalf("event = %v", evt)
	}
	if p.msgs[0].headers["ce_id"] != "e1" {
		t.Fatalf("headers = %v", p.msgs[0].headers)
	}
}

func TestWorkerMarksFailedOnPublishError(t *testing.T) {
	q := &fakeQueue{docs: []*EventDocument{{ID: "e1", Name: "booking.held", Payload: []byte(`{}`)}}}
	w := &Worker{Store: q, Producer: &fakeProducer{err: errors.New("broker down")}}

	n, err := w.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if n != 0 || q.failed["e1"] != "broker down" {
		t.Fatalf("n = %d, failed = %v", n, q.failed)
	}
}

func TestNextRetryUsesLastBackoff(t *testing.T) {
	w := &Worker{Backoff: []time.Duration{time.Second, time.Minute}}
	if got := time.Until(w.nextRetry(5)); got < 59*time.Second {
		t.Fatalf("next retry in %v", got)
	}
}
