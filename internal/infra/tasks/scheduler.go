package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"rentalspot/internal/app/schedule"
)

// identified payloads get a stable task id so rescheduling is a no-op.
type identified interface {
	TaskID() string
}

// Scheduler enqueues delayed tasks in asynq.
type Scheduler struct {
	client   *asynq.Client
	Queue    string
	MaxRetry int
}

func NewScheduler(opt asynq.RedisClientOpt) *Scheduler {
	return &Scheduler{client: asynq.NewClient(opt), MaxRetry: 5}
}

func NewTask(name string, payload any, runAt time.Time, queue string, maxRetry int) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(name, b)
	opts := []asynq.Option{asynq.ProcessAt(runAt), asynq.MaxRetry(maxRetry)}
	if queue != "" {
		opts = append(opts, asynq.Queue(queue))
	}
	if p, ok := payload.(identified); ok && p.TaskID() != "" {
		opts = append(opts, asynq.TaskID(p.TaskID()))
	}
	return task, opts, nil
}

func (s *Scheduler) Schedule(ctx context.Context, name string, payload any, runAt time.Time) error {
	task, opts, err := NewTask(name, payload, runAt, s.Queue, s.MaxRetry)
	if err != nil {
		return fmt.Errorf("tasks: encode %s: %w", name, err)
	}
	if _, err := s.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("tasks: enqueue %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) Close() error {
	return s.client.Close()
}

var _ schedule.Scheduler = (*Scheduler)(nil)
