// Package retry defers failed deliveries to a queue and replays them.
//
// A message is retried until it either lands or the delivery service
// rejects it permanently; the queue's redrive policy is the only outer
// bound. The auth token is never stored with the task, it is resolved
// fresh at send time.
package retry

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-push-relay/internal/domain"
)

// Queue is the delayed-delivery substrate, implemented by the SQS layer.
type Queue interface {
	Enqueue(ctx context.Context, delay time.Duration, body []byte) error
	Consume(ctx context.Context, handle func(ctx context.Context, body []byte) error) error
}

// Scheduler enqueues retry tasks with a random delay in [0, maxJitter)
// so a burst of simultaneous failures does not replay as a burst.
type Scheduler struct {
	queue     Queue
	maxJitter time.Duration
}

func NewScheduler(queue Queue, maxJitter time.Duration) *Scheduler {
	return &Scheduler{queue: queue, maxJitter: maxJitter}
}

func (s *Scheduler) ScheduleRetry(ctx context.Context, msg domain.OutboundMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal retry task: %w", err)
	}

	var delay time.Duration
	if s.maxJitter > 0 {
		delay = time.Duration(rand.Int63n(int64(s.maxJitter)))
	}

	if err := s.queue.Enqueue(ctx, delay, body); err != nil {
		return fmt.Errorf("enqueue retry task: %w", err)
	}
	return nil
}
