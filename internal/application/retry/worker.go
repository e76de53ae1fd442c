package retry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/go-push-relay/internal/domain"
)

// Deliverer is the single-attempt send, implemented by the sender service.
type Deliverer interface {
	SendNoRetry(ctx context.Context, msg domain.OutboundMessage) (bool, error)
}

// Worker drains the retry queue. Each task gets one delivery attempt per
// receive; returning an error from the handler leaves the task on the
// queue for redelivery after the visibility timeout.
type Worker struct {
	queue  Queue
	sender Deliverer
}

func NewWorker(queue Queue, sender Deliverer) *Worker {
	return &Worker{queue: queue, sender: sender}
}

// Run blocks consuming the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	return w.queue.Consume(ctx, w.handle)
}

func (w *Worker) handle(ctx context.Context, body []byte) error {
	var msg domain.OutboundMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		// A task that never parses would redeliver forever.
		slog.Error("dropping unreadable retry task", "err", err)
		return nil
	}

	sent, err := w.sender.SendNoRetry(ctx, msg)
	if err != nil {
		if errors.Is(err, domain.ErrPermanentDelivery) {
			slog.Warn("dropping permanently rejected delivery",
				"registration_id", msg.RegistrationID, "collapse_key", msg.CollapseKey, "err", err)
			return nil
		}
		return err
	}
	if !sent {
		return errors.New("delivery not accepted, leaving task for redelivery")
	}

	slog.Info("retried delivery succeeded",
		"registration_id", msg.RegistrationID, "collapse_key", msg.CollapseKey)
	return nil
}
