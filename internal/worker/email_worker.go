package worker

import (
	"context"
	"errors"
	"time"

	"courierbot/internal/domain"
	"courierbot/internal/events"
	"courierbot/internal/models"

	"github.com/rs/zerolog"
)

// EmailTask is one queued status notification. Delivery is simulated: the
// worker only records that the email would have been sent.
type EmailTask struct {
	CustomerID int64
	Lines      []string
	CreatedAt  time.Time
}

// EmailWorker drains the notification queue in the background. A pluggable
// deliver func keeps the retry loop testable.
type EmailWorker struct {
	queue       chan EmailTask
	retryPolicy RetryPolicy
	bus         domain.EventPublisher
	deliver     func(ctx context.Context, task EmailTask) error
	logger      *zerolog.Logger
}

func NewEmailWorker(retry RetryPolicy, bus domain.EventPublisher, logger *zerolog.Logger) *EmailWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 3
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	w := &EmailWorker{
		queue:       make(chan EmailTask, models.WorkerQueueSize),
		retryPolicy: retry,
		bus:         bus,
		logger:      logger,
	}
	w.deliver = w.simulateDelivery
	return w
}

// EnqueueStatusEmail schedules a status digest for the customer. Fails fast
// when the queue is full rather than blocking a turn.
func (w *EmailWorker) EnqueueStatusEmail(ctx context.Context, customerID int64, lines []string) error {
	task := EmailTask{
		CustomerID: customerID,
		Lines:      append([]string(nil), lines...),
		CreatedAt:  time.Now(),
	}

	select {
	case w.queue <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("email queue is full")
	}
}

// Start consumes tasks until the context is cancelled.
func (w *EmailWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Email worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Email worker stopping")
			return
		case task := <-w.queue:
			w.process(ctx, task)
		}
	}
}

func (w *EmailWorker) process(ctx context.Context, task EmailTask) {
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		err := w.deliver(ctx, task)
		if err == nil {
			if w.bus != nil {
				_ = w.bus.PublishJSON(events.EventStatusEmailed, events.OrderEventPayload{
					CustomerID:  task.CustomerID,
					RequestedAt: task.CreatedAt,
				})
			}
			return
		}

		w.logger.Warn().
			Err(err).
			Int64("customer_id", task.CustomerID).
			Int("attempt", attempt).
			Int("max_attempts", w.retryPolicy.MaxRetries).
			Msg("Email delivery attempt failed")

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retryPolicy.NextDelay(attempt)):
		}
	}

	w.logger.Error().
		Int64("customer_id", task.CustomerID).
		Msg("Email delivery failed after all attempts")
}

// simulateDelivery is the default deliver func: no real email leaves the
// system, the digest is only logged.
func (w *EmailWorker) simulateDelivery(_ context.Context, task EmailTask) error {
	w.logger.Info().
		Int64("customer_id", task.CustomerID).
		Int("lines", len(task.Lines)).
		Msg("Simulated status email delivery")
	return nil
}
