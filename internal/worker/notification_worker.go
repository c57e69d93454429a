package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shareit/internal/events"
	"shareit/internal/metrics"

	"github.com/rs/zerolog"
)

var ErrQueueFull = errors.New("notification queue is full")

// Sender delivers a text message to a chat.
type Sender interface {
	SendHTML(chatID int64, text string) error
}

// DeadLetterStore keeps notifications that exhausted their retries.
type DeadLetterStore interface {
	Push(ctx context.Context, payload interface{}) error
}

// Notification is a single message waiting for delivery.
type Notification struct {
	ChatID    int64     `json:"chat_id"`
	Text      string    `json:"text"`
	Event     string    `json:"event,omitempty"`
	BookingID int64     `json:"booking_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationWorker delivers queued notifications with exponential backoff.
type NotificationWorker struct {
	sender      Sender
	deadLetters DeadLetterStore
	retryPolicy RetryPolicy
	queue       chan Notification
	logger      *zerolog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
	wg          sync.WaitGroup
}

// NewNotificationWorker builds a worker with sane defaults. deadLetters may be nil.
func NewNotificationWorker(sender Sender, deadLetters DeadLetterStore, retry RetryPolicy, queueSize int, logger *zerolog.Logger) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = 128
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &NotificationWorker{
		sender:      sender,
		deadLetters: deadLetters,
		retryPolicy: retry.withDefaults(),
		queue:       make(chan Notification, queueSize),
		logger:      logger,
		sleep:       sleepContext,
	}
}

// Enqueue schedules a notification without blocking.
func (w *NotificationWorker) Enqueue(n Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	select {
	case w.queue <- n:
		return nil
	default:
		metrics.IncNotification("dropped")
		return ErrQueueFull
	}
}

// Start launches the delivery loop in a goroutine; it stops when ctx is done.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Wait blocks until the delivery loop has exited.
func (w *NotificationWorker) Wait() {
	w.wg.Wait()
}

func (w *NotificationWorker) run(ctx context.Context) {
	w.logger.Info().Msg("Notification worker started")
	defer w.logger.Info().Msg("Notification worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-w.queue:
			w.deliver(ctx, n)
		}
	}
}

func (w *NotificationWorker) deliver(ctx context.Context, n Notification) {
	var lastErr error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		lastErr = w.sender.SendHTML(n.ChatID, n.Text)
		if lastErr == nil {
			metrics.IncNotification("sent")
			return
		}

		if attempt == w.retryPolicy.MaxRetries {
			break
		}
		metrics.IncNotification("retry")
		delay := w.retryPolicy.NextDelay(attempt)
		w.logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("delay", delay).
			Int64("booking_id", n.BookingID).Msg("Notification delivery failed, retrying")
		if err := w.sleep(ctx, delay); err != nil {
			break
		}
	}

	metrics.IncNotification("dropped")
	w.logger.Error().Err(lastErr).Int64("booking_id", n.BookingID).Str("event", n.Event).
		Msg("Notification dropped")
	w.pushDeadLetter(ctx, n, lastErr)
}

func (w *NotificationWorker) pushDeadLetter(ctx context.Context, n Notification, cause error) {
	if w.deadLetters == nil {
		return
	}
	if cause != nil {
		n.Error = cause.Error()
	}
	// ctx may already be cancelled during shutdown
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := w.deadLetters.Push(pushCtx, n); err != nil {
		w.logger.Error().Err(err).Int64("booking_id", n.BookingID).Msg("Dead letter push failed")
	}
}

// BookingEventHandler turns booking events into notifications for chatID.
func (w *NotificationWorker) BookingEventHandler(chatID int64) events.EventHandler {
	return func(event *events.Event) error {
		var payload events.BookingEventPayload
		if err := event.Decode(&payload); err != nil {
			return fmt.Errorf("decode booking event: %w", err)
		}
		return w.Enqueue(Notification{
			ChatID:    chatID,
			Text:      FormatBookingEvent(event.Type, payload),
			Event:     event.Type,
			BookingID: payload.BookingID,
		})
	}
}
