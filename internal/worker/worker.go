package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"basegraph.app/crmsync/common/logger"
	"basegraph.app/crmsync/internal/attio"
	"basegraph.app/crmsync/internal/queue"
)

// Worker drains the delivery stream and POSTs each delivery exactly once.
// Messages are acknowledged whatever the outcome; failed deliveries are logged and dropped.
type Worker struct {
	consumer Consumer
	sender   attio.Sender
	backoff  time.Duration

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, sender attio.Sender) *Worker {
	return &Worker{
		consumer:  consumer,
		sender:    sender,
		backoff:   time.Second,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "delivery worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "delivery worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				select {
				case <-ctx.Done():
				case <-w.stopCh:
				case <-time.After(w.backoff):
				}
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.WarnContext(ctx, "delivery failed",
				"error", err,
				"message_id", msg.ID,
				"delivery_id", msg.Delivery.ID,
				"endpoint_id", msg.Delivery.EndpointID)
		}
		if err := w.consumer.Ack(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "failed to ack message", "error", err, "message_id", msg.ID)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"delivery_id", msg.Delivery.ID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	d := msg.Delivery

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		EventType:  logger.Ptr(d.Event),
		EndpointID: logger.Ptr(d.EndpointID),
		DeliveryID: logger.Ptr(d.ID),
		Component:  "crmsync.worker",
	})

	span := logger.StartSpanFromTraceID(ctx, d.TraceID, "worker.deliver")
	defer span.End()

	if err := w.sender.Send(span.Context(), d); err != nil {
		span.RecordError(err)
		return err
	}

	slog.DebugContext(span.Context(), "delivered", "message_id", msg.ID)
	return nil
}
