package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"financas/internal/amqp"
	"financas/internal/log"
)

// Invalidator drops derived data for a year.
type Invalidator interface {
	InvalidateYear(year int) int
}

// PaymentConsumer delivers payment events until ctx ends.
type PaymentConsumer interface {
	ConsumePaymentUpdated(ctx context.Context, handler func(context.Context, *amqp.PaymentUpdatedMessage) error) error
}

// PaymentWorker keeps cached dashboards in step with payment events
// published by any instance sharing the broker.
type PaymentWorker struct {
	consumer    PaymentConsumer
	invalidator Invalidator
}

func NewPaymentWorker(consumer PaymentConsumer, invalidator Invalidator) *PaymentWorker {
	return &PaymentWorker{
		consumer:    consumer,
		invalidator: invalidator,
	}
}

// Run consumes events until ctx is cancelled. Cancellation is not an error.
func (w *PaymentWorker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Payment worker started", log.FieldComponent, log.ComponentAMQP)

	err := w.consumer.ConsumePaymentUpdated(ctx, w.HandlePaymentUpdated)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume payment updates: %w", err)
	}

	slog.InfoContext(ctx, "Payment worker stopped", log.FieldComponent, log.ComponentAMQP)
	return nil
}

// HandlePaymentUpdated processes a single payment event. Malformed events
// are dropped without error so they are acknowledged, not redelivered.
func (w *PaymentWorker) HandlePaymentUpdated(ctx context.Context, msg *amqp.PaymentUpdatedMessage) error {
	if msg.Type != "" && msg.Type != amqp.PaymentUpdatedType {
		slog.WarnContext(ctx, "Ignoring unexpected message type",
			log.FieldComponent, log.ComponentAMQP,
			"type", msg.Type)
		return nil
	}
	if msg.Month < 1 || msg.Month > 12 || msg.Year < 1 {
		slog.WarnContext(ctx, "Ignoring payment event with invalid period",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldFixedExpenseID, msg.FixedExpenseID,
			log.FieldYear, msg.Year,
			log.FieldMonth, msg.Month)
		return nil
	}

	removed := w.invalidator.InvalidateYear(msg.Year)
	slog.DebugContext(ctx, "Invalidated cached dashboards",
		log.FieldComponent, log.ComponentCache,
		log.FieldOperation, log.OpInvalidate,
		log.FieldFixedExpenseID, msg.FixedExpenseID,
		log.FieldYear, msg.Year,
		log.FieldMonth, msg.Month,
		log.FieldPaid, msg.Paid,
		"removed", removed)
	return nil
}
