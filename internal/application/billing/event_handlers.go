package billing

import (
	"context"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/shared"
)

// BillingEventLogger records every billing domain event as a structured log
// line. It subscribes to the in-process event bus; downstream consumers
// (webhooks, analytics) would hang off the same subscription point.
type BillingEventLogger struct {
	logger *zap.Logger
}

// NewBillingEventLogger creates a new BillingEventLogger
func NewBillingEventLogger(logger *zap.Logger) *BillingEventLogger {
	return &BillingEventLogger{logger: logger.Named("billing-events")}
}

// Handle logs the event
func (h *BillingEventLogger) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.logger.Info("domain event",
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

// EventTypes subscribes the logger to every billing event
func (h *BillingEventLogger) EventTypes() []string {
	return []string{
		"InvoiceCreated",
		"PaymentCreated",
		"TransactionApplied",
		"InvoicePaid",
		"PaymentRefunded",
		"TransactionVoided",
	}
}

var _ shared.EventHandler = (*BillingEventLogger)(nil)
