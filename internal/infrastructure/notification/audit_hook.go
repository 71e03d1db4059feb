package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/billing"
)

// AuditLogHook is a NotificationHook that writes an audit line for every
// recorded ledger entry. It stands in for an external notification system;
// callers treat it as best-effort either way.
type AuditLogHook struct {
	logger *zap.Logger
}

// NewAuditLogHook creates a new AuditLogHook
func NewAuditLogHook(logger *zap.Logger) *AuditLogHook {
	return &AuditLogHook{logger: logger.Named("billing-audit")}
}

// Notify logs the recorded entry with its derived aggregate figures
func (h *AuditLogHook) Notify(ctx context.Context, tx *billing.Transaction, invoice *billing.Invoice, payment *billing.Payment) error {
	h.logger.Info("ledger entry recorded",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("kind", tx.Kind.String()),
		zap.String("direction", tx.Direction.String()),
		zap.String("amount", tx.AmountMoney().String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("invoice_balance", invoice.Balance().String()),
		zap.String("invoice_status", invoice.Status().String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("payment_applied", payment.AppliedAmount().String()),
	)
	return nil
}

var _ billing.NotificationHook = (*AuditLogHook)(nil)
