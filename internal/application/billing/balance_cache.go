package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/billing"
)

// BalanceSnapshot holds derived invoice figures for read-side serving.
// Snapshots are recomputed from the ledger whenever they are missing or
// stale; they are never the source of truth.
type BalanceSnapshot struct {
	InvoiceID     uuid.UUID
	Total         decimal.Decimal
	AppliedAmount decimal.Decimal
	Balance       decimal.Decimal
	Status        string
}

// BalanceCache caches derived invoice figures between ledger writes
type BalanceCache interface {
	// Get returns the cached snapshot, or nil on a miss
	Get(ctx context.Context, invoiceID uuid.UUID) (*BalanceSnapshot, error)
	// Set stores a freshly derived snapshot
	Set(ctx context.Context, snapshot BalanceSnapshot) error
	// Invalidate drops any cached snapshot for the invoice
	Invalidate(ctx context.Context, invoiceID uuid.UUID) error
}

// snapshotOf derives a snapshot from an invoice whose transactions are loaded
func snapshotOf(invoice *billing.Invoice) BalanceSnapshot {
	return BalanceSnapshot{
		InvoiceID:     invoice.ID,
		Total:         invoice.Total().Amount(),
		AppliedAmount: invoice.AppliedAmount().Amount(),
		Balance:       invoice.Balance().Amount(),
		Status:        invoice.Status().String(),
	}
}
