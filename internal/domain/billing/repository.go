package billing

import (
	"context"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared"
)

// InvoiceStore persists invoice aggregates. Implementations load the full
// transaction sequence alongside the aggregate so derived figures can be
// recomputed from scratch.
type InvoiceStore interface {
	// Save persists a new invoice
	Save(ctx context.Context, invoice *Invoice) error
	// FindByID loads an invoice with its full transaction sequence
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// FindByNumber loads an invoice by its business number
	FindByNumber(ctx context.Context, number string) (*Invoice, error)
	// FindAll returns a page of invoices, optionally filtered by customer
	FindAll(ctx context.Context, filter shared.Filter, customerID *uuid.UUID) ([]*Invoice, int64, error)
	// NextInvoiceNumber issues the next sequential invoice number
	NextInvoiceNumber(ctx context.Context) (string, error)
}

// PaymentStore persists payment aggregates
type PaymentStore interface {
	// Save persists a new payment
	Save(ctx context.Context, payment *Payment) error
	// FindByID loads a payment with its full transaction sequence
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// FindAll returns a page of payments, optionally filtered by customer
	FindAll(ctx context.Context, filter shared.Filter, customerID *uuid.UUID) ([]*Payment, int64, error)
	// NextPaymentNumber issues the next sequential payment number
	NextPaymentNumber(ctx context.Context) (string, error)
}

// LedgerAppendRequest carries a validated ledger entry together with the
// aggregate versions the validation was performed against.
type LedgerAppendRequest struct {
	Transaction *Transaction
	// InvoiceVersion is the invoice version observed during validation
	InvoiceVersion int
	// PaymentVersion is the payment version observed during validation
	PaymentVersion int
}

// LedgerAppendResult returns the appended entry and the re-read aggregates
type LedgerAppendResult struct {
	Transaction *Transaction
	Invoice     *Invoice
	Payment     *Payment
}

// TransactionLedger is the append-only transaction store. Append is a single
// atomic operation: it re-checks both aggregate versions, writes the entry,
// and bumps both versions, or fails without writing anything. A version that
// moved since validation yields a CONCURRENT_MODIFICATION error.
type TransactionLedger interface {
	// Append atomically writes one ledger entry and bumps both aggregate versions
	Append(ctx context.Context, req LedgerAppendRequest) (*LedgerAppendResult, error)
	// FindByInvoice returns the ordered transaction sequence of an invoice
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Transaction, error)
	// FindByPayment returns the ordered transaction sequence of a payment
	FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]Transaction, error)
	// FindByID returns a single ledger entry
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
}

// NotificationHook is invoked after each successful ledger append. Hook
// failures must never affect the outcome of the operation that triggered
// them; callers log and continue.
type NotificationHook interface {
	// Notify reports a successfully recorded ledger entry
	Notify(ctx context.Context, tx *Transaction, invoice *Invoice, payment *Payment) error
}
