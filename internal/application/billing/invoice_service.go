package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/billing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// numberRetries bounds how many extra attempts a create makes after losing a
// business-number race to a concurrent writer
const numberRetries = 3

// InvoiceService handles invoice lifecycle operations
type InvoiceService struct {
	invoices  billing.InvoiceStore
	ledger    billing.TransactionLedger
	publisher shared.EventPublisher
	cache     BalanceCache
}

// NewInvoiceService creates a new InvoiceService. The cache may be nil, in
// which case list figures are always folded from the ledger.
func NewInvoiceService(
	invoices billing.InvoiceStore,
	ledger billing.TransactionLedger,
	publisher shared.EventPublisher,
	cache BalanceCache,
) *InvoiceService {
	return &InvoiceService{
		invoices:  invoices,
		ledger:    ledger,
		publisher: publisher,
		cache:     cache,
	}
}

// CreateInvoiceLineItem is one line of a CreateInvoiceRequest
type CreateInvoiceLineItem struct {
	SKU       string
	Name      string
	Quantity  int64
	UnitPrice decimal.Decimal
}

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	CustomerID uuid.UUID
	Currency   valueobject.Currency
	LineItems  []CreateInvoiceLineItem
}

// CreateInvoice creates a new invoice with a generated invoice number
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*billing.Invoice, error) {
	currency := req.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	items := make([]billing.LineItem, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		item, err := billing.NewLineItem(li.SKU, li.Name, li.Quantity, li.UnitPrice)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	// Concurrent creates can race to the same generated number; the unique
	// index rejects the loser, which regenerates and retries.
	var invoice *billing.Invoice
	for attempt := 0; ; attempt++ {
		number, err := s.invoices.NextInvoiceNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to generate invoice number: %w", err)
		}

		invoice, err = billing.NewInvoice(number, req.CustomerID, currency, items)
		if err != nil {
			return nil, err
		}

		err = s.invoices.Save(ctx, invoice)
		if err == nil {
			break
		}
		if billing.IsDuplicateNumber(err) && attempt < numberRetries {
			continue
		}
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.publishEvents(ctx, invoice.GetDomainEvents())
	invoice.ClearDomainEvents()

	return invoice, nil
}

// GetInvoice loads an invoice with its full transaction sequence
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewDomainError("INVOICE_NOT_FOUND", fmt.Sprintf("Invoice %s not found", id))
	}
	return invoice, nil
}

// InvoiceListItem pairs an invoice with its derived figures for list views
type InvoiceListItem struct {
	Invoice *billing.Invoice
	Balance BalanceSnapshot
}

// ListInvoices returns a page of invoices, optionally scoped to a customer.
// Derived figures come from the balance cache when present; a miss folds
// from the ledger and refills the cache.
func (s *InvoiceService) ListInvoices(ctx context.Context, filter shared.Filter, customerID *uuid.UUID) (*shared.Paginated[InvoiceListItem], error) {
	invoices, total, err := s.invoices.FindAll(ctx, filter, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	items := make([]InvoiceListItem, len(invoices))
	for i, invoice := range invoices {
		snap, err := s.balanceSnapshot(ctx, invoice)
		if err != nil {
			return nil, err
		}
		items[i] = InvoiceListItem{Invoice: invoice, Balance: snap}
	}

	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

func (s *InvoiceService) balanceSnapshot(ctx context.Context, invoice *billing.Invoice) (BalanceSnapshot, error) {
	if s.cache != nil {
		// Cache read failures fall through to the ledger fold
		if snap, err := s.cache.Get(ctx, invoice.ID); err == nil && snap != nil {
			return *snap, nil
		}
	}

	txs, err := s.ledger.FindByInvoice(ctx, invoice.ID)
	if err != nil {
		return BalanceSnapshot{}, fmt.Errorf("failed to load invoice transactions: %w", err)
	}
	invoice.Transactions = txs

	snap := snapshotOf(invoice)
	if s.cache != nil {
		// Best effort; a failed write just means the next read folds again
		_ = s.cache.Set(ctx, snap)
	}
	return snap, nil
}

// InvoiceBalanceResult carries balance figures recomputed from the ledger
type InvoiceBalanceResult struct {
	InvoiceID     uuid.UUID             `json:"invoice_id"`
	Total         valueobject.Money     `json:"total"`
	AppliedAmount valueobject.Money     `json:"applied_amount"`
	Balance       valueobject.Money     `json:"balance"`
	Status        billing.InvoiceStatus `json:"status"`
	Transactions  int                   `json:"transactions"`
}

// GetInvoiceBalance recomputes the invoice balance from the ledger. Cached
// figures are never consulted here.
func (s *InvoiceService) GetInvoiceBalance(ctx context.Context, id uuid.UUID) (*InvoiceBalanceResult, error) {
	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	txs, err := s.ledger.FindByInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice transactions: %w", err)
	}
	invoice.Transactions = txs

	return &InvoiceBalanceResult{
		InvoiceID:     invoice.ID,
		Total:         invoice.Total(),
		AppliedAmount: invoice.AppliedAmount(),
		Balance:       invoice.Balance(),
		Status:        invoice.Status(),
		Transactions:  len(txs),
	}, nil
}

func (s *InvoiceService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	// Publish failures are not fatal to the write that produced them
	_ = s.publisher.Publish(ctx, events...)
}
