package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// InvoiceStatus represents the derived state of an invoice. It is never
// stored authoritatively; it is recomputed from the transaction ledger.
type InvoiceStatus string

const (
	InvoiceStatusOpen          InvoiceStatus = "OPEN"           // no net payments applied
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID" // 0 < applied < total
	InvoiceStatusPaid          InvoiceStatus = "PAID"           // balance = 0
	InvoiceStatusRefunded      InvoiceStatus = "REFUNDED"       // balance restored via offsetting entries
	InvoiceStatusOverpaid      InvoiceStatus = "OVERPAID"       // balance < 0 (overpayment permitted)
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusOpen, InvoiceStatusPartiallyPaid, InvoiceStatusPaid,
		InvoiceStatusRefunded, InvoiceStatusOverpaid:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// LineItem is a value object within the Invoice aggregate
type LineItem struct {
	ID        uuid.UUID       `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// NewLineItem creates a new line item
func NewLineItem(sku, name string, quantity int64, unitPrice decimal.Decimal) (LineItem, error) {
	if name == "" {
		return LineItem{}, shared.NewDomainError("INVALID_LINE_ITEM", "Line item name cannot be empty")
	}
	if quantity <= 0 {
		return LineItem{}, shared.NewDomainError("INVALID_LINE_ITEM", "Line item quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return LineItem{}, shared.NewDomainError("INVALID_LINE_ITEM", "Line item unit price cannot be negative")
	}
	return LineItem{
		ID:        uuid.New(),
		SKU:       sku,
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}, nil
}

// Total returns quantity times unit price
func (li LineItem) Total() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(li.Quantity))
}

// LineItems is a slice of LineItem that implements GORM Scanner/Valuer for JSONB storage
type LineItems []LineItem

// Value implements driver.Valuer interface for GORM to store as JSONB
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (l *LineItems) Scan(value interface{}) error {
	if value == nil {
		*l = LineItems{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan LineItems: unsupported type")
	}

	if len(bytes) == 0 {
		*l = LineItems{}
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// Invoice is a billable aggregate root. Its total is derived from line items
// and its balance from the append-only transaction sequence; it holds no
// direct pointer to any Payment, the ledger is the sole join between them.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber string               `json:"invoice_number"`
	CustomerID    uuid.UUID            `json:"customer_id"`
	Currency      valueobject.Currency `json:"currency"`
	LineItems     LineItems            `json:"line_items"`
	Transactions  []Transaction        `json:"transactions" gorm:"-"`
}

// NewInvoice creates a new invoice from line items
func NewInvoice(
	invoiceNumber string,
	customerID uuid.UUID,
	currency valueobject.Currency,
	items []LineItem,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if currency == "" {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("INVALID_LINE_ITEMS", "Invoice requires at least one line item")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		CustomerID:        customerID,
		Currency:          currency,
		LineItems:         items,
		Transactions:      make([]Transaction, 0),
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// Total returns the sum of line item totals
func (inv *Invoice) Total() valueobject.Money {
	total := decimal.Zero
	for _, li := range inv.LineItems {
		total = total.Add(li.Total())
	}
	m, _ := valueobject.NewMoney(total, inv.Currency)
	return m
}

// Balance returns total minus net credits, recomputed from the ledger
func (inv *Invoice) Balance() valueobject.Money {
	m, _ := valueobject.NewMoney(InvoiceBalance(inv.Total().Amount(), inv.Transactions), inv.Currency)
	return m
}

// AppliedAmount returns the net amount applied against this invoice
func (inv *Invoice) AppliedAmount() valueobject.Money {
	m, _ := valueobject.NewMoney(NetApplied(inv.Transactions), inv.Currency)
	return m
}

// Status derives the invoice state from the ledger
func (inv *Invoice) Status() InvoiceStatus {
	return DeriveInvoiceStatus(inv.Total().Amount(), inv.Transactions)
}

// RecordTransaction appends a ledger entry to the aggregate's sequence.
// The entry must belong to this invoice and match its currency.
func (inv *Invoice) RecordTransaction(tx *Transaction) error {
	if tx == nil {
		return shared.NewDomainError("INVALID_TRANSACTION", "Transaction cannot be nil")
	}
	if tx.InvoiceID != inv.ID {
		return shared.NewDomainError("INVALID_TRANSACTION", fmt.Sprintf("Transaction %s does not belong to invoice %s", tx.ID, inv.ID))
	}
	if tx.Currency != inv.Currency {
		return NewCurrencyMismatchError(inv.ID, tx.PaymentID, tx.AmountMoney(), inv.Currency)
	}

	inv.Transactions = append(inv.Transactions, *tx)
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// TransactionCount returns the number of ledger entries
func (inv *Invoice) TransactionCount() int {
	return len(inv.Transactions)
}

// IsPaid returns true if the balance has reached zero
func (inv *Invoice) IsPaid() bool {
	return inv.Status() == InvoiceStatusPaid
}
