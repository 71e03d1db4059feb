package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// InvoiceCreatedEvent is raised when a new invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID            `json:"invoice_id"`
	InvoiceNumber string               `json:"invoice_number"`
	CustomerID    uuid.UUID            `json:"customer_id"`
	Currency      valueobject.Currency `json:"currency"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return "InvoiceCreated"
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCreated", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		Currency:        inv.Currency,
		TotalAmount:     inv.Total().Amount(),
	}
}

// PaymentCreatedEvent is raised when a new payment is authorized
type PaymentCreatedEvent struct {
	shared.BaseDomainEvent
	PaymentID        uuid.UUID            `json:"payment_id"`
	PaymentNumber    string               `json:"payment_number"`
	CustomerID       uuid.UUID            `json:"customer_id"`
	Currency         valueobject.Currency `json:"currency"`
	AuthorizedAmount decimal.Decimal      `json:"authorized_amount"`
	Method           PaymentMethod        `json:"method"`
}

// EventType returns the event type name
func (e *PaymentCreatedEvent) EventType() string {
	return "PaymentCreated"
}

// NewPaymentCreatedEvent creates a new PaymentCreatedEvent
func NewPaymentCreatedEvent(p *Payment) *PaymentCreatedEvent {
	return &PaymentCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent("PaymentCreated", "Payment", p.ID),
		PaymentID:        p.ID,
		PaymentNumber:    p.PaymentNumber,
		CustomerID:       p.CustomerID,
		Currency:         p.Currency,
		AuthorizedAmount: p.AuthorizedAmount,
		Method:           p.Method,
	}
}

// TransactionAppliedEvent is raised when a payment is applied to an invoice
type TransactionAppliedEvent struct {
	shared.BaseDomainEvent
	TransactionID  uuid.UUID       `json:"transaction_id"`
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	Amount         decimal.Decimal `json:"amount"`
	InvoiceBalance decimal.Decimal `json:"invoice_balance"`
	InvoiceStatus  InvoiceStatus   `json:"invoice_status"`
}

// EventType returns the event type name
func (e *TransactionAppliedEvent) EventType() string {
	return "TransactionApplied"
}

// NewTransactionAppliedEvent creates a new TransactionAppliedEvent
func NewTransactionAppliedEvent(tx *Transaction, inv *Invoice) *TransactionAppliedEvent {
	return &TransactionAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("TransactionApplied", "Invoice", inv.ID),
		TransactionID:   tx.ID,
		InvoiceID:       inv.ID,
		PaymentID:       tx.PaymentID,
		Amount:          tx.Amount,
		InvoiceBalance:  inv.Balance().Amount(),
		InvoiceStatus:   inv.Status(),
	}
}

// InvoicePaidEvent is raised when an invoice balance reaches zero
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// EventType returns the event type name
func (e *InvoicePaidEvent) EventType() string {
	return "InvoicePaid"
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoicePaid", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		TotalAmount:     inv.Total().Amount(),
	}
}

// PaymentRefundedEvent is raised when a refund entry is recorded
type PaymentRefundedEvent struct {
	shared.BaseDomainEvent
	TransactionID  uuid.UUID       `json:"transaction_id"`
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	Amount         decimal.Decimal `json:"amount"`
	InvoiceBalance decimal.Decimal `json:"invoice_balance"`
}

// EventType returns the event type name
func (e *PaymentRefundedEvent) EventType() string {
	return "PaymentRefunded"
}

// NewPaymentRefundedEvent creates a new PaymentRefundedEvent
func NewPaymentRefundedEvent(tx *Transaction, inv *Invoice) *PaymentRefundedEvent {
	return &PaymentRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentRefunded", "Payment", tx.PaymentID),
		TransactionID:   tx.ID,
		InvoiceID:       inv.ID,
		PaymentID:       tx.PaymentID,
		Amount:          tx.Amount,
		InvoiceBalance:  inv.Balance().Amount(),
	}
}

// TransactionVoidedEvent is raised when a ledger entry is offset by a reversal
type TransactionVoidedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID       `json:"transaction_id"`
	ReversalID    uuid.UUID       `json:"reversal_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *TransactionVoidedEvent) EventType() string {
	return "TransactionVoided"
}

// NewTransactionVoidedEvent creates a new TransactionVoidedEvent
func NewTransactionVoidedEvent(reversal *Transaction, inv *Invoice) *TransactionVoidedEvent {
	var originalID uuid.UUID
	if reversal.ReversesID != nil {
		originalID = *reversal.ReversesID
	}
	return &TransactionVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("TransactionVoided", "Invoice", inv.ID),
		TransactionID:   originalID,
		ReversalID:      reversal.ID,
		InvoiceID:       inv.ID,
		PaymentID:       reversal.PaymentID,
		Amount:          reversal.Amount,
	}
}
