package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// TransactionDirection represents the direction of a monetary movement
// relative to the invoice: a credit reduces the invoice balance, a debit
// restores it.
type TransactionDirection string

const (
	DirectionCredit TransactionDirection = "CREDIT"
	DirectionDebit  TransactionDirection = "DEBIT"
)

// IsValid checks if the direction is valid
func (d TransactionDirection) IsValid() bool {
	return d == DirectionCredit || d == DirectionDebit
}

// String returns the string representation
func (d TransactionDirection) String() string {
	return string(d)
}

// Opposite returns the reversing direction
func (d TransactionDirection) Opposite() TransactionDirection {
	if d == DirectionCredit {
		return DirectionDebit
	}
	return DirectionCredit
}

// TransactionKind classifies what a ledger entry records
type TransactionKind string

const (
	KindPayment    TransactionKind = "PAYMENT"
	KindRefund     TransactionKind = "REFUND"
	KindVoid       TransactionKind = "VOID"
	KindAdjustment TransactionKind = "ADJUSTMENT"
)

// IsValid checks if the kind is valid
func (k TransactionKind) IsValid() bool {
	switch k {
	case KindPayment, KindRefund, KindVoid, KindAdjustment:
		return true
	}
	return false
}

// String returns the string representation
func (k TransactionKind) String() string {
	return string(k)
}

// IsReversal returns true for kinds that offset earlier entries
func (k TransactionKind) IsReversal() bool {
	return k == KindRefund || k == KindVoid
}

// Transaction is an immutable ledger entry recording a directional monetary
// movement between a Payment and an Invoice. Corrections are modeled as new
// offsetting entries, never as mutation or deletion.
type Transaction struct {
	ID          uuid.UUID             `json:"id"`
	InvoiceID   uuid.UUID             `json:"invoice_id"`
	PaymentID   uuid.UUID             `json:"payment_id"`
	Amount      decimal.Decimal       `json:"amount"` // non-negative magnitude
	Currency    valueobject.Currency  `json:"currency"`
	Direction   TransactionDirection  `json:"direction"`
	Kind        TransactionKind       `json:"kind"`
	Description string                `json:"description,omitempty"`
	ReversesID  *uuid.UUID            `json:"reverses_id,omitempty"` // set on VOID entries
	CreatedAt   time.Time             `json:"created_at"`
}

// NewTransaction creates a new ledger entry. The amount is a non-negative
// magnitude; sign is carried by the direction.
func NewTransaction(
	invoiceID uuid.UUID,
	paymentID uuid.UUID,
	amount valueobject.Money,
	direction TransactionDirection,
	kind TransactionKind,
	description string,
) (*Transaction, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if paymentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PAYMENT", "Payment ID cannot be empty")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Transaction amount cannot be negative")
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Transaction direction is not valid")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Transaction kind is not valid")
	}

	return &Transaction{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		PaymentID:   paymentID,
		Amount:      amount.Amount(),
		Currency:    amount.Currency(),
		Direction:   direction,
		Kind:        kind,
		Description: description,
		CreatedAt:   time.Now(),
	}, nil
}

// NewReversalTransaction creates the offsetting entry that fully reverses
// the original: opposite direction, same magnitude, kind VOID.
func NewReversalTransaction(original *Transaction, description string) (*Transaction, error) {
	if original == nil {
		return nil, shared.NewDomainError("INVALID_TRANSACTION", "Original transaction cannot be nil")
	}
	tx, err := NewTransaction(
		original.InvoiceID,
		original.PaymentID,
		original.AmountMoney(),
		original.Direction.Opposite(),
		KindVoid,
		description,
	)
	if err != nil {
		return nil, err
	}
	id := original.ID
	tx.ReversesID = &id
	return tx, nil
}

// AmountMoney returns the magnitude as a Money value object
func (t *Transaction) AmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(t.Amount, t.Currency)
	return m
}

// Signed returns the amount signed by direction: positive for credits
// (payments applied toward the invoice), negative for debits.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Direction == DirectionCredit {
		return t.Amount
	}
	return t.Amount.Neg()
}

// IsReversalOf returns true if this entry offsets the given transaction ID
func (t *Transaction) IsReversalOf(id uuid.UUID) bool {
	return t.ReversesID != nil && *t.ReversesID == id
}
