package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/billing"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// InvoiceModel is the GORM model for invoices
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID    uuid.UUID         `gorm:"type:uuid;not null;index"`
	Currency      string            `gorm:"type:varchar(3);not null"`
	LineItems     billing.LineItems `gorm:"type:jsonb;not null"`
}

// TableName specifies the table name
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the model to a domain Invoice without its transactions
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		InvoiceNumber: m.InvoiceNumber,
		CustomerID:    m.CustomerID,
		Currency:      valueobject.Currency(m.Currency),
		LineItems:     m.LineItems,
		Transactions:  make([]billing.Transaction, 0),
	}
	m.PopulateAggregateRoot(&inv.BaseAggregateRoot)
	return inv
}

// InvoiceModelFromDomain converts a domain Invoice to the persistence model
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		Currency:      string(inv.Currency),
		LineItems:     inv.LineItems,
	}
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	return m
}

// PaymentModel is the GORM model for payments
type PaymentModel struct {
	AggregateModel
	PaymentNumber    string                    `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID       uuid.UUID                 `gorm:"type:uuid;not null;index"`
	AuthorizedAmount decimal.Decimal           `gorm:"type:decimal(19,4);not null"`
	Currency         string                    `gorm:"type:varchar(3);not null"`
	Method           string                    `gorm:"type:varchar(20);not null"`
	Instrument       billing.InstrumentDetails `gorm:"type:jsonb"`
}

// TableName specifies the table name
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the model to a domain Payment without its transactions
func (m *PaymentModel) ToDomain() *billing.Payment {
	p := &billing.Payment{
		PaymentNumber:    m.PaymentNumber,
		CustomerID:       m.CustomerID,
		AuthorizedAmount: m.AuthorizedAmount,
		Currency:         valueobject.Currency(m.Currency),
		Method:           billing.PaymentMethod(m.Method),
		Instrument:       m.Instrument,
		Transactions:     make([]billing.Transaction, 0),
	}
	m.PopulateAggregateRoot(&p.BaseAggregateRoot)
	return p
}

// PaymentModelFromDomain converts a domain Payment to the persistence model
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{
		PaymentNumber:    p.PaymentNumber,
		CustomerID:       p.CustomerID,
		AuthorizedAmount: p.AuthorizedAmount,
		Currency:         string(p.Currency),
		Method:           p.Method.String(),
		Instrument:       p.Instrument,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}

// TransactionModel is the GORM model for ledger entries. Rows are insert-only;
// there is no update path through the repositories.
type TransactionModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount      decimal.Decimal `gorm:"type:decimal(19,4);not null"`
	Currency    string          `gorm:"type:varchar(3);not null"`
	Direction   string          `gorm:"type:varchar(10);not null"`
	Kind        string          `gorm:"type:varchar(20);not null"`
	Description string          `gorm:"type:text"`
	ReversesID  *uuid.UUID      `gorm:"type:uuid;index"`
	CreatedAt   time.Time       `gorm:"not null;index"`
}

// TableName specifies the table name
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the model to a domain Transaction
func (m *TransactionModel) ToDomain() billing.Transaction {
	return billing.Transaction{
		ID:          m.ID,
		InvoiceID:   m.InvoiceID,
		PaymentID:   m.PaymentID,
		Amount:      m.Amount,
		Currency:    valueobject.Currency(m.Currency),
		Direction:   billing.TransactionDirection(m.Direction),
		Kind:        billing.TransactionKind(m.Kind),
		Description: m.Description,
		ReversesID:  m.ReversesID,
		CreatedAt:   m.CreatedAt,
	}
}

// TransactionModelFromDomain converts a domain Transaction to the persistence model
func TransactionModelFromDomain(tx *billing.Transaction) *TransactionModel {
	return &TransactionModel{
		ID:          tx.ID,
		InvoiceID:   tx.InvoiceID,
		PaymentID:   tx.PaymentID,
		Amount:      tx.Amount,
		Currency:    string(tx.Currency),
		Direction:   tx.Direction.String(),
		Kind:        tx.Kind.String(),
		Description: tx.Description,
		ReversesID:  tx.ReversesID,
		CreatedAt:   tx.CreatedAt,
	}
}
