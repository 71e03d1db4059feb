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

// PaymentMethod identifies the instrument a payment was authorized on
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodWallet       PaymentMethod = "WALLET"
	PaymentMethodCash         PaymentMethod = "CASH"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodWallet, PaymentMethodCash:
		return true
	}
	return false
}

// String returns the string representation
func (m PaymentMethod) String() string {
	return string(m)
}

// InstrumentDetails holds gateway references for the authorizing instrument
type InstrumentDetails map[string]string

// Value implements driver.Valuer interface for GORM to store as JSONB
func (d InstrumentDetails) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (d *InstrumentDetails) Scan(value interface{}) error {
	if value == nil {
		*d = InstrumentDetails{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan InstrumentDetails: unsupported type")
	}

	if len(bytes) == 0 {
		*d = InstrumentDetails{}
		return nil
	}

	return json.Unmarshal(bytes, d)
}

// Payment is an aggregate root representing an authorized source of funds.
// The authorized amount is fixed at creation; the applied amount is derived
// from the transaction ledger and never stored directly.
type Payment struct {
	shared.BaseAggregateRoot
	PaymentNumber    string               `json:"payment_number"`
	CustomerID       uuid.UUID            `json:"customer_id"`
	AuthorizedAmount decimal.Decimal      `json:"authorized_amount"`
	Currency         valueobject.Currency `json:"currency"`
	Method           PaymentMethod        `json:"method"`
	Instrument       InstrumentDetails    `json:"instrument"`
	Transactions     []Transaction        `json:"transactions" gorm:"-"`
}

// NewPayment creates a new payment with a fixed authorized amount
func NewPayment(
	paymentNumber string,
	customerID uuid.UUID,
	authorized valueobject.Money,
	method PaymentMethod,
	instrument InstrumentDetails,
) (*Payment, error) {
	if paymentNumber == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if !authorized.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AUTHORIZED_AMOUNT", "Authorized amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Payment method %s is not valid", method))
	}
	if instrument == nil {
		instrument = InstrumentDetails{}
	}

	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PaymentNumber:     paymentNumber,
		CustomerID:        customerID,
		AuthorizedAmount:  authorized.Amount(),
		Currency:          authorized.Currency(),
		Method:            method,
		Instrument:        instrument,
		Transactions:      make([]Transaction, 0),
	}

	p.AddDomainEvent(NewPaymentCreatedEvent(p))

	return p, nil
}

// Authorized returns the fixed authorized amount as Money
func (p *Payment) Authorized() valueobject.Money {
	m, _ := valueobject.NewMoney(p.AuthorizedAmount, p.Currency)
	return m
}

// AppliedAmount returns net credits minus debits over this payment's ledger
// entries. The invariant applied <= authorized holds at all times.
func (p *Payment) AppliedAmount() valueobject.Money {
	m, _ := valueobject.NewMoney(NetApplied(p.Transactions), p.Currency)
	return m
}

// RemainingCapacity returns authorized minus applied
func (p *Payment) RemainingCapacity() valueobject.Money {
	m, _ := valueobject.NewMoney(p.AuthorizedAmount.Sub(NetApplied(p.Transactions)), p.Currency)
	return m
}

// RecordTransaction appends a ledger entry to the aggregate's sequence.
// The entry must belong to this payment and match its currency.
func (p *Payment) RecordTransaction(tx *Transaction) error {
	if tx == nil {
		return shared.NewDomainError("INVALID_TRANSACTION", "Transaction cannot be nil")
	}
	if tx.PaymentID != p.ID {
		return shared.NewDomainError("INVALID_TRANSACTION", fmt.Sprintf("Transaction %s does not belong to payment %s", tx.ID, p.ID))
	}
	if tx.Currency != p.Currency {
		return NewCurrencyMismatchError(tx.InvoiceID, p.ID, tx.AmountMoney(), p.Currency)
	}

	p.Transactions = append(p.Transactions, *tx)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// IsExhausted returns true when no authorized capacity remains
func (p *Payment) IsExhausted() bool {
	return !p.RemainingCapacity().IsPositive()
}
