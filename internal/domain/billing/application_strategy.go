package billing

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/strategy"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// ApplicationStrategyType defines the kind of payment application strategy
type ApplicationStrategyType string

const (
	ApplicationStrategyTypeApply  ApplicationStrategyType = "APPLY"  // capture funds toward the invoice
	ApplicationStrategyTypeRefund ApplicationStrategyType = "REFUND" // return previously applied funds
	ApplicationStrategyTypeVoid   ApplicationStrategyType = "VOID"   // fully reverse a prior ledger entry
)

// IsValid checks if the strategy type is valid
func (t ApplicationStrategyType) IsValid() bool {
	switch t {
	case ApplicationStrategyTypeApply, ApplicationStrategyTypeRefund, ApplicationStrategyTypeVoid:
		return true
	}
	return false
}

// String returns the string representation
func (t ApplicationStrategyType) String() string {
	return string(t)
}

// AllApplicationStrategyTypes returns all valid application strategy types
func AllApplicationStrategyTypes() []ApplicationStrategyType {
	return []ApplicationStrategyType{
		ApplicationStrategyTypeApply,
		ApplicationStrategyTypeRefund,
		ApplicationStrategyTypeVoid,
	}
}

// ApplicationRequest carries one payment application attempt. Payment and
// Invoice must be loaded with their full transaction sequences; validation
// reads derived figures, never stored counters.
type ApplicationRequest struct {
	Payment *Payment
	Invoice *Invoice
	// Amount is the operation amount. Ignored by the void strategy.
	Amount valueobject.Money
	// TransactionID references the entry to reverse. Void strategy only.
	TransactionID uuid.UUID
	Description   string
	// AllowOverpayment permits the invoice balance to go negative
	AllowOverpayment bool
}

// PaymentApplicationStrategy validates one application attempt against the
// current ledger state and builds the resulting entry. Strategies are pure:
// they never write, so a rejected attempt leaves no trace. Persisting the
// built entry, including the precondition re-check at append, belongs to
// the ledger collaborator.
type PaymentApplicationStrategy interface {
	strategy.Strategy
	// StrategyType returns the application strategy type
	StrategyType() ApplicationStrategyType
	// BuildTransaction validates the request and constructs the ledger entry
	BuildTransaction(req ApplicationRequest) (*Transaction, error)
}

func validateAggregates(req ApplicationRequest) error {
	if req.Payment == nil {
		return shared.NewDomainError("INVALID_PAYMENT", "Payment cannot be nil")
	}
	if req.Invoice == nil {
		return shared.NewDomainError("INVALID_INVOICE", "Invoice cannot be nil")
	}
	return nil
}

func validateAmountAndCurrency(req ApplicationRequest) error {
	if !req.Amount.IsPositive() {
		return NewInvalidAmountError(req.Amount)
	}
	if req.Amount.Currency() != req.Invoice.Currency || req.Amount.Currency() != req.Payment.Currency {
		return NewCurrencyMismatchError(req.Invoice.ID, req.Payment.ID, req.Amount, req.Invoice.Currency)
	}
	return nil
}

// ApplyPaymentStrategy captures payment funds toward an invoice
type ApplyPaymentStrategy struct {
	strategy.BaseStrategy
}

// NewApplyPaymentStrategy creates a new ApplyPaymentStrategy
func NewApplyPaymentStrategy() *ApplyPaymentStrategy {
	return &ApplyPaymentStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"apply_payment",
			strategy.StrategyTypePaymentApplication,
			"Applies an authorized payment amount toward an invoice balance",
		),
	}
}

// StrategyType returns the application strategy type
func (s *ApplyPaymentStrategy) StrategyType() ApplicationStrategyType {
	return ApplicationStrategyTypeApply
}

// BuildTransaction validates capacity and balance preconditions and builds a
// credit entry of kind PAYMENT
func (s *ApplyPaymentStrategy) BuildTransaction(req ApplicationRequest) (*Transaction, error) {
	if err := validateAggregates(req); err != nil {
		return nil, err
	}
	if err := validateAmountAndCurrency(req); err != nil {
		return nil, err
	}

	remaining := req.Payment.RemainingCapacity()
	if req.Amount.Amount().GreaterThan(remaining.Amount()) {
		return nil, NewInsufficientPaymentCapacityError(req.Payment.ID, req.Amount, remaining)
	}

	balance := req.Invoice.Balance()
	if !req.AllowOverpayment && req.Amount.Amount().GreaterThan(balance.Amount()) {
		return nil, NewOverpaymentNotAllowedError(req.Invoice.ID, req.Amount, balance)
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Payment %s applied to invoice %s", req.Payment.PaymentNumber, req.Invoice.InvoiceNumber)
	}

	return NewTransaction(req.Invoice.ID, req.Payment.ID, req.Amount, DirectionCredit, KindPayment, description)
}

// RefundPaymentStrategy returns previously applied funds to the payment
type RefundPaymentStrategy struct {
	strategy.BaseStrategy
}

// NewRefundPaymentStrategy creates a new RefundPaymentStrategy
func NewRefundPaymentStrategy() *RefundPaymentStrategy {
	return &RefundPaymentStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"refund_payment",
			strategy.StrategyTypePaymentApplication,
			"Returns previously applied funds from an invoice back to a payment",
		),
	}
}

// StrategyType returns the application strategy type
func (s *RefundPaymentStrategy) StrategyType() ApplicationStrategyType {
	return ApplicationStrategyTypeRefund
}

// BuildTransaction validates the refund against the net applied amount for
// this payment and invoice pair and builds a debit entry of kind REFUND
func (s *RefundPaymentStrategy) BuildTransaction(req ApplicationRequest) (*Transaction, error) {
	if err := validateAggregates(req); err != nil {
		return nil, err
	}
	if err := validateAmountAndCurrency(req); err != nil {
		return nil, err
	}

	netApplied := NetAppliedForPair(req.Invoice.Transactions, req.Invoice.ID, req.Payment.ID)
	if req.Amount.Amount().GreaterThan(netApplied) {
		applied, _ := valueobject.NewMoney(netApplied, req.Payment.Currency)
		return nil, NewRefundExceedsAppliedAmountError(req.Invoice.ID, req.Payment.ID, req.Amount, applied)
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Refund of %s to payment %s", req.Amount, req.Payment.PaymentNumber)
	}

	return NewTransaction(req.Invoice.ID, req.Payment.ID, req.Amount, DirectionDebit, KindRefund, description)
}

// VoidTransactionStrategy fully reverses a prior ledger entry
type VoidTransactionStrategy struct {
	strategy.BaseStrategy
}

// NewVoidTransactionStrategy creates a new VoidTransactionStrategy
func NewVoidTransactionStrategy() *VoidTransactionStrategy {
	return &VoidTransactionStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"void_transaction",
			strategy.StrategyTypePaymentApplication,
			"Fully reverses a prior ledger entry with an offsetting entry",
		),
	}
}

// StrategyType returns the application strategy type
func (s *VoidTransactionStrategy) StrategyType() ApplicationStrategyType {
	return ApplicationStrategyTypeVoid
}

// BuildTransaction locates the referenced entry on the invoice and builds the
// offsetting entry: opposite direction, full original amount, kind VOID
func (s *VoidTransactionStrategy) BuildTransaction(req ApplicationRequest) (*Transaction, error) {
	if err := validateAggregates(req); err != nil {
		return nil, err
	}

	original := FindTransaction(req.Invoice.Transactions, req.TransactionID)
	if original == nil {
		return nil, NewTransactionNotFoundError(req.Invoice.ID, req.TransactionID)
	}
	if original.PaymentID != req.Payment.ID {
		return nil, NewTransactionNotFoundError(req.Invoice.ID, req.TransactionID)
	}
	if IsOffset(req.Invoice.Transactions, original.ID) {
		return nil, NewAlreadyVoidedError(original.ID)
	}

	// Reversing a debit entry re-applies its amount as a credit; that credit
	// must still fit within the payment's remaining capacity and the invoice
	// balance, the same preconditions a fresh application faces.
	if original.Direction == DirectionDebit {
		amount := original.AmountMoney()
		remaining := req.Payment.RemainingCapacity()
		if amount.Amount().GreaterThan(remaining.Amount()) {
			return nil, NewInsufficientPaymentCapacityError(req.Payment.ID, amount, remaining)
		}
		balance := req.Invoice.Balance()
		if !req.AllowOverpayment && amount.Amount().GreaterThan(balance.Amount()) {
			return nil, NewOverpaymentNotAllowedError(req.Invoice.ID, amount, balance)
		}
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Void of transaction %s", original.ID)
	}

	return NewReversalTransaction(original, description)
}

// ApplicationStrategyFactory creates payment application strategies
type ApplicationStrategyFactory struct {
	strategies map[ApplicationStrategyType]PaymentApplicationStrategy
}

// NewApplicationStrategyFactory creates a factory with all built-in strategies registered
func NewApplicationStrategyFactory() *ApplicationStrategyFactory {
	return &ApplicationStrategyFactory{
		strategies: map[ApplicationStrategyType]PaymentApplicationStrategy{
			ApplicationStrategyTypeApply:  NewApplyPaymentStrategy(),
			ApplicationStrategyTypeRefund: NewRefundPaymentStrategy(),
			ApplicationStrategyTypeVoid:   NewVoidTransactionStrategy(),
		},
	}
}

// GetStrategy returns the strategy for the given type
func (f *ApplicationStrategyFactory) GetStrategy(t ApplicationStrategyType) (PaymentApplicationStrategy, error) {
	s, ok := f.strategies[t]
	if !ok {
		return nil, shared.NewDomainError("UNKNOWN_STRATEGY", fmt.Sprintf("No payment application strategy registered for type %s", t))
	}
	return s, nil
}
