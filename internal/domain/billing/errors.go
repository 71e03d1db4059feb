package billing

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// Error codes for billing rule violations. Precondition failures are rejected
// whole: no ledger entry is written and no aggregate state changes.
const (
	ErrCodeInvalidAmount               = "INVALID_AMOUNT"
	ErrCodeCurrencyMismatch            = "CURRENCY_MISMATCH"
	ErrCodeInsufficientPaymentCapacity = "INSUFFICIENT_PAYMENT_CAPACITY"
	ErrCodeOverpaymentNotAllowed       = "OVERPAYMENT_NOT_ALLOWED"
	ErrCodeRefundExceedsAppliedAmount  = "REFUND_EXCEEDS_APPLIED_AMOUNT"
	ErrCodeTransactionNotFound         = "TRANSACTION_NOT_FOUND"
	ErrCodeAlreadyVoided               = "ALREADY_VOIDED"
	ErrCodeConcurrentModification      = "CONCURRENT_MODIFICATION"
	ErrCodeDuplicateNumber             = "DUPLICATE_NUMBER"
	ErrCodeStorageUnavailable          = "STORAGE_UNAVAILABLE"
)

// NewInvalidAmountError indicates a zero or negative operation amount
func NewInvalidAmountError(amount valueobject.Money) *shared.DomainError {
	return shared.NewDomainError(ErrCodeInvalidAmount,
		fmt.Sprintf("Amount must be strictly positive, got %s", amount))
}

// NewCurrencyMismatchError indicates the operation amount, invoice, and
// payment do not share a single currency
func NewCurrencyMismatchError(invoiceID, paymentID uuid.UUID, amount valueobject.Money, expected valueobject.Currency) *shared.DomainError {
	return shared.NewDomainError(ErrCodeCurrencyMismatch,
		fmt.Sprintf("Currency %s of amount %s does not match %s for invoice %s and payment %s",
			amount.Currency(), amount, expected, invoiceID, paymentID))
}

// NewInsufficientPaymentCapacityError indicates the apply amount exceeds the
// payment's remaining authorized capacity
func NewInsufficientPaymentCapacityError(paymentID uuid.UUID, requested, remaining valueobject.Money) *shared.DomainError {
	return shared.NewDomainError(ErrCodeInsufficientPaymentCapacity,
		fmt.Sprintf("Payment %s has remaining capacity %s, cannot apply %s", paymentID, remaining, requested))
}

// NewOverpaymentNotAllowedError indicates the apply amount exceeds the invoice
// balance while overpayment is disabled
func NewOverpaymentNotAllowedError(invoiceID uuid.UUID, requested, balance valueobject.Money) *shared.DomainError {
	return shared.NewDomainError(ErrCodeOverpaymentNotAllowed,
		fmt.Sprintf("Applying %s would exceed balance %s of invoice %s", requested, balance, invoiceID))
}

// NewRefundExceedsAppliedAmountError indicates the refund amount exceeds the
// net amount this payment has applied to this invoice
func NewRefundExceedsAppliedAmountError(invoiceID, paymentID uuid.UUID, requested, applied valueobject.Money) *shared.DomainError {
	return shared.NewDomainError(ErrCodeRefundExceedsAppliedAmount,
		fmt.Sprintf("Refund of %s exceeds net applied amount %s between payment %s and invoice %s",
			requested, applied, paymentID, invoiceID))
}

// NewTransactionNotFoundError indicates the referenced ledger entry does not
// exist on the invoice
func NewTransactionNotFoundError(invoiceID, transactionID uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(ErrCodeTransactionNotFound,
		fmt.Sprintf("Transaction %s not found on invoice %s", transactionID, invoiceID))
}

// NewAlreadyVoidedError indicates the referenced ledger entry has already been
// offset by a reversal
func NewAlreadyVoidedError(transactionID uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(ErrCodeAlreadyVoided,
		fmt.Sprintf("Transaction %s has already been voided", transactionID))
}

// NewDuplicateNumberError indicates a generated business number lost a race
// to a concurrent writer. Callers regenerate and retry.
func NewDuplicateNumberError(number string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeDuplicateNumber,
		fmt.Sprintf("Number %s is already taken", number))
}

// IsDuplicateNumber reports whether err is a duplicate business number error
func IsDuplicateNumber(err error) bool {
	var domainErr *shared.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == ErrCodeDuplicateNumber
}

// NewConcurrentModificationError indicates an aggregate changed between
// validation and append
func NewConcurrentModificationError(aggregateType string, id uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(ErrCodeConcurrentModification,
		fmt.Sprintf("%s %s was modified concurrently, retry the operation", aggregateType, id))
}

// NewStorageUnavailableError wraps a persistence failure
func NewStorageUnavailableError(cause error) *shared.DomainError {
	return shared.NewDomainError(ErrCodeStorageUnavailable,
		fmt.Sprintf("Storage operation failed: %v", cause))
}
