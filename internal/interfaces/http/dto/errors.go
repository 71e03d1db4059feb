package dto

import "net/http"

// Transport-level error codes
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
)

// Domain error codes pass through the API unchanged so clients can match on
// the same taxonomy the ledger uses.
const (
	// ErrCodeInvalidAmount is used for zero or negative money amounts
	ErrCodeInvalidAmount = "INVALID_AMOUNT"
	// ErrCodeCurrencyMismatch is used when aggregate currencies disagree
	ErrCodeCurrencyMismatch = "CURRENCY_MISMATCH"
	// ErrCodeInsufficientPaymentCapacity is used when an apply exceeds the payment's remaining capacity
	ErrCodeInsufficientPaymentCapacity = "INSUFFICIENT_PAYMENT_CAPACITY"
	// ErrCodeOverpaymentNotAllowed is used when an apply would drive the invoice balance negative
	ErrCodeOverpaymentNotAllowed = "OVERPAYMENT_NOT_ALLOWED"
	// ErrCodeRefundExceedsAppliedAmount is used when a refund exceeds the net applied amount
	ErrCodeRefundExceedsAppliedAmount = "REFUND_EXCEEDS_APPLIED_AMOUNT"
	// ErrCodeTransactionNotFound is used when a void targets a missing or foreign ledger entry
	ErrCodeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	// ErrCodeAlreadyVoided is used when a void targets an already offset entry
	ErrCodeAlreadyVoided = "ALREADY_VOIDED"
	// ErrCodeConcurrentModification is used when optimistic locking fails
	ErrCodeConcurrentModification = "CONCURRENT_MODIFICATION"
	// ErrCodeDuplicateNumber is used when a create loses a business-number race past its retries
	ErrCodeDuplicateNumber = "DUPLICATE_NUMBER"
	// ErrCodeStorageUnavailable is used when the ledger store cannot be reached
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	// ErrCodeInvoiceNotFound is used when the target invoice does not exist
	ErrCodeInvoiceNotFound = "INVOICE_NOT_FOUND"
	// ErrCodePaymentNotFound is used when the target payment does not exist
	ErrCodePaymentNotFound = "PAYMENT_NOT_FOUND"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeInvoiceNotFound:     http.StatusNotFound,
	ErrCodePaymentNotFound:     http.StatusNotFound,
	ErrCodeTransactionNotFound: http.StatusNotFound,

	// Business rule violations -> 422 Unprocessable Entity
	ErrCodeInvalidAmount:               http.StatusUnprocessableEntity,
	ErrCodeCurrencyMismatch:            http.StatusUnprocessableEntity,
	ErrCodeInsufficientPaymentCapacity: http.StatusUnprocessableEntity,
	ErrCodeOverpaymentNotAllowed:       http.StatusUnprocessableEntity,
	ErrCodeRefundExceedsAppliedAmount:  http.StatusUnprocessableEntity,

	// Conflicts -> 409 Conflict
	ErrCodeAlreadyVoided:          http.StatusConflict,
	ErrCodeConcurrentModification: http.StatusConflict,
	ErrCodeDuplicateNumber:        http.StatusConflict,

	// Infrastructure -> 503 Service Unavailable
	ErrCodeStorageUnavailable: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
