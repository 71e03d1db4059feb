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

// PaymentService handles payment lifecycle operations
type PaymentService struct {
	payments  billing.PaymentStore
	ledger    billing.TransactionLedger
	publisher shared.EventPublisher
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	payments billing.PaymentStore,
	ledger billing.TransactionLedger,
	publisher shared.EventPublisher,
) *PaymentService {
	return &PaymentService{
		payments:  payments,
		ledger:    ledger,
		publisher: publisher,
	}
}

// CreatePaymentRequest represents a request to record an authorized payment
type CreatePaymentRequest struct {
	CustomerID       uuid.UUID
	AuthorizedAmount decimal.Decimal
	Currency         valueobject.Currency
	Method           billing.PaymentMethod
	Instrument       billing.InstrumentDetails
}

// CreatePayment records a newly authorized payment instrument
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*billing.Payment, error) {
	currency := req.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	authorized, err := valueobject.NewMoney(req.AuthorizedAmount, currency)
	if err != nil {
		return nil, err
	}

	// Number generation races with concurrent creates; see CreateInvoice
	var payment *billing.Payment
	for attempt := 0; ; attempt++ {
		number, err := s.payments.NextPaymentNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to generate payment number: %w", err)
		}

		payment, err = billing.NewPayment(number, req.CustomerID, authorized, req.Method, req.Instrument)
		if err != nil {
			return nil, err
		}

		err = s.payments.Save(ctx, payment)
		if err == nil {
			break
		}
		if billing.IsDuplicateNumber(err) && attempt < numberRetries {
			continue
		}
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, payment.GetDomainEvents()...)
	}
	payment.ClearDomainEvents()

	return payment, nil
}

// GetPayment loads a payment with its full transaction sequence
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	payment, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, shared.NewDomainError("PAYMENT_NOT_FOUND", fmt.Sprintf("Payment %s not found", id))
	}
	return payment, nil
}

// ListPayments returns a page of payments, optionally scoped to a customer
func (s *PaymentService) ListPayments(ctx context.Context, filter shared.Filter, customerID *uuid.UUID) (*shared.Paginated[*billing.Payment], error) {
	payments, total, err := s.payments.FindAll(ctx, filter, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	page := shared.NewPaginated(payments, total, filter.Page, filter.PageSize)
	return &page, nil
}
