package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/billing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// PaymentApplicationService orchestrates Apply, Refund and Void operations.
// Each operation validates against a loaded snapshot, builds the ledger entry
// through a strategy, and delegates the atomic append with its version
// re-check to the ledger. A CONCURRENT_MODIFICATION failure means another
// writer moved an aggregate between load and append; callers retry.
type PaymentApplicationService struct {
	invoices         billing.InvoiceStore
	payments         billing.PaymentStore
	ledger           billing.TransactionLedger
	strategies       *billing.ApplicationStrategyFactory
	hook             billing.NotificationHook
	publisher        shared.EventPublisher
	cache            BalanceCache
	logger           *zap.Logger
	allowOverpayment bool
}

// NewPaymentApplicationService creates a new PaymentApplicationService
func NewPaymentApplicationService(
	invoices billing.InvoiceStore,
	payments billing.PaymentStore,
	ledger billing.TransactionLedger,
	strategies *billing.ApplicationStrategyFactory,
	hook billing.NotificationHook,
	publisher shared.EventPublisher,
	cache BalanceCache,
	logger *zap.Logger,
	allowOverpayment bool,
) *PaymentApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentApplicationService{
		invoices:         invoices,
		payments:         payments,
		ledger:           ledger,
		strategies:       strategies,
		hook:             hook,
		publisher:        publisher,
		cache:            cache,
		logger:           logger,
		allowOverpayment: allowOverpayment,
	}
}

// ApplicationResult represents the outcome of a successful ledger operation
type ApplicationResult struct {
	Transaction    *billing.Transaction  `json:"transaction"`
	InvoiceID      uuid.UUID             `json:"invoice_id"`
	PaymentID      uuid.UUID             `json:"payment_id"`
	InvoiceBalance valueobject.Money     `json:"invoice_balance"`
	InvoiceStatus  billing.InvoiceStatus `json:"invoice_status"`
	AppliedAmount  valueobject.Money     `json:"applied_amount"`
	RemainingCap   valueobject.Money     `json:"remaining_capacity"`
}

// OperationOptions carries per-call options shared by Apply, Refund and Void
type OperationOptions struct {
	Description string
	// SuppressNotification skips the notification hook for this call only
	SuppressNotification bool
}

// ApplyRequest represents a request to apply a payment to an invoice
type ApplyRequest struct {
	PaymentID uuid.UUID
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
	Options   OperationOptions
}

// Apply captures part of a payment's authorized amount toward an invoice
func (s *PaymentApplicationService) Apply(ctx context.Context, req ApplyRequest) (*ApplicationResult, error) {
	return s.execute(ctx, billing.ApplicationStrategyTypeApply, req.PaymentID, req.InvoiceID, req.Amount, uuid.Nil, req.Options)
}

// RefundRequest represents a request to return applied funds to a payment
type RefundRequest struct {
	PaymentID uuid.UUID
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
	Options   OperationOptions
}

// Refund returns previously applied funds from an invoice to a payment
func (s *PaymentApplicationService) Refund(ctx context.Context, req RefundRequest) (*ApplicationResult, error) {
	return s.execute(ctx, billing.ApplicationStrategyTypeRefund, req.PaymentID, req.InvoiceID, req.Amount, uuid.Nil, req.Options)
}

// VoidRequest represents a request to fully reverse a prior ledger entry
type VoidRequest struct {
	PaymentID     uuid.UUID
	InvoiceID     uuid.UUID
	TransactionID uuid.UUID
	Options       OperationOptions
}

// Void fully reverses a prior ledger entry with an offsetting entry
func (s *PaymentApplicationService) Void(ctx context.Context, req VoidRequest) (*ApplicationResult, error) {
	return s.execute(ctx, billing.ApplicationStrategyTypeVoid, req.PaymentID, req.InvoiceID, decimal.Zero, req.TransactionID, req.Options)
}

func (s *PaymentApplicationService) execute(
	ctx context.Context,
	strategyType billing.ApplicationStrategyType,
	paymentID, invoiceID uuid.UUID,
	amount decimal.Decimal,
	transactionID uuid.UUID,
	opts OperationOptions,
) (*ApplicationResult, error) {
	strategy, err := s.strategies.GetStrategy(strategyType)
	if err != nil {
		return nil, err
	}

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, shared.NewDomainError("PAYMENT_NOT_FOUND", fmt.Sprintf("Payment %s not found", paymentID))
	}

	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewDomainError("INVOICE_NOT_FOUND", fmt.Sprintf("Invoice %s not found", invoiceID))
	}

	money, err := valueobject.NewMoney(amount, invoice.Currency)
	if err != nil {
		return nil, err
	}

	// All preconditions are checked against this snapshot; nothing has been
	// written if the strategy rejects the request.
	tx, err := strategy.BuildTransaction(billing.ApplicationRequest{
		Payment:          payment,
		Invoice:          invoice,
		Amount:           money,
		TransactionID:    transactionID,
		Description:      opts.Description,
		AllowOverpayment: s.allowOverpayment,
	})
	if err != nil {
		return nil, err
	}

	result, err := s.ledger.Append(ctx, billing.LedgerAppendRequest{
		Transaction:    tx,
		InvoiceVersion: invoice.GetVersion(),
		PaymentVersion: payment.GetVersion(),
	})
	if err != nil {
		return nil, err
	}

	s.refreshCache(ctx, result)
	s.publishEvents(ctx, strategyType, result)
	if !opts.SuppressNotification {
		s.notify(ctx, result)
	}

	return &ApplicationResult{
		Transaction:    result.Transaction,
		InvoiceID:      invoiceID,
		PaymentID:      paymentID,
		InvoiceBalance: result.Invoice.Balance(),
		InvoiceStatus:  result.Invoice.Status(),
		AppliedAmount:  result.Payment.AppliedAmount(),
		RemainingCap:   result.Payment.RemainingCapacity(),
	}, nil
}

// refreshCache writes the post-append figures through to the cache. If the
// write fails the entry is invalidated instead so stale figures cannot be
// served.
func (s *PaymentApplicationService) refreshCache(ctx context.Context, result *billing.LedgerAppendResult) {
	if s.cache == nil {
		return
	}
	snap := snapshotOf(result.Invoice)
	if err := s.cache.Set(ctx, snap); err != nil {
		s.logger.Warn("failed to refresh balance cache",
			zap.String("invoice_id", snap.InvoiceID.String()),
			zap.Error(err))
		if err := s.cache.Invalidate(ctx, snap.InvoiceID); err != nil {
			s.logger.Warn("failed to invalidate balance cache",
				zap.String("invoice_id", snap.InvoiceID.String()),
				zap.Error(err))
		}
	}
}

func (s *PaymentApplicationService) publishEvents(ctx context.Context, strategyType billing.ApplicationStrategyType, result *billing.LedgerAppendResult) {
	if s.publisher == nil {
		return
	}

	events := []shared.DomainEvent{}
	switch strategyType {
	case billing.ApplicationStrategyTypeApply:
		events = append(events, billing.NewTransactionAppliedEvent(result.Transaction, result.Invoice))
		if result.Invoice.Status() == billing.InvoiceStatusPaid {
			events = append(events, billing.NewInvoicePaidEvent(result.Invoice))
		}
	case billing.ApplicationStrategyTypeRefund:
		events = append(events, billing.NewPaymentRefundedEvent(result.Transaction, result.Invoice))
	case billing.ApplicationStrategyTypeVoid:
		events = append(events, billing.NewTransactionVoidedEvent(result.Transaction, result.Invoice))
	}

	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish billing events",
			zap.String("strategy", strategyType.String()),
			zap.Error(err))
	}
}

// notify invokes the notification hook. Hook failures are logged and never
// propagated to the caller; the ledger write already succeeded.
func (s *PaymentApplicationService) notify(ctx context.Context, result *billing.LedgerAppendResult) {
	if s.hook == nil {
		return
	}
	if err := s.hook.Notify(ctx, result.Transaction, result.Invoice, result.Payment); err != nil {
		s.logger.Warn("notification hook failed",
			zap.String("transaction_id", result.Transaction.ID.String()),
			zap.String("invoice_id", result.Invoice.ID.String()),
			zap.Error(err))
	}
}
