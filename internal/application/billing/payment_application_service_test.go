package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/billing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// In-memory collaborators backing the service tests. The ledger fake enforces
// the same version re-check contract as the database implementation.

type memStore struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*billing.Invoice
	payments map[uuid.UUID]*billing.Payment
	seq      int
}

func newMemStore() *memStore {
	return &memStore{
		invoices: make(map[uuid.UUID]*billing.Invoice),
		payments: make(map[uuid.UUID]*billing.Payment),
	}
}

func copyInvoice(inv *billing.Invoice) *billing.Invoice {
	cp := *inv
	cp.Transactions = append([]billing.Transaction(nil), inv.Transactions...)
	return &cp
}

func copyPayment(p *billing.Payment) *billing.Payment {
	cp := *p
	cp.Transactions = append([]billing.Transaction(nil), p.Transactions...)
	return &cp
}

func (s *memStore) Save(ctx context.Context, invoice *billing.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[invoice.ID] = copyInvoice(invoice)
	return nil
}

func (s *memStore) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, nil
	}
	return copyInvoice(inv), nil
}

func (s *memStore) FindByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invoices {
		if inv.InvoiceNumber == number {
			return copyInvoice(inv), nil
		}
	}
	return nil, nil
}

func (s *memStore) FindAll(ctx context.Context, filter shared.Filter, customerID *uuid.UUID) ([]*billing.Invoice, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*billing.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		if customerID != nil && inv.CustomerID != *customerID {
			continue
		}
		out = append(out, copyInvoice(inv))
	}
	return out, int64(len(out)), nil
}

func (s *memStore) NextInvoiceNumber(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return fmt.Sprintf("INV-20260829-%05d", s.seq), nil
}

type memPaymentStore struct {
	*memStore
}

func (s *memPaymentStore) Save(ctx context.Context, payment *billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[payment.ID] = copyPayment(payment)
	return nil
}

func (s *memPaymentStore) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, nil
	}
	return copyPayment(p), nil
}

func (s *memPaymentStore) FindAll(ctx context.Context, filter shared.Filter, customerID *uuid.UUID) ([]*billing.Payment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*billing.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		if customerID != nil && p.CustomerID != *customerID {
			continue
		}
		out = append(out, copyPayment(p))
	}
	return out, int64(len(out)), nil
}

func (s *memPaymentStore) NextPaymentNumber(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return fmt.Sprintf("PAY-20260829-%05d", s.seq), nil
}

type memLedger struct {
	store *memStore
	mu    sync.Mutex
	txs   []billing.Transaction
}

func (l *memLedger) Append(ctx context.Context, req billing.LedgerAppendRequest) (*billing.LedgerAppendResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	inv, ok := l.store.invoices[req.Transaction.InvoiceID]
	if !ok {
		return nil, billing.NewStorageUnavailableError(errors.New("invoice missing"))
	}
	pay, ok := l.store.payments[req.Transaction.PaymentID]
	if !ok {
		return nil, billing.NewStorageUnavailableError(errors.New("payment missing"))
	}

	if inv.GetVersion() != req.InvoiceVersion {
		return nil, billing.NewConcurrentModificationError("Invoice", inv.ID)
	}
	if pay.GetVersion() != req.PaymentVersion {
		return nil, billing.NewConcurrentModificationError("Payment", pay.ID)
	}

	if err := inv.RecordTransaction(req.Transaction); err != nil {
		return nil, err
	}
	if err := pay.RecordTransaction(req.Transaction); err != nil {
		return nil, err
	}
	l.txs = append(l.txs, *req.Transaction)

	return &billing.LedgerAppendResult{
		Transaction: req.Transaction,
		Invoice:     copyInvoice(inv),
		Payment:     copyPayment(pay),
	}, nil
}

func (l *memLedger) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []billing.Transaction
	for _, tx := range l.txs {
		if tx.InvoiceID == invoiceID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (l *memLedger) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]billing.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []billing.Transaction
	for _, tx := range l.txs {
		if tx.PaymentID == paymentID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (l *memLedger) FindByID(ctx context.Context, id uuid.UUID) (*billing.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.txs {
		if l.txs[i].ID == id {
			tx := l.txs[i]
			return &tx, nil
		}
	}
	return nil, nil
}

type recordingHook struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (h *recordingHook) Notify(ctx context.Context, tx *billing.Transaction, inv *billing.Invoice, p *billing.Payment) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	return h.err
}

type recordingCache struct {
	mu          sync.Mutex
	snapshots   []BalanceSnapshot
	invalidated []uuid.UUID
	setErr      error
}

func (c *recordingCache) Get(ctx context.Context, invoiceID uuid.UUID) (*BalanceSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.snapshots) - 1; i >= 0; i-- {
		if c.snapshots[i].InvoiceID == invoiceID {
			snap := c.snapshots[i]
			return &snap, nil
		}
	}
	return nil, nil
}

func (c *recordingCache) Set(ctx context.Context, snapshot BalanceSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.snapshots = append(c.snapshots, snapshot)
	return nil
}

func (c *recordingCache) Invalidate(ctx context.Context, invoiceID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, invoiceID)
	return nil
}

var _ BalanceCache = (*recordingCache)(nil)

type fixture struct {
	store    *memStore
	invoices *memStore
	payments *memPaymentStore
	ledger   *memLedger
	hook     *recordingHook
	cache    *recordingCache
	service  *PaymentApplicationService
	invoice  *billing.Invoice
	payment  *billing.Payment
}

func newFixture(t *testing.T, invoiceTotal, authorized float64, allowOverpayment bool) *fixture {
	t.Helper()

	store := newMemStore()
	payments := &memPaymentStore{memStore: store}
	ledger := &memLedger{store: store}
	hook := &recordingHook{}
	cache := &recordingCache{}

	service := NewPaymentApplicationService(
		store, payments, ledger,
		billing.NewApplicationStrategyFactory(),
		hook, nil, cache, zap.NewNop(), allowOverpayment,
	)

	item, err := billing.NewLineItem("SKU-1", "Order", 1, decimal.NewFromFloat(invoiceTotal))
	require.NoError(t, err)
	invoice, err := billing.NewInvoice("INV-20260829-00001", uuid.New(), valueobject.USD, []billing.LineItem{item})
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), invoice))

	payment, err := billing.NewPayment(
		"PAY-20260829-00001",
		invoice.CustomerID,
		valueobject.NewMoneyUSDFromFloat(authorized),
		billing.PaymentMethodCard,
		nil,
	)
	require.NoError(t, err)
	require.NoError(t, payments.Save(context.Background(), payment))

	return &fixture{
		store:    store,
		invoices: store,
		payments: payments,
		ledger:   ledger,
		hook:     hook,
		cache:    cache,
		service:  service,
		invoice:  invoice,
		payment:  payment,
	}
}

func requireBillingErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func TestPaymentApplicationService_ApplyRefundScenario(t *testing.T) {
	f := newFixture(t, 100.00, 100.00, false)
	ctx := context.Background()

	// Apply 60.00
	result, err := f.service.Apply(ctx, ApplyRequest{
		PaymentID: f.payment.ID,
		InvoiceID: f.invoice.ID,
		Amount:    decimal.NewFromFloat(60.00),
	})
	require.NoError(t, err)
	assert.True(t, result.InvoiceBalance.Amount().Equal(decimal.NewFromInt(40)))
	assert.True(t, result.AppliedAmount.Amount().Equal(decimal.NewFromInt(60)))
	assert.Equal(t, billing.InvoiceStatusPartiallyPaid, result.InvoiceStatus)

	// Apply 40.00 pays the invoice off
	result, err = f.service.Apply(ctx, ApplyRequest{
		PaymentID: f.payment.ID,
		InvoiceID: f.invoice.ID,
		Amount:    decimal.NewFromFloat(40.00),
	})
	require.NoError(t, err)
	assert.True(t, result.InvoiceBalance.IsZero())
	assert.Equal(t, billing.InvoiceStatusPaid, result.InvoiceStatus)

	// Refund 25.00
	result, err = f.service.Refund(ctx, RefundRequest{
		PaymentID: f.payment.ID,
		InvoiceID: f.invoice.ID,
		Amount:    decimal.NewFromFloat(25.00),
	})
	require.NoError(t, err)
	assert.True(t, result.InvoiceBalance.Amount().Equal(decimal.NewFromInt(25)))
	assert.True(t, result.AppliedAmount.Amount().Equal(decimal.NewFromInt(75)))

	assert.Equal(t, 3, f.hook.calls)

	// Every append wrote fresh figures through to the cache
	require.Len(t, f.cache.snapshots, 3)
	last := f.cache.snapshots[2]
	assert.True(t, last.Balance.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, billing.InvoiceStatusRefunded.String(), last.Status)
}

func TestPaymentApplicationService_OverpaymentRejected(t *testing.T) {
	f := newFixture(t, 50.00, 100.00, false)
	ctx := context.Background()

	_, err := f.service.Apply(ctx, ApplyRequest{
		PaymentID: f.payment.ID,
		InvoiceID: f.invoice.ID,
		Amount:    decimal.NewFromFloat(70.00),
	})
	requireBillingErrorCode(t, err, billing.ErrCodeOverpaymentNotAllowed)

	// No ledger entry was written and the balance is unchanged
	txs, err := f.ledger.FindByInvoice(ctx, f.invoice.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)

	loaded, err := f.store.FindByID(ctx, f.invoice.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Balance().Amount().Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 0, f.hook.calls)
}

func TestPaymentApplicationService_OverpaymentAllowed(t *testing.T) {
	f := newFixture(t, 50.00, 100.00, true)

	result, err := f.service.Apply(context.Background(), ApplyRequest{
		PaymentID: f.payment.ID,
		InvoiceID: f.invoice.ID,
		Amount:    decimal.NewFromFloat(70.00),
	})
	require.NoError(t, err)
	assert.True(t, result.InvoiceBalance.Amount().Equal(decimal.NewFromInt(-20)))
	assert.Equal(t, billing.InvoiceStatusOverpaid, result.InvoiceStatus)
}

func TestPaymentApplicationService_ConcurrentApply(t *testing.T) {
	f := newFixture(t, 100.00, 100.00, false)
	ctx := context.Background()

	// Both attempts validate against the same stale snapshot
	staleInvoice, err := f.store.FindByID(ctx, f.invoice.ID)
	require.NoError(t, err)
	stalePayment, err := f.payments.FindByID(ctx, f.payment.ID)
	require.NoError(t, err)

	apply := billing.NewApplyPaymentStrategy()
	buildStale := func() *billing.Transaction {
		tx, err := apply.BuildTransaction(billing.ApplicationRequest{
			Payment: stalePayment,
			Invoice: staleInvoice,
			Amount:  valueobject.NewMoneyUSDFromFloat(60.00),
		})
		require.NoError(t, err)
		return tx
	}

	first := billing.LedgerAppendRequest{
		Transaction:    buildStale(),
		InvoiceVersion: staleInvoice.GetVersion(),
		PaymentVersion: stalePayment.GetVersion(),
	}
	second := billing.LedgerAppendRequest{
		Transaction:    buildStale(),
		InvoiceVersion: staleInvoice.GetVersion(),
		PaymentVersion: stalePayment.GetVersion(),
	}

	_, err = f.ledger.Append(ctx, first)
	require.NoError(t, err)

	_, err = f.ledger.Append(ctx, second)
	requireBillingErrorCode(t, err, billing.ErrCodeConcurrentModification)

	// Final balance reflects only the successful application
	loaded, err := f.store.FindByID(ctx, f.invoice.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Balance().Amount().Equal(decimal.NewFromInt(40)))
}

func TestPaymentApplicationService_VoidTwice(t *testing.T) {
	f := newFixture(t, 100.00, 100.00, false)
	ctx := context.Background()

	result, err := f.service.Apply(ctx, ApplyRequest{
		PaymentID: f.payment.ID,
		InvoiceID: f.invoice.ID,
		Amount:    decimal.NewFromFloat(60.00),
	})
	require.NoError(t, err)

	voidReq := VoidRequest{
		PaymentID:     f.payment.ID,
		InvoiceID:     f.invoice.ID,
		TransactionID: result.Transaction.ID,
	}

	voided, err := f.service.Void(ctx, voidReq)
	require.NoError(t, err)
	assert.True(t, voided.InvoiceBalance.Amount().Equal(decimal.NewFromInt(100)))
	assert.True(t, voided.AppliedAmount.IsZero())

	_, err = f.service.Void(ctx, voidReq)
	requireBillingErrorCode(t, err, billing.ErrCodeAlreadyVoided)
}

func TestPaymentApplicationService_HookFailureDoesNotPropagate(t *testing.T) {
	f := newFixture(t, 100.00, 100.00, false)
	f.hook.err = errors.New("notification endpoint down")

	result, err := f.service.Apply(context.Background(), ApplyRequest{
		PaymentID: f.payment.ID,
		InvoiceID: f.invoice.ID,
		Amount:    decimal.NewFromFloat(60.00),
	})
	require.NoError(t, err)
	assert.NotNil(t, result.Transaction)
	assert.Equal(t, 1, f.hook.calls)
}

func TestPaymentApplicationService_UnknownAggregates(t *testing.T) {
	f := newFixture(t, 100.00, 100.00, false)
	ctx := context.Background()

	_, err := f.service.Apply(ctx, ApplyRequest{
		PaymentID: uuid.New(),
		InvoiceID: f.invoice.ID,
		Amount:    decimal.NewFromFloat(10.00),
	})
	requireBillingErrorCode(t, err, "PAYMENT_NOT_FOUND")

	_, err = f.service.Apply(ctx, ApplyRequest{
		PaymentID: f.payment.ID,
		InvoiceID: uuid.New(),
		Amount:    decimal.NewFromFloat(10.00),
	})
	requireBillingErrorCode(t, err, "INVOICE_NOT_FOUND")
}

func TestPaymentApplicationService_SuppressNotification(t *testing.T) {
	f := newFixture(t, 100.00, 100.00, false)

	result, err := f.service.Apply(context.Background(), ApplyRequest{
		PaymentID: f.payment.ID,
		InvoiceID: f.invoice.ID,
		Amount:    decimal.NewFromFloat(60.00),
		Options:   OperationOptions{SuppressNotification: true},
	})
	require.NoError(t, err)
	assert.NotNil(t, result.Transaction)
	assert.Equal(t, 0, f.hook.calls)
}

func TestPaymentApplicationService_CacheSetFailureInvalidates(t *testing.T) {
	f := newFixture(t, 100.00, 100.00, false)
	f.cache.setErr = errors.New("redis down")

	_, err := f.service.Apply(context.Background(), ApplyRequest{
		PaymentID: f.payment.ID,
		InvoiceID: f.invoice.ID,
		Amount:    decimal.NewFromFloat(60.00),
	})
	require.NoError(t, err)

	assert.Empty(t, f.cache.snapshots)
	assert.Len(t, f.cache.invalidated, 1)
}
