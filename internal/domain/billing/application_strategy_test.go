package billing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

func assertBillingError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func TestApplyPaymentStrategy_FullLifecycle(t *testing.T) {
	inv := newTestInvoice(t, 100.00)
	pay := newTestPayment(t, 100.00)
	apply := NewApplyPaymentStrategy()
	refund := NewRefundPaymentStrategy()

	// Apply 60.00
	tx1, err := apply.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(60.00)})
	require.NoError(t, err)
	record(t, inv, pay, tx1)

	assert.True(t, inv.Balance().Amount().Equal(decimal.NewFromInt(40)))
	assert.True(t, pay.AppliedAmount().Amount().Equal(decimal.NewFromInt(60)))
	assert.Equal(t, InvoiceStatusPartiallyPaid, inv.Status())

	// Apply 40.00
	tx2, err := apply.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(40.00)})
	require.NoError(t, err)
	record(t, inv, pay, tx2)

	assert.True(t, inv.Balance().IsZero())
	assert.Equal(t, InvoiceStatusPaid, inv.Status())

	// Refund 25.00
	tx3, err := refund.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(25.00)})
	require.NoError(t, err)
	record(t, inv, pay, tx3)

	assert.True(t, inv.Balance().Amount().Equal(decimal.NewFromInt(25)))
	assert.True(t, pay.AppliedAmount().Amount().Equal(decimal.NewFromInt(75)))
	assert.Equal(t, InvoiceStatusRefunded, inv.Status())
}

func TestApplyPaymentStrategy_InvalidAmount(t *testing.T) {
	inv := newTestInvoice(t, 100.00)
	pay := newTestPayment(t, 100.00)
	apply := NewApplyPaymentStrategy()

	_, err := apply.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(0)})
	assertBillingError(t, err, ErrCodeInvalidAmount)

	_, err = apply.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(-5)})
	assertBillingError(t, err, ErrCodeInvalidAmount)
	assert.Equal(t, 0, inv.TransactionCount())
}

func TestApplyPaymentStrategy_CurrencyMismatch(t *testing.T) {
	inv := newTestInvoice(t, 100.00)
	pay := newTestPayment(t, 100.00)
	apply := NewApplyPaymentStrategy()

	eur, err := valueobject.NewMoneyFromFloat(60.00, valueobject.EUR)
	require.NoError(t, err)

	_, err = apply.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: eur})
	assertBillingError(t, err, ErrCodeCurrencyMismatch)
}

func TestApplyPaymentStrategy_InsufficientCapacity(t *testing.T) {
	inv := newTestInvoice(t, 200.00)
	pay := newTestPayment(t, 100.00)
	apply := NewApplyPaymentStrategy()

	_, err := apply.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(150.00)})
	assertBillingError(t, err, ErrCodeInsufficientPaymentCapacity)
}

func TestApplyPaymentStrategy_OverpaymentNotAllowed(t *testing.T) {
	inv := newTestInvoice(t, 50.00)
	pay := newTestPayment(t, 100.00)
	apply := NewApplyPaymentStrategy()

	_, err := apply.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(70.00)})
	assertBillingError(t, err, ErrCodeOverpaymentNotAllowed)

	// Balance is unchanged because nothing was written
	assert.True(t, inv.Balance().Amount().Equal(decimal.NewFromInt(50)))
}

func TestApplyPaymentStrategy_OverpaymentAllowed(t *testing.T) {
	inv := newTestInvoice(t, 50.00)
	pay := newTestPayment(t, 100.00)
	apply := NewApplyPaymentStrategy()

	tx, err := apply.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(70.00), AllowOverpayment: true})
	require.NoError(t, err)
	record(t, inv, pay, tx)

	assert.True(t, inv.Balance().Amount().Equal(decimal.NewFromInt(-20)))
	assert.Equal(t, InvoiceStatusOverpaid, inv.Status())
}

func TestRefundPaymentStrategy_ExceedsApplied(t *testing.T) {
	inv := newTestInvoice(t, 100.00)
	pay := newTestPayment(t, 100.00)
	apply := NewApplyPaymentStrategy()
	refund := NewRefundPaymentStrategy()

	tx, err := apply.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(60.00)})
	require.NoError(t, err)
	record(t, inv, pay, tx)

	_, err = refund.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(80.00)})
	assertBillingError(t, err, ErrCodeRefundExceedsAppliedAmount)

	// No ledger entry was produced by the rejected refund
	assert.Equal(t, 1, inv.TransactionCount())
}

func TestRefundPaymentStrategy_OnlyCountsOwnPayment(t *testing.T) {
	inv := newTestInvoice(t, 100.00)
	payA := newTestPayment(t, 100.00)
	payB := newTestPayment(t, 100.00)
	apply := NewApplyPaymentStrategy()
	refund := NewRefundPaymentStrategy()

	txA, err := apply.BuildTransaction(ApplicationRequest{Payment: payA, Invoice: inv, Amount: usd(60.00)})
	require.NoError(t, err)
	record(t, inv, payA, txA)

	txB, err := apply.BuildTransaction(ApplicationRequest{Payment: payB, Invoice: inv, Amount: usd(40.00)})
	require.NoError(t, err)
	record(t, inv, payB, txB)

	// Payment B only applied 40, so refunding 60 through it must fail
	_, err = refund.BuildTransaction(ApplicationRequest{Payment: payB, Invoice: inv, Amount: usd(60.00)})
	assertBillingError(t, err, ErrCodeRefundExceedsAppliedAmount)
}

func TestVoidTransactionStrategy(t *testing.T) {
	inv := newTestInvoice(t, 100.00)
	pay := newTestPayment(t, 100.00)
	apply := NewApplyPaymentStrategy()
	void := NewVoidTransactionStrategy()

	original, err := apply.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(60.00)})
	require.NoError(t, err)
	record(t, inv, pay, original)

	reversal, err := void.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, TransactionID: original.ID})
	require.NoError(t, err)
	record(t, inv, pay, reversal)

	assert.Equal(t, DirectionDebit, reversal.Direction)
	assert.Equal(t, KindVoid, reversal.Kind)
	assert.True(t, reversal.Amount.Equal(original.Amount))
	assert.True(t, inv.Balance().Amount().Equal(decimal.NewFromInt(100)))
	assert.True(t, pay.AppliedAmount().IsZero())
}

func TestVoidTransactionStrategy_NotFound(t *testing.T) {
	inv := newTestInvoice(t, 100.00)
	pay := newTestPayment(t, 100.00)
	void := NewVoidTransactionStrategy()

	_, err := void.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, TransactionID: uuid.New()})
	assertBillingError(t, err, ErrCodeTransactionNotFound)
}

func TestVoidTransactionStrategy_WrongPayment(t *testing.T) {
	inv := newTestInvoice(t, 100.00)
	payA := newTestPayment(t, 100.00)
	payB := newTestPayment(t, 100.00)
	apply := NewApplyPaymentStrategy()
	void := NewVoidTransactionStrategy()

	original, err := apply.BuildTransaction(ApplicationRequest{Payment: payA, Invoice: inv, Amount: usd(60.00)})
	require.NoError(t, err)
	record(t, inv, payA, original)

	_, err = void.BuildTransaction(ApplicationRequest{Payment: payB, Invoice: inv, TransactionID: original.ID})
	assertBillingError(t, err, ErrCodeTransactionNotFound)
}

func TestVoidTransactionStrategy_AlreadyVoided(t *testing.T) {
	inv := newTestInvoice(t, 100.00)
	pay := newTestPayment(t, 100.00)
	apply := NewApplyPaymentStrategy()
	void := NewVoidTransactionStrategy()

	original, err := apply.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(60.00)})
	require.NoError(t, err)
	record(t, inv, pay, original)

	reversal, err := void.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, TransactionID: original.ID})
	require.NoError(t, err)
	record(t, inv, pay, reversal)

	_, err = void.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, TransactionID: original.ID})
	assertBillingError(t, err, ErrCodeAlreadyVoided)
}

func TestPaymentCapacityInvariantAcrossSequences(t *testing.T) {
	inv := newTestInvoice(t, 300.00)
	pay := newTestPayment(t, 100.00)
	apply := NewApplyPaymentStrategy()
	refund := NewRefundPaymentStrategy()

	steps := []struct {
		strategy PaymentApplicationStrategy
		amount   float64
	}{
		{apply, 50.00},
		{refund, 20.00},
		{apply, 70.00},
		{refund, 100.00},
		{apply, 100.00},
	}

	for _, step := range steps {
		tx, err := step.strategy.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(step.amount)})
		require.NoError(t, err)
		record(t, inv, pay, tx)

		applied := pay.AppliedAmount().Amount()
		assert.True(t, applied.LessThanOrEqual(pay.AuthorizedAmount),
			"applied %s exceeds authorized %s", applied, pay.AuthorizedAmount)
	}
}

func TestApplicationStrategyFactory(t *testing.T) {
	factory := NewApplicationStrategyFactory()

	for _, st := range AllApplicationStrategyTypes() {
		s, err := factory.GetStrategy(st)
		require.NoError(t, err)
		assert.Equal(t, st, s.StrategyType())
		assert.NotEmpty(t, s.Name())
	}

	_, err := factory.GetStrategy(ApplicationStrategyType("UNKNOWN"))
	assert.Error(t, err)
}

func TestVoidTransactionStrategy_RefundVoidRechecksCapacity(t *testing.T) {
	inv := newTestInvoice(t, 100.00)
	pay := newTestPayment(t, 100.00)
	apply := NewApplyPaymentStrategy()
	refund := NewRefundPaymentStrategy()
	void := NewVoidTransactionStrategy()

	first, err := apply.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(100.00)})
	require.NoError(t, err)
	record(t, inv, pay, first)

	refundTx, err := refund.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(100.00)})
	require.NoError(t, err)
	record(t, inv, pay, refundTx)

	second, err := apply.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(100.00)})
	require.NoError(t, err)
	record(t, inv, pay, second)

	// Voiding the refund would re-apply 100 on top of the second application,
	// pushing applied past authorized.
	_, err = void.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, TransactionID: refundTx.ID})
	assertBillingError(t, err, ErrCodeInsufficientPaymentCapacity)

	applied := pay.AppliedAmount().Amount()
	assert.True(t, applied.LessThanOrEqual(pay.AuthorizedAmount),
		"applied %s exceeds authorized %s", applied, pay.AuthorizedAmount)
}

func TestVoidTransactionStrategy_RefundVoidRechecksBalance(t *testing.T) {
	inv := newTestInvoice(t, 100.00)
	pay := newTestPayment(t, 300.00)
	apply := NewApplyPaymentStrategy()
	refund := NewRefundPaymentStrategy()
	void := NewVoidTransactionStrategy()

	first, err := apply.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(100.00)})
	require.NoError(t, err)
	record(t, inv, pay, first)

	refundTx, err := refund.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(100.00)})
	require.NoError(t, err)
	record(t, inv, pay, refundTx)

	second, err := apply.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(100.00)})
	require.NoError(t, err)
	record(t, inv, pay, second)

	// Capacity is fine (300 authorized) but the invoice is already settled,
	// so the re-applied credit would drive the balance negative.
	_, err = void.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, TransactionID: refundTx.ID})
	assertBillingError(t, err, ErrCodeOverpaymentNotAllowed)

	// With overpayment allowed the same void goes through
	reversal, err := void.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, TransactionID: refundTx.ID, AllowOverpayment: true})
	require.NoError(t, err)
	assert.Equal(t, DirectionCredit, reversal.Direction)
}

func TestVoidTransactionStrategy_RefundVoidWithinCapacity(t *testing.T) {
	inv := newTestInvoice(t, 100.00)
	pay := newTestPayment(t, 100.00)
	apply := NewApplyPaymentStrategy()
	refund := NewRefundPaymentStrategy()
	void := NewVoidTransactionStrategy()

	first, err := apply.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(100.00)})
	require.NoError(t, err)
	record(t, inv, pay, first)

	refundTx, err := refund.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, Amount: usd(40.00)})
	require.NoError(t, err)
	record(t, inv, pay, refundTx)

	reversal, err := void.BuildTransaction(ApplicationRequest{Payment: pay, Invoice: inv, TransactionID: refundTx.ID})
	require.NoError(t, err)
	record(t, inv, pay, reversal)

	assert.True(t, pay.AppliedAmount().Amount().Equal(decimal.NewFromInt(100)))
	assert.True(t, inv.Balance().IsZero())
}
