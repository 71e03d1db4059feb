package billing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

func TestNewTransaction(t *testing.T) {
	invoiceID := uuid.New()
	paymentID := uuid.New()

	tx, err := NewTransaction(invoiceID, paymentID, usd(60.00), DirectionCredit, KindPayment, "capture")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, tx.ID)
	assert.Equal(t, invoiceID, tx.InvoiceID)
	assert.Equal(t, paymentID, tx.PaymentID)
	assert.Equal(t, DirectionCredit, tx.Direction)
	assert.Equal(t, KindPayment, tx.Kind)
	assert.Equal(t, valueobject.USD, tx.Currency)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(60)))
	assert.Nil(t, tx.ReversesID)
	assert.False(t, tx.CreatedAt.IsZero())
}

func TestNewTransaction_Validation(t *testing.T) {
	invoiceID := uuid.New()
	paymentID := uuid.New()

	tests := []struct {
		name      string
		invoiceID uuid.UUID
		paymentID uuid.UUID
		amount    valueobject.Money
		direction TransactionDirection
		kind      TransactionKind
	}{
		{"nil invoice", uuid.Nil, paymentID, usd(10), DirectionCredit, KindPayment},
		{"nil payment", invoiceID, uuid.Nil, usd(10), DirectionCredit, KindPayment},
		{"negative amount", invoiceID, paymentID, usd(-10), DirectionCredit, KindPayment},
		{"invalid direction", invoiceID, paymentID, usd(10), TransactionDirection("SIDEWAYS"), KindPayment},
		{"invalid kind", invoiceID, paymentID, usd(10), DirectionCredit, TransactionKind("GIFT")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransaction(tt.invoiceID, tt.paymentID, tt.amount, tt.direction, tt.kind, "")
			assert.Error(t, err)
		})
	}
}

func TestNewReversalTransaction(t *testing.T) {
	original, err := NewTransaction(uuid.New(), uuid.New(), usd(42.50), DirectionCredit, KindPayment, "capture")
	require.NoError(t, err)

	reversal, err := NewReversalTransaction(original, "")
	require.NoError(t, err)

	assert.Equal(t, original.InvoiceID, reversal.InvoiceID)
	assert.Equal(t, original.PaymentID, reversal.PaymentID)
	assert.Equal(t, DirectionDebit, reversal.Direction)
	assert.Equal(t, KindVoid, reversal.Kind)
	assert.True(t, reversal.Amount.Equal(original.Amount))
	require.NotNil(t, reversal.ReversesID)
	assert.Equal(t, original.ID, *reversal.ReversesID)
	assert.True(t, reversal.IsReversalOf(original.ID))
}

func TestNewReversalTransaction_NilOriginal(t *testing.T) {
	_, err := NewReversalTransaction(nil, "")
	assert.Error(t, err)
}

func TestTransaction_Signed(t *testing.T) {
	credit, err := NewTransaction(uuid.New(), uuid.New(), usd(30), DirectionCredit, KindPayment, "")
	require.NoError(t, err)
	debit, err := NewTransaction(credit.InvoiceID, credit.PaymentID, usd(30), DirectionDebit, KindRefund, "")
	require.NoError(t, err)

	assert.True(t, credit.Signed().Equal(decimal.NewFromInt(30)))
	assert.True(t, debit.Signed().Equal(decimal.NewFromInt(-30)))
}

func TestTransactionDirection_Opposite(t *testing.T) {
	assert.Equal(t, DirectionDebit, DirectionCredit.Opposite())
	assert.Equal(t, DirectionCredit, DirectionDebit.Opposite())
}

func TestTransactionKind_IsReversal(t *testing.T) {
	assert.False(t, KindPayment.IsReversal())
	assert.True(t, KindRefund.IsReversal())
	assert.True(t, KindVoid.IsReversal())
	assert.False(t, KindAdjustment.IsReversal())
}
