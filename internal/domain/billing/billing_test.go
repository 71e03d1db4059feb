package billing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// Test helpers shared across the package tests.

func newTestInvoice(t *testing.T, total float64) *Invoice {
	t.Helper()
	item, err := NewLineItem("SKU-1", "Test item", 1, decimal.NewFromFloat(total))
	require.NoError(t, err)
	inv, err := NewInvoice("INV-20260829-00001", uuid.New(), valueobject.USD, []LineItem{item})
	require.NoError(t, err)
	return inv
}

func newTestPayment(t *testing.T, authorized float64) *Payment {
	t.Helper()
	p, err := NewPayment(
		"PAY-20260829-00001",
		uuid.New(),
		valueobject.NewMoneyUSDFromFloat(authorized),
		PaymentMethodCard,
		InstrumentDetails{"gateway_ref": "ch_test"},
	)
	require.NoError(t, err)
	return p
}

// record appends the entry to both aggregates the way a successful ledger
// append would.
func record(t *testing.T, inv *Invoice, p *Payment, tx *Transaction) {
	t.Helper()
	require.NoError(t, inv.RecordTransaction(tx))
	require.NoError(t, p.RecordTransaction(tx))
}

func usd(amount float64) valueobject.Money {
	return valueobject.NewMoneyUSDFromFloat(amount)
}
