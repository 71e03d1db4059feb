package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/billing"
	"github.com/storefront/backend/internal/domain/shared"
)

// collidingStore rejects the first n saves as number collisions, simulating a
// concurrent writer winning the generated-number race.
type collidingStore struct {
	*memStore
	collisions int
	saves      int
}

func (s *collidingStore) Save(ctx context.Context, invoice *billing.Invoice) error {
	s.saves++
	if s.collisions > 0 {
		s.collisions--
		return billing.NewDuplicateNumberError(invoice.InvoiceNumber)
	}
	return s.memStore.Save(ctx, invoice)
}

func newCreateRequest() CreateInvoiceRequest {
	return CreateInvoiceRequest{
		CustomerID: uuid.New(),
		LineItems: []CreateInvoiceLineItem{
			{SKU: "SKU-1", Name: "Widget", Quantity: 2, UnitPrice: decimal.NewFromInt(50)},
		},
	}
}

func TestInvoiceService_CreateInvoice_RetriesNumberCollision(t *testing.T) {
	store := &collidingStore{memStore: newMemStore(), collisions: 2}
	ledger := &memLedger{store: store.memStore}
	service := NewInvoiceService(store, ledger, nil, nil)

	invoice, err := service.CreateInvoice(context.Background(), newCreateRequest())
	require.NoError(t, err)

	// Two collisions then a success; each attempt drew a fresh number
	assert.Equal(t, 3, store.saves)
	assert.Equal(t, "INV-20260829-00003", invoice.InvoiceNumber)
	assert.True(t, invoice.Total().Amount().Equal(decimal.NewFromInt(100)))
}

func TestInvoiceService_CreateInvoice_GivesUpAfterRetries(t *testing.T) {
	store := &collidingStore{memStore: newMemStore(), collisions: numberRetries + 1}
	ledger := &memLedger{store: store.memStore}
	service := NewInvoiceService(store, ledger, nil, nil)

	_, err := service.CreateInvoice(context.Background(), newCreateRequest())
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, billing.ErrCodeDuplicateNumber, domainErr.Code)
	assert.Equal(t, numberRetries+1, store.saves)
}
