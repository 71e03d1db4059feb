package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/billing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// newMockDB creates a GORM connection backed by sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func newLedgerEntry(t *testing.T) *billing.Transaction {
	t.Helper()
	tx, err := billing.NewTransaction(
		uuid.New(), uuid.New(),
		valueobject.NewMoneyUSDFromFloat(60.00),
		billing.DirectionCredit, billing.KindPayment, "capture",
	)
	require.NoError(t, err)
	return tx
}

func TestGormTransactionLedger_Append_ConflictOnInvoice(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	ledger := NewGormTransactionLedger(db)

	entry := newLedgerEntry(t)

	mock.ExpectBegin()
	// Stale invoice version matches no row; nothing else runs
	mock.ExpectExec(`UPDATE "invoices" SET .* WHERE id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := ledger.Append(context.Background(), billing.LedgerAppendRequest{
		Transaction:    entry,
		InvoiceVersion: 1,
		PaymentVersion: 1,
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, billing.ErrCodeConcurrentModification, domainErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTransactionLedger_Append_ConflictOnPayment(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	ledger := NewGormTransactionLedger(db)

	entry := newLedgerEntry(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "invoices" SET .*`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "payments" SET .*`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := ledger.Append(context.Background(), billing.LedgerAppendRequest{
		Transaction:    entry,
		InvoiceVersion: 1,
		PaymentVersion: 1,
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, billing.ErrCodeConcurrentModification, domainErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTransactionLedger_Append_Success(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	ledger := NewGormTransactionLedger(db)

	entry := newLedgerEntry(t)
	now := time.Now()

	invoiceRows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "version", "invoice_number", "customer_id", "currency", "line_items"}).
		AddRow(entry.InvoiceID, now, now, 2, "INV-20260829-00001", uuid.New(), "USD", `[]`)
	paymentRows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "version", "payment_number", "customer_id", "authorized_amount", "currency", "method", "instrument"}).
		AddRow(entry.PaymentID, now, now, 2, "PAY-20260829-00001", uuid.New(), decimal.NewFromInt(100), "USD", "CARD", `{}`)
	txRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "invoice_id", "payment_id", "amount", "currency", "direction", "kind", "description", "reverses_id", "created_at"}).
			AddRow(entry.ID, entry.InvoiceID, entry.PaymentID, entry.Amount, "USD", "CREDIT", "PAYMENT", "capture", nil, now)
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "invoices" SET .*`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "payments" SET .*`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "transactions" .*`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE id = \$\d+ .*`).
		WillReturnRows(invoiceRows)
	mock.ExpectQuery(`SELECT \* FROM "transactions" WHERE invoice_id = \$\d+ .*`).
		WillReturnRows(txRows())
	mock.ExpectQuery(`SELECT \* FROM "payments" WHERE id = \$\d+ .*`).
		WillReturnRows(paymentRows)
	mock.ExpectQuery(`SELECT \* FROM "transactions" WHERE payment_id = \$\d+ .*`).
		WillReturnRows(txRows())
	mock.ExpectCommit()

	result, err := ledger.Append(context.Background(), billing.LedgerAppendRequest{
		Transaction:    entry,
		InvoiceVersion: 1,
		PaymentVersion: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Invoice.GetVersion())
	assert.Equal(t, 2, result.Payment.GetVersion())
	require.Len(t, result.Invoice.Transactions, 1)
	assert.True(t, result.Payment.AppliedAmount().Amount().Equal(entry.Amount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTransactionLedger_FindByID_NotFound(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	ledger := NewGormTransactionLedger(db)

	mock.ExpectQuery(`SELECT \* FROM "transactions" WHERE id = \$\d+ .*`).
		WillReturnError(gorm.ErrRecordNotFound)

	tx, err := ledger.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, tx)
}
