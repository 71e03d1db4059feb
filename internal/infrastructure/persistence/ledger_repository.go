package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/billing"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
)

// GormTransactionLedger implements billing.TransactionLedger using GORM.
// Append re-checks both aggregate versions inside one database transaction,
// closing the window between precondition validation and the ledger write.
type GormTransactionLedger struct {
	db *gorm.DB
}

// NewGormTransactionLedger creates a new GormTransactionLedger
func NewGormTransactionLedger(db *gorm.DB) *GormTransactionLedger {
	return &GormTransactionLedger{db: db}
}

// Append atomically writes one ledger entry and bumps both aggregate versions.
// If either version moved since the caller validated, nothing is written and
// a CONCURRENT_MODIFICATION error is returned for the caller to retry.
func (r *GormTransactionLedger) Append(ctx context.Context, req billing.LedgerAppendRequest) (*billing.LedgerAppendResult, error) {
	if req.Transaction == nil {
		return nil, billing.NewStorageUnavailableError(errors.New("nil transaction"))
	}

	var result *billing.LedgerAppendResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		res := tx.Model(&models.InvoiceModel{}).
			Where("id = ? AND version = ?", req.Transaction.InvoiceID, req.InvoiceVersion).
			Updates(map[string]interface{}{
				"version":    gorm.Expr("version + 1"),
				"updated_at": now,
			})
		if res.Error != nil {
			return billing.NewStorageUnavailableError(res.Error)
		}
		if res.RowsAffected == 0 {
			return billing.NewConcurrentModificationError("Invoice", req.Transaction.InvoiceID)
		}

		res = tx.Model(&models.PaymentModel{}).
			Where("id = ? AND version = ?", req.Transaction.PaymentID, req.PaymentVersion).
			Updates(map[string]interface{}{
				"version":    gorm.Expr("version + 1"),
				"updated_at": now,
			})
		if res.Error != nil {
			return billing.NewStorageUnavailableError(res.Error)
		}
		if res.RowsAffected == 0 {
			return billing.NewConcurrentModificationError("Payment", req.Transaction.PaymentID)
		}

		if err := tx.Create(models.TransactionModelFromDomain(req.Transaction)).Error; err != nil {
			return billing.NewStorageUnavailableError(err)
		}

		// Re-read both aggregates with their full sequences inside the same
		// transaction so the returned balances reflect this append.
		invoice, err := reloadInvoice(ctx, tx, req.Transaction.InvoiceID)
		if err != nil {
			return err
		}
		payment, err := reloadPayment(ctx, tx, req.Transaction.PaymentID)
		if err != nil {
			return err
		}

		result = &billing.LedgerAppendResult{
			Transaction: req.Transaction,
			Invoice:     invoice,
			Payment:     payment,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FindByInvoice returns the ordered transaction sequence of an invoice
func (r *GormTransactionLedger) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.Transaction, error) {
	return loadTransactions(ctx, r.db, "invoice_id = ?", invoiceID)
}

// FindByPayment returns the ordered transaction sequence of a payment
func (r *GormTransactionLedger) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]billing.Transaction, error) {
	return loadTransactions(ctx, r.db, "payment_id = ?", paymentID)
}

// FindByID returns a single ledger entry
func (r *GormTransactionLedger) FindByID(ctx context.Context, id uuid.UUID) (*billing.Transaction, error) {
	var model models.TransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, billing.NewStorageUnavailableError(err)
	}
	tx := model.ToDomain()
	return &tx, nil
}

func reloadInvoice(ctx context.Context, db *gorm.DB, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		return nil, billing.NewStorageUnavailableError(err)
	}
	invoice := model.ToDomain()
	txs, err := loadTransactions(ctx, db, "invoice_id = ?", id)
	if err != nil {
		return nil, err
	}
	invoice.Transactions = txs
	return invoice, nil
}

func reloadPayment(ctx context.Context, db *gorm.DB, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		return nil, billing.NewStorageUnavailableError(err)
	}
	payment := model.ToDomain()
	txs, err := loadTransactions(ctx, db, "payment_id = ?", id)
	if err != nil {
		return nil, err
	}
	payment.Transactions = txs
	return payment, nil
}
