package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/billing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
)

// GormInvoiceStore implements billing.InvoiceStore using GORM
type GormInvoiceStore struct {
	db *gorm.DB
}

// NewGormInvoiceStore creates a new GormInvoiceStore
func NewGormInvoiceStore(db *gorm.DB) *GormInvoiceStore {
	return &GormInvoiceStore{db: db}
}

// Save persists a new invoice
func (r *GormInvoiceStore) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return billing.NewDuplicateNumberError(invoice.InvoiceNumber)
		}
		return billing.NewStorageUnavailableError(err)
	}
	return nil
}

// FindByID loads an invoice with its full transaction sequence
func (r *GormInvoiceStore) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, billing.NewStorageUnavailableError(err)
	}

	invoice := model.ToDomain()
	txs, err := loadTransactions(ctx, r.db, "invoice_id = ?", id)
	if err != nil {
		return nil, err
	}
	invoice.Transactions = txs
	return invoice, nil
}

// FindByNumber loads an invoice by its business number
func (r *GormInvoiceStore) FindByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "invoice_number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, billing.NewStorageUnavailableError(err)
	}
	return r.FindByID(ctx, model.ID)
}

// FindAll returns a page of invoices, optionally filtered by customer.
// List results carry no transaction sequences; derived figures are served by
// the balance endpoint which always recomputes from the ledger.
func (r *GormInvoiceStore) FindAll(ctx context.Context, filter shared.Filter, customerID *uuid.UUID) ([]*billing.Invoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}
	if filter.Search != "" {
		query = query.Where("invoice_number ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, billing.NewStorageUnavailableError(err)
	}

	var invoiceModels []models.InvoiceModel
	if err := applyFilter(query, filter, InvoiceSortFields).Find(&invoiceModels).Error; err != nil {
		return nil, 0, billing.NewStorageUnavailableError(err)
	}

	invoices := make([]*billing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = invoiceModels[i].ToDomain()
	}
	return invoices, total, nil
}

// NextInvoiceNumber generates a unique invoice number.
// Format: INV-YYYYMMDD-XXXXX
func (r *GormInvoiceStore) NextInvoiceNumber(ctx context.Context) (string, error) {
	return nextSequentialNumber(ctx, r.db, &models.InvoiceModel{}, "invoice_number", "INV")
}

// nextSequentialNumber issues the next number with the given prefix for today
func nextSequentialNumber(ctx context.Context, db *gorm.DB, model interface{}, column, prefix string) (string, error) {
	date := time.Now().Format("20060102")
	fullPrefix := fmt.Sprintf("%s-%s-", prefix, date)

	var maxNumber string
	if err := db.WithContext(ctx).
		Model(model).
		Select(column).
		Where(column+" LIKE ?", fullPrefix+"%").
		Order(column + " DESC").
		Limit(1).
		Pluck(column, &maxNumber).Error; err != nil {
		return "", billing.NewStorageUnavailableError(err)
	}

	var nextNum int
	if maxNumber != "" {
		parts := strings.Split(maxNumber, "-")
		if len(parts) != 3 {
			return "", billing.NewStorageUnavailableError(fmt.Errorf("malformed %s %q", column, maxNumber))
		}
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return "", billing.NewStorageUnavailableError(fmt.Errorf("malformed %s %q: %w", column, maxNumber, err))
		}
		nextNum = n
	}
	nextNum++

	return fmt.Sprintf("%s%05d", fullPrefix, nextNum), nil
}

// loadTransactions fetches the ordered ledger entries matching the condition
func loadTransactions(ctx context.Context, db *gorm.DB, cond string, arg interface{}) ([]billing.Transaction, error) {
	var txModels []models.TransactionModel
	if err := db.WithContext(ctx).
		Where(cond, arg).
		Order("created_at ASC, id ASC").
		Find(&txModels).Error; err != nil {
		return nil, billing.NewStorageUnavailableError(err)
	}

	txs := make([]billing.Transaction, len(txModels))
	for i := range txModels {
		txs[i] = txModels[i].ToDomain()
	}
	return txs, nil
}

// applyFilter applies pagination and whitelisted ordering to the query
func applyFilter(query *gorm.DB, filter shared.Filter, sortFields map[string]bool) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, sortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}
