package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/billing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
)

// GormPaymentStore implements billing.PaymentStore using GORM
type GormPaymentStore struct {
	db *gorm.DB
}

// NewGormPaymentStore creates a new GormPaymentStore
func NewGormPaymentStore(db *gorm.DB) *GormPaymentStore {
	return &GormPaymentStore{db: db}
}

// Save persists a new payment
func (r *GormPaymentStore) Save(ctx context.Context, payment *billing.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return billing.NewDuplicateNumberError(payment.PaymentNumber)
		}
		return billing.NewStorageUnavailableError(err)
	}
	return nil
}

// FindByID loads a payment with its full transaction sequence
func (r *GormPaymentStore) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, billing.NewStorageUnavailableError(err)
	}

	payment := model.ToDomain()
	txs, err := loadTransactions(ctx, r.db, "payment_id = ?", id)
	if err != nil {
		return nil, err
	}
	payment.Transactions = txs
	return payment, nil
}

// FindAll returns a page of payments, optionally filtered by customer
func (r *GormPaymentStore) FindAll(ctx context.Context, filter shared.Filter, customerID *uuid.UUID) ([]*billing.Payment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentModel{})
	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}
	if filter.Search != "" {
		query = query.Where("payment_number ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, billing.NewStorageUnavailableError(err)
	}

	var paymentModels []models.PaymentModel
	if err := applyFilter(query, filter, PaymentSortFields).Find(&paymentModels).Error; err != nil {
		return nil, 0, billing.NewStorageUnavailableError(err)
	}

	payments := make([]*billing.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = paymentModels[i].ToDomain()
	}
	return payments, total, nil
}

// NextPaymentNumber generates a unique payment number.
// Format: PAY-YYYYMMDD-XXXXX
func (r *GormPaymentStore) NextPaymentNumber(ctx context.Context) (string, error) {
	return nextSequentialNumber(ctx, r.db, &models.PaymentModel{}, "payment_number", "PAY")
}
