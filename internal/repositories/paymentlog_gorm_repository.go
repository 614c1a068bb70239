package repositories

import (
	"errors"
	"fmt"

	"nexus/internal/apperr"
	"nexus/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMPaymentLogRepository is a GORM implementation of PaymentLogRepository.
type GORMPaymentLogRepository struct {
	db *gorm.DB
}

// NewGORMPaymentLogRepository creates a new instance of GORMPaymentLogRepository.
func NewGORMPaymentLogRepository(db *gorm.DB) *GORMPaymentLogRepository {
	return &GORMPaymentLogRepository{
		db: db,
	}
}

// Create persists a new payment log.
func (r *GORMPaymentLogRepository) Create(log *models.PaymentLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if err := r.db.Create(log).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("payment log with reference %s already exists: %w", log.Reference, apperr.ErrConflict)
		}
		return fmt.Errorf("failed to create payment log: %w", err)
	}
	return nil
}

// GetByReference retrieves a payment log by its provider reference.
func (r *GORMPaymentLogRepository) GetByReference(reference string) (*models.PaymentLog, error) {
	var log models.PaymentLog
	if err := r.db.First(&log, "reference = ?", reference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment log with reference %s: %w", reference, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment log %s: %w", reference, err)
	}
	return &log, nil
}

// Update persists changes to a payment log.
func (r *GORMPaymentLogRepository) Update(log *models.PaymentLog) error {
	res := r.db.Save(log)
	if res.Error != nil {
		return fmt.Errorf("failed to update payment log %s: %w", log.Reference, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("payment log with reference %s: %w", log.Reference, apperr.ErrNotFound)
	}
	return nil
}
