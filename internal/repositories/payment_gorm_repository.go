package repositories

import (
	"errors"
	"fmt"

	"nexus/internal/apperr"
	"nexus/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMPaymentRepository is a GORM implementation of PaymentRepository.
type GORMPaymentRepository struct {
	db *gorm.DB
}

// NewGORMPaymentRepository creates a new instance of GORMPaymentRepository.
func NewGORMPaymentRepository(db *gorm.DB) *GORMPaymentRepository {
	return &GORMPaymentRepository{
		db: db,
	}
}

// CreatePayment persists a new escrow payment.
func (r *GORMPaymentRepository) CreatePayment(payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if err := r.db.Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetPaymentByID retrieves a payment by its ID.
func (r *GORMPaymentRepository) GetPaymentByID(id string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment with ID %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment %s: %w", id, err)
	}
	return &payment, nil
}

// UpdatePayment persists changes to a payment.
func (r *GORMPaymentRepository) UpdatePayment(payment *models.Payment) error {
	res := r.db.Save(payment)
	if res.Error != nil {
		return fmt.Errorf("failed to update payment %s: %w", payment.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("payment with ID %s: %w", payment.ID, apperr.ErrNotFound)
	}
	return nil
}

// CreateTransaction records the settlement split for a released payment.
func (r *GORMPaymentRepository) CreateTransaction(transaction *models.Transaction) error {
	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	if err := r.db.Create(transaction).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// CreateDispute persists a new dispute.
func (r *GORMPaymentRepository) CreateDispute(dispute *models.Dispute) error {
	if dispute.ID == "" {
		dispute.ID = uuid.New().String()
	}
	if err := r.db.Create(dispute).Error; err != nil {
		return fmt.Errorf("failed to create dispute: %w", err)
	}
	return nil
}

// GetDisputeByID retrieves a dispute by its ID.
func (r *GORMPaymentRepository) GetDisputeByID(id string) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.First(&dispute, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("dispute with ID %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get dispute %s: %w", id, err)
	}
	return &dispute, nil
}

// UpdateDispute persists changes to a dispute.
func (r *GORMPaymentRepository) UpdateDispute(dispute *models.Dispute) error {
	res := r.db.Save(dispute)
	if res.Error != nil {
		return fmt.Errorf("failed to update dispute %s: %w", dispute.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("dispute with ID %s: %w", dispute.ID, apperr.ErrNotFound)
	}
	return nil
}
