package repositories

import "nexus/internal/models"

// PaymentLogRepository defines the interface for payment-provider attempt
// records. The provider reference is the unique join key back to an order.
type PaymentLogRepository interface {
	Create(log *models.PaymentLog) error
	GetByReference(reference string) (*models.PaymentLog, error)
	Update(log *models.PaymentLog) error
}
