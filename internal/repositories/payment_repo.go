package repositories

import "nexus/internal/models"

// PaymentRepository defines the interface for the escrow domain: payments,
// the transactions created on release, and disputes.
type PaymentRepository interface {
	CreatePayment(payment *models.Payment) error
	GetPaymentByID(id string) (*models.Payment, error)
	UpdatePayment(payment *models.Payment) error
	CreateTransaction(transaction *models.Transaction) error
	CreateDispute(dispute *models.Dispute) error
	GetDisputeByID(id string) (*models.Dispute, error)
	UpdateDispute(dispute *models.Dispute) error
}
