package repositories

import (
	"fmt"
	"sync"

	"nexus/internal/apperr"
	"nexus/internal/models"

	"github.com/google/uuid"
)

// MockPaymentRepository is an in-memory implementation of PaymentRepository.
type MockPaymentRepository struct {
	payments     map[string]models.Payment
	transactions []models.Transaction
	disputes     map[string]models.Dispute
	mu           sync.RWMutex
}

// NewMockPaymentRepository creates a new instance of MockPaymentRepository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]models.Payment),
		disputes: make(map[string]models.Dispute),
	}
}

// CreatePayment adds a new escrow payment.
func (r *MockPaymentRepository) CreatePayment(payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	r.payments[payment.ID] = *payment
	return nil
}

// GetPaymentByID returns a payment by its ID.
func (r *MockPaymentRepository) GetPaymentByID(id string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment with ID %s: %w", id, apperr.ErrNotFound)
	}
	return &payment, nil
}

// UpdatePayment replaces an existing payment.
func (r *MockPaymentRepository) UpdatePayment(payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.payments[payment.ID]
	if !ok {
		return fmt.Errorf("payment with ID %s: %w", payment.ID, apperr.ErrNotFound)
	}
	r.payments[payment.ID] = *payment
	return nil
}

// CreateTransaction records a settlement split.
func (r *MockPaymentRepository) CreateTransaction(transaction *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	r.transactions = append(r.transactions, *transaction)
	return nil
}

// CreateDispute adds a new dispute.
func (r *MockPaymentRepository) CreateDispute(dispute *models.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if dispute.ID == "" {
		dispute.ID = uuid.New().String()
	}
	r.disputes[dispute.ID] = *dispute
	return nil
}

// GetDisputeByID returns a dispute by its ID.
func (r *MockPaymentRepository) GetDisputeByID(id string) (*models.Dispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dispute, ok := r.disputes[id]
	if !ok {
		return nil, fmt.Errorf("dispute with ID %s: %w", id, apperr.ErrNotFound)
	}
	return &dispute, nil
}

// UpdateDispute replaces an existing dispute.
func (r *MockPaymentRepository) UpdateDispute(dispute *models.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.disputes[dispute.ID]
	if !ok {
		return fmt.Errorf("dispute with ID %s: %w", dispute.ID, apperr.ErrNotFound)
	}
	r.disputes[dispute.ID] = *dispute
	return nil
}

// Transactions returns a copy of the recorded transactions, for tests.
func (r *MockPaymentRepository) Transactions() []models.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Transaction, len(r.transactions))
	copy(out, r.transactions)
	return out
}
