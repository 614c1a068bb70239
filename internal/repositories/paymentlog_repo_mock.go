package repositories

import (
	"fmt"
	"sync"

	"nexus/internal/apperr"
	"nexus/internal/models"

	"github.com/google/uuid"
)

// MockPaymentLogRepository is an in-memory implementation of
// PaymentLogRepository, keyed by the provider reference.
type MockPaymentLogRepository struct {
	logs map[string]models.PaymentLog
	mu   sync.RWMutex
}

// NewMockPaymentLogRepository creates a new instance of MockPaymentLogRepository.
func NewMockPaymentLogRepository() *MockPaymentLogRepository {
	return &MockPaymentLogRepository{
		logs: make(map[string]models.PaymentLog),
	}
}

// Create adds a new payment log, enforcing reference uniqueness.
func (r *MockPaymentLogRepository) Create(log *models.PaymentLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.logs[log.Reference]; ok {
		return fmt.Errorf("payment log for reference %s already exists: %w", log.Reference, apperr.ErrConflict)
	}
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	r.logs[log.Reference] = *log
	return nil
}

// GetByReference returns a payment log by its provider reference.
func (r *MockPaymentLogRepository) GetByReference(reference string) (*models.PaymentLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log, ok := r.logs[reference]
	if !ok {
		return nil, fmt.Errorf("payment log for reference %s: %w", reference, apperr.ErrNotFound)
	}
	return &log, nil
}

// Update replaces an existing payment log.
func (r *MockPaymentLogRepository) Update(log *models.PaymentLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.logs[log.Reference]
	if !ok {
		return fmt.Errorf("payment log for reference %s: %w", log.Reference, apperr.ErrNotFound)
	}
	r.logs[log.Reference] = *log
	return nil
}
