package repositories

import (
	"fmt"
	"sync"

	"nexus/internal/apperr"
	"nexus/internal/models"

	"github.com/google/uuid"
)

// MockCartRepository is an in-memory implementation of CartRepository.
type MockCartRepository struct {
	carts map[string]models.Cart // keyed by user ID
	mu    sync.RWMutex
}

// NewMockCartRepository creates a new instance of MockCartRepository.
func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{
		carts: make(map[string]models.Cart),
	}
}

// GetByUserID returns the user's cart.
func (r *MockCartRepository) GetByUserID(userID string) (*models.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[userID]
	if !ok {
		return nil, fmt.Errorf("cart for user %s: %w", userID, apperr.ErrNotFound)
	}
	return &cart, nil
}

// FindOrCreate returns the user's cart, creating an empty one if none exists.
func (r *MockCartRepository) FindOrCreate(userID string) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[userID]
	if !ok {
		cart = models.Cart{
			ID:     uuid.New().String(),
			UserID: userID,
		}
		r.carts[userID] = cart
	}
	return &cart, nil
}

// Save replaces the stored cart.
func (r *MockCartRepository) Save(cart *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cart.ID == "" {
		cart.ID = uuid.New().String()
	}
	r.carts[cart.UserID] = *cart
	return nil
}

// Clear empties the cart's items.
func (r *MockCartRepository) Clear(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[userID]
	if !ok {
		return fmt.Errorf("cart for user %s: %w", userID, apperr.ErrNotFound)
	}
	cart.Items = nil
	r.carts[userID] = cart
	return nil
}
