package repositories

import "nexus/internal/models"

// CartRepository defines the interface for cart data access. Carts follow
// found-or-created semantics: at most one per user.
type CartRepository interface {
	GetByUserID(userID string) (*models.Cart, error)
	FindOrCreate(userID string) (*models.Cart, error)
	Save(cart *models.Cart) error
	// Clear empties the cart's items without deleting the cart itself.
	Clear(userID string) error
}
