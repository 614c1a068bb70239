package repositories

import (
	"nexus/internal/models"
)

// UnassignedFilter narrows the unassigned-order listing by nested product
// facets. Zero values mean "no constraint".
type UnassignedFilter struct {
	Category    string
	Destination string
	MinPrice    float64
	MaxPrice    float64
	Urgency     string
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Create persists a new order. Returns apperr.ErrConflict if the order
	// number collides with an existing one, so callers can regenerate.
	Create(order *models.Order) error
	GetByOrderNumber(orderNumber string) (*models.Order, error)
	// GetByUserID returns the user's orders newest first, with line-item
	// products expanded.
	GetByUserID(userID string) ([]models.Order, error)
	Update(order *models.Order) error
	UpdateItem(item *models.OrderItem) error
	Delete(id string) error
	// FindByItemProduct returns the order containing a line item for the
	// given product.
	FindByItemProduct(productID string) (*models.Order, error)
	FindUnassigned(filter UnassignedFilter) ([]models.Order, error)
}
