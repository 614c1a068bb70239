package repositories

import (
	"nexus/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error
	// Claim atomically sets the product's claimedBy to travelerID if and only
	// if it is currently unclaimed. Returns apperr.ErrConflict when another
	// traveler already holds the claim.
	Claim(id string, travelerID string) error
	UpdateDeliveryStatus(id string, status string) error
}
