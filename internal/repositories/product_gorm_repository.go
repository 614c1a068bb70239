package repositories

import (
	"errors"
	"fmt"

	"nexus/internal/apperr"
	"nexus/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetAll retrieves all products from the database.
func (r *GORMProductRepository) GetAll() ([]models.Product, error) {
	var products []models.Product
	if err := r.db.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update updates an existing product in the database.
func (r *GORMProductRepository) Update(product *models.Product) error {
	res := r.db.Save(product) // Save will update all fields, including zero values
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// GORM's Save doesn't return ErrRecordNotFound if no rows affected
		// for an update, so we check RowsAffected.
		return fmt.Errorf("product with ID %s: %w", product.ID, apperr.ErrNotFound)
	}
	return nil
}

// Delete deletes a product by its ID from the database.
func (r *GORMProductRepository) Delete(id string) error {
	res := r.db.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// Claim performs a conditional update: the claim succeeds only if claimed_by
// is still NULL, so concurrent claims on the same product resolve to exactly
// one winner at the database level.
func (r *GORMProductRepository) Claim(id string, travelerID string) error {
	res := r.db.Model(&models.Product{}).
		Where("id = ? AND claimed_by IS NULL", id).
		Update("claimed_by", travelerID)
	if res.Error != nil {
		return fmt.Errorf("failed to claim product %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the product doesn't exist or it is already claimed.
		var count int64
		if err := r.db.Model(&models.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check product %s: %w", id, err)
		}
		if count == 0 {
			return fmt.Errorf("product with ID %s: %w", id, apperr.ErrNotFound)
		}
		return fmt.Errorf("product %s already claimed: %w", id, apperr.ErrConflict)
	}
	return nil
}

// UpdateDeliveryStatus updates the product's delivery status.
func (r *GORMProductRepository) UpdateDeliveryStatus(id string, status string) error {
	res := r.db.Model(&models.Product{}).Where("id = ?", id).Update("delivery_status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update delivery status for product %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
