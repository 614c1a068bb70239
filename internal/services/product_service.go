package services

import (
	"fmt"

	"nexus/internal/apperr"
	"nexus/internal/models"
	"nexus/internal/repositories"
)

// ProductService handles business logic related to delivery requests
// (products) listed by clients.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts() ([]models.Product, error) {
	return s.repo.GetAll()
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(id string) (*models.Product, error) {
	return s.repo.GetByID(id)
}

// CreateProduct creates a new product owned by the client, deriving the
// markup and total price from the fee.
func (s *ProductService) CreateProduct(clientID string, product *models.Product) error {
	product.ClientID = clientID
	product.DeliveryStatus = models.DeliveryPending
	product.SetPricing()
	return s.repo.Create(product)
}

// UpdateProduct updates an existing product. Only the owning client may
// update it; markup and total price are recomputed from the (possibly
// changed) fee.
func (s *ProductService) UpdateProduct(clientID string, product *models.Product) error {
	existing, err := s.repo.GetByID(product.ID)
	if err != nil {
		return err
	}
	if existing.ClientID != clientID {
		return fmt.Errorf("product %s is not owned by caller: %w", product.ID, apperr.ErrForbidden)
	}

	product.ClientID = existing.ClientID
	product.ClaimedBy = existing.ClaimedBy
	product.DeliveryStatus = existing.DeliveryStatus
	product.SetPricing()
	return s.repo.Update(product)
}

// DeleteProduct deletes a product by its ID. Only the owning client may
// delete it.
func (s *ProductService) DeleteProduct(clientID string, id string) error {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if existing.ClientID != clientID {
		return fmt.Errorf("product %s is not owned by caller: %w", id, apperr.ErrForbidden)
	}
	return s.repo.Delete(id)
}
