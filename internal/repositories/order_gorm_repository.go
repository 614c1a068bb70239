package repositories

import (
	"errors"
	"fmt"

	"nexus/internal/apperr"
	"nexus/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// Create persists a new order with its items. A duplicate order number is
// reported as a conflict so the service can regenerate and retry.
func (r *GORMOrderRepository) Create(order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("order number %s already exists: %w", order.OrderNumber, apperr.ErrConflict)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByOrderNumber retrieves an order by its order number, with items and
// their products expanded.
func (r *GORMOrderRepository) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").Preload("Items.Product").
		First(&order, "order_number = ?", orderNumber).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", orderNumber, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order %s: %w", orderNumber, err)
	}
	return &order, nil
}

// GetByUserID returns the user's orders, newest first.
func (r *GORMOrderRepository) GetByUserID(userID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items").Preload("Items.Product").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// Update persists changes to an existing order.
func (r *GORMOrderRepository) Update(order *models.Order) error {
	res := r.db.Save(order)
	if res.Error != nil {
		return fmt.Errorf("failed to update order %s: %w", order.OrderNumber, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order %s: %w", order.OrderNumber, apperr.ErrNotFound)
	}
	return nil
}

// UpdateItem persists changes to a single line item.
func (r *GORMOrderRepository) UpdateItem(item *models.OrderItem) error {
	if err := r.db.Save(item).Error; err != nil {
		return fmt.Errorf("failed to update order item %d: %w", item.ID, err)
	}
	return nil
}

// Delete hard-deletes an order and (via the FK constraint) its items.
func (r *GORMOrderRepository) Delete(id string) error {
	res := r.db.Delete(&models.Order{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// FindByItemProduct locates the order containing a line item for the product.
func (r *GORMOrderRepository) FindByItemProduct(productID string) (*models.Order, error) {
	var item models.OrderItem
	if err := r.db.First(&item, "product_id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no order item for product %s: %w", productID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find order item for product %s: %w", productID, err)
	}

	var order models.Order
	err := r.db.Preload("Items").Preload("Items.Product").
		First(&order, "id = ?", item.OrderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order for product %s: %w", productID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order for product %s: %w", productID, err)
	}
	return &order, nil
}

// FindUnassigned returns orders without an assigned traveler, filtered by
// nested product facets.
func (r *GORMOrderRepository) FindUnassigned(filter UnassignedFilter) ([]models.Order, error) {
	query := r.db.Preload("Items").Preload("Items.Product").
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("orders.traveler_id IS NULL")

	if filter.Category != "" {
		query = query.Where("products.category = ?", filter.Category)
	}
	if filter.Destination != "" {
		query = query.Where("products.destination = ?", filter.Destination)
	}
	if filter.MinPrice > 0 {
		query = query.Where("products.total_price >= ?", filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		query = query.Where("products.total_price <= ?", filter.MaxPrice)
	}
	if filter.Urgency != "" {
		query = query.Where("products.urgency = ?", filter.Urgency)
	}

	var orders []models.Order
	if err := query.Distinct("orders.*").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to find unassigned orders: %w", err)
	}
	return orders, nil
}
