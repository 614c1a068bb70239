package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"nexus/internal/apperr"
	"nexus/internal/models"

	"github.com/google/uuid"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders map[string]models.Order
	mu     sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// Create adds a new order, enforcing order-number uniqueness like the unique
// index does in the GORM implementation.
func (r *MockOrderRepository) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.orders {
		if existing.OrderNumber == order.OrderNumber {
			return fmt.Errorf("order number %s already exists: %w", order.OrderNumber, apperr.ErrConflict)
		}
	}
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		if order.Items[i].ID == 0 {
			order.Items[i].ID = uint(i + 1)
		}
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	r.orders[order.ID] = *order
	return nil
}

// GetByOrderNumber returns an order by its order number.
func (r *MockOrderRepository) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if order.OrderNumber == orderNumber {
			o := order
			return &o, nil
		}
	}
	return nil, fmt.Errorf("order %s: %w", orderNumber, apperr.ErrNotFound)
}

// GetByUserID returns the user's orders, newest first.
func (r *MockOrderRepository) GetByUserID(userID string) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var orders []models.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// Update replaces an existing order.
func (r *MockOrderRepository) Update(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[order.ID]; !ok {
		return fmt.Errorf("order %s: %w", order.OrderNumber, apperr.ErrNotFound)
	}
	order.UpdatedAt = time.Now()
	r.orders[order.ID] = *order
	return nil
}

// UpdateItem replaces a line item within its order.
func (r *MockOrderRepository) UpdateItem(item *models.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[item.OrderID]
	if !ok {
		return fmt.Errorf("order with ID %s: %w", item.OrderID, apperr.ErrNotFound)
	}
	for i := range order.Items {
		if order.Items[i].ID == item.ID || order.Items[i].ProductID == item.ProductID {
			order.Items[i] = *item
			r.orders[order.ID] = order
			return nil
		}
	}
	return fmt.Errorf("order item for product %s: %w", item.ProductID, apperr.ErrNotFound)
}

// Delete removes an order.
func (r *MockOrderRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return fmt.Errorf("order with ID %s: %w", id, apperr.ErrNotFound)
	}
	delete(r.orders, id)
	return nil
}

// FindByItemProduct locates the order containing a line item for the product.
func (r *MockOrderRepository) FindByItemProduct(productID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		for _, item := range order.Items {
			if item.ProductID == productID {
				o := order
				return &o, nil
			}
		}
	}
	return nil, fmt.Errorf("no order item for product %s: %w", productID, apperr.ErrNotFound)
}

// FindUnassigned returns orders without an assigned traveler. Product facet
// filters require the item's Product to be populated by the caller.
func (r *MockOrderRepository) FindUnassigned(filter UnassignedFilter) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var orders []models.Order
	for _, order := range r.orders {
		if order.TravelerID != nil {
			continue
		}
		if matchesFilter(order, filter) {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func matchesFilter(order models.Order, filter UnassignedFilter) bool {
	for _, item := range order.Items {
		p := item.Product
		if p == nil {
			if filter == (UnassignedFilter{}) {
				return true
			}
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Destination != "" && p.Destination != filter.Destination {
			continue
		}
		if filter.MinPrice > 0 && p.TotalPrice < filter.MinPrice {
			continue
		}
		if filter.MaxPrice > 0 && p.TotalPrice > filter.MaxPrice {
			continue
		}
		if filter.Urgency != "" && p.Urgency != filter.Urgency {
			continue
		}
		return true
	}
	return filter == (UnassignedFilter{}) && len(order.Items) == 0
}
