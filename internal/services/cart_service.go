package services

import (
	"nexus/internal/models"
	"nexus/internal/repositories"
)

// CartService handles the per-user shopping cart. A cart is created lazily on
// first add and only ever cleared, never deleted.
type CartService struct {
	cartRepo    repositories.CartRepository
	productRepo repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(cartRepo repositories.CartRepository, productRepo repositories.ProductRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// GetCart returns the user's cart, creating an empty one if none exists yet.
func (s *CartService) GetCart(userID string) (*models.Cart, error) {
	return s.cartRepo.FindOrCreate(userID)
}

// AddItem adds a product to the user's cart, incrementing the quantity if the
// product is already present.
func (s *CartService) AddItem(userID string, productID string, quantity int) (*models.Cart, error) {
	if _, err := s.productRepo.GetByID(productID); err != nil {
		return nil, err
	}

	cart, err := s.cartRepo.FindOrCreate(userID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		cart.Items = append(cart.Items, models.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  quantity,
		})
	}

	if err := s.cartRepo.Save(cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveItem removes a product from the user's cart.
func (s *CartService) RemoveItem(userID string, productID string) (*models.Cart, error) {
	cart, err := s.cartRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	items := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	cart.Items = items

	if err := s.cartRepo.Save(cart); err != nil {
		return nil, err
	}
	return cart, nil
}
