package models

import "time"

// Cart holds the items a user intends to check out. There is at most one cart
// per user; it is created lazily on first add and cleared (not deleted) after
// a successful checkout or payment confirmation.
type Cart struct {
	ID        string     `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	UserID    string     `json:"user_id" gorm:"uniqueIndex;type:varchar(36)" validate:"required"`
	Items     []CartItem `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is a single (product, quantity) entry in a cart.
type CartItem struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	CartID    string `json:"cart_id" gorm:"index;type:varchar(36)"`
	ProductID string `json:"product_id" gorm:"type:varchar(36)" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}
