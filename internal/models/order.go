package models

import "time"

// Payment statuses shared by Order and PaymentLog.
const (
	PaymentPending = "Pending"
	PaymentPaid    = "Paid"
	PaymentFailed  = "Failed"
)

// Payment methods accepted at checkout.
const (
	MethodMpesa    = "Mpesa"
	MethodAirtel   = "Airtel"
	MethodStripe   = "Stripe"
	MethodPaystack = "Paystack"
)

// Order-level delivery statuses.
const (
	DeliveryPending   = "Pending"
	DeliveryAssigned  = "Assigned"
	DeliveryShipped   = "Shipped"
	DeliveryDelivered = "Delivered"
)

// Per-item delivery confirmation statuses, driven by traveler and client
// actions. The traveler confirms handing the item over; the client confirms
// receiving it.
const (
	ItemTravelerConfirmed = "traveler_confirmed"
	ItemClientConfirmed   = "client_confirmed"
)

// DeliveredEquivalent reports whether an item status counts as delivered for
// the purposes of post-delivery actions such as rating.
func DeliveredEquivalent(status string) bool {
	return status == ItemClientConfirmed || status == DeliveryDelivered
}

// Order represents a checkout of a user's cart. The total amount is computed
// once at creation from the line-item price snapshots and never re-derived.
type Order struct {
	ID          string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	OrderNumber string `json:"order_number" gorm:"uniqueIndex;type:varchar(20)"`
	UserID      string `json:"user_id" gorm:"index;type:varchar(36)" validate:"required"`
	Items       []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TotalAmount float64     `json:"total_amount"`
	PaymentStatus  string  `json:"payment_status" gorm:"type:varchar(10);default:Pending"`
	PaymentMethod  string  `json:"payment_method" gorm:"type:varchar(20)"`
	DeliveryStatus string  `json:"delivery_status" gorm:"type:varchar(20);default:Pending"`
	TravelerID     *string `json:"traveler_id" gorm:"index;type:varchar(36)"`
	// DeliveryProof is an opaque payload (text or base64 image) uploaded by
	// the assigned traveler.
	DeliveryProof string    `json:"delivery_proof,omitempty" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OrderItem is a single line item within an order. Delivery status and
// traveler assignment are tracked independently per item, as are the mutual
// ratings exchanged after delivery.
type OrderItem struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	OrderID   string `json:"order_id" gorm:"index;type:varchar(36)"`
	ProductID string `json:"product_id" gorm:"index;type:varchar(36)"`
	Quantity  int    `json:"quantity"`
	Price     float64 `json:"price"` // Price at the time of order
	DeliveryStatus string  `json:"delivery_status" gorm:"type:varchar(30);default:Pending"`
	TravelerID     *string `json:"traveler_id" gorm:"type:varchar(36)"`
	// Rating left by the client about the traveler, and vice versa.
	ClientRating    *int   `json:"client_rating"`
	ClientComment   string `json:"client_comment,omitempty" gorm:"type:varchar(500)"`
	TravelerRating  *int   `json:"traveler_rating"`
	TravelerComment string `json:"traveler_comment,omitempty" gorm:"type:varchar(500)"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
