package models

import "time"

// PaymentLog records a single payment-provider attempt. Reference is the
// provider-assigned checkout/transaction id and is the join key used to
// reconcile asynchronous callbacks back to an order. Logs are always seeded
// Pending at initiation; only a callback or verification may set a terminal
// status.
type PaymentLog struct {
	ID          string  `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string  `json:"user_id" gorm:"index;type:varchar(36)"`
	OrderNumber string  `json:"order_number" gorm:"index;type:varchar(20)"`
	Reference   string  `json:"reference" gorm:"uniqueIndex;type:varchar(100)"`
	Provider    string  `json:"provider" gorm:"type:varchar(20)"`
	Amount      float64 `json:"amount"`
	Status      string  `json:"status" gorm:"type:varchar(10);default:Pending"`
	// RawResponse stores the provider's response body verbatim for
	// reconciliation and debugging.
	RawResponse string    `json:"raw_response,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
