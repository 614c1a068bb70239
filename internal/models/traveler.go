package models

import "time"

// Traveler history entry statuses. The entry tracks a single claimed delivery
// from claim through client confirmation.
const (
	HistoryPending          = "Pending"
	HistoryAwaitingClient   = "Awaiting Client Confirmation"
	HistoryCompleted        = "Completed"
)

// Traveler is the delivery-side profile of a user, linked 1:1 by UserID.
// Earnings and the rating aggregate are maintained incrementally: pending
// payments accrue on claim and convert to total earnings when the escrow
// engine releases funds.
type Traveler struct {
	ID              string  `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string  `json:"user_id" gorm:"uniqueIndex;type:varchar(36)" validate:"required"`
	TotalEarnings   float64 `json:"total_earnings"`
	PendingPayments float64 `json:"pending_payments"`
	RatingAverage   float64 `json:"rating_average"`
	RatingCount     int     `json:"rating_count"`
	History         []TravelerHistoryEntry `json:"history" gorm:"foreignKey:TravelerID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TravelerHistoryEntry records one claimed delivery and its progress.
type TravelerHistoryEntry struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	TravelerID   string     `json:"traveler_id" gorm:"index;type:varchar(36)"`
	OrderNumber  string     `json:"order_number" gorm:"type:varchar(20)"`
	ProductID    string     `json:"product_id" gorm:"index;type:varchar(36)"`
	RewardAmount float64    `json:"reward_amount"`
	Status       string     `json:"status" gorm:"type:varchar(40);default:Pending"`
	CompletedAt  *time.Time `json:"completed_at"`
	CreatedAt    time.Time  `json:"created_at"`
}
