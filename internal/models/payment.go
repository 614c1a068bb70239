package models

import "time"

// Escrow payment statuses. Funds enter escrow when the client pays and leave
// it exactly once, via release, dispute resolution, or refund.
const (
	EscrowHeld     = "escrow"
	EscrowReleased = "released"
	EscrowDisputed = "disputed"
	EscrowRefunded = "refunded"
)

// Dispute statuses.
const (
	DisputeOpen     = "open"
	DisputeResolved = "resolved"
	DisputeRejected = "rejected"
)

// Share of the markup paid out to the traveler on release; the remainder is
// the platform fee.
const TravelerRewardShare = 0.6

// Payment is an escrow record for a single product delivery. TravelerID stays
// nil until funds are released to a traveler.
type Payment struct {
	ID          string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	ClientID    string  `json:"client_id" gorm:"index;type:varchar(36)" validate:"required"`
	TravelerID  *string `json:"traveler_id" gorm:"type:varchar(36)"`
	ProductID   string  `json:"product_id" gorm:"index;type:varchar(36)" validate:"required"`
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status" gorm:"type:varchar(10);default:escrow"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Transaction captures the 60/40 split of the markup at the moment of
// release. It is created once per released payment and never recomputed.
type Transaction struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PaymentID      string    `json:"payment_id" gorm:"index;type:varchar(36)"`
	TravelerReward float64   `json:"traveler_reward"`
	CompanyFee     float64   `json:"company_fee"`
	CreatedAt      time.Time `json:"created_at"`
}

// Dispute is raised by a client against an escrowed payment.
type Dispute struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PaymentID string    `json:"payment_id" gorm:"index;type:varchar(36)"`
	ClientID  string    `json:"client_id" gorm:"type:varchar(36)"`
	Reason    string    `json:"reason" gorm:"type:varchar(500)" validate:"required,max=500"`
	Status    string    `json:"status" gorm:"type:varchar(10);default:open"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
