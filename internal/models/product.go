package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// MarkupRate is the surcharge applied on top of a product's fee. The markup is
// what gets split between the traveler reward and the platform fee on release.
const MarkupRate = 0.15

// Urgency levels for a delivery request.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Product represents an item a client wants purchased and delivered.
type Product struct {
	ID          string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	ClientID    string  `json:"client_id" gorm:"index;type:varchar(36)" validate:"required"`
	Name        string  `json:"name" validate:"required,min=3,max=100"`
	Description string  `json:"description" validate:"omitempty,max=500"`
	Category    string  `json:"category" validate:"omitempty,max=100"`
	Fee         float64 `json:"fee" validate:"required,gt=0"`
	// Markup and TotalPrice are derived from Fee at write time; both the
	// create and update paths recompute them via SetPricing.
	Markup      float64    `json:"markup"`
	TotalPrice  float64    `json:"total_price"`
	Destination string     `json:"destination" validate:"required,max=200"`
	DeliverBy   *time.Time `json:"deliver_by"`
	Urgency     string     `json:"urgency" gorm:"type:varchar(10);default:low" validate:"omitempty,oneof=low medium high"`
	// ClaimedBy holds the traveler ID once a traveler has taken exclusive
	// responsibility for the delivery. Nil until then; set at most once.
	ClaimedBy      *string `json:"claimed_by" gorm:"index"`
	DeliveryStatus string  `json:"delivery_status" gorm:"type:varchar(30);default:Pending"`
	gorm.Model             // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// SetPricing derives Markup and TotalPrice from Fee. Amounts are rounded to
// two decimal places.
func (p *Product) SetPricing() {
	p.Markup = Round2(p.Fee * MarkupRate)
	p.TotalPrice = Round2(p.Fee + p.Markup)
}

// Round2 rounds a monetary amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
