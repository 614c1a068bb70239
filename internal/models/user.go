package models

import "gorm.io/gorm"

// User roles.
const (
	RoleClient   = "client"
	RoleTraveler = "traveler"
	RoleAdmin    = "admin"
)

// User represents an account on the marketplace. A user acting as a traveler
// additionally has a Traveler profile linked by UserID.
type User struct {
	ID       string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username string `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email    string `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password string `gorm:"type:varchar(255)" validate:"required,min=6"` // No json tag for security
	Role     string `json:"role" gorm:"type:varchar(20);default:client" validate:"omitempty,oneof=client traveler admin"`
	Verified bool   `json:"verified"`
	// Client-side rating aggregate, maintained incrementally by the rating subsystem.
	RatingAverage float64 `json:"rating_average"`
	RatingCount   int     `json:"rating_count"`
	gorm.Model            // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
