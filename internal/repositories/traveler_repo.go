package repositories

import "nexus/internal/models"

// TravelerRepository defines the interface for traveler profile data access.
type TravelerRepository interface {
	Create(traveler *models.Traveler) error
	GetByID(id string) (*models.Traveler, error)
	GetByUserID(userID string) (*models.Traveler, error)
	Update(traveler *models.Traveler) error
	AppendHistory(entry *models.TravelerHistoryEntry) error
	// UpdateHistoryStatus updates the status of the history entry matching
	// (travelerID, productID).
	UpdateHistoryStatus(travelerID string, productID string, status string) error
}
