package repositories

import (
	"errors"
	"fmt"
	"time"

	"nexus/internal/apperr"
	"nexus/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMTravelerRepository is a GORM implementation of TravelerRepository.
type GORMTravelerRepository struct {
	db *gorm.DB
}

// NewGORMTravelerRepository creates a new instance of GORMTravelerRepository.
func NewGORMTravelerRepository(db *gorm.DB) *GORMTravelerRepository {
	return &GORMTravelerRepository{
		db: db,
	}
}

// Create persists a new traveler profile.
func (r *GORMTravelerRepository) Create(traveler *models.Traveler) error {
	if traveler.ID == "" {
		traveler.ID = uuid.New().String()
	}
	if err := r.db.Create(traveler).Error; err != nil {
		return fmt.Errorf("failed to create traveler: %w", err)
	}
	return nil
}

// GetByID retrieves a traveler profile by its ID.
func (r *GORMTravelerRepository) GetByID(id string) (*models.Traveler, error) {
	var traveler models.Traveler
	if err := r.db.Preload("History").First(&traveler, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("traveler with ID %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get traveler %s: %w", id, err)
	}
	return &traveler, nil
}

// GetByUserID retrieves the traveler profile linked to a user account.
func (r *GORMTravelerRepository) GetByUserID(userID string) (*models.Traveler, error) {
	var traveler models.Traveler
	if err := r.db.Preload("History").First(&traveler, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("traveler profile for user %s: %w", userID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get traveler for user %s: %w", userID, err)
	}
	return &traveler, nil
}

// Update persists changes to a traveler profile's scalar fields. History is
// managed separately via AppendHistory/UpdateHistoryStatus.
func (r *GORMTravelerRepository) Update(traveler *models.Traveler) error {
	res := r.db.Model(&models.Traveler{}).Where("id = ?", traveler.ID).
		Updates(map[string]interface{}{
			"total_earnings":   traveler.TotalEarnings,
			"pending_payments": traveler.PendingPayments,
			"rating_average":   traveler.RatingAverage,
			"rating_count":     traveler.RatingCount,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update traveler %s: %w", traveler.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("traveler with ID %s: %w", traveler.ID, apperr.ErrNotFound)
	}
	return nil
}

// AppendHistory adds a new history entry to the traveler's record.
func (r *GORMTravelerRepository) AppendHistory(entry *models.TravelerHistoryEntry) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append traveler history: %w", err)
	}
	return nil
}

// UpdateHistoryStatus updates the matching history entry's status, stamping
// CompletedAt when the delivery reaches its terminal status.
func (r *GORMTravelerRepository) UpdateHistoryStatus(travelerID string, productID string, status string) error {
	updates := map[string]interface{}{"status": status}
	if status == models.HistoryCompleted {
		now := time.Now()
		updates["completed_at"] = &now
	}
	res := r.db.Model(&models.TravelerHistoryEntry{}).
		Where("traveler_id = ? AND product_id = ?", travelerID, productID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update traveler history: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("history entry for traveler %s product %s: %w", travelerID, productID, apperr.ErrNotFound)
	}
	return nil
}
