package repositories

import (
	"fmt"
	"sync"

	"nexus/internal/apperr"
	"nexus/internal/models"

	"github.com/google/uuid"
)

// MockTravelerRepository is an in-memory implementation of TravelerRepository.
type MockTravelerRepository struct {
	travelers map[string]models.Traveler // keyed by traveler ID
	history   []models.TravelerHistoryEntry
	mu        sync.RWMutex
}

// NewMockTravelerRepository creates a new instance of MockTravelerRepository.
func NewMockTravelerRepository() *MockTravelerRepository {
	return &MockTravelerRepository{
		travelers: make(map[string]models.Traveler),
	}
}

// Create adds a new traveler profile.
func (r *MockTravelerRepository) Create(traveler *models.Traveler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if traveler.ID == "" {
		traveler.ID = uuid.New().String()
	}
	for _, existing := range r.travelers {
		if existing.UserID == traveler.UserID {
			return fmt.Errorf("traveler profile for user %s already exists: %w", traveler.UserID, apperr.ErrConflict)
		}
	}
	r.travelers[traveler.ID] = *traveler
	return nil
}

// GetByID returns a traveler by its ID.
func (r *MockTravelerRepository) GetByID(id string) (*models.Traveler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	traveler, ok := r.travelers[id]
	if !ok {
		return nil, fmt.Errorf("traveler with ID %s: %w", id, apperr.ErrNotFound)
	}
	return &traveler, nil
}

// GetByUserID returns the traveler profile linked to a user.
func (r *MockTravelerRepository) GetByUserID(userID string) (*models.Traveler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, traveler := range r.travelers {
		if traveler.UserID == userID {
			t := traveler
			return &t, nil
		}
	}
	return nil, fmt.Errorf("traveler profile for user %s: %w", userID, apperr.ErrNotFound)
}

// Update replaces an existing traveler profile.
func (r *MockTravelerRepository) Update(traveler *models.Traveler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.travelers[traveler.ID]
	if !ok {
		return fmt.Errorf("traveler with ID %s: %w", traveler.ID, apperr.ErrNotFound)
	}
	r.travelers[traveler.ID] = *traveler
	return nil
}

// AppendHistory records a claimed delivery.
func (r *MockTravelerRepository) AppendHistory(entry *models.TravelerHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = uint(len(r.history) + 1)
	r.history = append(r.history, *entry)
	return nil
}

// UpdateHistoryStatus updates the status of the history entry matching
// (travelerID, productID).
func (r *MockTravelerRepository) UpdateHistoryStatus(travelerID string, productID string, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.history {
		if r.history[i].TravelerID == travelerID && r.history[i].ProductID == productID {
			r.history[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("history entry for traveler %s product %s: %w", travelerID, productID, apperr.ErrNotFound)
}

// HistoryEntries returns a copy of the recorded history, for tests.
func (r *MockTravelerRepository) HistoryEntries() []models.TravelerHistoryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.TravelerHistoryEntry, len(r.history))
	copy(out, r.history)
	return out
}
