package services

import (
	"fmt"

	"nexus/internal/apperr"
	"nexus/internal/models"
	"nexus/internal/repositories"
)

// maxCommentLength bounds rating comments.
const maxCommentLength = 500

// RatingService handles post-delivery mutual rating between the client and
// the traveler of a delivered line item. Aggregates are maintained with an
// incremental mean, so no rating history is needed.
type RatingService struct {
	orderRepo    repositories.OrderRepository
	travelerRepo repositories.TravelerRepository
	userRepo     repositories.UserRepository
}

// NewRatingService creates a new RatingService.
func NewRatingService(
	orderRepo repositories.OrderRepository,
	travelerRepo repositories.TravelerRepository,
	userRepo repositories.UserRepository,
) *RatingService {
	return &RatingService{
		orderRepo:    orderRepo,
		travelerRepo: travelerRepo,
		userRepo:     userRepo,
	}
}

func validateRating(rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be an integer between 1 and 5: %w", apperr.ErrValidation)
	}
	if len(comment) > maxCommentLength {
		return fmt.Errorf("comment exceeds %d characters: %w", maxCommentLength, apperr.ErrValidation)
	}
	return nil
}

// incrementalMean folds one new rating into an aggregate. Exact for any
// sequence of ratings, at the cost of being irreversible.
func incrementalMean(oldAvg float64, oldCount int, rating int) (float64, int) {
	newCount := oldCount + 1
	newAvg := (oldAvg*float64(oldCount) + float64(rating)) / float64(newCount)
	return newAvg, newCount
}

// deliveredItem locates the order line item for a product and checks it has
// reached a delivered-equivalent status.
func (s *RatingService) deliveredItem(productID string) (*models.Order, *models.OrderItem, error) {
	order, err := s.orderRepo.FindByItemProduct(productID)
	if err != nil {
		return nil, nil, err
	}
	var item *models.OrderItem
	for i := range order.Items {
		if order.Items[i].ProductID == productID {
			item = &order.Items[i]
			break
		}
	}
	if item == nil {
		return nil, nil, fmt.Errorf("no line item for product %s: %w", productID, apperr.ErrNotFound)
	}
	if !models.DeliveredEquivalent(item.DeliveryStatus) {
		return nil, nil, fmt.Errorf("product %s is %s, not yet delivered: %w",
			productID, item.DeliveryStatus, apperr.ErrInvalidState)
	}
	return order, item, nil
}

// RateTraveler records the client's rating of the traveler who delivered the
// item and updates the traveler's aggregate.
func (s *RatingService) RateTraveler(clientUserID string, productID string, rating int, comment string) error {
	if err := validateRating(rating, comment); err != nil {
		return err
	}

	order, item, err := s.deliveredItem(productID)
	if err != nil {
		return err
	}
	if order.UserID != clientUserID {
		return fmt.Errorf("order %s does not belong to caller: %w", order.OrderNumber, apperr.ErrForbidden)
	}
	if item.ClientRating != nil {
		return fmt.Errorf("item for product %s already rated by client: %w", productID, apperr.ErrConflict)
	}
	if item.TravelerID == nil {
		return fmt.Errorf("item for product %s has no traveler: %w", productID, apperr.ErrNotFound)
	}

	item.ClientRating = &rating
	item.ClientComment = comment
	if err := s.orderRepo.UpdateItem(item); err != nil {
		return err
	}

	traveler, err := s.travelerRepo.GetByID(*item.TravelerID)
	if err != nil {
		return err
	}
	traveler.RatingAverage, traveler.RatingCount = incrementalMean(traveler.RatingAverage, traveler.RatingCount, rating)
	return s.travelerRepo.Update(traveler)
}

// RateClient records the traveler's rating of the client and updates the
// client's aggregate.
func (s *RatingService) RateClient(travelerUserID string, productID string, rating int, comment string) error {
	if err := validateRating(rating, comment); err != nil {
		return err
	}

	traveler, err := s.travelerRepo.GetByUserID(travelerUserID)
	if err != nil {
		return err
	}

	order, item, err := s.deliveredItem(productID)
	if err != nil {
		return err
	}
	if item.TravelerID == nil || *item.TravelerID != traveler.ID {
		return fmt.Errorf("item for product %s was not delivered by caller: %w", productID, apperr.ErrForbidden)
	}
	if item.TravelerRating != nil {
		return fmt.Errorf("item for product %s already rated by traveler: %w", productID, apperr.ErrConflict)
	}

	item.TravelerRating = &rating
	item.TravelerComment = comment
	if err := s.orderRepo.UpdateItem(item); err != nil {
		return err
	}

	client, err := s.userRepo.GetByID(order.UserID)
	if err != nil {
		return err
	}
	newAvg, newCount := incrementalMean(client.RatingAverage, client.RatingCount, rating)
	return s.userRepo.UpdateRating(client.ID, newAvg, newCount)
}
