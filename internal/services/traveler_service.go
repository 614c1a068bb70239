package services

import (
	"fmt"
	"log"

	"nexus/internal/apperr"
	"nexus/internal/models"
	"nexus/internal/repositories"
)

// TravelerService handles the traveler side of fulfilment: claiming products,
// browsing unassigned orders, and uploading delivery proof.
type TravelerService struct {
	productRepo  repositories.ProductRepository
	orderRepo    repositories.OrderRepository
	travelerRepo repositories.TravelerRepository
}

// NewTravelerService creates a new TravelerService.
func NewTravelerService(
	productRepo repositories.ProductRepository,
	orderRepo repositories.OrderRepository,
	travelerRepo repositories.TravelerRepository,
) *TravelerService {
	return &TravelerService{
		productRepo:  productRepo,
		orderRepo:    orderRepo,
		travelerRepo: travelerRepo,
	}
}

// ClaimProduct takes exclusive responsibility for delivering a product. The
// claim itself is a single atomic conditional update in the repository, so of
// two concurrent claims exactly one succeeds and the other gets a conflict.
// On success the order's matching line item is linked to the traveler and a
// history entry with the expected reward is appended.
func (s *TravelerService) ClaimProduct(userID string, productID string) (*models.Product, error) {
	traveler, err := s.travelerRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}

	if err := s.productRepo.Claim(productID, traveler.ID); err != nil {
		return nil, err
	}
	claimedBy := traveler.ID
	product.ClaimedBy = &claimedBy

	order, err := s.orderRepo.FindByItemProduct(productID)
	if err != nil {
		return nil, err
	}

	var item *models.OrderItem
	for i := range order.Items {
		if order.Items[i].ProductID == productID {
			item = &order.Items[i]
			break
		}
	}
	if item == nil {
		return nil, fmt.Errorf("order %s has no line item for product %s: %w",
			order.OrderNumber, productID, apperr.ErrNotFound)
	}
	if item.TravelerID != nil {
		return nil, fmt.Errorf("line item for product %s already assigned: %w", productID, apperr.ErrConflict)
	}

	item.TravelerID = &claimedBy
	item.DeliveryStatus = models.DeliveryAssigned
	if err := s.orderRepo.UpdateItem(item); err != nil {
		return nil, err
	}
	if order.TravelerID == nil {
		order.TravelerID = &claimedBy
		order.DeliveryStatus = models.DeliveryAssigned
		if err := s.orderRepo.Update(order); err != nil {
			return nil, err
		}
	}

	reward := models.Round2(product.Markup * models.TravelerRewardShare)
	entry := &models.TravelerHistoryEntry{
		TravelerID:   traveler.ID,
		OrderNumber:  order.OrderNumber,
		ProductID:    productID,
		RewardAmount: reward,
		Status:       models.HistoryPending,
	}
	if err := s.travelerRepo.AppendHistory(entry); err != nil {
		log.Printf("Warning: product %s claimed but history entry not recorded: %v", productID, err)
	}

	traveler.PendingPayments = models.Round2(traveler.PendingPayments + reward)
	if err := s.travelerRepo.Update(traveler); err != nil {
		log.Printf("Warning: product %s claimed but pending payments not updated: %v", productID, err)
	}

	return product, nil
}

// UploadDeliveryProof stores an opaque delivery proof payload on the order.
// Only the order's assigned traveler may upload it.
func (s *TravelerService) UploadDeliveryProof(userID string, orderNumber string, proof string) error {
	if proof == "" {
		return fmt.Errorf("delivery proof payload is required: %w", apperr.ErrValidation)
	}

	traveler, err := s.travelerRepo.GetByUserID(userID)
	if err != nil {
		return err
	}

	order, err := s.orderRepo.GetByOrderNumber(orderNumber)
	if err != nil {
		return err
	}
	if order.TravelerID == nil || *order.TravelerID != traveler.ID {
		return fmt.Errorf("order %s is not assigned to caller: %w", orderNumber, apperr.ErrForbidden)
	}

	order.DeliveryProof = proof
	return s.orderRepo.Update(order)
}

// GetUnassignedOrders lists orders without an assigned traveler, filtered by
// product facets.
func (s *TravelerService) GetUnassignedOrders(filter repositories.UnassignedFilter) ([]models.Order, error) {
	return s.orderRepo.FindUnassigned(filter)
}
