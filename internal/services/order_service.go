package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"

	"nexus/internal/apperr"
	"nexus/internal/models"
	"nexus/internal/repositories"
	"nexus/pkg/rabbitmq"
)

// Actor identifies which side of a delivery is acting on it. The delivery
// status update flow is shared between the two; only the ownership check
// differs.
type Actor int

const (
	ActorTraveler Actor = iota
	ActorClient
)

// orderNumberAttempts bounds the regenerate-and-retry loop when an order
// number collides with an existing one.
const orderNumberAttempts = 3

// OrderService owns the order lifecycle: creation from the cart, payment and
// delivery status transitions, cancellation, and traveler assignment.
type OrderService struct {
	orderRepo    repositories.OrderRepository
	productRepo  repositories.ProductRepository
	cartRepo     repositories.CartRepository
	travelerRepo repositories.TravelerRepository
	mqClient     rabbitmq.Publisher
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	cartRepo repositories.CartRepository,
	travelerRepo repositories.TravelerRepository,
	mqClient rabbitmq.Publisher,
) *OrderService {
	return &OrderService{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		cartRepo:     cartRepo,
		travelerRepo: travelerRepo,
		mqClient:     mqClient,
	}
}

// newOrderNumber generates an order number of the form ORD-<8 uppercase hex>.
// Uniqueness is enforced by the repository's unique index plus the retry loop
// in CreateOrder.
func newOrderNumber() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return "ORD-" + strings.ToUpper(hex.EncodeToString(buf))
}

// CreateOrder builds an order from the caller's cart. The total is computed
// once here from the current product prices and never re-derived. The cart is
// emptied on success.
func (s *OrderService) CreateOrder(userID string) (*models.Order, error) {
	cart, err := s.cartRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("cart for user %s is empty: %w", userID, apperr.ErrValidation)
	}

	var totalAmount float64
	var items []models.OrderItem
	for _, cartItem := range cart.Items {
		product, err := s.productRepo.GetByID(cartItem.ProductID)
		if err != nil {
			return nil, err
		}
		itemPrice := product.TotalPrice // Price snapshot at the time of order
		items = append(items, models.OrderItem{
			ProductID:      cartItem.ProductID,
			Quantity:       cartItem.Quantity,
			Price:          itemPrice,
			DeliveryStatus: models.DeliveryPending,
		})
		totalAmount += itemPrice * float64(cartItem.Quantity)
	}

	newOrder := &models.Order{
		UserID:         userID,
		Items:          items,
		TotalAmount:    models.Round2(totalAmount),
		PaymentStatus:  models.PaymentPending,
		DeliveryStatus: models.DeliveryPending,
	}

	// The order number is only probabilistically unique, so regenerate on
	// collision instead of failing the checkout.
	var createErr error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		newOrder.OrderNumber = newOrderNumber()
		createErr = s.orderRepo.Create(newOrder)
		if createErr == nil {
			break
		}
		if !errors.Is(createErr, apperr.ErrConflict) {
			return nil, createErr
		}
	}
	if createErr != nil {
		return nil, fmt.Errorf("could not allocate a unique order number: %w", createErr)
	}

	if err := s.cartRepo.Clear(userID); err != nil {
		log.Printf("Warning: order %s created but cart for user %s was not cleared: %v",
			newOrder.OrderNumber, userID, err)
	}

	s.publish("order.created", map[string]interface{}{
		"orderNumber": newOrder.OrderNumber,
		"userID":      newOrder.UserID,
		"total":       newOrder.TotalAmount,
	})

	return newOrder, nil
}

// GetUserOrders retrieves all of the user's orders, newest first.
func (s *OrderService) GetUserOrders(userID string) ([]models.Order, error) {
	orders, err := s.orderRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("no orders for user %s: %w", userID, apperr.ErrNotFound)
	}
	return orders, nil
}

// GetOrderDetails retrieves a single order, enforcing that the caller owns it.
func (s *OrderService) GetOrderDetails(userID string, orderNumber string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNumber(orderNumber)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order %s does not belong to caller: %w", orderNumber, apperr.ErrForbidden)
	}
	return order, nil
}

// UpdatePaymentStatus records a payment outcome reported by the order's
// owner. Only Completed (mapped to Paid) and Failed are accepted.
func (s *OrderService) UpdatePaymentStatus(userID string, orderNumber string, newStatus string, paymentMethod string) (*models.Order, error) {
	var mapped string
	switch newStatus {
	case "Completed":
		mapped = models.PaymentPaid
	case models.PaymentFailed:
		mapped = models.PaymentFailed
	default:
		return nil, fmt.Errorf("payment status %q is not allowed: %w", newStatus, apperr.ErrValidation)
	}

	order, err := s.orderRepo.GetByOrderNumber(orderNumber)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order %s does not belong to caller: %w", orderNumber, apperr.ErrUnauthorized)
	}

	order.PaymentStatus = mapped
	if paymentMethod != "" {
		order.PaymentMethod = paymentMethod
	}
	if err := s.orderRepo.Update(order); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateDeliveryStatus advances a product's delivery status on behalf of
// either the claimed traveler or the owning client. Both actors share the
// same lookup and transition logic; only the ownership check differs. The
// matching traveler history entry is updated for the two confirmation
// statuses.
func (s *OrderService) UpdateDeliveryStatus(actor Actor, callerUserID string, productID string, status string) error {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return err
	}

	var travelerID string
	switch actor {
	case ActorTraveler:
		traveler, err := s.travelerRepo.GetByUserID(callerUserID)
		if err != nil {
			return err
		}
		if product.ClaimedBy == nil || *product.ClaimedBy != traveler.ID {
			return fmt.Errorf("product %s is not claimed by caller: %w", productID, apperr.ErrForbidden)
		}
		travelerID = traveler.ID
	case ActorClient:
		if product.ClientID != callerUserID {
			return fmt.Errorf("product %s is not owned by caller: %w", productID, apperr.ErrForbidden)
		}
		if product.ClaimedBy != nil {
			travelerID = *product.ClaimedBy
		}
	default:
		return fmt.Errorf("unknown actor: %w", apperr.ErrValidation)
	}

	if err := s.productRepo.UpdateDeliveryStatus(productID, status); err != nil {
		return err
	}

	order, err := s.orderRepo.FindByItemProduct(productID)
	if err != nil {
		return err
	}
	var item *models.OrderItem
	for i := range order.Items {
		if order.Items[i].ProductID == productID {
			item = &order.Items[i]
			break
		}
	}
	if item == nil {
		return fmt.Errorf("order %s has no line item for product %s: %w", order.OrderNumber, productID, apperr.ErrNotFound)
	}
	item.DeliveryStatus = status
	if err := s.orderRepo.UpdateItem(item); err != nil {
		return err
	}

	if travelerID != "" {
		if historyStatus, ok := historyStatusFor(status); ok {
			if err := s.travelerRepo.UpdateHistoryStatus(travelerID, productID, historyStatus); err != nil {
				// The history entry is a projection; a miss here must not
				// fail the transition itself.
				log.Printf("Warning: could not update traveler history for product %s: %v", productID, err)
			}
		}
	}
	return nil
}

// historyStatusFor maps confirmation statuses to the traveler history labels.
func historyStatusFor(status string) (string, bool) {
	switch status {
	case models.ItemTravelerConfirmed:
		return models.HistoryAwaitingClient, true
	case models.ItemClientConfirmed:
		return models.HistoryCompleted, true
	default:
		return "", false
	}
}

// CancelOrder hard-deletes an order. Cancellation is only allowed while the
// payment is still Pending.
func (s *OrderService) CancelOrder(userID string, orderNumber string) error {
	order, err := s.orderRepo.GetByOrderNumber(orderNumber)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return fmt.Errorf("order %s does not belong to caller: %w", orderNumber, apperr.ErrForbidden)
	}
	if order.PaymentStatus != models.PaymentPending {
		return fmt.Errorf("order %s is %s and can no longer be cancelled: %w",
			orderNumber, order.PaymentStatus, apperr.ErrConflict)
	}

	if err := s.orderRepo.Delete(order.ID); err != nil {
		return err
	}

	s.publish("order.cancelled", map[string]interface{}{
		"orderNumber": orderNumber,
		"userID":      userID,
	})
	return nil
}

// AssignTraveler assigns a traveler to the whole order and marks it Assigned.
func (s *OrderService) AssignTraveler(orderNumber string, travelerID string) (*models.Order, error) {
	if _, err := s.travelerRepo.GetByID(travelerID); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByOrderNumber(orderNumber)
	if err != nil {
		return nil, err
	}
	order.TravelerID = &travelerID
	order.DeliveryStatus = models.DeliveryAssigned
	if err := s.orderRepo.Update(order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) publish(event string, payload map[string]interface{}) {
	if s.mqClient == nil {
		return
	}
	if err := s.mqClient.PublishEvent(event, payload); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", event, err)
	}
}
