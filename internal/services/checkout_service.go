package services

import (
	"context"
	"fmt"
	"log"
	"math"

	"nexus/internal/apperr"
	"nexus/internal/gateways"
	"nexus/internal/models"
	"nexus/internal/repositories"
)

// amountTolerance is the allowed drift between the caller-supplied amount and
// the cart-derived total at checkout.
const amountTolerance = 0.01

// CheckoutRequest carries the payment method selector plus the
// method-specific fields the chosen provider needs.
type CheckoutRequest struct {
	PaymentMethod   string  `json:"payment_method" validate:"required,oneof=Mpesa Airtel Stripe Paystack"`
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	PhoneNumber     string  `json:"phone_number" validate:"omitempty,min=9,max=15"`
	Email           string  `json:"email" validate:"omitempty,email"`
	PaymentMethodID string  `json:"payment_method_id"`
}

// CheckoutResult is returned from a combined checkout.
type CheckoutResult struct {
	OrderNumber      string `json:"order_number"`
	TransactionID    string `json:"transaction_id"`
	PaymentStatus    string `json:"payment_status"`
	AuthorizationURL string `json:"authorization_url,omitempty"`
	ClientSecret     string `json:"client_secret,omitempty"`
}

// CheckoutService orchestrates the combined checkout flow: cart revalidation,
// order creation, provider dispatch, and the asynchronous callback/verify
// reconciliation that finalizes payment status.
type CheckoutService struct {
	orderService *OrderService
	orderRepo    repositories.OrderRepository
	cartRepo     repositories.CartRepository
	productRepo  repositories.ProductRepository
	logRepo      repositories.PaymentLogRepository
	registry     *gateways.Registry
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	orderService *OrderService,
	orderRepo repositories.OrderRepository,
	cartRepo repositories.CartRepository,
	productRepo repositories.ProductRepository,
	logRepo repositories.PaymentLogRepository,
	registry *gateways.Registry,
) *CheckoutService {
	return &CheckoutService{
		orderService: orderService,
		orderRepo:    orderRepo,
		cartRepo:     cartRepo,
		productRepo:  productRepo,
		logRepo:      logRepo,
		registry:     registry,
	}
}

// cartTotal recomputes the caller's cart total from persisted product prices.
func (s *CheckoutService) cartTotal(userID string) (float64, error) {
	cart, err := s.cartRepo.GetByUserID(userID)
	if err != nil {
		return 0, err
	}
	if len(cart.Items) == 0 {
		return 0, fmt.Errorf("cart for user %s is empty: %w", userID, apperr.ErrValidation)
	}

	var total float64
	for _, item := range cart.Items {
		product, err := s.productRepo.GetByID(item.ProductID)
		if err != nil {
			return 0, err
		}
		total += product.TotalPrice * float64(item.Quantity)
	}
	return models.Round2(total), nil
}

// Checkout runs the combined checkout flow for the selected payment method.
// The order is created Pending before the provider is called; a failed
// initiation leaves it Pending with no PaymentLog, and the caller re-attempts
// with a fresh checkout.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*CheckoutResult, error) {
	gateway, err := s.registry.Get(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	total, err := s.cartTotal(userID)
	if err != nil {
		return nil, err
	}
	if math.Abs(total-req.Amount) > amountTolerance {
		return nil, fmt.Errorf("amount %.2f does not match cart total %.2f: %w",
			req.Amount, total, apperr.ErrValidation)
	}

	order, err := s.orderService.CreateOrder(userID)
	if err != nil {
		return nil, err
	}
	order.PaymentMethod = req.PaymentMethod
	if err := s.orderRepo.Update(order); err != nil {
		return nil, err
	}

	result, err := gateway.Initiate(ctx, gateways.InitiateRequest{
		OrderNumber:     order.OrderNumber,
		Amount:          order.TotalAmount,
		PhoneNumber:     req.PhoneNumber,
		Email:           req.Email,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		return nil, err
	}

	// Every attempt is logged Pending; only the callback or a verification
	// may record a terminal status.
	paymentLog := &models.PaymentLog{
		UserID:      userID,
		OrderNumber: order.OrderNumber,
		Reference:   result.Reference,
		Provider:    gateway.Name(),
		Amount:      order.TotalAmount,
		Status:      models.PaymentPending,
		RawResponse: result.Raw,
	}
	if err := s.logRepo.Create(paymentLog); err != nil {
		return nil, err
	}

	// Reflect the provider's immediate answer on the order. For card
	// payments this can already be Paid; for mobile money it stays Pending
	// until the callback lands.
	if result.Status != models.PaymentPending {
		if err := s.applyOutcome(paymentLog, result.Status, result.Raw); err != nil {
			log.Printf("Warning: immediate status for order %s not applied: %v", order.OrderNumber, err)
		}
	}

	return &CheckoutResult{
		OrderNumber:      order.OrderNumber,
		TransactionID:    result.Reference,
		PaymentStatus:    result.Status,
		AuthorizationURL: result.AuthorizationURL,
		ClientSecret:     result.ClientSecret,
	}, nil
}

// HandleCallback applies a provider's asynchronous outcome for a reference.
// Unknown references are rejected without touching any order. Replays are
// harmless: a Paid order is never regressed.
func (s *CheckoutService) HandleCallback(reference string, status string, raw string) error {
	paymentLog, err := s.logRepo.GetByReference(reference)
	if err != nil {
		return err
	}
	return s.applyOutcome(paymentLog, status, raw)
}

// VerifyPayment polls the provider for the transaction's current state and
// applies the outcome through the same path as a callback.
func (s *CheckoutService) VerifyPayment(ctx context.Context, provider string, reference string) (*models.PaymentLog, error) {
	gateway, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	paymentLog, err := s.logRepo.GetByReference(reference)
	if err != nil {
		return nil, err
	}

	result, err := gateway.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}

	if err := s.applyOutcome(paymentLog, result.Status, result.Raw); err != nil {
		return nil, err
	}
	return paymentLog, nil
}

// applyOutcome updates the payment log and its order from a provider result.
// Payment status only ever moves forward: once Paid, replayed or out-of-order
// callbacks regress neither the log nor the order. The cart is cleared only
// on a Paid outcome.
func (s *CheckoutService) applyOutcome(paymentLog *models.PaymentLog, status string, raw string) error {
	switch status {
	case models.PaymentPending, models.PaymentPaid, models.PaymentFailed:
	default:
		return fmt.Errorf("unknown payment outcome %q: %w", status, apperr.ErrValidation)
	}

	// The log never regresses from Paid either, so replayed callbacks
	// cannot overwrite a confirmed outcome.
	if paymentLog.Status != models.PaymentPaid {
		paymentLog.Status = status
	}
	if raw != "" {
		paymentLog.RawResponse = raw
	}
	if err := s.logRepo.Update(paymentLog); err != nil {
		return err
	}

	order, err := s.orderRepo.GetByOrderNumber(paymentLog.OrderNumber)
	if err != nil {
		return err
	}
	if order.PaymentStatus != models.PaymentPaid && order.PaymentStatus != status {
		order.PaymentStatus = status
		if err := s.orderRepo.Update(order); err != nil {
			return err
		}
	}

	if status == models.PaymentPaid {
		if err := s.cartRepo.Clear(paymentLog.UserID); err != nil {
			log.Printf("Warning: payment %s confirmed but cart for user %s not cleared: %v",
				paymentLog.Reference, paymentLog.UserID, err)
		}
	}
	return nil
}
