package services

import (
	"fmt"
	"log"

	"nexus/internal/apperr"
	"nexus/internal/models"
	"nexus/internal/repositories"
	"nexus/pkg/rabbitmq"
)

// Settlement is the computed 60/40 split of the markup, returned when funds
// are released.
type Settlement struct {
	PaymentID      string  `json:"payment_id"`
	TravelerReward float64 `json:"traveler_reward"`
	CompanyFee     float64 `json:"company_fee"`
}

// EscrowService owns the escrow payment lifecycle: holding funds, releasing
// them to a traveler with the markup split, and dispute handling. Both the
// direct release path and the dispute-resolution release path go through the
// same settle step.
type EscrowService struct {
	paymentRepo  repositories.PaymentRepository
	productRepo  repositories.ProductRepository
	travelerRepo repositories.TravelerRepository
	mqClient     rabbitmq.Publisher
}

// NewEscrowService creates a new EscrowService.
func NewEscrowService(
	paymentRepo repositories.PaymentRepository,
	productRepo repositories.ProductRepository,
	travelerRepo repositories.TravelerRepository,
	mqClient rabbitmq.Publisher,
) *EscrowService {
	return &EscrowService{
		paymentRepo:  paymentRepo,
		productRepo:  productRepo,
		travelerRepo: travelerRepo,
		mqClient:     mqClient,
	}
}

// ProcessPayment places funds in escrow for a product. The amount is always
// derived from the persisted product price, never taken from the request.
func (s *EscrowService) ProcessPayment(clientID string, productID string) (*models.Payment, error) {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ClientID:    clientID,
		ProductID:   productID,
		TotalAmount: product.TotalPrice,
		Status:      models.EscrowHeld,
	}
	if err := s.paymentRepo.CreatePayment(payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// ReleaseFunds releases an escrowed payment to a traveler and returns the
// computed split.
func (s *EscrowService) ReleaseFunds(paymentID string, travelerID string) (*Settlement, error) {
	payment, err := s.paymentRepo.GetPaymentByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.EscrowHeld {
		return nil, fmt.Errorf("payment %s is %s, not in escrow: %w",
			paymentID, payment.Status, apperr.ErrInvalidState)
	}
	if _, err := s.travelerRepo.GetByID(travelerID); err != nil {
		return nil, err
	}
	return s.settle(payment, travelerID)
}

// settle performs the single settlement step shared by direct release and
// dispute resolution: mark the payment released, record the transaction with
// the 60/40 split of the 15% markup, and move the traveler's reward from
// pending to earned.
func (s *EscrowService) settle(payment *models.Payment, travelerID string) (*Settlement, error) {
	markup := models.Round2(payment.TotalAmount * models.MarkupRate)
	reward := models.Round2(markup * models.TravelerRewardShare)
	// Derive the fee from the remainder so reward+fee always equals the
	// markup exactly, regardless of rounding.
	fee := models.Round2(markup - reward)

	payment.Status = models.EscrowReleased
	if travelerID != "" {
		payment.TravelerID = &travelerID
	}
	if err := s.paymentRepo.UpdatePayment(payment); err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		PaymentID:      payment.ID,
		TravelerReward: reward,
		CompanyFee:     fee,
	}
	if err := s.paymentRepo.CreateTransaction(transaction); err != nil {
		return nil, err
	}

	if travelerID != "" {
		if traveler, err := s.travelerRepo.GetByID(travelerID); err == nil {
			traveler.TotalEarnings = models.Round2(traveler.TotalEarnings + reward)
			traveler.PendingPayments = models.Round2(traveler.PendingPayments - reward)
			if traveler.PendingPayments < 0 {
				traveler.PendingPayments = 0
			}
			if err := s.travelerRepo.Update(traveler); err != nil {
				log.Printf("Warning: payment %s released but traveler %s earnings not updated: %v",
					payment.ID, travelerID, err)
			}
		}
	}

	s.publish("payment.released", map[string]interface{}{
		"paymentID":      payment.ID,
		"travelerID":     travelerID,
		"travelerReward": reward,
		"companyFee":     fee,
	})

	return &Settlement{
		PaymentID:      payment.ID,
		TravelerReward: reward,
		CompanyFee:     fee,
	}, nil
}

// RaiseDispute opens a dispute against an escrowed payment and freezes it in
// the disputed state.
func (s *EscrowService) RaiseDispute(paymentID string, clientID string, reason string) (*models.Dispute, error) {
	if reason == "" {
		return nil, fmt.Errorf("dispute reason is required: %w", apperr.ErrValidation)
	}

	payment, err := s.paymentRepo.GetPaymentByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.EscrowHeld {
		return nil, fmt.Errorf("payment %s is %s, not in escrow: %w",
			paymentID, payment.Status, apperr.ErrInvalidState)
	}

	dispute := &models.Dispute{
		PaymentID: paymentID,
		ClientID:  clientID,
		Reason:    reason,
		Status:    models.DisputeOpen,
	}
	if err := s.paymentRepo.CreateDispute(dispute); err != nil {
		return nil, err
	}

	payment.Status = models.EscrowDisputed
	if err := s.paymentRepo.UpdatePayment(payment); err != nil {
		return nil, err
	}

	s.publish("dispute.opened", map[string]interface{}{
		"disputeID": dispute.ID,
		"paymentID": paymentID,
		"clientID":  clientID,
	})

	return dispute, nil
}

// ResolveDispute closes an open dispute, either refunding the client or
// releasing the funds through the same settle step as a direct release.
func (s *EscrowService) ResolveDispute(disputeID string, action string) (*models.Dispute, error) {
	dispute, err := s.paymentRepo.GetDisputeByID(disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status != models.DisputeOpen {
		return nil, fmt.Errorf("dispute %s is already %s: %w",
			disputeID, dispute.Status, apperr.ErrInvalidState)
	}

	payment, err := s.paymentRepo.GetPaymentByID(dispute.PaymentID)
	if err != nil {
		return nil, err
	}

	switch action {
	case "refund":
		payment.Status = models.EscrowRefunded
		if err := s.paymentRepo.UpdatePayment(payment); err != nil {
			return nil, err
		}
	case "release":
		// The traveler isn't named by the resolution request; settle to
		// whoever claimed the product. Without a claimant there is nobody
		// to release to.
		product, err := s.productRepo.GetByID(payment.ProductID)
		if err != nil {
			return nil, err
		}
		if product.ClaimedBy == nil {
			return nil, fmt.Errorf("product %s has no claimant to release payment %s to: %w",
				product.ID, payment.ID, apperr.ErrInvalidState)
		}
		if _, err := s.settle(payment, *product.ClaimedBy); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("resolution action %q must be refund or release: %w",
			action, apperr.ErrValidation)
	}

	dispute.Status = models.DisputeResolved
	if err := s.paymentRepo.UpdateDispute(dispute); err != nil {
		return nil, err
	}
	return dispute, nil
}

func (s *EscrowService) publish(event string, payload map[string]interface{}) {
	if s.mqClient == nil {
		return
	}
	if err := s.mqClient.PublishEvent(event, payload); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", event, err)
	}
}
