package handlers

import (
	"fmt"
	"log"

	"nexus/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// PaymentHandler handles escrow and dispute operations.
type PaymentHandler struct {
	service  *services.EscrowService
	validate *validator.Validate
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.EscrowService) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the escrow routes with the Fiber app.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	paymentRoutes := router.Group("/payments")
	paymentRoutes.Post("/pay", h.HandleProcessPayment)
	paymentRoutes.Post("/release", h.HandleReleaseFunds)
	paymentRoutes.Post("/dispute", h.HandleRaiseDispute)
	paymentRoutes.Post("/dispute/resolve", h.HandleResolveDispute)
}

// ProcessPaymentRequest represents the request body for an escrow payment.
type ProcessPaymentRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

// HandleProcessPayment places funds for a product into escrow. The amount
// is derived from the product's stored total price, never the request.
func (h *PaymentHandler) HandleProcessPayment(c *fiber.Ctx) error {
	var req ProcessPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing payment body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	payment, err := h.service.ProcessPayment(callerID(c), req.ProductID)
	if err != nil {
		log.Printf("Error processing payment for product %s: %v", req.ProductID, err)
		return respondError(c, err, "Could not process payment")
	}
	return respondSuccess(c, fiber.StatusCreated, "Payment held in escrow", fiber.Map{
		"payment": payment,
	})
}

// ReleaseFundsRequest represents the request body for releasing escrowed
// funds to a traveler.
type ReleaseFundsRequest struct {
	PaymentID  string `json:"payment_id" validate:"required"`
	TravelerID string `json:"traveler_id" validate:"required"`
}

// HandleReleaseFunds releases escrowed funds and records the settlement
// split between the traveler and the platform.
func (h *PaymentHandler) HandleReleaseFunds(c *fiber.Ctx) error {
	var req ReleaseFundsRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing release body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	settlement, err := h.service.ReleaseFunds(req.PaymentID, req.TravelerID)
	if err != nil {
		log.Printf("Error releasing funds for payment %s: %v", req.PaymentID, err)
		return respondError(c, err, "Could not release funds")
	}
	return respondSuccess(c, fiber.StatusOK, "Funds released", fiber.Map{
		"settlement": settlement,
	})
}

// RaiseDisputeRequest represents the request body for opening a dispute.
type RaiseDisputeRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

// HandleRaiseDispute opens a dispute against an escrowed payment.
func (h *PaymentHandler) HandleRaiseDispute(c *fiber.Ctx) error {
	var req RaiseDisputeRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing dispute body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	dispute, err := h.service.RaiseDispute(req.PaymentID, callerID(c), req.Reason)
	if err != nil {
		log.Printf("Error raising dispute for payment %s: %v", req.PaymentID, err)
		return respondError(c, err, "Could not raise dispute")
	}
	return respondSuccess(c, fiber.StatusCreated, "Dispute opened", fiber.Map{
		"dispute": dispute,
	})
}

// ResolveDisputeRequest represents the request body for resolving a dispute.
type ResolveDisputeRequest struct {
	DisputeID string `json:"dispute_id" validate:"required"`
	Action    string `json:"action" validate:"required,oneof=refund release"`
}

// HandleResolveDispute resolves an open dispute by refunding the client
// or releasing funds to the traveler. Admin only.
func (h *PaymentHandler) HandleResolveDispute(c *fiber.Ctx) error {
	if role, _ := c.Locals("role").(string); role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"status":      "error",
			"description": "Could not resolve dispute",
			"data": fiber.Map{
				"message": "Admin role required",
				"error":   "forbidden",
			},
		})
	}

	var req ResolveDisputeRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing resolve body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	dispute, err := h.service.ResolveDispute(req.DisputeID, req.Action)
	if err != nil {
		log.Printf("Error resolving dispute %s: %v", req.DisputeID, err)
		return respondError(c, err, "Could not resolve dispute")
	}
	return respondSuccess(c, fiber.StatusOK, "Dispute resolved", fiber.Map{
		"dispute": dispute,
	})
}
