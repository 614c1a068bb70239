package handlers

import (
	"fmt"
	"log"

	"nexus/internal/repositories"
	"nexus/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// TravelerHandler handles traveler-facing operations: claiming products,
// browsing unassigned orders, and uploading delivery proof.
type TravelerHandler struct {
	service  *services.TravelerService
	validate *validator.Validate
}

// NewTravelerHandler creates a new TravelerHandler.
func NewTravelerHandler(service *services.TravelerService) *TravelerHandler {
	return &TravelerHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the traveler routes with the Fiber app.
func (h *TravelerHandler) RegisterRoutes(router fiber.Router) {
	travelerRoutes := router.Group("/travelers")
	travelerRoutes.Post("/products/claim", h.HandleClaimProduct)
	travelerRoutes.Get("/orders/unassigned", h.HandleGetUnassignedOrders)
	travelerRoutes.Post("/orders/:orderNumber/proof", h.HandleUploadProof)
}

// ClaimProductRequest represents the request body for claiming a product.
type ClaimProductRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

// HandleClaimProduct claims an unclaimed product for the calling traveler.
// A product already claimed by another traveler returns a conflict.
func (h *TravelerHandler) HandleClaimProduct(c *fiber.Ctx) error {
	var req ClaimProductRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing claim body: %v", err)
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

	product, err := h.service.ClaimProduct(callerID(c), req.ProductID)
	if err != nil {
		log.Printf("Error claiming product %s: %v", req.ProductID, err)
		return respondError(c, err, "Could not claim product")
	}
	return respondSuccess(c, fiber.StatusOK, "Product claimed", fiber.Map{
		"product": product,
	})
}

// HandleGetUnassignedOrders lists orders with no assigned traveler,
// filtered by query parameters.
func (h *TravelerHandler) HandleGetUnassignedOrders(c *fiber.Ctx) error {
	filter := repositories.UnassignedFilter{
		Category:    c.Query("category"),
		Destination: c.Query("destination"),
		MinPrice:    c.QueryFloat("min_price"),
		MaxPrice:    c.QueryFloat("max_price"),
		Urgency:     c.Query("urgency"),
	}

	orders, err := h.service.GetUnassignedOrders(filter)
	if err != nil {
		log.Printf("Error listing unassigned orders: %v", err)
		return respondError(c, err, "Could not retrieve unassigned orders")
	}
	return respondSuccess(c, fiber.StatusOK, "Unassigned orders retrieved", fiber.Map{
		"orders": orders,
	})
}

// UploadProofRequest represents the request body for a delivery proof.
type UploadProofRequest struct {
	Proof string `json:"proof" validate:"required"`
}

// HandleUploadProof stores a delivery proof on an order assigned to the
// calling traveler.
func (h *TravelerHandler) HandleUploadProof(c *fiber.Ctx) error {
	orderNumber := c.Params("orderNumber")

	var req UploadProofRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing proof body: %v", err)
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

	if err := h.service.UploadDeliveryProof(callerID(c), orderNumber, req.Proof); err != nil {
		log.Printf("Error uploading proof for order %s: %v", orderNumber, err)
		return respondError(c, err, "Could not upload delivery proof")
	}
	return respondSuccess(c, fiber.StatusOK, "Delivery proof uploaded", nil)
}
