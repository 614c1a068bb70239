package handlers

import (
	"fmt"
	"log"

	"nexus/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// RatingHandler handles post-delivery ratings in both directions.
type RatingHandler struct {
	service  *services.RatingService
	validate *validator.Validate
}

// NewRatingHandler creates a new RatingHandler.
func NewRatingHandler(service *services.RatingService) *RatingHandler {
	return &RatingHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the rating routes with the Fiber app.
func (h *RatingHandler) RegisterRoutes(router fiber.Router) {
	ratingRoutes := router.Group("/ratings")
	ratingRoutes.Post("/traveler", h.HandleRateTraveler)
	ratingRoutes.Post("/client", h.HandleRateClient)
}

// RatingRequest represents the request body for either rating direction.
type RatingRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"max=500"`
}

func (h *RatingHandler) parseRating(c *fiber.Ctx) (*RatingRequest, error) {
	var req RatingRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing rating body: %v", err)
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
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
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}
	return &req, nil
}

// HandleRateTraveler records the client's rating of the traveler who
// delivered the product.
func (h *RatingHandler) HandleRateTraveler(c *fiber.Ctx) error {
	req, err := h.parseRating(c)
	if req == nil {
		return err
	}

	if err := h.service.RateTraveler(callerID(c), req.ProductID, req.Rating, req.Comment); err != nil {
		log.Printf("Error rating traveler for product %s: %v", req.ProductID, err)
		return respondError(c, err, "Could not submit rating")
	}
	return respondSuccess(c, fiber.StatusCreated, "Traveler rated", nil)
}

// HandleRateClient records the traveler's rating of the client after
// delivery.
func (h *RatingHandler) HandleRateClient(c *fiber.Ctx) error {
	req, err := h.parseRating(c)
	if req == nil {
		return err
	}

	if err := h.service.RateClient(callerID(c), req.ProductID, req.Rating, req.Comment); err != nil {
		log.Printf("Error rating client for product %s: %v", req.ProductID, err)
		return respondError(c, err, "Could not submit rating")
	}
	return respondSuccess(c, fiber.StatusCreated, "Client rated", nil)
}
