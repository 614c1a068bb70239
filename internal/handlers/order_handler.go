package handlers

import (
	"fmt"
	"log"

	"nexus/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests related to orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/", h.HandleGetUserOrders)
	orderRoutes.Put("/delivery-status", h.HandleUpdateDeliveryStatus)
	orderRoutes.Get("/:orderNumber", h.HandleGetOrderDetails)
	orderRoutes.Put("/:orderNumber/payment-status", h.HandleUpdatePaymentStatus)
	orderRoutes.Put("/:orderNumber/assign", h.HandleAssignTraveler)
	orderRoutes.Delete("/:orderNumber", h.HandleCancelOrder)
}

// HandleCreateOrder creates an order from the caller's cart.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	order, err := h.service.CreateOrder(callerID(c))
	if err != nil {
		log.Printf("Error creating order: %v", err)
		return respondError(c, err, "Could not create order")
	}
	return respondSuccess(c, fiber.StatusCreated, "Order created", fiber.Map{
		"order": order,
	})
}

// HandleGetUserOrders lists the caller's orders, newest first.
func (h *OrderHandler) HandleGetUserOrders(c *fiber.Ctx) error {
	orders, err := h.service.GetUserOrders(callerID(c))
	if err != nil {
		log.Printf("Error getting orders: %v", err)
		return respondError(c, err, "Could not retrieve orders")
	}
	return respondSuccess(c, fiber.StatusOK, "Orders retrieved", fiber.Map{
		"orders": orders,
	})
}

// HandleGetOrderDetails returns a single order owned by the caller.
func (h *OrderHandler) HandleGetOrderDetails(c *fiber.Ctx) error {
	orderNumber := c.Params("orderNumber")
	order, err := h.service.GetOrderDetails(callerID(c), orderNumber)
	if err != nil {
		log.Printf("Error getting order %s: %v", orderNumber, err)
		return respondError(c, err, "Could not retrieve order")
	}
	return respondSuccess(c, fiber.StatusOK, "Order retrieved", fiber.Map{
		"order": order,
	})
}

// UpdatePaymentStatusRequest represents the request body for a payment
// status update.
type UpdatePaymentStatusRequest struct {
	Status        string `json:"status" validate:"required,oneof=Completed Failed"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=Mpesa Airtel Stripe Paystack"`
}

// HandleUpdatePaymentStatus records the outcome of an out-of-band payment.
func (h *OrderHandler) HandleUpdatePaymentStatus(c *fiber.Ctx) error {
	orderNumber := c.Params("orderNumber")

	var req UpdatePaymentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing payment status body: %v", err)
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

	order, err := h.service.UpdatePaymentStatus(callerID(c), orderNumber, req.Status, req.PaymentMethod)
	if err != nil {
		log.Printf("Error updating payment status for %s: %v", orderNumber, err)
		return respondError(c, err, "Could not update payment status")
	}
	return respondSuccess(c, fiber.StatusOK, "Payment status updated", fiber.Map{
		"order": order,
	})
}

// UpdateDeliveryStatusRequest represents the request body for a delivery
// status update by either party.
type UpdateDeliveryStatusRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Status    string `json:"status" validate:"required"`
	Actor     string `json:"actor" validate:"required,oneof=traveler client"`
}

// HandleUpdateDeliveryStatus updates the delivery status of an order item.
// The actor field selects which side's transition rules apply.
func (h *OrderHandler) HandleUpdateDeliveryStatus(c *fiber.Ctx) error {
	var req UpdateDeliveryStatusRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing delivery status body: %v", err)
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

	actor := services.ActorClient
	if req.Actor == "traveler" {
		actor = services.ActorTraveler
	}

	if err := h.service.UpdateDeliveryStatus(actor, callerID(c), req.ProductID, req.Status); err != nil {
		log.Printf("Error updating delivery status for product %s: %v", req.ProductID, err)
		return respondError(c, err, "Could not update delivery status")
	}
	return respondSuccess(c, fiber.StatusOK, "Delivery status updated", nil)
}

// AssignTravelerRequest represents the request body for assigning a
// traveler to an order.
type AssignTravelerRequest struct {
	TravelerID string `json:"traveler_id" validate:"required"`
}

// HandleAssignTraveler assigns a traveler to an order.
func (h *OrderHandler) HandleAssignTraveler(c *fiber.Ctx) error {
	orderNumber := c.Params("orderNumber")

	var req AssignTravelerRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing assign body: %v", err)
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

	order, err := h.service.AssignTraveler(orderNumber, req.TravelerID)
	if err != nil {
		log.Printf("Error assigning traveler to %s: %v", orderNumber, err)
		return respondError(c, err, "Could not assign traveler")
	}
	return respondSuccess(c, fiber.StatusOK, "Traveler assigned", fiber.Map{
		"order": order,
	})
}

// HandleCancelOrder cancels an order whose payment is still pending.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	orderNumber := c.Params("orderNumber")
	if err := h.service.CancelOrder(callerID(c), orderNumber); err != nil {
		log.Printf("Error cancelling order %s: %v", orderNumber, err)
		return respondError(c, err, "Could not cancel order")
	}
	return respondSuccess(c, fiber.StatusOK, "Order cancelled", nil)
}
