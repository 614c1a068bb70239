package handlers

import (
	"fmt"
	"log"

	"nexus/internal/models"
	"nexus/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CheckoutHandler handles the combined checkout flow plus the provider
// webhook and verification endpoints that finalize payment status.
type CheckoutHandler struct {
	service  *services.CheckoutService
	validate *validator.Validate
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(service *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the authenticated checkout routes.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/checkout/combined", h.HandleCombinedCheckout)
	router.Get("/payments/paystack/verify/:reference", h.HandleVerifyPaystack)
	router.Get("/payments/stripe/verify/:reference", h.HandleVerifyStripe)
}

// RegisterWebhooks registers the unauthenticated provider callbacks.
// Providers cannot carry our bearer tokens, so these stay outside the
// JWT group.
func (h *CheckoutHandler) RegisterWebhooks(router fiber.Router) {
	router.Post("/payments/mpesa/callback", h.HandleMpesaCallback)
	router.Post("/payments/airtel/callback", h.HandleAirtelCallback)
}

// HandleCombinedCheckout creates an order from the caller's cart and
// dispatches payment to the selected provider in one request.
func (h *CheckoutHandler) HandleCombinedCheckout(c *fiber.Ctx) error {
	var req services.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing checkout body: %v", err)
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

	result, err := h.service.Checkout(c.Context(), callerID(c), req)
	if err != nil {
		log.Printf("Error during combined checkout: %v", err)
		return respondError(c, err, "Checkout failed")
	}
	return respondSuccess(c, fiber.StatusCreated, "Checkout initiated", fiber.Map{
		"checkout": result,
	})
}

// mpesaCallbackBody mirrors the Daraja STK push callback envelope.
type mpesaCallbackBody struct {
	Body struct {
		StkCallback struct {
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// HandleMpesaCallback processes the asynchronous STK push result. The
// provider expects a ResultCode 0 acknowledgement regardless of whether
// the reference was recognized.
func (h *CheckoutHandler) HandleMpesaCallback(c *fiber.Ctx) error {
	var body mpesaCallbackBody
	if err := c.BodyParser(&body); err != nil {
		log.Printf("Error parsing Mpesa callback: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ResultCode": 1,
			"ResultDesc": "Invalid payload",
		})
	}

	status := models.PaymentPaid
	if body.Body.StkCallback.ResultCode != 0 {
		status = models.PaymentFailed
	}

	reference := body.Body.StkCallback.CheckoutRequestID
	if err := h.service.HandleCallback(reference, status, string(c.Body())); err != nil {
		log.Printf("Mpesa callback for reference %s not applied: %v", reference, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ResultCode": 0,
		"ResultDesc": "Accepted",
	})
}

// airtelCallbackBody mirrors the Airtel Money payment notification.
type airtelCallbackBody struct {
	Transaction struct {
		ID         string `json:"id"`
		StatusCode string `json:"status_code"`
		Message    string `json:"message"`
	} `json:"transaction"`
}

// HandleAirtelCallback processes the Airtel Money payment notification.
func (h *CheckoutHandler) HandleAirtelCallback(c *fiber.Ctx) error {
	var body airtelCallbackBody
	if err := c.BodyParser(&body); err != nil {
		log.Printf("Error parsing Airtel callback: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid payload",
		})
	}

	var status string
	switch body.Transaction.StatusCode {
	case "TS":
		status = models.PaymentPaid
	case "TF":
		status = models.PaymentFailed
	default:
		log.Printf("Airtel callback with unhandled status code %q for %s",
			body.Transaction.StatusCode, body.Transaction.ID)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Ignored"})
	}

	if err := h.service.HandleCallback(body.Transaction.ID, status, string(c.Body())); err != nil {
		log.Printf("Airtel callback for reference %s not applied: %v", body.Transaction.ID, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Accepted"})
}

// HandleVerifyPaystack polls Paystack for the transaction state and applies
// the outcome.
func (h *CheckoutHandler) HandleVerifyPaystack(c *fiber.Ctx) error {
	return h.verify(c, models.MethodPaystack)
}

// HandleVerifyStripe polls Stripe for the payment intent state and applies
// the outcome.
func (h *CheckoutHandler) HandleVerifyStripe(c *fiber.Ctx) error {
	return h.verify(c, models.MethodStripe)
}

func (h *CheckoutHandler) verify(c *fiber.Ctx, provider string) error {
	reference := c.Params("reference")
	paymentLog, err := h.service.VerifyPayment(c.Context(), provider, reference)
	if err != nil {
		log.Printf("Error verifying %s payment %s: %v", provider, reference, err)
		return respondError(c, err, "Could not verify payment")
	}
	return respondSuccess(c, fiber.StatusOK, "Payment verified", fiber.Map{
		"reference": paymentLog.Reference,
		"status":    paymentLog.Status,
		"amount":    paymentLog.Amount,
	})
}
