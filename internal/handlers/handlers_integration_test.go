package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"nexus/internal/gateways"
	"nexus/internal/handlers"
	"nexus/internal/middleware"
	"nexus/internal/models"
	"nexus/internal/repositories"
	"nexus/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeGateway stands in for a real payment provider so checkout flows can run
// end to end without network access. The reference is deterministic per order
// so webhook tests can address the payment log it seeds.
type fakeGateway struct {
	name         string
	status       string // status reported synchronously on Initiate
	clientSecret string
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) Initiate(_ context.Context, req gateways.InitiateRequest) (*gateways.InitiateResult, error) {
	return &gateways.InitiateResult{
		Reference:    g.name + "-" + req.OrderNumber,
		Status:       g.status,
		ClientSecret: g.clientSecret,
		Raw:          `{"fake":true}`,
	}, nil
}

func (g *fakeGateway) Verify(_ context.Context, reference string) (*gateways.VerifyResult, error) {
	return &gateways.VerifyResult{Reference: reference, Status: models.PaymentPaid}, nil
}

// setupApp sets up a Fiber app for testing with in-memory SQLite and all handlers/services.
func setupApp() (*fiber.App, *services.AuthService, error) {
	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to in-memory database: %w", err)
	}

	err = db.AutoMigrate(
		&models.User{}, &models.Product{},
		&models.Cart{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{},
		&models.Payment{}, &models.Transaction{}, &models.Dispute{},
		&models.PaymentLog{},
		&models.Traveler{}, &models.TravelerHistoryEntry{},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	userRepo := repositories.NewGORMUserRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	paymentRepo := repositories.NewGORMPaymentRepository(db)
	logRepo := repositories.NewGORMPaymentLogRepository(db)
	travelerRepo := repositories.NewGORMTravelerRepository(db)

	registry := gateways.NewRegistry(
		&fakeGateway{name: models.MethodMpesa, status: models.PaymentPending},
		&fakeGateway{name: models.MethodStripe, status: models.PaymentPaid, clientSecret: "pi_test_secret"},
	)

	authService := services.NewAuthService(userRepo, travelerRepo, jwtSecret)
	productService := services.NewProductService(productRepo)
	cartService := services.NewCartService(cartRepo, productRepo)
	orderService := services.NewOrderService(orderRepo, productRepo, cartRepo, travelerRepo, nil) // nil for RabbitMQ client
	checkoutService := services.NewCheckoutService(orderService, orderRepo, cartRepo, productRepo, logRepo, registry)
	escrowService := services.NewEscrowService(paymentRepo, productRepo, travelerRepo, nil)
	travelerService := services.NewTravelerService(productRepo, orderRepo, travelerRepo)
	ratingService := services.NewRatingService(orderRepo, travelerRepo, userRepo)

	authHandler := handlers.NewAuthHandler(authService, nil) // nil disables login throttling
	productHandler := handlers.NewProductHandler(productService)
	cartHandler := handlers.NewCartHandler(cartService)
	orderHandler := handlers.NewOrderHandler(orderService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	paymentHandler := handlers.NewPaymentHandler(escrowService)
	travelerHandler := handlers.NewTravelerHandler(travelerService)
	ratingHandler := handlers.NewRatingHandler(ratingService)

	app := fiber.New()

	apiV1 := app.Group("/api/v1")

	// Public routes
	authHandler.RegisterRoutes(apiV1)
	checkoutHandler.RegisterWebhooks(apiV1)

	// Protected routes (require JWT authentication)
	protectedRoutes := apiV1.Group("", middleware.AuthRequired(authService))
	productHandler.RegisterRoutes(protectedRoutes)
	cartHandler.RegisterRoutes(protectedRoutes)
	orderHandler.RegisterRoutes(protectedRoutes)
	checkoutHandler.RegisterRoutes(protectedRoutes)
	paymentHandler.RegisterRoutes(protectedRoutes)
	travelerHandler.RegisterRoutes(protectedRoutes)
	ratingHandler.RegisterRoutes(protectedRoutes)

	return app, authService, nil
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// jsonRequest builds a request with an optional JSON body and bearer token.
func jsonRequest(method, path, token string, body interface{}) *http.Request {
	var reader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// decodeEnvelope decodes the standard {status, description, data} envelope
// and returns its data map (nil when data is absent).
func decodeEnvelope(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	err := json.NewDecoder(resp.Body).Decode(&envelope)
	assert.NoError(t, err)
	resp.Body.Close()
	data, _ := envelope["data"].(map[string]interface{})
	return data
}

// registerAndLogin creates a user with the given role and returns a bearer token.
func registerAndLogin(t *testing.T, app *fiber.App, username, role string) string {
	t.Helper()

	registerBody := map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
		"role":     role,
	}
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/auth/register", "", registerBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	loginBody := map[string]string{
		"username": username,
		"password": "password123",
	}
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/auth/login", "", loginBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	data := decodeEnvelope(t, resp)
	token, _ := data["token"].(string)
	assert.NotEmpty(t, token)
	return token
}

// createProduct posts a delivery request and returns its id.
func createProduct(t *testing.T, app *fiber.App, token string, name string, fee float64) string {
	t.Helper()

	body := map[string]interface{}{
		"name":        name,
		"description": "integration test item",
		"category":    "electronics",
		"fee":         fee,
		"destination": "Nairobi",
		"urgency":     models.UrgencyHigh,
	}
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/products", token, body), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	data := decodeEnvelope(t, resp)
	product, _ := data["product"].(map[string]interface{})
	id, _ := product["id"].(string)
	assert.NotEmpty(t, id)
	return id
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app, authService, err := setupApp()
	assert.NoError(t, err)

	registerBody := map[string]string{
		"username": "authflow_user",
		"email":    "authflow_user@example.com",
		"password": "password123",
	}
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/auth/register", "", registerBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	data := decodeEnvelope(t, resp)
	user, _ := data["user"].(map[string]interface{})
	assert.Equal(t, "authflow_user", user["username"])
	assert.Equal(t, models.RoleClient, user["role"]) // default role

	// Duplicate registration is a conflict
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/auth/register", "", registerBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	loginBody := map[string]string{
		"username": "authflow_user",
		"password": "password123",
	}
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/auth/login", "", loginBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	data = decodeEnvelope(t, resp)
	token, _ := data["token"].(string)
	assert.NotEmpty(t, token)

	claims, err := authService.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "authflow_user", claims["username"])
	assert.Contains(t, claims, "user_id")

	// Wrong password
	loginBody["password"] = "wrong"
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/auth/login", "", loginBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestProductLifecycle(t *testing.T) {
	app, _, err := setupApp()
	assert.NoError(t, err)
	token := registerAndLogin(t, app, "product_owner", models.RoleClient)

	productID := createProduct(t, app, token, "Wireless Headphones", 100.00)

	// Pricing is derived server-side: 100 fee + 15% markup
	resp, err := app.Test(jsonRequest(http.MethodGet, "/api/v1/products/"+productID, token, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeEnvelope(t, resp)
	product, _ := data["product"].(map[string]interface{})
	assert.Equal(t, 15.00, product["markup"])
	assert.Equal(t, 115.00, product["total_price"])
	assert.Equal(t, models.DeliveryPending, product["delivery_status"])
	assert.Nil(t, product["claimed_by"])

	// Update recomputes pricing from the new fee
	updateBody := map[string]interface{}{
		"name":        "Wireless Headphones Pro",
		"fee":         200.00,
		"destination": "Mombasa",
	}
	resp, err = app.Test(jsonRequest(http.MethodPut, "/api/v1/products/"+productID, token, updateBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data = decodeEnvelope(t, resp)
	product, _ = data["product"].(map[string]interface{})
	assert.Equal(t, "Wireless Headphones Pro", product["name"])
	assert.Equal(t, 230.00, product["total_price"])

	// A different user cannot update or delete someone else's request
	otherToken := registerAndLogin(t, app, "product_intruder", models.RoleClient)
	resp, err = app.Test(jsonRequest(http.MethodPut, "/api/v1/products/"+productID, otherToken, updateBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodDelete, "/api/v1/products/"+productID, otherToken, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodDelete, "/api/v1/products/"+productID, token, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodGet, "/api/v1/products/"+productID, token, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCartEndpoints(t *testing.T) {
	app, _, err := setupApp()
	assert.NoError(t, err)
	token := registerAndLogin(t, app, "cart_owner", models.RoleClient)
	productID := createProduct(t, app, token, "Coffee Beans", 40.00)

	addBody := map[string]interface{}{"product_id": productID, "quantity": 2}
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/cart/items", token, addBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeEnvelope(t, resp)
	cart, _ := data["cart"].(map[string]interface{})
	items, _ := cart["items"].([]interface{})
	assert.Len(t, items, 1)

	// Unknown product is rejected before touching the cart
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/cart/items", token,
		map[string]interface{}{"product_id": "does-not-exist", "quantity": 1}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodDelete, "/api/v1/cart/items/"+productID, token, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data = decodeEnvelope(t, resp)
	cart, _ = data["cart"].(map[string]interface{})
	items, _ = cart["items"].([]interface{})
	assert.Len(t, items, 0)
}

// TestCheckoutToRatingFlow walks the whole marketplace lifecycle over HTTP:
// checkout with a mobile-money provider, webhook confirmation, traveler claim,
// delivery proof, mutual confirmation, and mutual rating.
func TestCheckoutToRatingFlow(t *testing.T) {
	app, _, err := setupApp()
	assert.NoError(t, err)

	clientToken := registerAndLogin(t, app, "flow_client", models.RoleClient)
	travelerToken := registerAndLogin(t, app, "flow_traveler", models.RoleTraveler)

	productID := createProduct(t, app, clientToken, "Mechanical Keyboard", 100.00)

	addBody := map[string]interface{}{"product_id": productID, "quantity": 1}
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/cart/items", clientToken, addBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// An amount that disagrees with the server-side cart total is rejected
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/checkout/combined", clientToken, map[string]interface{}{
		"payment_method": models.MethodMpesa,
		"amount":         90.00,
		"phone_number":   "254712345678",
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Combined checkout with the matching total
	checkoutBody := map[string]interface{}{
		"payment_method": models.MethodMpesa,
		"amount":         115.00,
		"phone_number":   "254712345678",
	}
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/checkout/combined", clientToken, checkoutBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeEnvelope(t, resp)
	checkout, _ := data["checkout"].(map[string]interface{})
	orderNumber, _ := checkout["order_number"].(string)
	reference, _ := checkout["transaction_id"].(string)
	assert.NotEmpty(t, orderNumber)
	assert.NotEmpty(t, reference)
	assert.Equal(t, models.PaymentPending, checkout["payment_status"])

	// Provider webhook confirms the payment. Unauthenticated on purpose.
	callbackBody := map[string]interface{}{
		"Body": map[string]interface{}{
			"stkCallback": map[string]interface{}{
				"CheckoutRequestID": reference,
				"ResultCode":        0,
				"ResultDesc":        "The service request is processed successfully.",
			},
		},
	}
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/payments/mpesa/callback", "", callbackBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var ack map[string]interface{}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	resp.Body.Close()
	assert.Equal(t, float64(0), ack["ResultCode"])

	resp, err = app.Test(jsonRequest(http.MethodGet, "/api/v1/orders/"+orderNumber, clientToken, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data = decodeEnvelope(t, resp)
	order, _ := data["order"].(map[string]interface{})
	assert.Equal(t, models.PaymentPaid, order["payment_status"])
	assert.Equal(t, models.MethodMpesa, order["payment_method"])

	// Traveler claims the product
	claimBody := map[string]interface{}{"product_id": productID}
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/travelers/products/claim", travelerToken, claimBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data = decodeEnvelope(t, resp)
	product, _ := data["product"].(map[string]interface{})
	travelerID, _ := product["claimed_by"].(string)
	assert.NotEmpty(t, travelerID)

	// A second claim on the same product loses
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/travelers/products/claim", travelerToken, claimBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Only the assigned traveler may upload proof
	proofBody := map[string]interface{}{"proof": "data:image/png;base64,aGFuZG92ZXI="}
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/travelers/orders/"+orderNumber+"/proof", clientToken, proofBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode) // client has no traveler profile
	resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/travelers/orders/"+orderNumber+"/proof", travelerToken, proofBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Traveler confirms handover, then the client confirms receipt
	resp, err = app.Test(jsonRequest(http.MethodPut, "/api/v1/orders/delivery-status", travelerToken, map[string]interface{}{
		"product_id": productID,
		"status":     models.ItemTravelerConfirmed,
		"actor":      "traveler",
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodPut, "/api/v1/orders/delivery-status", clientToken, map[string]interface{}{
		"product_id": productID,
		"status":     models.ItemClientConfirmed,
		"actor":      "client",
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Mutual rating after delivery
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/ratings/traveler", clientToken, map[string]interface{}{
		"product_id": productID,
		"rating":     5,
		"comment":    "Arrived well packed",
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/ratings/client", travelerToken, map[string]interface{}{
		"product_id": productID,
		"rating":     4,
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Each side rates at most once
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/ratings/traveler", clientToken, map[string]interface{}{
		"product_id": productID,
		"rating":     1,
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestStripeCheckoutIsImmediatelyPaid(t *testing.T) {
	app, _, err := setupApp()
	assert.NoError(t, err)
	token := registerAndLogin(t, app, "stripe_client", models.RoleClient)
	productID := createProduct(t, app, token, "Camera Lens", 400.00)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/cart/items", token,
		map[string]interface{}{"product_id": productID, "quantity": 1}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/checkout/combined", token, map[string]interface{}{
		"payment_method":    models.MethodStripe,
		"amount":            460.00,
		"payment_method_id": "pm_card_visa",
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeEnvelope(t, resp)
	checkout, _ := data["checkout"].(map[string]interface{})
	assert.Equal(t, models.PaymentPaid, checkout["payment_status"])
	assert.Equal(t, "pi_test_secret", checkout["client_secret"])

	orderNumber, _ := checkout["order_number"].(string)
	resp, err = app.Test(jsonRequest(http.MethodGet, "/api/v1/orders/"+orderNumber, token, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data = decodeEnvelope(t, resp)
	order, _ := data["order"].(map[string]interface{})
	assert.Equal(t, models.PaymentPaid, order["payment_status"])
}

func TestEscrowEndpoints(t *testing.T) {
	app, _, err := setupApp()
	assert.NoError(t, err)

	clientToken := registerAndLogin(t, app, "escrow_client", models.RoleClient)
	travelerToken := registerAndLogin(t, app, "escrow_traveler", models.RoleTraveler)
	adminToken := registerAndLogin(t, app, "escrow_admin", models.RoleAdmin)

	productID := createProduct(t, app, clientToken, "Espresso Machine", 100.00)

	// Funds enter escrow at the persisted product price
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/payments/pay", clientToken,
		map[string]interface{}{"product_id": productID}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeEnvelope(t, resp)
	payment, _ := data["payment"].(map[string]interface{})
	paymentID, _ := payment["id"].(string)
	assert.NotEmpty(t, paymentID)
	assert.Equal(t, models.EscrowHeld, payment["status"])
	assert.Equal(t, 115.00, payment["total_amount"])

	// The traveler needs to have claimed before being paid out; the claim
	// only works against an order, so route it through a paid checkout.
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/cart/items", clientToken,
		map[string]interface{}{"product_id": productID, "quantity": 1}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/checkout/combined", clientToken, map[string]interface{}{
		"payment_method":    models.MethodStripe,
		"amount":            115.00,
		"payment_method_id": "pm_card_visa",
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/travelers/products/claim", travelerToken,
		map[string]interface{}{"product_id": productID}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data = decodeEnvelope(t, resp)
	product, _ := data["product"].(map[string]interface{})
	travelerID, _ := product["claimed_by"].(string)
	assert.NotEmpty(t, travelerID)

	// Release splits the 15% markup 60/40: 17.25 becomes 10.35 / 6.90
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/payments/release", clientToken,
		map[string]interface{}{"payment_id": paymentID, "traveler_id": travelerID}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data = decodeEnvelope(t, resp)
	settlement, _ := data["settlement"].(map[string]interface{})
	assert.Equal(t, 10.35, settlement["traveler_reward"])
	assert.Equal(t, 6.90, settlement["company_fee"])

	// Funds leave escrow exactly once
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/payments/release", clientToken,
		map[string]interface{}{"payment_id": paymentID, "traveler_id": travelerID}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Dispute flow on a fresh escrow payment
	disputedProductID := createProduct(t, app, clientToken, "Broken Vase", 50.00)
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/payments/pay", clientToken,
		map[string]interface{}{"product_id": disputedProductID}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	data = decodeEnvelope(t, resp)
	payment, _ = data["payment"].(map[string]interface{})
	disputedPaymentID, _ := payment["id"].(string)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/payments/dispute", clientToken,
		map[string]interface{}{"payment_id": disputedPaymentID, "reason": "Item arrived damaged"}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	data = decodeEnvelope(t, resp)
	dispute, _ := data["dispute"].(map[string]interface{})
	disputeID, _ := dispute["id"].(string)
	assert.Equal(t, models.DisputeOpen, dispute["status"])

	// Only admins resolve disputes
	resolveBody := map[string]interface{}{"dispute_id": disputeID, "action": "refund"}
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/payments/dispute/resolve", clientToken, resolveBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/payments/dispute/resolve", adminToken, resolveBody), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data = decodeEnvelope(t, resp)
	dispute, _ = data["dispute"].(map[string]interface{})
	assert.Equal(t, models.DisputeResolved, dispute["status"])
}

func TestUpdatePaymentStatusEndpoint(t *testing.T) {
	app, _, err := setupApp()
	assert.NoError(t, err)
	token := registerAndLogin(t, app, "oob_client", models.RoleClient)
	productID := createProduct(t, app, token, "Hiking Boots", 80.00)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/cart/items", token,
		map[string]interface{}{"product_id": productID, "quantity": 1}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/orders", token, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeEnvelope(t, resp)
	order, _ := data["order"].(map[string]interface{})
	orderNumber, _ := order["order_number"].(string)
	assert.NotEmpty(t, orderNumber)

	// The method names match the checkout constants, capitalized.
	resp, err = app.Test(jsonRequest(http.MethodPut, "/api/v1/orders/"+orderNumber+"/payment-status", token,
		map[string]interface{}{"status": "Completed", "payment_method": models.MethodMpesa}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data = decodeEnvelope(t, resp)
	order, _ = data["order"].(map[string]interface{})
	assert.Equal(t, models.PaymentPaid, order["payment_status"])
	assert.Equal(t, models.MethodMpesa, order["payment_method"])

	resp, err = app.Test(jsonRequest(http.MethodPut, "/api/v1/orders/"+orderNumber+"/payment-status", token,
		map[string]interface{}{"status": "Completed", "payment_method": "mpesa"}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestProtectedEndpointsWithoutAuth(t *testing.T) {
	app, _, err := setupApp()
	assert.NoError(t, err)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/products"},
		{http.MethodGet, "/api/v1/cart"},
		{http.MethodPost, "/api/v1/orders"},
		{http.MethodPost, "/api/v1/payments/pay"},
		{http.MethodPost, "/api/v1/travelers/products/claim"},
	}
	for _, p := range paths {
		resp, err := app.Test(jsonRequest(p.method, p.path, "", nil), -1)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", p.method, p.path)
		resp.Body.Close()
	}

	// Provider webhooks stay reachable without a token
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/payments/mpesa/callback", "", map[string]interface{}{
		"Body": map[string]interface{}{
			"stkCallback": map[string]interface{}{
				"CheckoutRequestID": "unknown-ref",
				"ResultCode":        0,
			},
		},
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
