package services_test

import (
	"context"
	"errors"
	"testing"

	"nexus/internal/apperr"
	"nexus/internal/gateways"
	"nexus/internal/models"
	"nexus/internal/repositories"
	"nexus/internal/services"

	"github.com/stretchr/testify/assert"
)

// stubGateway is a scriptable Gateway for checkout tests.
type stubGateway struct {
	name           string
	initiateResult *gateways.InitiateResult
	initiateErr    error
	verifyResult   *gateways.VerifyResult
	verifyErr      error
}

func (g *stubGateway) Name() string { return g.name }

func (g *stubGateway) Initiate(ctx context.Context, req gateways.InitiateRequest) (*gateways.InitiateResult, error) {
	return g.initiateResult, g.initiateErr
}

func (g *stubGateway) Verify(ctx context.Context, reference string) (*gateways.VerifyResult, error) {
	return g.verifyResult, g.verifyErr
}

type checkoutFixture struct {
	service  *services.CheckoutService
	orders   *repositories.MockOrderRepository
	carts    *repositories.MockCartRepository
	products *repositories.MockProductRepository
	logs     *repositories.MockPaymentLogRepository
}

func newCheckoutFixture(gws ...gateways.Gateway) *checkoutFixture {
	orderRepo := repositories.NewMockOrderRepository()
	productRepo := repositories.NewMockProductRepository()
	cartRepo := repositories.NewMockCartRepository()
	travelerRepo := repositories.NewMockTravelerRepository()
	logRepo := repositories.NewMockPaymentLogRepository()

	orderService := services.NewOrderService(orderRepo, productRepo, cartRepo, travelerRepo, nil)
	service := services.NewCheckoutService(
		orderService, orderRepo, cartRepo, productRepo, logRepo, gateways.NewRegistry(gws...))

	return &checkoutFixture{
		service:  service,
		orders:   orderRepo,
		carts:    cartRepo,
		products: productRepo,
		logs:     logRepo,
	}
}

func TestCheckoutService_Checkout_MobileMoneyStaysPending(t *testing.T) {
	gw := &stubGateway{
		name: models.MethodMpesa,
		initiateResult: &gateways.InitiateResult{
			Reference: "ws_CO_123",
			Status:    models.PaymentPending,
		},
	}
	f := newCheckoutFixture(gw)

	product := seedProduct(t, f.products, "client-1", 100.00)
	fillCart(t, f.carts, "user-1", product.ID, 1)

	result, err := f.service.Checkout(context.Background(), "user-1", services.CheckoutRequest{
		PaymentMethod: models.MethodMpesa,
		Amount:        115.00,
		PhoneNumber:   "254700000001",
	})
	assert.NoError(t, err)
	assert.Equal(t, "ws_CO_123", result.TransactionID)
	assert.Equal(t, models.PaymentPending, result.PaymentStatus)

	// The attempt is logged Pending with the order's amount.
	paymentLog, err := f.logs.GetByReference("ws_CO_123")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPending, paymentLog.Status)
	assert.Equal(t, models.MethodMpesa, paymentLog.Provider)
	assert.Equal(t, 115.00, paymentLog.Amount)

	order, err := f.orders.GetByOrderNumber(result.OrderNumber)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.Equal(t, models.MethodMpesa, order.PaymentMethod)
}

func TestCheckoutService_Checkout_AmountMismatch(t *testing.T) {
	gw := &stubGateway{name: models.MethodMpesa}
	f := newCheckoutFixture(gw)

	product := seedProduct(t, f.products, "client-1", 100.00)
	fillCart(t, f.carts, "user-1", product.ID, 1)

	_, err := f.service.Checkout(context.Background(), "user-1", services.CheckoutRequest{
		PaymentMethod: models.MethodMpesa,
		Amount:        90.00, // cart total is 115.00
	})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	// The mismatch is caught before any order exists.
	cart, err := f.carts.GetByUserID("user-1")
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestCheckoutService_Checkout_UnknownMethod(t *testing.T) {
	f := newCheckoutFixture(&stubGateway{name: models.MethodMpesa})

	_, err := f.service.Checkout(context.Background(), "user-1", services.CheckoutRequest{
		PaymentMethod: "Cash",
		Amount:        10.00,
	})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestCheckoutService_Checkout_ImmediatePaidOutcome(t *testing.T) {
	gw := &stubGateway{
		name: models.MethodStripe,
		initiateResult: &gateways.InitiateResult{
			Reference:    "pi_123",
			Status:       models.PaymentPaid,
			ClientSecret: "pi_123_secret",
		},
	}
	f := newCheckoutFixture(gw)

	product := seedProduct(t, f.products, "client-1", 100.00)
	fillCart(t, f.carts, "user-1", product.ID, 1)

	result, err := f.service.Checkout(context.Background(), "user-1", services.CheckoutRequest{
		PaymentMethod:   models.MethodStripe,
		Amount:          115.00,
		PaymentMethodID: "pm_card_visa",
	})
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, result.PaymentStatus)
	assert.Equal(t, "pi_123_secret", result.ClientSecret)

	order, err := f.orders.GetByOrderNumber(result.OrderNumber)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)
}

func TestCheckoutService_HandleCallback_PaidClearsCart(t *testing.T) {
	gw := &stubGateway{
		name: models.MethodMpesa,
		initiateResult: &gateways.InitiateResult{
			Reference: "ws_CO_456",
			Status:    models.PaymentPending,
		},
	}
	f := newCheckoutFixture(gw)

	product := seedProduct(t, f.products, "client-1", 100.00)
	fillCart(t, f.carts, "user-1", product.ID, 1)

	result, err := f.service.Checkout(context.Background(), "user-1", services.CheckoutRequest{
		PaymentMethod: models.MethodMpesa,
		Amount:        115.00,
		PhoneNumber:   "254700000001",
	})
	assert.NoError(t, err)

	// Simulate items put back in the cart while payment was in flight.
	fillCart(t, f.carts, "user-1", product.ID, 3)

	assert.NoError(t, f.service.HandleCallback("ws_CO_456", models.PaymentPaid, `{"ResultCode":0}`))

	order, err := f.orders.GetByOrderNumber(result.OrderNumber)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)

	paymentLog, err := f.logs.GetByReference("ws_CO_456")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paymentLog.Status)
	assert.Equal(t, `{"ResultCode":0}`, paymentLog.RawResponse)

	cart, err := f.carts.GetByUserID("user-1")
	assert.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCheckoutService_HandleCallback_UnknownReference(t *testing.T) {
	f := newCheckoutFixture(&stubGateway{name: models.MethodMpesa})

	err := f.service.HandleCallback("no-such-reference", models.PaymentPaid, "")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCheckoutService_HandleCallback_PaidNeverRegresses(t *testing.T) {
	gw := &stubGateway{
		name: models.MethodMpesa,
		initiateResult: &gateways.InitiateResult{
			Reference: "ws_CO_789",
			Status:    models.PaymentPending,
		},
	}
	f := newCheckoutFixture(gw)

	product := seedProduct(t, f.products, "client-1", 100.00)
	fillCart(t, f.carts, "user-1", product.ID, 1)

	result, err := f.service.Checkout(context.Background(), "user-1", services.CheckoutRequest{
		PaymentMethod: models.MethodMpesa,
		Amount:        115.00,
	})
	assert.NoError(t, err)

	assert.NoError(t, f.service.HandleCallback("ws_CO_789", models.PaymentPaid, ""))
	// A late or replayed failure callback must not undo a confirmed payment.
	assert.NoError(t, f.service.HandleCallback("ws_CO_789", models.PaymentFailed, ""))

	order, err := f.orders.GetByOrderNumber(result.OrderNumber)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)

	// The log keeps the confirmed status as well.
	paymentLog, err := f.logs.GetByReference("ws_CO_789")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paymentLog.Status)
}

func TestCheckoutService_HandleCallback_UnknownStatus(t *testing.T) {
	gw := &stubGateway{
		name: models.MethodMpesa,
		initiateResult: &gateways.InitiateResult{
			Reference: "ws_CO_999",
			Status:    models.PaymentPending,
		},
	}
	f := newCheckoutFixture(gw)

	product := seedProduct(t, f.products, "client-1", 100.00)
	fillCart(t, f.carts, "user-1", product.ID, 1)

	_, err := f.service.Checkout(context.Background(), "user-1", services.CheckoutRequest{
		PaymentMethod: models.MethodMpesa,
		Amount:        115.00,
	})
	assert.NoError(t, err)

	err = f.service.HandleCallback("ws_CO_999", "Voided", "")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestCheckoutService_VerifyPayment(t *testing.T) {
	gw := &stubGateway{
		name: models.MethodPaystack,
		initiateResult: &gateways.InitiateResult{
			Reference:        "ps_ref_1",
			Status:           models.PaymentPending,
			AuthorizationURL: "https://checkout.paystack.com/ps_ref_1",
		},
		verifyResult: &gateways.VerifyResult{
			Reference: "ps_ref_1",
			Status:    models.PaymentPaid,
			Raw:       `{"data":{"status":"success"}}`,
		},
	}
	f := newCheckoutFixture(gw)

	product := seedProduct(t, f.products, "client-1", 100.00)
	fillCart(t, f.carts, "user-1", product.ID, 1)

	result, err := f.service.Checkout(context.Background(), "user-1", services.CheckoutRequest{
		PaymentMethod: models.MethodPaystack,
		Amount:        115.00,
		Email:         "user@example.com",
	})
	assert.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/ps_ref_1", result.AuthorizationURL)

	paymentLog, err := f.service.VerifyPayment(context.Background(), models.MethodPaystack, "ps_ref_1")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paymentLog.Status)

	order, err := f.orders.GetByOrderNumber(result.OrderNumber)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)
}
