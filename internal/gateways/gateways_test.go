package gateways_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"nexus/internal/apperr"
	"nexus/internal/gateways"
	"nexus/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	registry := gateways.NewRegistry(
		gateways.NewMpesa(gateways.MpesaConfig{}),
		gateways.NewPaystack(gateways.PaystackConfig{}),
	)

	gw, err := registry.Get(models.MethodMpesa)
	assert.NoError(t, err)
	assert.Equal(t, models.MethodMpesa, gw.Name())

	_, err = registry.Get("Cash")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestMpesa_Initiate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "key", user)
			assert.Equal(t, "secret", pass)
			json.NewEncoder(w).Encode(map[string]string{"access_token": "token-1"})
		case "/mpesa/stkpush/v1/processrequest":
			assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
			var payload map[string]interface{}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "254700000001", payload["PhoneNumber"])
			assert.Equal(t, "ORD-AB12CD34", payload["AccountReference"])
			assert.NotEmpty(t, payload["Password"])
			json.NewEncoder(w).Encode(map[string]string{
				"CheckoutRequestID":   "ws_CO_271120",
				"ResponseCode":        "0",
				"ResponseDescription": "Success. Request accepted for processing",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	gw := gateways.NewMpesa(gateways.MpesaConfig{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		Passkey:        "passkey",
		BaseURL:        server.URL,
	})

	result, err := gw.Initiate(context.Background(), gateways.InitiateRequest{
		OrderNumber: "ORD-AB12CD34",
		Amount:      115.00,
		PhoneNumber: "254700000001",
	})
	assert.NoError(t, err)
	assert.Equal(t, "ws_CO_271120", result.Reference)
	assert.Equal(t, models.PaymentPending, result.Status)
}

func TestMpesa_Initiate_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "token-1"})
		default:
			json.NewEncoder(w).Encode(map[string]string{
				"ResponseCode":        "1",
				"ResponseDescription": "Insufficient balance on the short code",
			})
		}
	}))
	defer server.Close()

	gw := gateways.NewMpesa(gateways.MpesaConfig{BaseURL: server.URL})

	_, err := gw.Initiate(context.Background(), gateways.InitiateRequest{Amount: 10.00})
	assert.True(t, errors.Is(err, apperr.ErrUpstream))
}

func TestMpesa_Verify(t *testing.T) {
	resultCode := "0"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "token-1"})
		case "/mpesa/stkpushquery/v1/query":
			json.NewEncoder(w).Encode(map[string]string{"ResultCode": resultCode})
		}
	}))
	defer server.Close()

	gw := gateways.NewMpesa(gateways.MpesaConfig{BaseURL: server.URL})

	result, err := gw.Verify(context.Background(), "ws_CO_271120")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, result.Status)

	resultCode = "1032" // cancelled by user
	result, err = gw.Verify(context.Background(), "ws_CO_271120")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, result.Status)
}

func TestMpesa_TokenFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	gw := gateways.NewMpesa(gateways.MpesaConfig{BaseURL: server.URL})

	_, err := gw.Initiate(context.Background(), gateways.InitiateRequest{Amount: 10.00})
	assert.True(t, errors.Is(err, apperr.ErrUpstream))
}

func TestAirtel_InitiateAndVerify(t *testing.T) {
	status := "TS"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/oauth2/token":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "airtel-token"})
		case r.URL.Path == "/merchant/v1/payments/":
			assert.Equal(t, "Bearer airtel-token", r.Header.Get("Authorization"))
			assert.Equal(t, "KE", r.Header.Get("X-Country"))
			assert.Equal(t, "KES", r.Header.Get("X-Currency"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": map[string]bool{"success": true},
			})
		default:
			// /standard/v1/payments/<id>
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"transaction": map[string]string{"status": status},
				},
			})
		}
	}))
	defer server.Close()

	gw := gateways.NewAirtel(gateways.AirtelConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		BaseURL:      server.URL,
	})

	result, err := gw.Initiate(context.Background(), gateways.InitiateRequest{
		OrderNumber: "ORD-AB12CD34",
		Amount:      115.00,
		PhoneNumber: "254730000001",
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, result.Reference)
	assert.Equal(t, models.PaymentPending, result.Status)

	verify, err := gw.Verify(context.Background(), result.Reference)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, verify.Status)

	status = "TF"
	verify, err = gw.Verify(context.Background(), result.Reference)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, verify.Status)
}

func TestStripe_Initiate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "11500", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "pm_card_visa", r.PostForm.Get("payment_method"))
		assert.Equal(t, "true", r.PostForm.Get("confirm"))
		json.NewEncoder(w).Encode(map[string]string{
			"id":            "pi_123",
			"status":        "succeeded",
			"client_secret": "pi_123_secret",
		})
	}))
	defer server.Close()

	gw := gateways.NewStripe(gateways.StripeConfig{
		SecretKey: "sk_test_123",
		BaseURL:   server.URL,
	})

	result, err := gw.Initiate(context.Background(), gateways.InitiateRequest{
		OrderNumber:     "ORD-AB12CD34",
		Amount:          115.00,
		PaymentMethodID: "pm_card_visa",
	})
	assert.NoError(t, err)
	assert.Equal(t, "pi_123", result.Reference)
	assert.Equal(t, models.PaymentPaid, result.Status)
	assert.Equal(t, "pi_123_secret", result.ClientSecret)
}

func TestStripe_Verify_StatusMapping(t *testing.T) {
	status := "processing"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents/pi_123", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}))
	defer server.Close()

	gw := gateways.NewStripe(gateways.StripeConfig{BaseURL: server.URL})

	result, err := gw.Verify(context.Background(), "pi_123")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPending, result.Status)

	status = "canceled"
	result, err = gw.Verify(context.Background(), "pi_123")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, result.Status)
}

func TestPaystack_Initiate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_live_x", r.Header.Get("Authorization"))
		var payload map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "user@example.com", payload["email"])
		assert.Equal(t, float64(11500), payload["amount"])
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": true,
			"data": map[string]string{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"reference":         "ps_ref_1",
			},
		})
	}))
	defer server.Close()

	gw := gateways.NewPaystack(gateways.PaystackConfig{
		SecretKey: "sk_live_x",
		BaseURL:   server.URL,
	})

	result, err := gw.Initiate(context.Background(), gateways.InitiateRequest{
		OrderNumber: "ORD-AB12CD34",
		Amount:      115.00,
		Email:       "user@example.com",
	})
	assert.NoError(t, err)
	assert.Equal(t, "ps_ref_1", result.Reference)
	assert.Equal(t, "https://checkout.paystack.com/abc123", result.AuthorizationURL)
	// Paystack initiation never reports a terminal status.
	assert.Equal(t, models.PaymentPending, result.Status)
}

func TestPaystack_Verify_StatusMapping(t *testing.T) {
	status := "success"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/ps_ref_1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"status": status},
		})
	}))
	defer server.Close()

	gw := gateways.NewPaystack(gateways.PaystackConfig{BaseURL: server.URL})

	result, err := gw.Verify(context.Background(), "ps_ref_1")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, result.Status)

	status = "abandoned"
	result, err = gw.Verify(context.Background(), "ps_ref_1")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, result.Status)
}
