package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nexus/internal/apperr"
	"nexus/internal/models"
)

// StripeConfig holds the Stripe secret key and endpoint.
type StripeConfig struct {
	SecretKey string
	BaseURL   string
	Currency  string
	Timeout   time.Duration
}

// Stripe implements Gateway using PaymentIntents with immediate confirmation.
type Stripe struct {
	cfg    StripeConfig
	client *http.Client
}

// NewStripe creates a new Stripe gateway adapter.
func NewStripe(cfg StripeConfig) *Stripe {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stripe.com"
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Stripe{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the payment method name this gateway serves.
func (s *Stripe) Name() string {
	return models.MethodStripe
}

// Initiate creates and confirms a PaymentIntent. Card payments usually settle
// synchronously, so the immediate status may already be terminal; the caller
// still treats verification as the source of truth.
func (s *Stripe) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(int64(models.Round2(req.Amount)*100), 10))
	form.Set("currency", s.cfg.Currency)
	form.Set("payment_method", req.PaymentMethodID)
	form.Set("confirm", "true")
	form.Set("description", "Nexus order "+req.OrderNumber)

	body, err := s.do(ctx, http.MethodPost, "/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	var intent struct {
		ID           string `json:"id"`
		Status       string `json:"status"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.Unmarshal([]byte(body), &intent); err != nil {
		return nil, fmt.Errorf("failed to decode stripe response: %w", err)
	}

	return &InitiateResult{
		Reference:    intent.ID,
		Status:       stripeStatus(intent.Status),
		ClientSecret: intent.ClientSecret,
		Raw:          body,
	}, nil
}

// Verify fetches the PaymentIntent's current status.
func (s *Stripe) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	body, err := s.do(ctx, http.MethodGet, "/v1/payment_intents/"+reference, nil)
	if err != nil {
		return nil, err
	}

	var intent struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(body), &intent); err != nil {
		return nil, fmt.Errorf("failed to decode stripe verify response: %w", err)
	}

	return &VerifyResult{
		Reference: reference,
		Status:    stripeStatus(intent.Status),
		Raw:       body,
	}, nil
}

func (s *Stripe) do(ctx context.Context, method, path string, body *strings.Reader) (string, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, s.cfg.BaseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, s.cfg.BaseURL+path, nil)
	}
	if err != nil {
		return "", fmt.Errorf("failed to build stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.SecretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("stripe request failed: %w: %v", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody := drainBody(resp)
	if resp.StatusCode != http.StatusOK {
		return "", upstreamErr("stripe", resp, respBody)
	}
	return respBody, nil
}

// stripeStatus maps PaymentIntent statuses to payment statuses.
func stripeStatus(status string) string {
	switch status {
	case "succeeded":
		return models.PaymentPaid
	case "canceled":
		return models.PaymentFailed
	default:
		// requires_action, requires_confirmation, processing, etc.
		return models.PaymentPending
	}
}
