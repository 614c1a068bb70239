package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nexus/internal/apperr"
	"nexus/internal/models"

	"github.com/google/uuid"
)

// AirtelConfig holds Airtel Money API credentials and endpoints.
type AirtelConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	Country      string
	Currency     string
	Timeout      time.Duration
}

// Airtel implements Gateway for Airtel Money collection payments.
type Airtel struct {
	cfg    AirtelConfig
	client *http.Client
}

// NewAirtel creates a new Airtel Money gateway adapter.
func NewAirtel(cfg AirtelConfig) *Airtel {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Country == "" {
		cfg.Country = "KE"
	}
	if cfg.Currency == "" {
		cfg.Currency = "KES"
	}
	return &Airtel{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the payment method name this gateway serves.
func (a *Airtel) Name() string {
	return models.MethodAirtel
}

// token obtains an OAuth access token via the client-credentials flow.
func (a *Airtel) token(ctx context.Context) (string, error) {
	payload := map[string]string{
		"client_id":     a.cfg.ClientID,
		"client_secret": a.cfg.ClientSecret,
		"grant_type":    "client_credentials",
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal airtel token payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.BaseURL+"/auth/oauth2/token", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build airtel token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("airtel token request failed: %w: %v", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body := drainBody(resp)
	if resp.StatusCode != http.StatusOK {
		return "", upstreamErr("airtel", resp, body)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal([]byte(body), &tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode airtel token response: %w", err)
	}
	return tokenResp.AccessToken, nil
}

// Initiate requests a payment from the subscriber's wallet. Airtel requires a
// merchant-generated transaction id, which doubles as our reference.
func (a *Airtel) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	token, err := a.token(ctx)
	if err != nil {
		return nil, err
	}

	reference := uuid.New().String()
	payload := map[string]interface{}{
		"reference": req.OrderNumber,
		"subscriber": map[string]string{
			"country":  a.cfg.Country,
			"currency": a.cfg.Currency,
			"msisdn":   req.PhoneNumber,
		},
		"transaction": map[string]interface{}{
			"amount":   models.Round2(req.Amount),
			"country":  a.cfg.Country,
			"currency": a.cfg.Currency,
			"id":       reference,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal airtel payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.BaseURL+"/merchant/v1/payments/", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build airtel request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Country", a.cfg.Country)
	httpReq.Header.Set("X-Currency", a.cfg.Currency)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("airtel request failed: %w: %v", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body := drainBody(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, upstreamErr("airtel", resp, body)
	}

	return &InitiateResult{
		Reference: reference,
		Status:    models.PaymentPending,
		Raw:       body,
	}, nil
}

// Verify polls the payment's status by transaction id.
func (a *Airtel) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	token, err := a.token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.cfg.BaseURL+"/standard/v1/payments/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build airtel verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Country", a.cfg.Country)
	req.Header.Set("X-Currency", a.cfg.Currency)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("airtel verify request failed: %w: %v", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body := drainBody(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, upstreamErr("airtel", resp, body)
	}

	var verifyResp struct {
		Data struct {
			Transaction struct {
				Status string `json:"status"`
			} `json:"transaction"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &verifyResp); err != nil {
		return nil, fmt.Errorf("failed to decode airtel verify response: %w", err)
	}

	return &VerifyResult{
		Reference: reference,
		Status:    airtelStatus(verifyResp.Data.Transaction.Status),
		Raw:       body,
	}, nil
}

// airtelStatus maps Airtel transaction status codes (TS: success, TF: failed)
// to payment statuses.
func airtelStatus(code string) string {
	switch code {
	case "TS", "SUCCESS":
		return models.PaymentPaid
	case "TF", "FAILED":
		return models.PaymentFailed
	default:
		return models.PaymentPending
	}
}
