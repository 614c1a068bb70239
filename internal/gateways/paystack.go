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
)

// PaystackConfig holds the Paystack secret key and endpoint.
type PaystackConfig struct {
	SecretKey string
	BaseURL   string
	Currency  string
	Timeout   time.Duration
}

// Paystack implements Gateway using transaction initialize + verify.
type Paystack struct {
	cfg    PaystackConfig
	client *http.Client
}

// NewPaystack creates a new Paystack gateway adapter.
func NewPaystack(cfg PaystackConfig) *Paystack {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.paystack.co"
	}
	if cfg.Currency == "" {
		cfg.Currency = "KES"
	}
	return &Paystack{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the payment method name this gateway serves.
func (p *Paystack) Name() string {
	return models.MethodPaystack
}

// Initiate initializes a transaction and returns the authorization URL the
// payer is redirected to. The result status is always Pending: only Verify
// may report a terminal outcome.
func (p *Paystack) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	payload := map[string]interface{}{
		"email":    req.Email,
		"amount":   int64(models.Round2(req.Amount) * 100), // subunits
		"currency": p.cfg.Currency,
		"metadata": map[string]string{"order_number": req.OrderNumber},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal paystack payload: %w", err)
	}

	body, err := p.do(ctx, http.MethodPost, "/transaction/initialize", data)
	if err != nil {
		return nil, err
	}

	var initResp struct {
		Status bool `json:"status"`
		Data   struct {
			AuthorizationURL string `json:"authorization_url"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &initResp); err != nil {
		return nil, fmt.Errorf("failed to decode paystack response: %w", err)
	}
	if !initResp.Status {
		return nil, fmt.Errorf("paystack rejected transaction initialize: %w", apperr.ErrUpstream)
	}

	return &InitiateResult{
		Reference:        initResp.Data.Reference,
		Status:           models.PaymentPending,
		AuthorizationURL: initResp.Data.AuthorizationURL,
		Raw:              body,
	}, nil
}

// Verify fetches the transaction's outcome by reference.
func (p *Paystack) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	body, err := p.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}

	var verifyResp struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &verifyResp); err != nil {
		return nil, fmt.Errorf("failed to decode paystack verify response: %w", err)
	}

	return &VerifyResult{
		Reference: reference,
		Status:    paystackStatus(verifyResp.Data.Status),
		Raw:       body,
	}, nil
}

func (p *Paystack) do(ctx context.Context, method, path string, data []byte) (string, error) {
	var reqBody *bytes.Reader
	if data != nil {
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to build paystack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("paystack request failed: %w: %v", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body := drainBody(resp)
	if resp.StatusCode != http.StatusOK {
		return "", upstreamErr("paystack", resp, body)
	}
	return body, nil
}

// paystackStatus maps Paystack transaction statuses to payment statuses.
func paystackStatus(status string) string {
	switch status {
	case "success":
		return models.PaymentPaid
	case "failed", "abandoned", "reversed":
		return models.PaymentFailed
	default:
		return models.PaymentPending
	}
}
