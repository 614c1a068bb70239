package gateways

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nexus/internal/apperr"
	"nexus/internal/models"
)

// MpesaConfig holds Daraja API credentials and endpoints.
type MpesaConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	BaseURL        string
	CallbackURL    string
	Timeout        time.Duration
}

// Mpesa implements Gateway for Safaricom M-Pesa STK push payments.
type Mpesa struct {
	cfg    MpesaConfig
	client *http.Client
}

// NewMpesa creates a new M-Pesa gateway adapter.
func NewMpesa(cfg MpesaConfig) *Mpesa {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Mpesa{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the payment method name this gateway serves.
func (m *Mpesa) Name() string {
	return models.MethodMpesa
}

// token obtains an OAuth access token via the client-credentials flow.
func (m *Mpesa) token(ctx context.Context) (string, error) {
	url := m.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build mpesa token request: %w", err)
	}
	req.SetBasicAuth(m.cfg.ConsumerKey, m.cfg.ConsumerSecret)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mpesa token request failed: %w: %v", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body := drainBody(resp)
	if resp.StatusCode != http.StatusOK {
		return "", upstreamErr("mpesa", resp, body)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal([]byte(body), &tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode mpesa token response: %w", err)
	}
	return tokenResp.AccessToken, nil
}

// stkPassword derives the STK push password for the given timestamp.
func (m *Mpesa) stkPassword(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(m.cfg.ShortCode + m.cfg.Passkey + timestamp))
}

// Initiate sends an STK push to the payer's phone. The returned reference is
// the CheckoutRequestID; the final outcome arrives on the callback URL.
func (m *Mpesa) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	token, err := m.token(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format("20060102150405")
	payload := map[string]interface{}{
		"BusinessShortCode": m.cfg.ShortCode,
		"Password":          m.stkPassword(timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            int(models.Round2(req.Amount)),
		"PartyA":            req.PhoneNumber,
		"PartyB":            m.cfg.ShortCode,
		"PhoneNumber":       req.PhoneNumber,
		"CallBackURL":       m.cfg.CallbackURL,
		"AccountReference":  req.OrderNumber,
		"TransactionDesc":   "Nexus order " + req.OrderNumber,
	}

	body, err := m.post(ctx, "/mpesa/stkpush/v1/processrequest", token, payload)
	if err != nil {
		return nil, err
	}

	var stkResp struct {
		CheckoutRequestID string `json:"CheckoutRequestID"`
		ResponseCode      string `json:"ResponseCode"`
		ResponseDesc      string `json:"ResponseDescription"`
	}
	if err := json.Unmarshal([]byte(body), &stkResp); err != nil {
		return nil, fmt.Errorf("failed to decode mpesa stk response: %w", err)
	}
	if stkResp.ResponseCode != "0" {
		return nil, fmt.Errorf("mpesa rejected stk push (%s): %s: %w",
			stkResp.ResponseCode, stkResp.ResponseDesc, apperr.ErrUpstream)
	}

	return &InitiateResult{
		Reference: stkResp.CheckoutRequestID,
		Status:    models.PaymentPending,
		Raw:       body,
	}, nil
}

// Verify queries the STK push status by CheckoutRequestID.
func (m *Mpesa) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	token, err := m.token(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format("20060102150405")
	payload := map[string]interface{}{
		"BusinessShortCode": m.cfg.ShortCode,
		"Password":          m.stkPassword(timestamp),
		"Timestamp":         timestamp,
		"CheckoutRequestID": reference,
	}

	body, err := m.post(ctx, "/mpesa/stkpushquery/v1/query", token, payload)
	if err != nil {
		return nil, err
	}

	var queryResp struct {
		ResultCode string `json:"ResultCode"`
	}
	if err := json.Unmarshal([]byte(body), &queryResp); err != nil {
		return nil, fmt.Errorf("failed to decode mpesa query response: %w", err)
	}

	status := models.PaymentPending
	switch queryResp.ResultCode {
	case "0":
		status = models.PaymentPaid
	case "":
		// Query responses without a result code mean the push is still
		// waiting on the payer.
	default:
		status = models.PaymentFailed
	}

	return &VerifyResult{Reference: reference, Status: status, Raw: body}, nil
}

func (m *Mpesa) post(ctx context.Context, path string, token string, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal mpesa payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build mpesa request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mpesa request failed: %w: %v", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body := drainBody(resp)
	if resp.StatusCode != http.StatusOK {
		return "", upstreamErr("mpesa", resp, body)
	}
	return body, nil
}
