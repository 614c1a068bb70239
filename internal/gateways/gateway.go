package gateways

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"nexus/internal/apperr"
)

// InitiateRequest carries the method-specific fields a provider needs to
// start a payment. Unused fields are left empty by the caller.
type InitiateRequest struct {
	OrderNumber     string
	Amount          float64
	Currency        string
	PhoneNumber     string // Mpesa, Airtel
	Email           string // Paystack
	PaymentMethodID string // Stripe
}

// InitiateResult is the provider's immediate response to a payment
// initiation. Reference is the provider-assigned id used to reconcile the
// eventual callback; Status reflects only what the provider reported
// synchronously and is never treated as final.
type InitiateResult struct {
	Reference        string
	Status           string
	AuthorizationURL string // Paystack redirect
	ClientSecret     string // Stripe client-side confirmation
	Raw              string
}

// VerifyResult is the outcome of polling a provider for a transaction's
// current state.
type VerifyResult struct {
	Reference string
	Status    string
	Raw       string
}

// Gateway is implemented once per payment provider.
type Gateway interface {
	Name() string
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

// Registry maps payment method names to their gateway adapters.
type Registry struct {
	gateways map[string]Gateway
}

// NewRegistry creates a registry from the given gateways.
func NewRegistry(gws ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gws))}
	for _, gw := range gws {
		r.gateways[gw.Name()] = gw
	}
	return r
}

// Get returns the gateway for a payment method name.
func (r *Registry) Get(name string) (Gateway, error) {
	gw, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("unsupported payment method %q: %w", name, apperr.ErrValidation)
	}
	return gw, nil
}

// drainBody reads the response body for logging/reconciliation, truncating
// oversized payloads.
func drainBody(resp *http.Response) string {
	const maxBody = 64 << 10
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return ""
	}
	return string(body)
}

// upstreamErr wraps a non-2xx provider response. The body is kept for server
// logs; handlers surface only a sanitized message.
func upstreamErr(provider string, resp *http.Response, body string) error {
	return fmt.Errorf("%s returned HTTP %d: %s: %w",
		provider, resp.StatusCode, strings.TrimSpace(body), apperr.ErrUpstream)
}
