package apperr

import "errors"

// Sentinel errors for the application's failure taxonomy. Services wrap these
// with fmt.Errorf("...: %w", ...) so handlers can map them to HTTP statuses
// with errors.Is while keeping the human-readable context.
var (
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a referenced entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates the caller could not be authenticated.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the caller is not the owner of the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates the operation lost to a competing write
	// (e.g. a product already claimed by another traveler).
	ErrConflict = errors.New("conflict")
	// ErrInvalidState indicates the operation is not valid for the entity's
	// current state (e.g. releasing a payment that is not in escrow).
	ErrInvalidState = errors.New("invalid state")
	// ErrUpstream indicates a payment provider call failed.
	ErrUpstream = errors.New("upstream provider error")
)
