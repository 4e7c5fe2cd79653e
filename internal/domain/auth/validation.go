package auth

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a ticket validation did not produce a principal.
// Callers use it to decide between recovery, retry and hard failure.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureTicketInvalid covers expired, forged, replayed or mismatched-service tickets.
	FailureTicketInvalid
	// FailureServerUnreachable covers network errors, timeouts and CAS server errors. Retryable.
	FailureServerUnreachable
	// FailureMalformedResponse covers protocol violations in the server reply.
	FailureMalformedResponse
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureTicketInvalid:
		return "ticket_invalid"
	case FailureServerUnreachable:
		return "server_unreachable"
	case FailureMalformedResponse:
		return "malformed_response"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

var (
	ErrTicketInvalid      = errors.New("cas ticket invalid")
	ErrServerUnreachable  = errors.New("cas server unreachable")
	ErrMalformedResponse  = errors.New("cas response malformed")
	ErrUnauthorized       = errors.New("insufficient capability")
	errUnknownFailureKind = errors.New("cas validation failed")
)

// ValidationError is the error form of a failed ValidationResult.
type ValidationError struct {
	Kind   FailureKind
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.sentinel().Error(), e.Reason)
}

// Unwrap exposes the sentinel for the failure kind so errors.Is works.
func (e *ValidationError) Unwrap() error { return e.sentinel() }

func (e *ValidationError) sentinel() error {
	switch e.Kind {
	case FailureTicketInvalid:
		return ErrTicketInvalid
	case FailureServerUnreachable:
		return ErrServerUnreachable
	case FailureMalformedResponse:
		return ErrMalformedResponse
	default:
		return errUnknownFailureKind
	}
}

// ValidationResult is either Success(principal) or Failure(kind, reason).
type ValidationResult struct {
	Principal Principal
	Failure   FailureKind
	Reason    string
}

// Succeeded builds a successful result.
func Succeeded(p Principal) ValidationResult {
	return ValidationResult{Principal: p}
}

// Failed builds a failed result. FailureNone is coerced to MalformedResponse
// so a failure can never be mistaken for success.
func Failed(kind FailureKind, reason string) ValidationResult {
	if kind == FailureNone {
		kind = FailureMalformedResponse
	}
	return ValidationResult{Failure: kind, Reason: reason}
}

// OK reports whether validation produced a principal.
func (r ValidationResult) OK() bool {
	return r.Failure == FailureNone && r.Principal.User != ""
}

// Err returns nil on success, or a *ValidationError describing the failure.
func (r ValidationResult) Err() error {
	if r.OK() {
		return nil
	}
	kind := r.Failure
	reason := r.Reason
	if kind == FailureNone {
		kind = FailureMalformedResponse
		reason = "empty principal"
	}
	return &ValidationError{Kind: kind, Reason: reason}
}

// FailureKindOf extracts the failure kind from err, or FailureNone.
func FailureKindOf(err error) FailureKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return FailureNone
}
