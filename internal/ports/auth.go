package ports

// Package ports defines interfaces (hexagonal ports) for CAS auth behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/target/casgate/internal/domain/auth"
)

// ErrSessionNotFound is returned (possibly wrapped) by SessionStore.Get when no
// usable session exists for the ID.
var ErrSessionNotFound = errors.New("session not found")

// TicketValidator exchanges a CAS service ticket for a principal.
// Failures are reported in the result, never as a Go error.
type TicketValidator interface {
	Validate(ctx context.Context, serviceURL, ticket string) domainauth.ValidationResult
}

// LoginURLBuilder produces redirect targets on the CAS server.
type LoginURLBuilder interface {
	LoginURL(serviceURL string) (string, error)
	LogoutURL(returnURL string) (string, error)
}

// CASClient is the combined validator and URL builder used by the auth service.
type CASClient interface {
	TicketValidator
	LoginURLBuilder
}

// SessionStore persists and retrieves user sessions.
// Get must treat an expired record as absent and remove it.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// CapabilityMapper derives capabilities from a validated principal.
type CapabilityMapper interface {
	Capabilities(p domainauth.Principal) []domainauth.Capability
}

// TicketLedger records consumed tickets. Claim returns true only for the first use.
type TicketLedger interface {
	Claim(ctx context.Context, ticket string, ttl time.Duration) (bool, error)
}

// RetryMarkers holds short-lived markers bounding recovery redirects.
// Mark returns true when the marker did not exist and was created.
type RetryMarkers interface {
	Mark(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
