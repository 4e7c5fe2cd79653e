package auth

// Package auth contains domain-level types for CAS authentication, sessions and gating.
// It is pure and free of framework/adapter concerns.

import (
	"slices"
	"time"
)

// Capability is an authorization flag required to access a protected route.
// The zero value means "any authenticated session".
type Capability string

const (
	CapabilityStaff     Capability = "staff"
	CapabilitySuperuser Capability = "superuser"
)

// Principal is the authenticated identity produced by a successful ticket validation.
type Principal struct {
	User            string
	Attributes      map[string][]string
	MemberOf        []string
	AuthenticatedAt time.Time
}

// Attribute returns the first value of the named attribute, or "".
func (p Principal) Attribute(name string) string {
	if v := p.Attributes[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier.
type Session struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	Attributes   map[string][]string `json:"attributes,omitempty"`
	Capabilities []Capability        `json:"capabilities,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	ExpiresAt    time.Time           `json:"expires_at"`
}

// Expired reports whether the session is no longer usable at now.
// A session expiring exactly at now is expired.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Has reports whether the session grants c. The zero capability is always granted.
func (s Session) Has(c Capability) bool {
	if c == "" {
		return true
	}
	return slices.Contains(s.Capabilities, c)
}

// IsStaff returns true if the session carries the staff capability.
func (s Session) IsStaff() bool { return s.Has(CapabilityStaff) }
