package httpx

import (
	"context"

	domainauth "github.com/target/casgate/internal/domain/auth"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type sessionKey struct{}

// recoveryKey carries the *TicketRecovery installed by Gate.
type recoveryKey struct{}

// SetSessionInContext returns a child context that carries the given session.
// If session is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, session *domainauth.Session) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetUserSessionFromContext returns the user session from context and a boolean indicating presence.
func GetUserSessionFromContext(ctx context.Context) (*domainauth.Session, bool) {
	if session, ok := ctx.Value(sessionKey{}).(*domainauth.Session); ok && session != nil {
		return session, true
	}
	return nil, false
}

// GetSessionFromContext retrieves the session from the request context.
// Maintained for convenience; prefer GetUserSessionFromContext when you need presence info.
func GetSessionFromContext(ctx context.Context) *domainauth.Session {
	if s, ok := GetUserSessionFromContext(ctx); ok {
		return s
	}
	return nil
}

// HasCapability reports whether the request's session grants c.
func HasCapability(ctx context.Context, c domainauth.Capability) bool {
	s, ok := GetUserSessionFromContext(ctx)
	return ok && s.Has(c)
}

func withRecovery(ctx context.Context, rec *TicketRecovery) context.Context {
	if rec == nil {
		return ctx
	}
	return context.WithValue(ctx, recoveryKey{}, rec)
}

func recoveryFromContext(ctx context.Context) *TicketRecovery {
	rec, _ := ctx.Value(recoveryKey{}).(*TicketRecovery)
	return rec
}
