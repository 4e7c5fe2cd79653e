package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/target/casgate/internal/domain/auth"
)

const (
	sessionCookieName = "session_id"
	// clientCookieName identifies a browser across session resets so recovery
	// attempts can be counted per client.
	clientCookieName = "cas_client"
	clientCookieTTL  = 30 * 24 * time.Hour
)

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func sessionIDFromRequest(r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// setSessionCookie writes the session cookie based on the session's expiry.
func setSessionCookie(w http.ResponseWriter, r *http.Request, domain string, s domainauth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.ID,
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
	})
}

// clearCookie clears a cookie by setting it to expire immediately.
// It mirrors key attributes (Secure, Path, Domain, SameSite) used when setting cookies
// to maximize compatibility across browsers during deletion.
func clearCookie(w http.ResponseWriter, r *http.Request, domain, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// clientKeyFromRequest returns the browser's recovery key, or "" when the
// cookie is missing or malformed.
func clientKeyFromRequest(r *http.Request) string {
	if c, err := r.Cookie(clientCookieName); err == nil {
		if _, parseErr := uuid.Parse(c.Value); parseErr == nil {
			return c.Value
		}
	}
	return ""
}

// ensureClientKey returns the browser's recovery key, issuing a new one when absent.
// Keys are only issued when a login starts.
func ensureClientKey(w http.ResponseWriter, r *http.Request, domain string) string {
	if key := clientKeyFromRequest(r); key != "" {
		return key
	}
	key := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     clientCookieName,
		Value:    key,
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(clientCookieTTL.Seconds()),
	})
	return key
}
