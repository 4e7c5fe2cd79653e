package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	domainauth "github.com/target/casgate/internal/domain/auth"
	"github.com/target/casgate/internal/service"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	BeginLogin(ctx context.Context, serviceURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID, returnURL string) (string, error)
}

// retryAfterSeconds is sent with 503 responses when the CAS server is unreachable.
const retryAfterSeconds = 30

var (
	errTicketRejected          = errors.New("your sign-in could not be verified, please try again later")
	errCASUnavailable          = errors.New("the sign-in service is temporarily unavailable")
	errCASResponse             = errors.New("the sign-in service returned an unexpected response")
	errInsufficientPermissions = errors.New("insufficient permissions")
	errAuthRequired            = errors.New("authentication required")
	errSessionUnavailable      = errors.New("session store unavailable")
)

// AuthHandlers provides HTTP handlers for the CAS login round trip.
type AuthHandlers struct {
	Svc      AuthServiceInterface
	Recovery *TicketRecovery
	// ServiceURL is the absolute callback URL registered with CAS. When empty it
	// is derived from the request host.
	ServiceURL   string
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// baseURL is the origin users reach the gateway on.
func (h *AuthHandlers) baseURL(r *http.Request) string {
	if h.ServiceURL != "" {
		if u, err := url.Parse(h.ServiceURL); err == nil && u.IsAbs() {
			return u.Scheme + "://" + u.Host
		}
	}
	return requestBaseURL(r)
}

// serviceURL returns the callback URL carrying next. The same value must be
// produced at login and at callback, since CAS compares them.
func (h *AuthHandlers) serviceURL(r *http.Request, next string) string {
	base := h.ServiceURL
	if base == "" {
		base = requestBaseURL(r) + "/auth/callback"
	}
	u, err := url.Parse(base)
	if err != nil {
		u = &url.URL{Path: "/auth/callback"}
	}
	q := u.Query()
	q.Del("ticket")
	q.Set("next", next)
	u.RawQuery = q.Encode()
	return u.String()
}

// Login sends the browser to the CAS login page.
// GET /auth/login?next=<optional path>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	next := safeRedirectPath(r.URL.Query().Get("next"))

	result, err := h.Svc.BeginLogin(r.Context(), h.serviceURL(r, next))
	if err != nil {
		h.logger().ErrorContext(r.Context(), "begin login failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "login_failed",
			Err:     errors.New("unable to start login"),
		})
		return
	}

	ensureClientKey(w, r, h.CookieDomain)
	http.Redirect(w, r, result.LoginURL, http.StatusFound)
}

// Callback validates the service ticket CAS appended to the callback URL.
// GET /auth/callback?ticket=<ticket>&next=<path>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	next := safeRedirectPath(q.Get("next"))
	ticket := strings.TrimSpace(q.Get("ticket"))
	if ticket == "" {
		http.Redirect(w, r, loginPath(next), http.StatusFound)
		return
	}

	result, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{
		ServiceURL: h.serviceURL(r, next),
		Ticket:     ticket,
	})
	if err != nil {
		h.loginFailed(w, r, next, err)
		return
	}

	setSessionCookie(w, r, h.CookieDomain, result.Session)
	http.Redirect(w, r, next, http.StatusFound)
}

func (h *AuthHandlers) loginFailed(w http.ResponseWriter, r *http.Request, next string, err error) {
	ctx := r.Context()
	switch domainauth.FailureKindOf(err) {
	case domainauth.FailureTicketInvalid:
		h.logger().InfoContext(ctx, "service ticket rejected", "error", err)
		if h.Recovery != nil {
			h.Recovery.Recover(w, r, next)
			return
		}
		writeFailure(w, r, ErrorParams{
			Code: http.StatusUnauthorized, ErrCode: "ticket_invalid", Err: errTicketRejected,
		}, "Authentication failed")
	case domainauth.FailureServerUnreachable:
		h.logger().WarnContext(ctx, "cas server unreachable", "error", err)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		writeFailure(w, r, ErrorParams{
			Code: http.StatusServiceUnavailable, ErrCode: "auth_server_unreachable", Err: errCASUnavailable,
		}, "Sign-in unavailable")
	case domainauth.FailureMalformedResponse:
		h.logger().ErrorContext(ctx, "malformed cas response", "error", err)
		writeFailure(w, r, ErrorParams{
			Code: http.StatusBadGateway, ErrCode: "auth_error", Err: errCASResponse,
		}, "Authentication error")
	default:
		h.logger().ErrorContext(ctx, "login completion failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "login_completion_failed",
			Err:     errors.New("unable to complete login"),
		})
	}
}

// Logout destroys the session and sends the browser to the CAS logout page.
// GET|POST /auth/logout?next=<optional path>.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	next := r.FormValue("next")
	if next == "" {
		next = r.URL.Query().Get("next")
	}
	returnURL := h.baseURL(r) + safeRedirectPath(next)

	logoutURL, err := h.Svc.Logout(r.Context(), sessionIDFromRequest(r), returnURL)
	clearCookie(w, r, h.CookieDomain, sessionCookieName)
	if err != nil {
		h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		logoutURL = safeRedirectPath(next)
	}

	// AJAX requests get a JSON payload; regular requests redirect
	isAJAX := strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
	if isAJAX {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":      "success",
			"redirect_to": logoutURL,
		})
		return
	}

	http.Redirect(w, r, logoutURL, http.StatusFound)
}

// Status returns the current authentication status.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFromRequest(r)
	if sessionID == "" {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	session, err := h.Svc.GetSession(r.Context(), sessionID)
	if err != nil {
		clearCookie(w, r, h.CookieDomain, sessionCookieName)
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"id":         session.UserID,
			"attributes": session.Attributes,
		},
		"capabilities": session.Capabilities,
		"expires_at":   session.ExpiresAt,
	})
}
