package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/target/casgate/internal/service"
)

// RecoveryInterface is the recovery policy used after a ticket is rejected.
type RecoveryInterface interface {
	Recover(ctx context.Context, in service.RecoverInput) (service.RecoveryOutcome, error)
}

// TicketRecovery turns a rejected ticket into either a single redirect back to
// the requested path or a terminal 401.
type TicketRecovery struct {
	Policy       RecoveryInterface
	CookieDomain string
	Logger       *slog.Logger
}

func (t *TicketRecovery) logger() *slog.Logger {
	if t != nil && t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

// Recover destroys the caller's session and responds for path.
// A request without a client key is never redirected.
func (t *TicketRecovery) Recover(w http.ResponseWriter, r *http.Request, path string) {
	path = safeRedirectPath(path)

	outcome, err := t.Policy.Recover(r.Context(), service.RecoverInput{
		ClientKey: clientKeyFromRequest(r),
		SessionID: sessionIDFromRequest(r),
		Path:      path,
	})
	clearCookie(w, r, t.CookieDomain, sessionCookieName)
	if err != nil {
		t.logger().ErrorContext(r.Context(), "ticket recovery failed", "error", err)
		writeFailure(w, r, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "ticket_invalid",
			Err:     errTicketRejected,
		}, "Authentication failed")
		return
	}

	if outcome.Kind == service.RecoveryRedirect {
		http.Redirect(w, r, outcome.RedirectTo, http.StatusFound)
		return
	}
	writeFailure(w, r, ErrorParams{
		Code:    http.StatusUnauthorized,
		ErrCode: "ticket_invalid",
		Err:     errTicketRejected,
	}, "Authentication failed")
}

// RecoverTicket is for handlers behind Gate that learn mid-request that the
// user's ticket is no longer valid. It discards the session and redirects back
// to the current request once; it reports false when no recovery is installed.
func RecoverTicket(w http.ResponseWriter, r *http.Request) bool {
	rec := recoveryFromContext(r.Context())
	if rec == nil {
		return false
	}
	rec.Recover(w, r, r.URL.RequestURI())
	return true
}
