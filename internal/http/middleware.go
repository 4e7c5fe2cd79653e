package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	domainauth "github.com/target/casgate/internal/domain/auth"
	"github.com/target/casgate/internal/service"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming upstream responses working through the logger.
func (w *respWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// browserRequestKey is an unexported context key type for browser request detection.
type browserRequestKey struct{}

// BrowserDetection returns a middleware that detects browser requests vs API requests.
// It sets a context value that can be used by downstream handlers to determine
// whether to return HTML or JSON responses.
func BrowserDetection() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), browserRequestKey{}, isBrowserRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsBrowserRequest returns true if the current request is from a browser.
func IsBrowserRequest(r *http.Request) bool {
	if val := r.Context().Value(browserRequestKey{}); val != nil {
		if isBrowser, ok := val.(bool); ok {
			return isBrowser
		}
	}
	// Fallback to direct detection if middleware wasn't used
	return isBrowserRequest(r)
}

// isBrowserRequest determines if a request is from a browser based on:
// 1. Path prefix - API routes start with /api/
// 2. XMLHttpRequest marker - scripted calls want JSON
// 3. Accept header - browsers typically accept text/html.
func isBrowserRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}
	if strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") {
		return false
	}

	accept := r.Header.Get("Accept")
	if accept == "" {
		// No Accept header, assume browser for non-API routes
		return true
	}
	return strings.Contains(accept, "text/html")
}

// GateInterface decides whether a request may reach the protected application.
type GateInterface interface {
	AuthorizeRoute(ctx context.Context, req service.GateRequest) (domainauth.Decision, error)
}

// GateConfig configures the Gate middleware.
type GateConfig struct {
	Gate         GateInterface
	Recovery     *TicketRecovery
	CookieDomain string
	Logger       *slog.Logger
}

// Gate applies the session gate to every request. Browsers without a usable
// session are redirected to /auth/login; API clients get a 401. Requests that
// lack the required capability get a 403. Allowed requests carry their
// session in the context.
func Gate(cfg GateConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := sessionIDFromRequest(r)
			decision, err := cfg.Gate.AuthorizeRoute(r.Context(), service.GateRequest{
				Path:       r.URL.Path,
				RequestURI: r.URL.RequestURI(),
				SessionID:  sessionID,
			})
			if err != nil {
				logger.ErrorContext(r.Context(), "session gate failed", "error", err, "path", r.URL.Path)
				WriteError(w, ErrorParams{
					Code:    http.StatusServiceUnavailable,
					ErrCode: "session_unavailable",
					Err:     errSessionUnavailable,
				})
				return
			}

			switch decision.Kind {
			case domainauth.DecisionRedirectToLogin:
				if sessionID != "" {
					clearCookie(w, r, cfg.CookieDomain, sessionCookieName)
				}
				if !IsBrowserRequest(r) {
					WriteError(w, ErrorParams{
						Code:    http.StatusUnauthorized,
						ErrCode: "authentication_required",
						Err:     errAuthRequired,
					})
					return
				}
				http.Redirect(w, r, loginPath(decision.ReturnURL), http.StatusFound)
			case domainauth.DecisionForbidden:
				writeForbidden(w, r)
			default:
				ctx := SetSessionInContext(r.Context(), decision.Session)
				ctx = withRecovery(ctx, cfg.Recovery)
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

// ProxyHost rewrites the request host to domain, for deployments behind a
// proxy that does not forward the public host name. An empty domain is a no-op.
func ProxyHost(domain string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if domain == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r2 := new(http.Request)
			*r2 = *r
			r2.Host = domain
			next.ServeHTTP(w, r2)
		})
	}
}
