package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

// Identity headers set on requests forwarded to the upstream application.
// Values supplied by the client are always discarded.
const (
	HeaderForwardedUser         = "X-Forwarded-User"
	HeaderForwardedCapabilities = "X-Forwarded-Capabilities"
)

var errUpstreamUnavailable = errors.New("upstream unavailable")

// NewUpstreamProxy forwards gated requests to target, annotating them with the
// session's user and capabilities.
func NewUpstreamProxy(target *url.URL, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Host = pr.In.Host
			pr.Out.Header.Del(HeaderForwardedUser)
			pr.Out.Header.Del(HeaderForwardedCapabilities)
			if s := GetSessionFromContext(pr.In.Context()); s != nil {
				pr.Out.Header.Set(HeaderForwardedUser, s.UserID)
				caps := make([]string, 0, len(s.Capabilities))
				for _, c := range s.Capabilities {
					caps = append(caps, string(c))
				}
				pr.Out.Header.Set(HeaderForwardedCapabilities, strings.Join(caps, ","))
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.ErrorContext(r.Context(), "upstream request failed", "error", err, "path", r.URL.Path)
			WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "upstream_error", Err: errUpstreamUnavailable})
		},
	}
}

// whoamiHandler is served in place of an upstream; it describes the caller's session.
func whoamiHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := GetUserSessionFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false, "path": r.URL.Path})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"path":          r.URL.Path,
		"user":          s.UserID,
		"capabilities":  s.Capabilities,
		"expires_at":    s.ExpiresAt,
	})
}
