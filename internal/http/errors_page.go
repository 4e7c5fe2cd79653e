package httpx

import (
	"fmt"
	"html"
	"net/http"
)

const forbiddenHTML = "<h1>Forbidden</h1><p>You do not have staff privileges.</p>"

// writeFailure renders an error as HTML for browsers and as JSON for API clients.
func writeFailure(w http.ResponseWriter, r *http.Request, p ErrorParams, title string) {
	if !IsBrowserRequest(r) {
		WriteError(w, p)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(p.Code)
	msg := ""
	if p.Err != nil {
		msg = p.Err.Error()
	}
	_, _ = fmt.Fprintf(w, "<h1>%s</h1><p>%s</p>", html.EscapeString(title), html.EscapeString(msg))
}

func writeForbidden(w http.ResponseWriter, r *http.Request) {
	if !IsBrowserRequest(r) {
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: "insufficient_permissions",
			Err:     errInsufficientPermissions,
		})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(forbiddenHTML))
}
