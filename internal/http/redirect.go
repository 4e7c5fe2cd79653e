package httpx

import (
	"net/http"
	"net/url"
	"strings"
)

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" || strings.HasPrefix(candidate, "/\\") {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}

// loginPath is the local login endpoint that returns the user to next afterwards.
func loginPath(next string) string {
	q := url.Values{}
	q.Set("next", safeRedirectPath(next))
	return "/auth/login?" + q.Encode()
}

// requestBaseURL rebuilds scheme://host for r, honouring X-Forwarded-Proto.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if isSecureRequest(r) {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
