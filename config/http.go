package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// UpstreamURL is the application gated requests are proxied to. When empty
	// the gateway answers gated requests itself with the caller's identity.
	UpstreamURL string `env:"UPSTREAM_URL"`

	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"30s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.Addr = strings.TrimSpace(h.Addr)
	if h.Addr == "" {
		h.Addr = ":8080"
	}
	h.CookieDomain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(h.CookieDomain)), ".")
	h.UpstreamURL = strings.TrimSpace(h.UpstreamURL)
	if h.ReadTimeout <= 0 {
		h.ReadTimeout = 30 * time.Second
	}
	if h.WriteTimeout <= 0 {
		h.WriteTimeout = 30 * time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}

// Validate rejects a cookie domain that is a public suffix (browsers would
// drop the cookie) and a malformed upstream URL.
func (h *HTTPConfig) Validate() error {
	if h.CookieDomain != "" {
		suffix, _ := publicsuffix.PublicSuffix(h.CookieDomain)
		if suffix == h.CookieDomain {
			return fmt.Errorf("APP_COOKIE_DOMAIN %q is a public suffix", h.CookieDomain)
		}
	}
	if h.UpstreamURL != "" {
		if err := requireAbsoluteURL("UPSTREAM_URL", h.UpstreamURL); err != nil {
			return err
		}
	}
	return nil
}

// Upstream parses UpstreamURL; it returns nil when no upstream is configured.
func (h *HTTPConfig) Upstream() (*url.URL, error) {
	if h.UpstreamURL == "" {
		return nil, nil
	}
	u, err := url.Parse(h.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("parse UPSTREAM_URL: %w", err)
	}
	return u, nil
}
