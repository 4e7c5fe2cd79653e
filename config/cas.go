package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/target/casgate/internal/domain/auth"
)

// CASMode selects the ticket validator.
type CASMode string

const (
	// CASModeCAS validates tickets against a real CAS server.
	CASModeCAS CASMode = "cas"
	// CASModeMock mints and accepts local tickets (for development only).
	CASModeMock CASMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for CASMode.
func (m *CASMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "cas", "mock":
		*m = CASMode(v)
		return nil
	default:
		return fmt.Errorf("invalid CASMode: %q (valid options: cas, mock)", v)
	}
}

// CASVersion is the CAS protocol version (1, 2 or 3).
type CASVersion int

// UnmarshalText implements encoding.TextUnmarshaler for CASVersion.
// Accepts "1", "2", "3" with an optional "v" prefix.
func (v *CASVersion) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(string(text))), "v")
	switch s {
	case "1", "2", "3":
		*v = CASVersion(s[0] - '0')
		return nil
	default:
		return fmt.Errorf("invalid CASVersion: %q (valid options: 1, 2, 3)", string(text))
	}
}

// DevIdentityConfig is the identity returned in mock mode.
type DevIdentityConfig struct {
	User   string   `env:"USER"   envDefault:"dev-user"`
	Email  string   `env:"EMAIL"  envDefault:"dev@example.com"`
	Groups []string `env:"GROUPS" envDefault:"staff"           envSeparator:";"`
}

// CASConfig contains CAS server, routing and capability configuration.
// All variables carry the CAS_ prefix.
type CASConfig struct {
	Mode CASMode `env:"MODE" envDefault:"cas"`

	// ServerURL is the CAS base URL, e.g. https://sso.example.com/cas.
	ServerURL string `env:"SERVER_URL"`
	// ServiceURL is the absolute callback URL registered with CAS. When empty
	// it is derived from the request host.
	ServiceURL      string        `env:"SERVICE_URL"`
	Version         CASVersion    `env:"VERSION"          envDefault:"3"`
	ValidateTimeout time.Duration `env:"VALIDATE_TIMEOUT" envDefault:"5s"`
	// Renew forces primary authentication on every login.
	Renew bool `env:"RENEW" envDefault:"false"`

	// AdminPrefix is gated behind the staff capability.
	AdminPrefix string `env:"ADMIN_PREFIX" envDefault:"/admin/"`
	// Routes lists extra rules as "prefix[=capability]" separated by ';' or ','.
	Routes string `env:"ROUTES"`
	// NoRedirect disables the gate entirely.
	NoRedirect bool `env:"NO_REDIRECT" envDefault:"false"`
	// NoRedirectPrefixes are passed through without a session check.
	NoRedirectPrefixes []string `env:"NO_REDIRECT_PREFIXES" envSeparator:","`
	// ProxyDomain overrides the request host when behind a proxy.
	ProxyDomain string `env:"PROXY_DOMAIN"`

	StaffAttribute  string   `env:"STAFF_ATTRIBUTE"  envDefault:"is_staff"`
	StaffGroups     []string `env:"STAFF_GROUPS"     envSeparator:";"`
	StaffUsers      []string `env:"STAFF_USERS"      envSeparator:","`
	SuperuserGroups []string `env:"SUPERUSER_GROUPS" envSeparator:";"`
	// CapabilityRules holds "capability=<jmespath>" pairs separated by ';'.
	CapabilityRules string `env:"CAPABILITY_RULES"`

	Dev DevIdentityConfig `envPrefix:"DEV_"`
}

// Sanitize trims values and restores defaults for out-of-range settings.
func (c *CASConfig) Sanitize() {
	c.ServerURL = strings.TrimRight(strings.TrimSpace(c.ServerURL), "/")
	c.ServiceURL = strings.TrimSpace(c.ServiceURL)
	c.ProxyDomain = strings.TrimSpace(c.ProxyDomain)
	if c.Mode == "" {
		c.Mode = CASModeCAS
	}
	if c.Version == 0 {
		c.Version = 3
	}
	if c.ValidateTimeout <= 0 {
		c.ValidateTimeout = 5 * time.Second
	}
	if c.AdminPrefix = strings.TrimSpace(c.AdminPrefix); c.AdminPrefix != "" && !strings.HasSuffix(c.AdminPrefix, "/") {
		c.AdminPrefix += "/"
	}
}

// Validate checks the settings the validator cannot run without.
func (c *CASConfig) Validate() error {
	var errs []error
	if c.Mode == CASModeCAS {
		if err := requireAbsoluteURL("CAS_SERVER_URL", c.ServerURL); err != nil {
			errs = append(errs, err)
		}
	}
	if c.ServiceURL != "" {
		if err := requireAbsoluteURL("CAS_SERVICE_URL", c.ServiceURL); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := c.RouteRules(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ParseCapabilityRules(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RouteRules assembles the gate's route table input: the admin prefix,
// CAS_ROUTES and the no-redirect prefixes.
func (c *CASConfig) RouteRules() ([]domainauth.RouteRule, error) {
	var rules []domainauth.RouteRule
	if c.AdminPrefix != "" {
		rules = append(rules, domainauth.RouteRule{Prefix: c.AdminPrefix, Capability: domainauth.CapabilityStaff})
	}
	extra, err := domainauth.ParseRouteRules(c.Routes)
	if err != nil {
		return nil, fmt.Errorf("CAS_ROUTES: %w", err)
	}
	rules = append(rules, extra...)
	for _, p := range c.NoRedirectPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			rules = append(rules, domainauth.RouteRule{Prefix: p, NoRedirect: true})
		}
	}
	return rules, nil
}

// ParseCapabilityRules splits CAS_CAPABILITY_RULES into capability → expression.
// Only the first '=' separates, so expressions may use "==".
func (c *CASConfig) ParseCapabilityRules() (map[domainauth.Capability]string, error) {
	out := make(map[domainauth.Capability]string)
	for _, part := range strings.Split(c.CapabilityRules, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, expr, ok := strings.Cut(part, "=")
		name, expr = strings.TrimSpace(name), strings.TrimSpace(expr)
		if !ok || name == "" || expr == "" {
			return nil, fmt.Errorf("CAS_CAPABILITY_RULES: invalid rule %q (want capability=expression)", part)
		}
		out[domainauth.Capability(name)] = expr
	}
	return out, nil
}

func requireAbsoluteURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL", name)
	}
	return nil
}
