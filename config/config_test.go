package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/casgate/internal/domain/auth"
)

func parse(t *testing.T) AppConfig {
	t.Helper()
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()
	return cfg
}

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("CAS_SERVER_URL", "https://sso.example.com/cas/")

	cfg := parse(t)

	assert.Equal(t, CASModeCAS, cfg.CAS.Mode)
	assert.Equal(t, "https://sso.example.com/cas", cfg.CAS.ServerURL)
	assert.Equal(t, CASVersion(3), cfg.CAS.Version)
	assert.Equal(t, 5*time.Second, cfg.CAS.ValidateTimeout)
	assert.Equal(t, "/admin/", cfg.CAS.AdminPrefix)
	assert.Equal(t, "is_staff", cfg.CAS.StaffAttribute)
	assert.Equal(t, SessionStoreRedis, cfg.Session.Store)
	assert.Equal(t, 8*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 10*time.Minute, cfg.Session.TicketLedgerTTL)
	assert.Equal(t, 2*time.Minute, cfg.Session.RecoveryMarkerTTL)
	assert.Equal(t, 10000, cfg.Session.LedgerSize)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "casgate:", cfg.Redis.KeyPrefix)
	assert.Equal(t, "casgate", cfg.Observability.Metrics.Prefix)
	assert.False(t, cfg.Observability.Metrics.IsEnabled())
	require.NoError(t, cfg.Validate())
}

func TestAppConfig_Overrides(t *testing.T) {
	t.Setenv("CAS_SERVER_URL", "https://sso.example.com/cas")
	t.Setenv("CAS_VERSION", "v2")
	t.Setenv("CAS_VALIDATE_TIMEOUT", "2s")
	t.Setenv("CAS_STAFF_GROUPS", "cn=staff,ou=groups;cn=ops,ou=groups")
	t.Setenv("CAS_NO_REDIRECT_PREFIXES", "/static/,/favicon.ico")
	t.Setenv("CAS_ROUTES", "/reports/;/root/=superuser")
	t.Setenv("SESSION_STORE", "memory")
	t.Setenv("SESSION_TTL", "1h")

	cfg := parse(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, CASVersion(2), cfg.CAS.Version)
	assert.Equal(t, 2*time.Second, cfg.CAS.ValidateTimeout)
	assert.Equal(t, []string{"cn=staff,ou=groups", "cn=ops,ou=groups"}, cfg.CAS.StaffGroups)
	assert.Equal(t, SessionStoreMemory, cfg.Session.Store)
	assert.Equal(t, time.Hour, cfg.Session.TTL)

	rules, err := cfg.CAS.RouteRules()
	require.NoError(t, err)
	assert.Equal(t, []domainauth.RouteRule{
		{Prefix: "/admin/", Capability: domainauth.CapabilityStaff},
		{Prefix: "/reports/"},
		{Prefix: "/root/", Capability: domainauth.CapabilitySuperuser},
		{Prefix: "/static/", NoRedirect: true},
		{Prefix: "/favicon.ico", NoRedirect: true},
	}, rules)
}

func TestAppConfig_InvalidEnums(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"version", "CAS_VERSION", "4"},
		{"mode", "CAS_MODE", "oidc"},
		{"store", "SESSION_STORE", "postgres"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			var cfg AppConfig
			assert.Error(t, env.Parse(&cfg))
		})
	}
}

func TestAppConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"missing server url", func(c *AppConfig) { c.CAS.ServerURL = "" }, "CAS_SERVER_URL is required"},
		{"relative server url", func(c *AppConfig) { c.CAS.ServerURL = "/cas" }, "CAS_SERVER_URL must be an absolute"},
		{"bad service url", func(c *AppConfig) { c.CAS.ServiceURL = "callback" }, "CAS_SERVICE_URL"},
		{"bad route", func(c *AppConfig) { c.CAS.Routes = "reports" }, "CAS_ROUTES"},
		{"bad capability rule", func(c *AppConfig) { c.CAS.CapabilityRules = "staff" }, "CAS_CAPABILITY_RULES"},
		{"public suffix cookie domain", func(c *AppConfig) { c.HTTP.CookieDomain = "co.uk" }, "public suffix"},
		{"mock outside dev", func(c *AppConfig) { c.CAS.Mode = CASModeMock }, "mock mode requires DEV=true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{CAS: CASConfig{Mode: CASModeCAS, ServerURL: "https://sso.example.com/cas"}}
			cfg.Sanitize()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCASConfig_MockModeNeedsNoServer(t *testing.T) {
	cfg := AppConfig{IsDev: true, CAS: CASConfig{Mode: CASModeMock}}
	cfg.Sanitize()
	assert.NoError(t, cfg.Validate())
}

func TestCASConfig_ParseCapabilityRules(t *testing.T) {
	c := CASConfig{CapabilityRules: "staff=attributes.dept[0] == 'it'; superuser=contains(memberOf, 'root')"}
	rules, err := c.ParseCapabilityRules()
	require.NoError(t, err)
	assert.Equal(t, map[domainauth.Capability]string{
		domainauth.CapabilityStaff:     "attributes.dept[0] == 'it'",
		domainauth.CapabilitySuperuser: "contains(memberOf, 'root')",
	}, rules)
}

func TestHTTPConfig_CookieDomain(t *testing.T) {
	h := HTTPConfig{CookieDomain: ".Example.COM"}
	h.Sanitize()
	assert.Equal(t, "example.com", h.CookieDomain)
	assert.NoError(t, h.Validate())

	h = HTTPConfig{CookieDomain: "com"}
	h.Sanitize()
	assert.Error(t, h.Validate())
}

func TestHTTPConfig_Upstream(t *testing.T) {
	h := HTTPConfig{}
	u, err := h.Upstream()
	require.NoError(t, err)
	assert.Nil(t, u)

	h.UpstreamURL = "http://app:3000"
	u, err = h.Upstream()
	require.NoError(t, err)
	assert.Equal(t, "app:3000", u.Host)
}

func TestDetectDevMode(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	cfg := AppConfig{}
	cfg.detectDevMode()
	assert.True(t, cfg.IsDev)
}
