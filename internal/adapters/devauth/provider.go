// Package devauth provides a config-driven stand-in for a CAS server during local development.
package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/target/casgate/internal/domain/auth"
	"github.com/target/casgate/internal/ports"
)

// TicketPrefix marks tickets minted by this provider.
const TicketPrefix = "ST-dev"

// Config controls the dev provider behavior.
// User is required; Attributes and MemberOf may be empty.
type Config struct {
	User       string
	Attributes map[string][]string
	MemberOf   []string

	Ledger    ports.TicketLedger
	LedgerTTL time.Duration
}

// Provider implements ports.CASClient without a CAS server.
// LoginURL sends the browser straight back to the service with a freshly
// minted ticket, and Validate accepts any unused ticket carrying TicketPrefix.
type Provider struct {
	principal domainauth.Principal
	ledger    ports.TicketLedger
	ledgerTTL time.Duration
}

var _ ports.CASClient = (*Provider)(nil)

// NewProvider constructs a dev provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.User) == "" {
		return nil, errors.New("dev auth: User is required")
	}
	attrs := make(map[string][]string, len(cfg.Attributes))
	for k, v := range cfg.Attributes {
		attrs[k] = append([]string(nil), v...)
	}
	ttl := cfg.LedgerTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Provider{
		principal: domainauth.Principal{
			User:       strings.TrimSpace(cfg.User),
			Attributes: attrs,
			MemberOf:   append([]string(nil), cfg.MemberOf...),
		},
		ledger:    cfg.Ledger,
		ledgerTTL: ttl,
	}, nil
}

// LoginURL appends a generated ticket to serviceURL.
func (p *Provider) LoginURL(serviceURL string) (string, error) {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return "", fmt.Errorf("parse service URL: %w", err)
	}
	suffix, err := randomString(24)
	if err != nil {
		return "", fmt.Errorf("generate ticket: %w", err)
	}
	q := u.Query()
	q.Set("ticket", TicketPrefix+"-"+suffix)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// LogoutURL has no server to visit, so it returns the return URL (or "/").
func (p *Provider) LogoutURL(returnURL string) (string, error) {
	if returnURL == "" {
		return "/", nil
	}
	return returnURL, nil
}

// Validate accepts unused dev tickets and returns the configured identity.
func (p *Provider) Validate(ctx context.Context, _, ticket string) domainauth.ValidationResult {
	if ticket == "" {
		return domainauth.Failed(domainauth.FailureTicketInvalid, "ticket is required")
	}
	if !strings.HasPrefix(ticket, TicketPrefix) {
		return domainauth.Failed(domainauth.FailureTicketInvalid, "not a dev ticket")
	}
	if p.ledger != nil {
		first, err := p.ledger.Claim(ctx, ticket, p.ledgerTTL)
		if err != nil {
			return domainauth.Failed(domainauth.FailureServerUnreachable, "ticket ledger unavailable")
		}
		if !first {
			return domainauth.Failed(domainauth.FailureTicketInvalid, "ticket already used")
		}
	}
	principal := p.principal
	principal.AuthenticatedAt = time.Now()
	return domainauth.Succeeded(principal)
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	b := make([]byte, (n*3+3)/4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < n {
		return s, nil
	}
	return s[:n], nil
}
