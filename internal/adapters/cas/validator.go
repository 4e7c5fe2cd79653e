// Package cas implements ticket validation against a CAS server.
//
// Versions 2 and 3 of the protocol answer with an XML serviceResponse which is
// decoded with gopkg.in/cas.v2; version 1 answers with a two line plain text body.
package cas

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domainauth "github.com/target/casgate/internal/domain/auth"
	"github.com/target/casgate/internal/observability/metrics"
	"github.com/target/casgate/internal/observability/statsd"
	"github.com/target/casgate/internal/ports"
	cas "gopkg.in/cas.v2"
)

const (
	// DefaultTimeout bounds a single validation round trip.
	DefaultTimeout = 5 * time.Second
	// DefaultLedgerTTL is how long a consumed ticket is remembered.
	DefaultLedgerTTL = 10 * time.Minute

	maxResponseBytes = 1 << 20
)

var errNoOutcome = errors.New("service response has neither success nor failure")

// Config controls how tickets are validated.
type Config struct {
	// ServerURL is the CAS base URL, e.g. https://cas.example.com/cas.
	ServerURL string
	// Version selects the protocol endpoint: 1 (/validate), 2 (/serviceValidate)
	// or 3 (/p3/serviceValidate). Zero means 3.
	Version int
	// Timeout bounds the outbound validation call. Zero means DefaultTimeout.
	Timeout time.Duration
	// Renew asks the server to only accept tickets issued from a fresh login.
	Renew bool

	HTTPClient *http.Client
	Ledger     ports.TicketLedger
	LedgerTTL  time.Duration
	Logger     *slog.Logger
	Metrics    statsd.Sink
}

// Validator exchanges service tickets for principals.
// It holds no per-request state; single use of tickets is enforced by the ledger.
type Validator struct {
	server    *url.URL
	version   int
	timeout   time.Duration
	renew     bool
	client    *http.Client
	ledger    ports.TicketLedger
	ledgerTTL time.Duration
	logger    *slog.Logger
	metrics   statsd.Sink
}

var _ ports.CASClient = (*Validator)(nil)

// NewValidator builds a Validator from cfg.
func NewValidator(cfg Config) (*Validator, error) {
	server, err := parseServerURL(cfg.ServerURL)
	if err != nil {
		return nil, err
	}

	version := cfg.Version
	if version == 0 {
		version = 3
	}
	if version < 1 || version > 3 {
		return nil, fmt.Errorf("cas: unsupported protocol version %d", cfg.Version)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ledgerTTL := cfg.LedgerTTL
	if ledgerTTL <= 0 {
		ledgerTTL = DefaultLedgerTTL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			// A validation endpoint never legitimately redirects.
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Validator{
		server:    server,
		version:   version,
		timeout:   timeout,
		renew:     cfg.Renew,
		client:    client,
		ledger:    cfg.Ledger,
		ledgerTTL: ledgerTTL,
		logger:    logger.With("component", "cas_validator"),
		metrics:   cfg.Metrics,
	}, nil
}

func parseServerURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("cas: server URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("cas: parse server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("cas: server URL must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("cas: server URL must include a host")
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// Validate checks ticket with the CAS server for serviceURL.
func (v *Validator) Validate(ctx context.Context, serviceURL, ticket string) domainauth.ValidationResult {
	start := time.Now()
	res, err := v.validate(ctx, serviceURL, ticket)
	v.observe(ctx, res, err, time.Since(start))
	return res
}

func (v *Validator) validate(
	ctx context.Context,
	serviceURL, ticket string,
) (domainauth.ValidationResult, error) {
	ticket = strings.TrimSpace(ticket)
	if ticket == "" {
		return domainauth.Failed(domainauth.FailureTicketInvalid, "ticket is required"), nil
	}
	if err := checkServiceURL(serviceURL); err != nil {
		return domainauth.Failed(domainauth.FailureTicketInvalid, err.Error()), nil
	}

	if v.ledger != nil {
		first, err := v.ledger.Claim(ctx, ticket, v.ledgerTTL)
		if err != nil {
			return domainauth.Failed(domainauth.FailureServerUnreachable, "ticket ledger unavailable"), err
		}
		if !first {
			return domainauth.Failed(domainauth.FailureTicketInvalid, "ticket already used"), nil
		}
	}

	body, err := v.fetch(ctx, serviceURL, ticket)
	if err != nil {
		var statusErr *statusError
		if errors.As(err, &statusErr) && statusErr.code < http.StatusInternalServerError {
			return domainauth.Failed(domainauth.FailureMalformedResponse, err.Error()), err
		}
		if errors.Is(err, errResponseTooLarge) {
			return domainauth.Failed(domainauth.FailureMalformedResponse, err.Error()), err
		}
		return domainauth.Failed(domainauth.FailureServerUnreachable, "cas server unreachable"), err
	}

	if v.version == 1 {
		return parseV1(body), nil
	}
	return parseXML(body)
}

func checkServiceURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("service URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid service URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return errors.New("service URL must be absolute")
	}
	return nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "cas server returned status " + strconv.Itoa(e.code)
}

var errResponseTooLarge = errors.New("cas response exceeds size limit")

func (v *Validator) fetch(ctx context.Context, serviceURL, ticket string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.validateURL(serviceURL, ticket), nil)
	if err != nil {
		return nil, fmt.Errorf("build validation request: %w", err)
	}
	req.Header.Set("Accept", "application/xml, text/plain")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cas validation request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read cas response: %w", err)
	}
	if len(body) > maxResponseBytes {
		return nil, errResponseTooLarge
	}
	return body, nil
}

func (v *Validator) validateURL(serviceURL, ticket string) string {
	q := url.Values{}
	q.Set("service", serviceURL)
	q.Set("ticket", ticket)
	if v.renew {
		q.Set("renew", "true")
	}
	return v.endpoint(v.validatePath(), q)
}

func (v *Validator) validatePath() string {
	switch v.version {
	case 1:
		return "/validate"
	case 2:
		return "/serviceValidate"
	default:
		return "/p3/serviceValidate"
	}
}

func (v *Validator) endpoint(path string, q url.Values) string {
	u := *v.server
	u.Path = v.server.Path + path
	u.RawQuery = q.Encode()
	return u.String()
}

// LoginURL returns the CAS login URL that will issue a ticket for serviceURL.
func (v *Validator) LoginURL(serviceURL string) (string, error) {
	if err := checkServiceURL(serviceURL); err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("service", serviceURL)
	if v.renew {
		q.Set("renew", "true")
	}
	return v.endpoint("/login", q), nil
}

// LogoutURL returns the CAS logout URL, optionally sending the browser on to returnURL.
// Version 3 servers take the target as "service"; older servers use "url".
func (v *Validator) LogoutURL(returnURL string) (string, error) {
	q := url.Values{}
	if returnURL != "" {
		if err := checkServiceURL(returnURL); err != nil {
			return "", err
		}
		if v.version == 3 {
			q.Set("service", returnURL)
		} else {
			q.Set("url", returnURL)
		}
	}
	return v.endpoint("/logout", q), nil
}

func parseV1(body []byte) domainauth.ValidationResult {
	lines := strings.Split(strings.ReplaceAll(string(body), "\r\n", "\n"), "\n")
	switch strings.TrimSpace(lines[0]) {
	case "yes":
		if len(lines) < 2 || strings.TrimSpace(lines[1]) == "" {
			return domainauth.Failed(domainauth.FailureMalformedResponse, "validation response missing user")
		}
		return domainauth.Succeeded(domainauth.Principal{
			User:            strings.TrimSpace(lines[1]),
			AuthenticatedAt: time.Now(),
		})
	case "no":
		return domainauth.Failed(domainauth.FailureTicketInvalid, "ticket rejected by cas server")
	default:
		return domainauth.Failed(domainauth.FailureMalformedResponse, "unrecognized validation response")
	}
}

func parseXML(body []byte) (domainauth.ValidationResult, error) {
	resp, err := parseServiceResponse(body)
	if err != nil {
		var authErr *cas.AuthenticationError
		if errors.As(err, &authErr) {
			return domainauth.Failed(failureForCode(authErr.Code), authErr.Error()), nil
		}
		return domainauth.Failed(domainauth.FailureMalformedResponse, "unparseable service response"), err
	}
	if strings.TrimSpace(resp.User) == "" {
		return domainauth.Failed(domainauth.FailureMalformedResponse, "service response missing user"), nil
	}

	attrs := make(map[string][]string, len(resp.Attributes))
	for k, vals := range resp.Attributes {
		attrs[k] = append([]string(nil), vals...)
	}
	authAt := resp.AuthenticationDate
	if authAt.IsZero() {
		authAt = time.Now()
	}
	return domainauth.Succeeded(domainauth.Principal{
		User:            strings.TrimSpace(resp.User),
		Attributes:      attrs,
		MemberOf:        append([]string(nil), resp.MemberOf...),
		AuthenticatedAt: authAt,
	}), nil
}

// parseServiceResponse wraps cas.ParseServiceResponse, which dereferences the
// success element unconditionally when no failure is present.
func parseServiceResponse(body []byte) (resp *cas.AuthenticationResponse, err error) {
	if !bytes.Contains(body, []byte("authenticationSuccess")) &&
		!bytes.Contains(body, []byte("authenticationFailure")) {
		return nil, errNoOutcome
	}
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, errNoOutcome
		}
	}()
	return cas.ParseServiceResponse(body)
}

func failureForCode(code string) domainauth.FailureKind {
	switch strings.TrimSpace(code) {
	case cas.INVALID_TICKET, cas.INVALID_TICKET_SPEC, cas.INVALID_SERVICE,
		cas.UNAUTHORIZED_SERVICE, cas.UNAUTHORIZED_SERVICE_PROXY:
		return domainauth.FailureTicketInvalid
	case cas.INTERNAL_ERROR:
		return domainauth.FailureServerUnreachable
	default:
		return domainauth.FailureMalformedResponse
	}
}

func (v *Validator) observe(ctx context.Context, res domainauth.ValidationResult, err error, took time.Duration) {
	m := metrics.ValidationMetric{
		Protocol: "v" + strconv.Itoa(v.version),
		Result:   metrics.ResultSuccess,
		Duration: took,
		Err:      err,
	}
	if !res.OK() {
		m.Result = metrics.ResultError
		m.Failure = res.Failure.String()
		if m.Err == nil {
			m.Err = res.Err()
		}
	}
	metrics.EmitValidation(v.metrics, m)

	switch {
	case res.OK():
		v.logger.DebugContext(ctx, "ticket validated", "user", res.Principal.User, "duration", took)
	case res.Failure == domainauth.FailureTicketInvalid:
		v.logger.InfoContext(ctx, "ticket rejected", "reason", res.Reason)
	default:
		v.logger.WarnContext(ctx, "ticket validation failed",
			"failure", res.Failure.String(), "reason", res.Reason, "error", err, "duration", took)
	}
}
