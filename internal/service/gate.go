package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainauth "github.com/target/casgate/internal/domain/auth"
	"github.com/target/casgate/internal/observability/metrics"
	"github.com/target/casgate/internal/observability/statsd"
	"github.com/target/casgate/internal/ports"
)

// GateConfig tunes the session gate.
type GateConfig struct {
	// NoRedirect lets every request through without judgment.
	NoRedirect bool
	Now        func() time.Time
	Logger     *slog.Logger
	Metrics    statsd.Sink
}

// SessionGateOptions groups dependencies for SessionGate.
type SessionGateOptions struct {
	Sessions ports.SessionStore
	Routes   domainauth.RouteTable
	Config   GateConfig
}

// SessionGate decides whether a request may proceed, must log in first, or is forbidden.
type SessionGate struct {
	sessions   ports.SessionStore
	routes     domainauth.RouteTable
	noRedirect bool
	now        func() time.Time
	logger     *slog.Logger
	metrics    statsd.Sink
}

// GateRequest is the part of an HTTP request the gate looks at.
type GateRequest struct {
	// Path is matched against the route table.
	Path string
	// RequestURI is the path and query the user should return to after login.
	RequestURI string
	SessionID  string
}

// NewSessionGate constructs a SessionGate.
func NewSessionGate(opts SessionGateOptions) *SessionGate {
	if opts.Sessions == nil {
		panic("NewSessionGate: Sessions is required")
	}
	now := opts.Config.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionGate{
		sessions:   opts.Sessions,
		routes:     opts.Routes,
		noRedirect: opts.Config.NoRedirect,
		now:        now,
		logger:     logger.With("component", "session_gate"),
		metrics:    opts.Config.Metrics,
	}
}

// AuthorizeRoute classifies req.Path with the route table and applies the matching rule.
// Paths that match no rule are not gated, but still carry the caller's session when one exists.
func (g *SessionGate) AuthorizeRoute(ctx context.Context, req GateRequest) (domainauth.Decision, error) {
	if g.noRedirect {
		return g.record(domainauth.Bypass(g.identify(ctx, req)), ""), nil
	}
	rule, ok := g.routes.Match(req.Path)
	if !ok {
		return domainauth.Allow(g.identify(ctx, req)), nil
	}
	if rule.NoRedirect {
		return g.record(domainauth.Bypass(g.identify(ctx, req)), rule.Capability), nil
	}
	return g.Authorize(ctx, req, rule.Capability)
}

// identify loads the request's session without judging it. Missing or expired
// sessions yield nil; store errors are logged and also yield nil.
func (g *SessionGate) identify(ctx context.Context, req GateRequest) *domainauth.Session {
	if req.SessionID == "" {
		return nil
	}
	sess, err := g.sessions.Get(ctx, req.SessionID)
	if err != nil {
		if !errors.Is(err, ports.ErrSessionNotFound) {
			g.logger.WarnContext(ctx, "failed to load session for ungated path", "error", err, "path", req.Path)
		}
		return nil
	}
	if sess.Expired(g.now()) {
		return nil
	}
	return &sess
}

// Authorize checks the request's session against required.
// Store failures are returned as errors rather than folded into a decision.
func (g *SessionGate) Authorize(
	ctx context.Context,
	req GateRequest,
	required domainauth.Capability,
) (domainauth.Decision, error) {
	now := g.now()

	if req.SessionID == "" {
		return g.record(domainauth.RedirectToLogin(req.RequestURI), required), nil
	}

	sess, err := g.sessions.Get(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			return g.record(domainauth.RedirectToLogin(req.RequestURI), required), nil
		}
		return domainauth.Decision{}, fmt.Errorf("load session: %w", err)
	}

	if sess.Expired(now) {
		if delErr := g.sessions.Delete(ctx, sess.ID); delErr != nil {
			g.logger.WarnContext(ctx, "failed to delete expired session", "error", delErr)
		}
		return g.record(domainauth.RedirectToLogin(req.RequestURI), required), nil
	}

	if !sess.Has(required) {
		g.logger.InfoContext(ctx, "access forbidden",
			"user", sess.UserID, "required", string(required), "path", req.Path)
		return g.record(domainauth.Forbidden(&sess), required), nil
	}

	return g.record(domainauth.Allow(&sess), required), nil
}

func (g *SessionGate) record(d domainauth.Decision, required domainauth.Capability) domainauth.Decision {
	kind := d.Kind.String()
	if d.Bypassed {
		kind = "bypass"
	}
	metrics.EmitGateDecision(g.metrics, kind, string(required))
	return d
}
