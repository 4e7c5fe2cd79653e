package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/target/casgate/internal/observability/metrics"
	"github.com/target/casgate/internal/observability/statsd"
	"github.com/target/casgate/internal/ports"
)

// DefaultMarkerTTL is the window in which a second recovery for the same path is refused.
const DefaultMarkerTTL = 2 * time.Minute

// RecoveryKind is the outcome of a recovery attempt.
type RecoveryKind int

const (
	// RecoveryRedirect sends the browser back to the path to re-run authentication.
	RecoveryRedirect RecoveryKind = iota
	// RecoveryExhausted means the path was already retried; the caller should show an error.
	RecoveryExhausted
)

func (k RecoveryKind) String() string {
	if k == RecoveryRedirect {
		return "redirect"
	}
	return "exhausted"
}

// RecoveryOutcome tells the caller what to do after the session was destroyed.
type RecoveryOutcome struct {
	Kind       RecoveryKind
	RedirectTo string
}

// RecoveryConfig tunes RecoveryPolicy.
type RecoveryConfig struct {
	MarkerTTL time.Duration
	Logger    *slog.Logger
	Metrics   statsd.Sink
}

// RecoveryPolicyOptions groups dependencies for RecoveryPolicy.
type RecoveryPolicyOptions struct {
	Sessions ports.SessionStore
	Markers  ports.RetryMarkers
	Config   RecoveryConfig
}

// RecoveryPolicy reacts to an invalid or expired ticket by discarding the
// session and redirecting to the same path, at most once per client and path
// within the marker window. Markers are left in place after a successful
// login, so a persistent cause such as clock skew stops after one retry.
type RecoveryPolicy struct {
	sessions  ports.SessionStore
	markers   ports.RetryMarkers
	markerTTL time.Duration
	logger    *slog.Logger
	metrics   statsd.Sink
}

// RecoverInput identifies the client and the request being recovered.
type RecoverInput struct {
	// ClientKey identifies the browser across the session reset.
	ClientKey string
	SessionID string
	// Path is the local path (and query) to send the browser back to.
	Path string
}

// NewRecoveryPolicy constructs a RecoveryPolicy.
func NewRecoveryPolicy(opts RecoveryPolicyOptions) *RecoveryPolicy {
	if opts.Sessions == nil || opts.Markers == nil {
		panic("NewRecoveryPolicy: Sessions and Markers are required")
	}
	ttl := opts.Config.MarkerTTL
	if ttl <= 0 {
		ttl = DefaultMarkerTTL
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryPolicy{
		sessions:  opts.Sessions,
		markers:   opts.Markers,
		markerTTL: ttl,
		logger:    logger.With("component", "recovery_policy"),
		metrics:   opts.Config.Metrics,
	}
}

// Recover destroys the session and decides whether to redirect.
func (p *RecoveryPolicy) Recover(ctx context.Context, in RecoverInput) (RecoveryOutcome, error) {
	if in.SessionID != "" {
		if err := p.sessions.Delete(ctx, in.SessionID); err != nil {
			return RecoveryOutcome{}, fmt.Errorf("destroy session: %w", err)
		}
	}

	path := localPath(in.Path)
	outcome := RecoveryOutcome{Kind: RecoveryExhausted}

	if in.ClientKey != "" {
		first, err := p.markers.Mark(ctx, in.ClientKey+"|"+path, p.markerTTL)
		if err != nil {
			return RecoveryOutcome{}, fmt.Errorf("mark recovery: %w", err)
		}
		if first {
			outcome = RecoveryOutcome{Kind: RecoveryRedirect, RedirectTo: path}
		}
	}

	metrics.EmitRecovery(p.metrics, outcome.Kind.String())
	if outcome.Kind == RecoveryExhausted {
		p.logger.WarnContext(ctx, "ticket recovery exhausted", "path", path)
	} else {
		p.logger.InfoContext(ctx, "recovering from invalid ticket", "path", path)
	}
	return outcome, nil
}

// localPath keeps only same-origin absolute paths; anything else becomes "/".
func localPath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	return p
}
