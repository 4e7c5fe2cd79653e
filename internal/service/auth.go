package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/target/casgate/internal/domain/auth"
	"github.com/target/casgate/internal/ports"
)

// DefaultSessionTTL is the lifetime of a session created from a validated ticket.
const DefaultSessionTTL = 8 * time.Hour

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	CAS          ports.CASClient
	Sessions     ports.SessionStore
	Capabilities ports.CapabilityMapper
	SessionTTL   time.Duration
	Logger       *slog.Logger
	Now          func() time.Time
}

// AuthService turns validated CAS tickets into server-side sessions.
type AuthService struct {
	cas          ports.CASClient
	sessions     ports.SessionStore
	capabilities ports.CapabilityMapper
	sessionTTL   time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

var errSessionExpired = fmt.Errorf("%w: expired", ports.ErrSessionNotFound)

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.CAS == nil {
		panic("NewAuthService: CAS is required")
	}
	if opts.Sessions == nil {
		panic("NewAuthService: Sessions is required")
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		cas:          opts.CAS,
		sessions:     opts.Sessions,
		capabilities: opts.Capabilities,
		sessionTTL:   ttl,
		logger:       logger.With("component", "auth_service"),
		now:          now,
	}
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	LoginURL string
}

// BeginLogin returns the CAS login URL that will send the browser back to serviceURL with a ticket.
func (s *AuthService) BeginLogin(_ context.Context, serviceURL string) (*BeginLoginResult, error) {
	if serviceURL == "" {
		return nil, errors.New("service URL is required")
	}
	loginURL, err := s.cas.LoginURL(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("build login URL: %w", err)
	}
	return &BeginLoginResult{LoginURL: loginURL}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	// ServiceURL must equal the service the ticket was issued for.
	ServiceURL string
	Ticket     string
}

// CompleteLoginResult contains the result of completing a login flow.
type CompleteLoginResult struct {
	Session   domainauth.Session
	Principal domainauth.Principal
}

// CompleteLogin validates the ticket and persists a session for the principal.
// A failed validation is returned as a *domainauth.ValidationError so callers
// can branch on its FailureKind; no session is created in that case.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*CompleteLoginResult, error) {
	result := s.cas.Validate(ctx, input.ServiceURL, input.Ticket)
	if !result.OK() {
		return nil, result.Err()
	}

	principal := result.Principal
	var caps []domainauth.Capability
	if s.capabilities != nil {
		caps = s.capabilities.Capabilities(principal)
	}

	now := s.now()
	session := domainauth.Session{
		ID:           generateSessionID(),
		UserID:       principal.User,
		Attributes:   principal.Attributes,
		Capabilities: caps,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.sessionTTL),
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.InfoContext(ctx, "session created",
		"user", session.UserID,
		"capabilities", caps,
		"expires_at", session.ExpiresAt)

	return &CompleteLoginResult{Session: session, Principal: principal}, nil
}

// GetSession retrieves a live session by ID. Missing and expired sessions
// both yield an error wrapping ports.ErrSessionNotFound.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("get session: %w", ports.ErrSessionNotFound)
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.Expired(s.now()) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(errSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, errSessionExpired
	}

	return &session, nil
}

// Logout removes the session and returns the CAS logout URL to send the browser to.
func (s *AuthService) Logout(ctx context.Context, sessionID, returnURL string) (string, error) {
	if sessionID != "" {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			return "", fmt.Errorf("delete session: %w", err)
		}
	}
	logoutURL, err := s.cas.LogoutURL(returnURL)
	if err != nil {
		return "", fmt.Errorf("build logout URL: %w", err)
	}
	return logoutURL, nil
}

// generateSessionID creates a cryptographically secure random session ID.
func generateSessionID() string {
	return uuid.New().String()
}
