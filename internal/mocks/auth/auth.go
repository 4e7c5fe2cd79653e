package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	domainauth "github.com/target/casgate/internal/domain/auth"
	"github.com/target/casgate/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.CASClient        = (*MockCASClient)(nil)
	_ ports.SessionStore     = (*MemorySessionStore)(nil)
	_ ports.CapabilityMapper = (*StaticCapabilityMapper)(nil)
	_ ports.RetryMarkers     = (*MemoryMarkers)(nil)
)

// MockCASClient simulates a CAS server for tests.
// By default every unseen ticket validates to DefaultPrincipal and a replayed ticket fails
// with TicketInvalid, matching the single-use behaviour of a real server.
type MockCASClient struct {
	ValidateFunc func(ctx context.Context, serviceURL, ticket string) domainauth.ValidationResult

	ServerURL        string
	DefaultPrincipal domainauth.Principal

	mu    sync.Mutex
	seen  map[string]bool
	calls int
}

// NewMockCASClient creates a MockCASClient with sensible defaults.
func NewMockCASClient() *MockCASClient {
	return &MockCASClient{
		ServerURL: "https://mock-cas/cas",
		DefaultPrincipal: domainauth.Principal{
			User:       "mock-user",
			Attributes: map[string][]string{"mail": {"mock.user@example.com"}},
			MemberOf:   []string{"users"},
		},
	}
}

func (m *MockCASClient) Validate(ctx context.Context, serviceURL, ticket string) domainauth.ValidationResult {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, serviceURL, ticket)
	}
	if ticket == "" {
		return domainauth.Failed(domainauth.FailureTicketInvalid, "ticket is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[ticket] {
		return domainauth.Failed(domainauth.FailureTicketInvalid, fmt.Sprintf("ticket %s not recognized", ticket))
	}
	m.seen[ticket] = true

	p := m.DefaultPrincipal
	if p.User == "" {
		p.User = "mock-user"
	}
	p.AuthenticatedAt = time.Now()
	return domainauth.Succeeded(p)
}

// Calls returns the number of Validate invocations.
func (m *MockCASClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockCASClient) LoginURL(serviceURL string) (string, error) {
	return m.serverURL() + "/login?service=" + url.QueryEscape(serviceURL), nil
}

func (m *MockCASClient) LogoutURL(returnURL string) (string, error) {
	if returnURL == "" {
		return m.serverURL() + "/logout", nil
	}
	return m.serverURL() + "/logout?service=" + url.QueryEscape(returnURL), nil
}

func (m *MockCASClient) serverURL() string {
	if m.ServerURL == "" {
		return "https://mock-cas/cas"
	}
	return m.ServerURL
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
	Now      func() time.Time
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domainauth.Session),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions == nil {
		m.sessions = make(map[string]domainauth.Session)
	}
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	if sess.Expired(now) {
		delete(m.sessions, id)
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StaticCapabilityMapper grants staff to members of StaffGroup.
type StaticCapabilityMapper struct {
	StaffGroup string
}

func (m StaticCapabilityMapper) Capabilities(p domainauth.Principal) []domainauth.Capability {
	for _, g := range p.MemberOf {
		if m.StaffGroup != "" && g == m.StaffGroup {
			return []domainauth.Capability{domainauth.CapabilityStaff}
		}
	}
	return nil
}

// MemoryMarkers is a RetryMarkers double that ignores TTLs.
type MemoryMarkers struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *MemoryMarkers) Mark(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = make(map[string]bool)
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}
