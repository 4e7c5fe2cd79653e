package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/target/casgate/internal/domain/auth"
	"github.com/target/casgate/internal/mocks"
	mockauth "github.com/target/casgate/internal/mocks/auth"
	"github.com/target/casgate/internal/ports"
	"github.com/target/casgate/internal/testutil"
)

const callbackURL = "https://app.example.com/auth/callback?next=%2Fadmin%2F"

func newAuthFixture(t *testing.T) (*AuthService, *mockauth.MockCASClient, *mockauth.MemorySessionStore) {
	t.Helper()
	cas := mockauth.NewMockCASClient()
	sessions := mockauth.NewMemorySessionStore()
	svc := NewAuthService(AuthServiceOptions{
		CAS:          cas,
		Sessions:     sessions,
		Capabilities: mockauth.StaticCapabilityMapper{StaffGroup: "staff"},
		SessionTTL:   time.Hour,
	})
	return svc, cas, sessions
}

func TestNewAuthService_RequiresDependencies(t *testing.T) {
	assert.Panics(t, func() { NewAuthService(AuthServiceOptions{}) })
	assert.Panics(t, func() { NewAuthService(AuthServiceOptions{CAS: mockauth.NewMockCASClient()}) })
}

func TestAuthService_BeginLogin(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	result, err := svc.BeginLogin(context.Background(), callbackURL)
	require.NoError(t, err)
	assert.Equal(t,
		"https://mock-cas/cas/login?service=https%3A%2F%2Fapp.example.com%2Fauth%2Fcallback%3Fnext%3D%252Fadmin%252F",
		result.LoginURL)

	_, err = svc.BeginLogin(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service URL is required")
}

func TestAuthService_CompleteLogin_CreatesSession(t *testing.T) {
	svc, cas, sessions := newAuthFixture(t)
	now := testutil.TestTime()
	svc.now = testutil.FixedTimeFunc(now)
	sessions.Now = svc.now
	cas.DefaultPrincipal = domainauth.Principal{
		User:       "alice",
		Attributes: map[string][]string{"mail": {"alice@example.com"}},
		MemberOf:   []string{"staff"},
	}

	result, err := svc.CompleteLogin(context.Background(), CompleteLoginInput{ServiceURL: callbackURL, Ticket: "ST-1"})
	require.NoError(t, err)

	sess := result.Session
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "alice", sess.UserID)
	assert.True(t, sess.IsStaff())
	assert.Equal(t, now, sess.CreatedAt)
	assert.Equal(t, now.Add(time.Hour), sess.ExpiresAt)
	assert.Equal(t, "alice@example.com", sess.Attributes["mail"][0])

	stored, err := sessions.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess, stored)
}

func TestAuthService_CompleteLogin_TicketReplay(t *testing.T) {
	svc, _, sessions := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.CompleteLogin(ctx, CompleteLoginInput{ServiceURL: callbackURL, Ticket: "ST-1"})
	require.NoError(t, err)

	_, err = svc.CompleteLogin(ctx, CompleteLoginInput{ServiceURL: callbackURL, Ticket: "ST-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainauth.ErrTicketInvalid)
	assert.Equal(t, domainauth.FailureTicketInvalid, domainauth.FailureKindOf(err))
	assert.Equal(t, 1, sessions.Len())
}

func TestAuthService_CompleteLogin_FailuresCreateNoSession(t *testing.T) {
	tests := []struct {
		kind domainauth.FailureKind
		want error
	}{
		{domainauth.FailureTicketInvalid, domainauth.ErrTicketInvalid},
		{domainauth.FailureServerUnreachable, domainauth.ErrServerUnreachable},
		{domainauth.FailureMalformedResponse, domainauth.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			svc, cas, sessions := newAuthFixture(t)
			cas.ValidateFunc = func(context.Context, string, string) domainauth.ValidationResult {
				return domainauth.Failed(tt.kind, "boom")
			}

			result, err := svc.CompleteLogin(context.Background(), CompleteLoginInput{ServiceURL: callbackURL, Ticket: "ST-1"})
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, sessions.Len())
		})
	}
}

func TestAuthService_CompleteLogin_SaveError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	svc := NewAuthService(AuthServiceOptions{CAS: mockauth.NewMockCASClient(), Sessions: store})

	_, err := svc.CompleteLogin(context.Background(), CompleteLoginInput{ServiceURL: callbackURL, Ticket: "ST-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save session")
	assert.Equal(t, domainauth.FailureNone, domainauth.FailureKindOf(err))
}

func TestAuthService_GetSession(t *testing.T) {
	svc, _, sessions := newAuthFixture(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, sessions.Save(ctx, domainauth.Session{ID: "live", UserID: "u", ExpiresAt: now.Add(time.Hour)}))

	sess, err := svc.GetSession(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "u", sess.UserID)

	_, err = svc.GetSession(ctx, "")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	_, err = svc.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestAuthService_GetSession_ExpiredIsDeleted(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	now := testutil.TestTime()
	expired := domainauth.Session{ID: "old", ExpiresAt: now}

	store.EXPECT().Get(gomock.Any(), "old").Return(expired, nil)
	store.EXPECT().Delete(gomock.Any(), "old").Return(nil)

	svc := NewAuthService(AuthServiceOptions{
		CAS:      mockauth.NewMockCASClient(),
		Sessions: store,
		Now:      testutil.FixedTimeFunc(now),
	})

	_, err := svc.GetSession(context.Background(), "old")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestAuthService_Logout(t *testing.T) {
	svc, _, sessions := newAuthFixture(t)
	ctx := context.Background()
	require.NoError(t, sessions.Save(ctx, domainauth.Session{ID: "s1", ExpiresAt: time.Now().Add(time.Hour)}))

	logoutURL, err := svc.Logout(ctx, "s1", "https://app.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://mock-cas/cas/logout?service=https%3A%2F%2Fapp.example.com%2F", logoutURL)
	assert.Equal(t, 0, sessions.Len())

	logoutURL, err = svc.Logout(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://mock-cas/cas/logout", logoutURL)
}

func TestAuthService_Logout_DeleteError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	store.EXPECT().Delete(gomock.Any(), "s1").Return(errors.New("boom"))

	svc := NewAuthService(AuthServiceOptions{CAS: mockauth.NewMockCASClient(), Sessions: store})
	_, err := svc.Logout(context.Background(), "s1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete session")
}
