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
)

func newRecoveryFixture(t *testing.T) (*RecoveryPolicy, *mockauth.MemorySessionStore) {
	t.Helper()
	sessions := mockauth.NewMemorySessionStore()
	policy := NewRecoveryPolicy(RecoveryPolicyOptions{
		Sessions: sessions,
		Markers:  &mockauth.MemoryMarkers{},
	})
	return policy, sessions
}

func TestRecoveryPolicy_RedirectsOnceThenStops(t *testing.T) {
	policy, sessions := newRecoveryFixture(t)
	ctx := context.Background()
	require.NoError(t, sessions.Save(ctx, domainauth.Session{ID: "s1", ExpiresAt: time.Now().Add(time.Hour)}))

	first, err := policy.Recover(ctx, RecoverInput{ClientKey: "browser-1", SessionID: "s1", Path: "/admin/"})
	require.NoError(t, err)
	assert.Equal(t, RecoveryOutcome{Kind: RecoveryRedirect, RedirectTo: "/admin/"}, first)

	_, err = sessions.Get(ctx, "s1")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	second, err := policy.Recover(ctx, RecoverInput{ClientKey: "browser-1", Path: "/admin/"})
	require.NoError(t, err)
	assert.Equal(t, RecoveryExhausted, second.Kind)
	assert.Empty(t, second.RedirectTo)

	third, err := policy.Recover(ctx, RecoverInput{ClientKey: "browser-1", Path: "/admin/"})
	require.NoError(t, err)
	assert.Equal(t, RecoveryExhausted, third.Kind)
}

func TestRecoveryPolicy_MarkersAreScopedToClientAndPath(t *testing.T) {
	policy, _ := newRecoveryFixture(t)
	ctx := context.Background()

	inputs := []RecoverInput{
		{ClientKey: "browser-1", Path: "/admin/"},
		{ClientKey: "browser-1", Path: "/admin/users/"},
		{ClientKey: "browser-2", Path: "/admin/"},
	}
	for _, in := range inputs {
		out, err := policy.Recover(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, RecoveryRedirect, out.Kind, "%+v", in)
	}
}

func TestRecoveryPolicy_UnsafePathsFallBackToRoot(t *testing.T) {
	policy, _ := newRecoveryFixture(t)

	for i, p := range []string{"", "https://evil.example.com/", "//evil.example.com", "/\\evil"} {
		out, err := policy.Recover(context.Background(), RecoverInput{ClientKey: string(rune('a' + i)), Path: p})
		require.NoError(t, err)
		assert.Equal(t, "/", out.RedirectTo, "path %q", p)
	}
}

func TestRecoveryPolicy_NoClientKeyNeverRedirects(t *testing.T) {
	policy, _ := newRecoveryFixture(t)
	out, err := policy.Recover(context.Background(), RecoverInput{Path: "/admin/"})
	require.NoError(t, err)
	assert.Equal(t, RecoveryExhausted, out.Kind)
}

func TestRecoveryPolicy_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)

	t.Run("session delete fails", func(t *testing.T) {
		store := mocks.NewMockSessionStore(ctrl)
		store.EXPECT().Delete(gomock.Any(), "s1").Return(errors.New("boom"))
		policy := NewRecoveryPolicy(RecoveryPolicyOptions{Sessions: store, Markers: mocks.NewMockRetryMarkers(ctrl)})

		_, err := policy.Recover(context.Background(), RecoverInput{ClientKey: "k", SessionID: "s1", Path: "/"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "destroy session")
	})

	t.Run("marker store fails", func(t *testing.T) {
		markers := mocks.NewMockRetryMarkers(ctrl)
		markers.EXPECT().Mark(gomock.Any(), "k|/admin/", DefaultMarkerTTL).Return(false, errors.New("boom"))
		policy := NewRecoveryPolicy(RecoveryPolicyOptions{Sessions: mockauth.NewMemorySessionStore(), Markers: markers})

		_, err := policy.Recover(context.Background(), RecoverInput{ClientKey: "k", Path: "/admin/"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mark recovery")
	})
}
