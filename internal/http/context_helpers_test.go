package httpx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/target/casgate/internal/domain/auth"
)

func TestSessionContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, SetSessionInContext(ctx, nil))

	_, ok := GetUserSessionFromContext(ctx)
	assert.False(t, ok)
	assert.Nil(t, GetSessionFromContext(ctx))
	assert.False(t, HasCapability(ctx, ""))

	sess := &domainauth.Session{UserID: "bob"}
	ctx = SetSessionInContext(ctx, sess)
	got, ok := GetUserSessionFromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, sess, got)
	assert.True(t, HasCapability(ctx, ""))
	assert.False(t, HasCapability(ctx, domainauth.CapabilityStaff))
}

func TestRecoveryContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, recoveryFromContext(ctx))
	assert.Equal(t, ctx, withRecovery(ctx, nil))

	rec := &TicketRecovery{}
	assert.Same(t, rec, recoveryFromContext(withRecovery(ctx, rec)))
}
