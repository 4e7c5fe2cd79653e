package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/casgate/internal/domain/auth"
	"github.com/target/casgate/internal/ports"
	"github.com/target/casgate/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func testSession(id string, ttl time.Duration) domainauth.Session {
	now := time.Now()
	return domainauth.Session{
		ID:           id,
		UserID:       "alice",
		Attributes:   map[string][]string{"mail": {"alice@example.com"}},
		Capabilities: []domainauth.Capability{domainauth.CapabilityStaff},
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	session := testSession("test-session-1", 30*time.Minute)
	require.NoError(t, store.Save(ctx, session))

	retrieved, err := store.Get(ctx, "test-session-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, retrieved.ID)
	assert.Equal(t, session.UserID, retrieved.UserID)
	assert.Equal(t, session.Attributes, retrieved.Attributes)
	assert.True(t, retrieved.IsStaff())
	assert.WithinDuration(t, session.ExpiresAt, retrieved.ExpiresAt, time.Second)

	ttl := client.TTL(ctx, "session:test-session-1").Val()
	assert.Greater(t, ttl, 29*time.Minute)
}

func TestSessionStore_GetNonExistent(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)

	_, err := store.Get(context.Background(), "non-existent")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	_, err = store.Get(context.Background(), "")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestSessionStore_Delete(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("test-session-delete", 30*time.Minute)))
	require.NoError(t, store.Delete(ctx, "test-session-delete"))

	_, err := store.Get(ctx, "test-session-delete")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
	assert.NoError(t, store.Delete(ctx, ""))
}

func TestSessionStore_TTLExpiration(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("test-session-ttl", 100*time.Millisecond)))
	time.Sleep(200 * time.Millisecond)

	_, err := store.Get(ctx, "test-session-ttl")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestSessionStore_ExpiredRecordIsDeletedOnRead(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("test-session-skew", time.Hour)))

	// Simulate a clock that has passed ExpiresAt while the key still lives.
	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := store.Get(ctx, "test-session-skew")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
	assert.Equal(t, int64(0), client.Exists(ctx, "session:test-session-skew").Val())
}

func TestSessionStore_CorruptRecordIsDiscarded(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "session:test-session-corrupt", "{not json", time.Hour).Err())

	_, err := store.Get(ctx, "test-session-corrupt")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
	assert.Equal(t, int64(0), client.Exists(ctx, "session:test-session-corrupt").Val())
}

func TestSessionStore_CustomPrefix(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStoreWithPrefix(client, "test-prefix:")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("prefix-test", 30*time.Minute)))
	assert.Equal(t, int64(1), client.Exists(ctx, "test-prefix:prefix-test").Val())

	retrieved, err := store.Get(ctx, "prefix-test")
	require.NoError(t, err)
	assert.Equal(t, "prefix-test", retrieved.ID)
}

func TestSessionStore_SaveRejectsInvalid(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	err := store.Save(ctx, testSession("", 30*time.Minute))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session ID cannot be empty")

	err = store.Save(ctx, testSession("expired-session", -time.Hour))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session is expired")
}

func TestTicketLedger_Claim(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	ledger := NewTicketLedger(client)
	ctx := context.Background()
	ticket := "ST-" + uuid.NewString()

	first, err := ledger.Claim(ctx, ticket, time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := ledger.Claim(ctx, ticket, time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	ttl := client.TTL(ctx, "ticket:"+ticket).Val()
	assert.Greater(t, ttl, time.Duration(0))

	_, err = ledger.Claim(ctx, "", time.Minute)
	assert.Error(t, err)
	_, err = ledger.Claim(ctx, "ST-"+uuid.NewString(), 0)
	assert.Error(t, err)
}

func TestRetryMarkers_Mark(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	markers := NewRetryMarkers(client)
	ctx := context.Background()
	key := uuid.NewString() + "|/admin/"

	first, err := markers.Mark(ctx, key, 200*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := markers.Mark(ctx, key, 200*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, second)

	time.Sleep(300 * time.Millisecond)
	third, err := markers.Mark(ctx, key, 200*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, third)
}
