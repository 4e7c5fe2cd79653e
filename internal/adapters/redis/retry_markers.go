package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/casgate/internal/ports"
)

// RetryMarkers stores recovery markers under "retry:" with a TTL.
type RetryMarkers struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.RetryMarkers = (*RetryMarkers)(nil)

// NewRetryMarkers creates a Redis-backed marker set.
func NewRetryMarkers(client redis.UniversalClient) *RetryMarkers {
	return NewRetryMarkersWithPrefix(client, "retry:")
}

// NewRetryMarkersWithPrefix creates a marker set with a custom key prefix.
func NewRetryMarkersWithPrefix(client redis.UniversalClient, prefix string) *RetryMarkers {
	return &RetryMarkers{client: client, prefix: prefix}
}

func (m *RetryMarkers) Mark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, errors.New("marker key cannot be empty")
	}
	ok, err := setNX(ctx, m.client, m.prefix+key, ttl)
	if err != nil {
		return false, fmt.Errorf("set retry marker: %w", err)
	}
	return ok, nil
}
