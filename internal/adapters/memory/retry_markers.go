package memory

import (
	"context"
	"sync"
	"time"

	"github.com/target/casgate/internal/ports"
)

const sweepEvery = 256

// RetryMarkers is a map of marker keys to expiry times. Expired entries are
// swept lazily every few writes.
type RetryMarkers struct {
	mu      sync.Mutex
	markers map[string]time.Time
	writes  int
	now     func() time.Time
}

var _ ports.RetryMarkers = (*RetryMarkers)(nil)

// NewRetryMarkers creates an empty marker set.
func NewRetryMarkers() *RetryMarkers {
	return &RetryMarkers{
		markers: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Mark sets key unless a live marker exists, reporting whether it was set.
func (m *RetryMarkers) Mark(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if exp, ok := m.markers[key]; ok && now.Before(exp) {
		return false, nil
	}
	m.markers[key] = now.Add(ttl)

	m.writes++
	if m.writes%sweepEvery == 0 {
		for k, exp := range m.markers {
			if !now.Before(exp) {
				delete(m.markers, k)
			}
		}
	}
	return true, nil
}
