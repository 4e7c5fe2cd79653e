package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/target/casgate/internal/ports"
)

// DefaultLedgerSize bounds the number of remembered tickets.
const DefaultLedgerSize = 10000

// ErrLedgerFull is returned when every remembered ticket is still within its TTL.
var ErrLedgerFull = errors.New("ticket ledger full")

// TicketLedger remembers consumed tickets in a bounded LRU cache.
// Each entry stores its own expiry. Only expired entries are evicted; when the
// oldest entry is still live, new claims are refused instead.
type TicketLedger struct {
	mu    sync.Mutex
	cache *lru.Cache
	size  int
	now   func() time.Time
}

var _ ports.TicketLedger = (*TicketLedger)(nil)

// NewTicketLedger creates a ledger holding at most size tickets.
func NewTicketLedger(size int) (*TicketLedger, error) {
	if size <= 0 {
		size = DefaultLedgerSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create ticket ledger: %w", err)
	}
	return &TicketLedger{cache: cache, size: size, now: time.Now}, nil
}

// Claim records ticket and reports whether this was its first use.
func (l *TicketLedger) Claim(_ context.Context, ticket string, ttl time.Duration) (bool, error) {
	now := l.now()
	expiresAt := now.Add(ttl)

	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.cache.Peek(ticket); ok {
		if exp, isTime := prev.(time.Time); isTime && now.Before(exp) {
			return false, nil
		}
		l.cache.Add(ticket, expiresAt)
		return true, nil
	}
	if err := l.makeRoom(now); err != nil {
		return false, err
	}
	l.cache.Add(ticket, expiresAt)
	return true, nil
}

// makeRoom drops expired entries from the old end until one slot is free.
func (l *TicketLedger) makeRoom(now time.Time) error {
	for l.cache.Len() >= l.size {
		_, v, ok := l.cache.GetOldest()
		if !ok {
			return nil
		}
		if exp, isTime := v.(time.Time); isTime && now.Before(exp) {
			return ErrLedgerFull
		}
		l.cache.RemoveOldest()
	}
	return nil
}

// Len reports how many tickets are currently remembered.
func (l *TicketLedger) Len() int {
	return l.cache.Len()
}
