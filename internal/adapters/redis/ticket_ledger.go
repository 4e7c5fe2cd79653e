package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/casgate/internal/ports"
)

// TicketLedger records consumed service tickets with SET NX so that exactly one
// replica wins the claim for a given ticket.
type TicketLedger struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.TicketLedger = (*TicketLedger)(nil)

// NewTicketLedger creates a ledger storing keys under "ticket:".
func NewTicketLedger(client redis.UniversalClient) *TicketLedger {
	return NewTicketLedgerWithPrefix(client, "ticket:")
}

// NewTicketLedgerWithPrefix creates a ledger with a custom key prefix.
func NewTicketLedgerWithPrefix(client redis.UniversalClient, prefix string) *TicketLedger {
	return &TicketLedger{client: client, prefix: prefix}
}

func (l *TicketLedger) Claim(ctx context.Context, ticket string, ttl time.Duration) (bool, error) {
	if ticket == "" {
		return false, errors.New("ticket cannot be empty")
	}
	ok, err := setNX(ctx, l.client, l.prefix+ticket, ttl)
	if err != nil {
		return false, fmt.Errorf("claim ticket: %w", err)
	}
	return ok, nil
}

// setNX sets key to "1" with ttl if it does not exist.
func setNX(ctx context.Context, client redis.UniversalClient, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	return client.SetNX(ctx, key, "1", ttl).Result()
}
