package config

import (
	"fmt"
	"strings"
	"time"
)

// SessionStoreKind selects where sessions, ticket claims and recovery markers live.
type SessionStoreKind string

const (
	SessionStoreRedis  SessionStoreKind = "redis"
	SessionStoreMemory SessionStoreKind = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for SessionStoreKind.
func (k *SessionStoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "redis", "memory":
		*k = SessionStoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid SessionStoreKind: %q (valid options: redis, memory)", v)
	}
}

const (
	defaultSessionTTL        = 8 * time.Hour
	defaultTicketLedgerTTL   = 10 * time.Minute
	defaultRecoveryMarkerTTL = 2 * time.Minute
	defaultLedgerSize        = 10000
)

// SessionConfig contains session lifetime and replay-protection settings.
type SessionConfig struct {
	Store SessionStoreKind `env:"SESSION_STORE" envDefault:"redis"`
	TTL   time.Duration    `env:"SESSION_TTL"   envDefault:"8h"`

	// TicketLedgerTTL is how long a consumed ticket is remembered.
	TicketLedgerTTL time.Duration `env:"TICKET_LEDGER_TTL" envDefault:"10m"`
	// RecoveryMarkerTTL bounds repeated recovery redirects for a path.
	RecoveryMarkerTTL time.Duration `env:"RECOVERY_MARKER_TTL" envDefault:"2m"`
	// LedgerSize caps the in-memory ticket ledger.
	LedgerSize int `env:"LEDGER_SIZE" envDefault:"10000"`
}

// Sanitize restores defaults for non-positive values.
func (s *SessionConfig) Sanitize() {
	if s.Store == "" {
		s.Store = SessionStoreRedis
	}
	if s.TTL <= 0 {
		s.TTL = defaultSessionTTL
	}
	if s.TicketLedgerTTL <= 0 {
		s.TicketLedgerTTL = defaultTicketLedgerTTL
	}
	if s.RecoveryMarkerTTL <= 0 {
		s.RecoveryMarkerTTL = defaultRecoveryMarkerTTL
	}
	if s.LedgerSize <= 0 {
		s.LedgerSize = defaultLedgerSize
	}
}
