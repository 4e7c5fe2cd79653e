package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/casgate/config"
	"github.com/target/casgate/internal/adapters/authcaps"
	"github.com/target/casgate/internal/adapters/cas"
	"github.com/target/casgate/internal/adapters/devauth"
	"github.com/target/casgate/internal/adapters/memory"
	redisadapter "github.com/target/casgate/internal/adapters/redis"
	domainauth "github.com/target/casgate/internal/domain/auth"
	httpx "github.com/target/casgate/internal/http"
	"github.com/target/casgate/internal/observability/statsd"
	"github.com/target/casgate/internal/ports"
	"github.com/target/casgate/internal/service"
)

// AuthConfig contains configuration for the auth components.
type AuthConfig struct {
	CAS     config.CASConfig
	Session config.SessionConfig
	Redis   config.RedisConfig
	// RedisClient is required when Session.Store is redis.
	RedisClient redis.UniversalClient
	Metrics     statsd.Sink
	Logger      *slog.Logger
}

// AuthComponents are the services the HTTP layer is wired with.
type AuthComponents struct {
	Auth      *service.AuthService
	Gate      *service.SessionGate
	Recovery  *service.RecoveryPolicy
	Readiness []httpx.ReadinessCheck
	// Sweep purges expired sessions from the in-memory store; nil for Redis,
	// which expires keys itself.
	Sweep func() int
}

type stores struct {
	sessions ports.SessionStore
	ledger   ports.TicketLedger
	markers  ports.RetryMarkers
	checks   []httpx.ReadinessCheck
	sweep    func() int
}

// BuildAuth assembles stores, the ticket validator, the capability mapper and
// the auth, gate and recovery services from configuration.
func BuildAuth(cfg AuthConfig) (*AuthComponents, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	st, err := buildStores(cfg)
	if err != nil {
		return nil, err
	}

	client, err := buildCASClient(cfg, st.ledger, logger)
	if err != nil {
		return nil, err
	}

	mapper, err := buildCapabilityMapper(cfg.CAS, logger)
	if err != nil {
		return nil, err
	}

	routeRules, err := cfg.CAS.RouteRules()
	if err != nil {
		return nil, err
	}
	routes, err := domainauth.NewRouteTable(routeRules...)
	if err != nil {
		return nil, fmt.Errorf("build route table: %w", err)
	}

	return &AuthComponents{
		Auth: service.NewAuthService(service.AuthServiceOptions{
			CAS:          client,
			Sessions:     st.sessions,
			Capabilities: mapper,
			SessionTTL:   cfg.Session.TTL,
			Logger:       logger,
		}),
		Gate: service.NewSessionGate(service.SessionGateOptions{
			Sessions: st.sessions,
			Routes:   routes,
			Config: service.GateConfig{
				NoRedirect: cfg.CAS.NoRedirect,
				Logger:     logger,
				Metrics:    cfg.Metrics,
			},
		}),
		Recovery: service.NewRecoveryPolicy(service.RecoveryPolicyOptions{
			Sessions: st.sessions,
			Markers:  st.markers,
			Config: service.RecoveryConfig{
				MarkerTTL: cfg.Session.RecoveryMarkerTTL,
				Logger:    logger,
				Metrics:   cfg.Metrics,
			},
		}),
		Readiness: st.checks,
		Sweep:     st.sweep,
	}, nil
}

func buildStores(cfg AuthConfig) (stores, error) {
	switch cfg.Session.Store {
	case config.SessionStoreMemory:
		ledger, err := memory.NewTicketLedger(cfg.Session.LedgerSize)
		if err != nil {
			return stores{}, err
		}
		sessions := memory.NewSessionStore()
		return stores{
			sessions: sessions,
			ledger:   ledger,
			markers:  memory.NewRetryMarkers(),
			sweep:    sessions.Sweep,
		}, nil
	case config.SessionStoreRedis, "":
		if cfg.RedisClient == nil {
			return stores{}, errors.New("redis session store selected but redis client not configured")
		}
		client := cfg.RedisClient
		prefix := cfg.Redis.KeyPrefix
		return stores{
			sessions: redisadapter.NewSessionStoreWithPrefix(client, prefix+"session:"),
			ledger:   redisadapter.NewTicketLedgerWithPrefix(client, prefix+"ticket:"),
			markers:  redisadapter.NewRetryMarkersWithPrefix(client, prefix+"retry:"),
			checks: []httpx.ReadinessCheck{{
				Name:  "redis",
				Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
			}},
		}, nil
	default:
		return stores{}, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}

//nolint:ireturn // the validator is either a real CAS client or the dev provider.
func buildCASClient(cfg AuthConfig, ledger ports.TicketLedger, logger *slog.Logger) (ports.CASClient, error) {
	switch cfg.CAS.Mode {
	case config.CASModeMock:
		logger.Warn("CAS mock mode enabled; tickets are minted locally", "user", cfg.CAS.Dev.User)
		attrs := map[string][]string{}
		if cfg.CAS.Dev.Email != "" {
			attrs["email"] = []string{cfg.CAS.Dev.Email}
		}
		prov, err := devauth.NewProvider(devauth.Config{
			User:       cfg.CAS.Dev.User,
			Attributes: attrs,
			MemberOf:   cfg.CAS.Dev.Groups,
			Ledger:     ledger,
			LedgerTTL:  cfg.Session.TicketLedgerTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("create dev auth provider: %w", err)
		}
		return prov, nil
	default:
		v, err := cas.NewValidator(cas.Config{
			ServerURL: cfg.CAS.ServerURL,
			Version:   int(cfg.CAS.Version),
			Timeout:   cfg.CAS.ValidateTimeout,
			Renew:     cfg.CAS.Renew,
			Ledger:    ledger,
			LedgerTTL: cfg.Session.TicketLedgerTTL,
			Logger:    logger,
			Metrics:   cfg.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("create cas validator: %w", err)
		}
		return v, nil
	}
}

func buildCapabilityMapper(cfg config.CASConfig, logger *slog.Logger) (*authcaps.StaticCapabilityMapper, error) {
	rules, err := cfg.ParseCapabilityRules()
	if err != nil {
		return nil, err
	}
	mapper, err := authcaps.NewStaticCapabilityMapper(authcaps.Config{
		StaffAttribute:  cfg.StaffAttribute,
		StaffGroups:     cfg.StaffGroups,
		StaffUsers:      cfg.StaffUsers,
		SuperuserGroups: cfg.SuperuserGroups,
		Rules:           rules,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create capability mapper: %w", err)
	}
	return mapper, nil
}
