package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/target/casgate/config"
)

// sweepInterval is how often expired in-memory sessions are purged.
const sweepInterval = time.Minute

// Run connects dependencies, serves HTTP and blocks until SIGINT/SIGTERM or a
// fatal error.
func Run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient redis.UniversalClient
	if cfg.Session.Store == config.SessionStoreRedis {
		client, err := ConnectRedis(ctx, RedisConnConfig{Redis: cfg.Redis, Logger: logger})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		redisClient = client
		defer func() {
			if cerr := client.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	metrics := BuildMetrics(logger, cfg.Observability.Metrics)
	if metrics != nil {
		defer func() {
			if cerr := metrics.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close statsd failed", "error", cerr)
			}
		}()
	}

	authCfg := AuthConfig{
		CAS:         cfg.CAS,
		Session:     cfg.Session,
		Redis:       cfg.Redis,
		RedisClient: redisClient,
		Logger:      logger,
	}
	// Avoid storing a typed nil in the Sink interface.
	if metrics != nil {
		authCfg.Metrics = metrics
	}
	components, err := BuildAuth(authCfg)
	if err != nil {
		return err
	}

	server, err := BuildHTTPServer(&HTTPServerConfig{Config: cfg, Auth: components, Logger: logger})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ServeHTTP(gctx, server, cfg.HTTP.ShutdownTimeout, logger)
	})
	if components.Sweep != nil {
		g.Go(func() error {
			runSweeper(gctx, components.Sweep, sweepInterval, logger)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("casgate stopped")
	return nil
}

func runSweeper(ctx context.Context, sweep func() int, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sweep(); n > 0 {
				logger.DebugContext(ctx, "swept expired sessions", "count", n)
			}
		}
	}
}
