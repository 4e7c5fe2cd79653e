package bootstrap

import (
	"log/slog"

	"github.com/target/casgate/config"
	"github.com/target/casgate/internal/observability/statsd"
)

// BuildMetrics returns the StatsD client, or nil when metrics are disabled or
// the sink cannot be dialled. Metrics never block startup.
func BuildMetrics(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) *statsd.Client {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.IsEnabled() {
		return nil
	}

	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	logger.Info("statsd metrics enabled", "addr", cfg.StatsdAddress, "prefix", cfg.Prefix)
	return client
}
