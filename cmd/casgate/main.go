package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/target/casgate/config"
	"github.com/target/casgate/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger(false)
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.IsDev {
		logger = bootstrap.InitLogger(true)
	}

	logStartupInfo(ctx, logger, &cfg)
	return bootstrap.Run(ctx, &cfg, logger)
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting casgate",
		"cas_mode", cfg.CAS.Mode,
		"cas_server", cfg.CAS.ServerURL,
		"cas_version", int(cfg.CAS.Version),
		"session_store", cfg.Session.Store,
		"admin_prefix", cfg.CAS.AdminPrefix,
		"no_redirect", cfg.CAS.NoRedirect,
		"upstream", cfg.HTTP.UpstreamURL,
		"dev", cfg.IsDev)
}
