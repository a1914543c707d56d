package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"finance/internal/auth"
	"finance/internal/backend"
	"finance/internal/cli"
	"finance/internal/config"
	apphttp "finance/internal/http"
	applog "finance/internal/log"
	"finance/internal/middleware/ratelimit"
	"finance/internal/observability"
	"finance/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).ValidateServer)
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(metrics).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to create backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	opts := apphttp.Options{
		Obligations: services.NewObligationService(be.Store, be.Publisher, metrics),
		Ledger:      services.NewLedgerService(be.Store, be.Publisher, metrics),
		Balances:    services.NewBalanceService(be.Store),
		Verifier:    auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		Metrics:     metrics,
		Ready:       be.Ping,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
	}
	if cfg.MetricsEnabled {
		opts.Gatherer = reg
	}
	srv := apphttp.NewServer(":"+cfg.Port, opts)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting finance server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", be.Publisher != nil,
		applog.FieldOperation, applog.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
