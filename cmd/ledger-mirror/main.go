package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"finance/internal/amqp"
	"finance/internal/cli"
	"finance/internal/config"
	applog "finance/internal/log"
	"finance/internal/observability"
	"finance/internal/ports"
	gsheet "finance/internal/sheets/google"
	"finance/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).ValidateMirror)
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	logger.Info("Starting ledger-mirror", applog.FieldOperation, applog.OpStartup)

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	var mirror ports.LedgerMirror
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewClient(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Mirroring ledger into Google Sheets", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mirror = worker.NewLogMirror()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, logging entries only")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, metrics)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(context.Context) {
		if err := client.Close(); err != nil {
			logger.Error("AMQP close error", applog.FieldError, err)
		}
	})

	wcfg := worker.DefaultConfig()
	wcfg.Prefetch = cfg.MirrorPrefetch
	wcfg.RetryDelay = cfg.MirrorRetryDelay
	if err := worker.NewMirrorWorker(client, mirror, metrics, wcfg).Run(ctx); err != nil {
		logger.Error("Mirror worker stopped", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("ledger-mirror stopped")
}
