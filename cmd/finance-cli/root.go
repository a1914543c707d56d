package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"finance/internal/backend"
	"finance/internal/cli"
	"finance/internal/config"
	applog "finance/internal/log"
	"finance/internal/observability"
	"finance/internal/services"
)

var (
	userID  int64
	verbose bool
)

func init() {
	rootCmd.PersistentFlags().Int64VarP(&userID, "user", "u", 0, "User id the command acts for")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level instead of warnings only")
}

var rootCmd = &cobra.Command{
	Use:   "finance-cli",
	Short: "Administer the finance store",
	Long: `finance-cli works directly on the configured store, using the same
configuration as the server (CONFIG_FILE, .env and environment).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// app holds the services of one command invocation.
type app struct {
	obligations *services.ObligationService
	balances    *services.BalanceService
	cleanup     backend.CleanupFunc
}

func loadConfig() (*config.Config, error) {
	cli.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !verbose {
		cfg.LogLevel = "warn"
	}
	cli.SetupLogger(cfg, applog.ComponentApp)
	return cfg, nil
}

func requireUser() error {
	if userID <= 0 {
		return fmt.Errorf("--user is required and must be positive")
	}
	return nil
}

func openApp(ctx context.Context) (*app, error) {
	if err := requireUser(); err != nil {
		return nil, err
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	be, err := backend.NewFactory(metrics).CreateBackend(ctx, bc)
	if err != nil {
		return nil, err
	}
	return &app{
		obligations: services.NewObligationService(be.Store, be.Publisher, metrics),
		balances:    services.NewBalanceService(be.Store),
		cleanup:     be.Cleanup,
	}, nil
}

// withApp opens the store around run and closes it afterwards.
func withApp(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.cleanup()
		return run(cmd, args, a)
	}
}
