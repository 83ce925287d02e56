package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"stateflow.dev/stateflow/internal/app/modules"
	"stateflow.dev/stateflow/internal/config"
	"stateflow.dev/stateflow/internal/pkg/logger"
)

// env carries the collaborators commands need, so tests can swap them.
type env struct {
	loadConfig func() (*config.Config, error)
}

func defaultEnv() *env {
	return &env{loadConfig: config.Load}
}

func newRootCmd(e *env) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "stateflowctl",
		Short:         "Administer a stateflow deployment",
		Long:          `stateflowctl applies schema migrations, repairs state IO summaries and inspects configuration.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logLevel, "console")
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newMigrateCmd(e),
		newReconcileCmd(e),
		newRecalculateCmd(e),
		newSeedCmd(e),
		newDumpConfigCmd(e),
		newTokenCmd(e),
	)
	return root
}

// withModule builds the storage stack from configuration and hands the
// IO-term module to fn. Resources are released when fn returns.
func (e *env) withModule(ctx context.Context, fn func(cfg *config.Config, infra *modules.Infrastructure, mod *modules.StateIOModule) error) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Migrations are explicit in the CLI.
	cfg.Database.AutoMigrate = false

	infra, err := modules.NewInfrastructure(ctx, cfg, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer infra.Close()

	return fn(cfg, infra, modules.NewStateIOModule(infra))
}
