package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stateflow.dev/stateflow/internal/config"
	"stateflow.dev/stateflow/internal/infrastructure"
)

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the stateflow schema and River queue tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Storage.Driver != config.StorageDriverPostgres {
				return fmt.Errorf("migrate requires storage.driver=%s, got %q", config.StorageDriverPostgres, cfg.Storage.Driver)
			}

			ctx := cmd.Context()
			db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("init database: %w", err)
			}
			defer db.Close()

			if err := db.AutoMigrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
