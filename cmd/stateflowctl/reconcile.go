package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"stateflow.dev/stateflow/internal/app/modules"
	"stateflow.dev/stateflow/internal/config"
	"stateflow.dev/stateflow/internal/pkg/retry"
)

func newReconcileCmd(e *env) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recalculate the IO summaries of every state",
		Long: `reconcile walks all states in id order and rewrites their input and
output summaries from the linked terms. Each batch commits on its own.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withModule(cmd.Context(), func(cfg *config.Config, _ *modules.Infrastructure, mod *modules.StateIOModule) error {
				size := batchSize
				if size <= 0 {
					size = cfg.River.ReconcileBatchSize
				}
				n, err := mod.Reconcile(cmd.Context(), size)
				if err != nil {
					return fmt.Errorf("reconcile after %d states: %w", n, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reconciled %d states\n", n)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "States per transaction (default river.reconcile_batch_size)")
	return cmd
}

func newRecalculateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "recalculate STATE_ID...",
		Short: "Recalculate the IO summaries of the given states",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withModule(cmd.Context(), func(cfg *config.Config, infra *modules.Infrastructure, mod *modules.StateIOModule) error {
				policy := retry.Policy{
					InitialInterval: cfg.Retry.InitialInterval,
					MaxElapsed:      cfg.Retry.MaxElapsed,
				}
				err := retry.Do(cmd.Context(), policy, infra.Transient, func(ctx context.Context) error {
					return mod.Engine().Recalculate(ctx, args)
				})
				if err != nil {
					return fmt.Errorf("recalculate: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "recalculated %d states\n", len(args))
				return nil
			})
		},
	}
}
