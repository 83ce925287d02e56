package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"stateflow.dev/stateflow/internal/app/modules"
	"stateflow.dev/stateflow/internal/config"
	apperrors "stateflow.dev/stateflow/internal/pkg/errors"
	"stateflow.dev/stateflow/internal/pkg/logger"
)

// seedActor is recorded as created_by on seeded terms.
const seedActor = "system:seed"

// seedFile is the on-disk vocabulary format:
//
//	terms:
//	  - label: Order
//	    description: A confirmed purchase order
type seedFile struct {
	Terms []seedTerm `yaml:"terms"`
}

type seedTerm struct {
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
}

func loadSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

func newSeedCmd(e *env) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create IO terms from a YAML vocabulary file",
		Long: `seed creates every term listed in the file. Terms whose label already
exists (case-insensitively) are skipped, so the command is idempotent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadSeedFile(path)
			if err != nil {
				return err
			}
			return e.withModule(cmd.Context(), func(_ *config.Config, _ *modules.Infrastructure, mod *modules.StateIOModule) error {
				created, skipped := 0, 0
				for _, t := range f.Terms {
					_, err := mod.Engine().CreateTerm(cmd.Context(), t.Label, t.Description, seedActor)
					switch {
					case err == nil:
						created++
					case apperrors.HasCode(err, apperrors.CodeIOTermLabelExists):
						logger.Debug("term already exists, skipping", zap.String("label", t.Label))
						skipped++
					default:
						return fmt.Errorf("seed term %q: %w", t.Label, err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d terms, skipped %d existing\n", created, skipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "Path to the vocabulary YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
