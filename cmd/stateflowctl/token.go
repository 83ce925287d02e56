package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stateflow.dev/stateflow/internal/api/middleware"
)

func newTokenCmd(e *env) *cobra.Command {
	var (
		actorID string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a Bearer token identifying an actor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			jwtCfg := middleware.JWTConfig{
				SigningKey: []byte(cfg.Security.JWTSigningKey),
				Issuer:     cfg.Security.JWTIssuer,
				ExpiresIn:  ttl,
			}
			if !jwtCfg.Enabled() {
				return fmt.Errorf("security.jwt_signing_key is not configured")
			}
			token, expiresAt, err := middleware.GenerateToken(jwtCfg, actorID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "Actor id carried in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}
