package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xilidan/automator/pkg/jwt"
)

func newTokenCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the JSON API (requires AUTH_JWT_SECRET)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("AUTH_JWT_SECRET is not set, the API does not require tokens")
			}

			subject, _ := cmd.Flags().GetString("subject")
			token, err := jwt.Generate(cmd.Context(), subject, cfg.Auth.JWTSecret)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	c.Flags().String("subject", "cli", "token subject")
	return c
}
