package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	config "github.com/xilidan/automator/config/automator"
	"github.com/xilidan/automator/gateways/automator"
	"github.com/xilidan/automator/pkg/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web gateway (upload page, JSON API, metrics)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}

			ctx := logger.WithContext(cmd.Context(), log)
			rootCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := serve(rootCtx, cfg); err != nil {
				log.Error("failed to serve", slog.String("error", err.Error()))
				return err
			}
			log.Info("application terminated successfully")
			return nil
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.FromContext(ctx)
	uc, err := newUsecase(cfg, log)
	if err != nil {
		return err
	}
	return automator.New(cfg, uc, log).Start(ctx)
}
