package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xilidan/automator/gateways/automator/watcher"
)

func newWatchCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "watch",
		Short: "Process every recording dropped into the input folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			if v, _ := cmd.Flags().GetString("input"); v != "" {
				cfg.Watch.Input = v
			}
			if v, _ := cmd.Flags().GetString("output"); v != "" {
				cfg.Watch.Output = v
			}

			uc, err := newUsecase(cfg, log)
			if err != nil {
				return err
			}
			w, err := watcher.New(cfg.Watch, cfg.Backend.AllowedFormats, uc, log)
			if err != nil {
				return err
			}
			defer w.Stop()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	c.Flags().String("input", "", "input folder (env: WATCH_INPUT)")
	c.Flags().String("output", "", "report folder (env: WATCH_OUTPUT)")
	return c
}
