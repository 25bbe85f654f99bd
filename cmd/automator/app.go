package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	config "github.com/xilidan/automator/config/automator"
	"github.com/xilidan/automator/gateways/automator/clients/backend"
	"github.com/xilidan/automator/pkg/logger"
	"github.com/xilidan/automator/services/automator/usecase"
)

// setup loads the configuration and builds the logger. It fails before anything
// touches the network when the backend address is missing.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Config{
		Level:      level,
		Output:     os.Stderr,
		AddSource:  level == slog.LevelDebug,
		JSONFormat: cfg.Log.JSON,
		File:       cfg.Log.File,
	})
	logger.SetDefault(log)

	log.Debug("configuration loaded",
		slog.Int("port", cfg.Port),
		slog.String("backend", cfg.Backend.BaseURL),
		slog.String("schema", cfg.Backend.Schema),
		slog.Duration("timeout", cfg.Backend.Timeout),
		slog.Any("formats", cfg.Backend.AllowedFormats))
	return cfg, log, nil
}

func newUsecase(cfg *config.Config, log *slog.Logger) (usecase.Usecase, error) {
	client, err := backend.New(cfg.Backend, log)
	if err != nil {
		return nil, err
	}
	return usecase.New(client, log), nil
}
