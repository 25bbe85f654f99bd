package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xilidan/automator/services/automator/entity"
)

var version = "dev"

// errReported marks failures that were already printed to the user.
var errReported = errors.New("reported")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "automator",
		Short:         "Meeting automator: transcribe recordings, summarize them and extract action items",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (yaml, json, toml or env); environment variables override it")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the configuration, ignored when missing")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newTokenCmd())
	return rootCmd
}

func errorMessage(err error) string {
	var cfgErr *entity.ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr.Message()
	}
	return err.Error()
}
