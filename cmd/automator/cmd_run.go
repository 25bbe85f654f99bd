package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xilidan/automator/gateways/automator/view"
	"github.com/xilidan/automator/pkg/json"
	"github.com/xilidan/automator/services/automator/entity"
	"github.com/xilidan/automator/services/automator/usecase"
)

func newRunCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "run <file>",
		Short: "Process one recording and print the transcript, summary and action items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("output")
			if format != "text" && format != "json" && format != "yaml" {
				return fmt.Errorf("unknown output format %q (text, json or yaml)", format)
			}

			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read recording: %w", err)
			}
			audio := entity.AudioInput{Filename: filepath.Base(path), Data: data}
			if err := usecase.ValidateAudio(audio, cfg.Backend.AllowedFormats); err != nil {
				return err
			}

			uc, err := newUsecase(cfg, log)
			if err != nil {
				return err
			}

			outcome := uc.Run(cmd.Context(), audio)
			if err := printOutcome(cmd.OutOrStdout(), format, outcome); err != nil {
				return err
			}
			if outcome.Kind == entity.OutcomeTotalFailure {
				return errReported
			}
			return nil
		},
	}
	c.Flags().StringP("output", "o", "text", "output format: text, json or yaml")
	return c
}

type runOutput struct {
	Outcome entity.RunOutcome `json:"outcome" yaml:"outcome"`
	Display view.Display      `json:"display" yaml:"display"`
}

func printOutcome(w io.Writer, format string, outcome entity.RunOutcome) error {
	display := view.FromOutcome(outcome)

	switch format {
	case "json":
		data, err := json.Marshal(runOutput{Outcome: outcome, Display: display})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		data, err := yaml.Marshal(runOutput{Outcome: outcome, Display: display})
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	_, err := io.WriteString(w, view.Text(display))
	return err
}
