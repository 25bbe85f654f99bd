package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xilidan/automator/gateways/automator/view"
	"github.com/xilidan/automator/services/automator/entity"
)

type Report struct {
	File        string            `yaml:"file"`
	ProcessedAt time.Time         `yaml:"processed_at"`
	Outcome     entity.RunOutcome `yaml:"outcome"`
}

// WriteReports writes <name>.md with the rendered display and <name>.yaml with
// the raw outcome into dir, and returns both paths.
func WriteReports(dir, filename string, outcome entity.RunOutcome, at time.Time) (string, string, error) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	mdPath := filepath.Join(dir, base+".md")
	md := fmt.Sprintf("# %s\n\n%s", filename, view.Markdown(view.FromOutcome(outcome)))
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return "", "", fmt.Errorf("write markdown report: %w", err)
	}

	data, err := yaml.Marshal(Report{File: filename, ProcessedAt: at, Outcome: outcome})
	if err != nil {
		return "", "", fmt.Errorf("marshal yaml report: %w", err)
	}
	yamlPath := filepath.Join(dir, base+".yaml")
	if err := os.WriteFile(yamlPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write yaml report: %w", err)
	}

	return mdPath, yamlPath, nil
}
