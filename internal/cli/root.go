// Package cli implements surveyctl, the operator tool for survey definitions.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"surveyflow/internal/model"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for surveyctl
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "surveyctl",
		Short: "Check, simulate and seed survey definitions",
		Long: `surveyctl works on survey definition files (YAML or JSON).

It validates skip-logic rules and categories, replays answer snapshots
through the visibility engine to show the resulting pages and payload,
and imports definitions into MongoDB.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewCheckCommand())
	cmd.AddCommand(NewSimulateCommand())
	cmd.AddCommand(NewSeedCommand())

	return cmd
}

// loadDefinition reads and normalises one definition file
func loadDefinition(path string) (*model.Survey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	survey, err := model.ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	survey.Normalize()
	return survey, nil
}
