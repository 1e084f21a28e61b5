package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"surveyflow/internal/model"
	"surveyflow/internal/pager"
	"surveyflow/internal/skiplogic"
)

// NewCheckCommand creates and returns the check subcommand
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <definition-file>...",
		Short: "Validate survey definition files",
		Long: `Parse and validate definition files, checking for:
  - Duplicate or missing sequence numbers
  - Rules that reference unknown questions
  - Questions in unknown categories
  - Dependent drop-downs pointing at missing parents

Prints the pages a respondent sees before answering anything.

Exit code: 0 if every file is valid, 1 otherwise`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkFiles(args, cmd.OutOrStdout())
		},
	}
	return cmd
}

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
	bold     = color.New(color.Bold)
)

func checkFiles(paths []string, out io.Writer) error {
	failed := 0
	for _, path := range paths {
		if err := checkFile(path, out); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d definitions invalid", failed, len(paths))
	}
	return nil
}

func checkFile(path string, out io.Writer) error {
	survey, err := loadDefinition(path)
	if err != nil {
		fmt.Fprintf(out, "%s %v\n", failMark, err)
		return err
	}

	if err := skiplogic.ValidateDefinition(survey); err != nil {
		fmt.Fprintf(out, "%s %s: validation failed\n", failMark, path)
		var defErrs skiplogic.DefinitionErrors
		if errors.As(err, &defErrs) {
			for _, e := range defErrs {
				fmt.Fprintf(out, "    - %s\n", e)
			}
		} else {
			fmt.Fprintf(out, "    - %v\n", err)
		}
		return err
	}

	fmt.Fprintf(out, "%s %s: %d questions, %d rules, %d categories\n",
		okMark, path, len(survey.Questions), len(survey.Rules), len(survey.Categories))

	visible := skiplogic.ResolveVisibility(survey.Questions, skiplogic.IndexRules(survey.Rules), model.Answers{})
	printPages(out, pager.Partition(survey.Categories, survey.Questions, visible))
	return nil
}

func printPages(out io.Writer, pages []pager.Page) {
	for i, p := range pages {
		name := p.Category.Name
		if name == "" {
			name = fmt.Sprintf("category %d", p.Category.ID)
		}
		fmt.Fprintf(out, "  %s\n", bold.Sprintf("page %d: %s", i+1, name))
		for _, q := range p.Questions {
			fmt.Fprintf(out, "    [%d] %s (%s)\n", q.SequenceNum, q.Prompt, q.Type)
		}
	}
}
