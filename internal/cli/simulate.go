package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"surveyflow/internal/model"
	"surveyflow/internal/pager"
	"surveyflow/internal/skiplogic"
	"surveyflow/internal/submission"
)

type simulateOptions struct {
	answers     string
	answersFile string
	payload     bool
}

// NewSimulateCommand creates and returns the simulate subcommand
func NewSimulateCommand() *cobra.Command {
	opts := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate <definition-file>",
		Short: "Replay an answer snapshot through the skip-logic engine",
		Long: `Load a definition, apply an answer snapshot keyed by sequence number
(e.g. {"1": 2, "2_other": "text"}) and print the visible questions, the
answers cleared because their question is hidden, and the resulting pages.

With --payload the submission payload is printed as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return simulate(args[0], opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.answers, "answers", "a", "", "answer snapshot as a JSON object")
	cmd.Flags().StringVarP(&opts.answersFile, "answers-file", "f", "", "file holding the answer snapshot")
	cmd.Flags().BoolVar(&opts.payload, "payload", false, "print the submission payload")
	cmd.MarkFlagsMutuallyExclusive("answers", "answers-file")

	return cmd
}

func simulate(path string, opts *simulateOptions, out io.Writer) error {
	survey, err := loadDefinition(path)
	if err != nil {
		return err
	}
	if err := skiplogic.ValidateDefinition(survey); err != nil {
		return err
	}

	answers, err := readAnswers(opts)
	if err != nil {
		return err
	}

	ctrl := skiplogic.NewController(survey, skiplogic.NewMapStore(nil))
	change, err := ctrl.Restore(answers)
	if err != nil {
		return fmt.Errorf("failed to apply answers: %w", err)
	}

	visible := ctrl.Visible()
	snapshot := ctrl.Answers()
	fmt.Fprintf(out, "visible: %v\n", visible.Sorted())
	if len(change.Cleared) > 0 {
		fmt.Fprintf(out, "cleared: %v\n", change.Cleared)
	}
	if jumps := skiplogic.JumpTargets(survey.Rules, survey.Questions, snapshot); len(jumps) > 0 {
		fmt.Fprintf(out, "jump targets: %v\n", jumps)
	}

	index := ctrl.Index()
	for _, fe := range skiplogic.ValidateQuestions(visibleQuestions(survey, visible), index, snapshot) {
		fmt.Fprintf(out, "invalid [%d]: %s\n", fe.QuestionSN, fe.Message)
	}
	fmt.Fprintf(out, "answered: %.0f%%\n", 100*skiplogic.AnsweredProgress(survey.Questions, visible, snapshot))
	printPages(out, pager.Partition(survey.Categories, survey.Questions, visible))

	if opts.payload {
		payload := submission.Assemble(survey.ID, survey.Questions, snapshot, submission.Options{Visible: visible})
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}
	}
	return nil
}

func readAnswers(opts *simulateOptions) (model.Answers, error) {
	raw := []byte(opts.answers)
	if opts.answersFile != "" {
		data, err := os.ReadFile(opts.answersFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read answers: %w", err)
		}
		raw = data
	}
	answers := model.Answers{}
	if len(raw) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(raw, &answers); err != nil {
		return nil, fmt.Errorf("failed to parse answers: %w", err)
	}
	for key := range answers {
		if _, _, ok := model.ParseKey(key); !ok {
			return nil, fmt.Errorf("invalid answer key %q", key)
		}
	}
	return answers, nil
}

func visibleQuestions(survey *model.Survey, visible model.VisibilitySet) []model.Question {
	var qs []model.Question
	for _, q := range survey.Questions {
		if visible.Has(q.SequenceNum) {
			qs = append(qs, q)
		}
	}
	return qs
}
