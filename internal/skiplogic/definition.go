package skiplogic

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"surveyflow/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DefinitionErrors lists every structural problem found in a survey definition
type DefinitionErrors []string

func (e DefinitionErrors) Error() string {
	return "invalid survey definition: " + strings.Join(e, "; ")
}

// ValidateDefinition checks field constraints and rule integrity: every rule
// needs targets, and triggers and targets must name existing questions.
// Every question must sit in a declared category, since only categories
// become pages.
// It expects a normalised definition.
func ValidateDefinition(s *model.Survey) error {
	var problems DefinitionErrors

	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate definition: %w", err)
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}

	questions := make(map[int]*model.Question, len(s.Questions))
	for i := range s.Questions {
		q := &s.Questions[i]
		if _, dup := questions[q.SequenceNum]; dup {
			problems = append(problems, fmt.Sprintf("duplicate sequence_num %d", q.SequenceNum))
		}
		questions[q.SequenceNum] = q
	}

	categories := make(map[int]bool, len(s.Categories))
	for _, c := range s.Categories {
		categories[c.ID] = true
	}

	for _, q := range s.Questions {
		if !categories[q.Category] {
			problems = append(problems, fmt.Sprintf("question %d references unknown category %d", q.SequenceNum, q.Category))
		}
		if q.Type.IsChoice() && len(q.Options) == 0 {
			problems = append(problems, fmt.Sprintf("question %d has no options", q.SequenceNum))
		}
		if q.Type == model.QuestionTypeRating && q.Scale != "" {
			if _, _, ok := q.ScaleRange(); !ok {
				problems = append(problems, fmt.Sprintf("question %d has malformed scale %q", q.SequenceNum, q.Scale))
			}
		}
		seen := make(map[int]bool)
		for _, o := range model.FlattenOptions(q.Options) {
			if seen[o.ID] {
				problems = append(problems, fmt.Sprintf("question %d has duplicate option id %d", q.SequenceNum, o.ID))
			}
			seen[o.ID] = true
		}
		if q.DependsOn != nil {
			parent, ok := questions[*q.DependsOn]
			if !ok || !parent.Type.IsChoice() {
				problems = append(problems, fmt.Sprintf("question %d depends on %d which is not a choice question", q.SequenceNum, *q.DependsOn))
			}
		}
	}

	for i, r := range s.Rules {
		if _, ok := questions[r.TriggerQuestion]; !ok {
			problems = append(problems, fmt.Sprintf("skip_logic[%d] trigger %d does not exist", i, r.TriggerQuestion))
		}
		for _, t := range r.Targets {
			if _, ok := questions[t]; !ok {
				problems = append(problems, fmt.Sprintf("skip_logic[%d] target %d does not exist", i, t))
			}
			if t == r.TriggerQuestion && (r.Action == model.ActionShow || r.Action == model.ActionHide) {
				problems = append(problems, fmt.Sprintf("skip_logic[%d] controls the visibility of its own trigger %d", i, t))
			}
		}
		if len(model.ParseIDs(r.TriggerValues)) == 0 {
			problems = append(problems, fmt.Sprintf("skip_logic[%d] has no numeric trigger values", i))
		}
	}

	if len(problems) > 0 {
		return problems
	}
	return nil
}
