package skiplogic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyflow/internal/model"
)

func validSurvey() *model.Survey {
	s := chainSurvey()
	s.Metadata.Title = "Household survey"
	for i := range s.Questions {
		s.Questions[i].Prompt = "Question"
	}
	s.Categories = []model.Category{{Rank: 1, Name: "Intro"}, {Rank: 2, Name: "Details"}}
	s.Normalize()
	return s
}

func TestValidateDefinition_Valid(t *testing.T) {
	assert.NoError(t, ValidateDefinition(validSurvey()))
}

func TestValidateDefinition_Problems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *model.Survey)
		want   string
	}{
		{"missing title", func(s *model.Survey) { s.Metadata.Title = "" }, "metadata.title"},
		{"bad question type", func(s *model.Survey) { s.Questions[0].Type = "slider" }, "type"},
		{"empty targets", func(s *model.Survey) { s.Rules[0].Targets = nil }, "target_questions_sn"},
		{"unknown trigger", func(s *model.Survey) { s.Rules[0].TriggerQuestion = 77 }, "trigger 77 does not exist"},
		{"unknown target", func(s *model.Survey) { s.Rules[0].Targets = []int{88} }, "target 88 does not exist"},
		{"self target", func(s *model.Survey) { s.Rules[0].Targets = []int{1} }, "its own trigger 1"},
		{"duplicate sequence", func(s *model.Survey) { s.Questions[1].SequenceNum = 1 }, "duplicate sequence_num 1"},
		{"unknown category", func(s *model.Survey) { s.Questions[0].Category = 9 }, "unknown category 9"},
		{"no categories", func(s *model.Survey) { s.Categories = nil }, "question_categories"},
		{"uncategorised question", func(s *model.Survey) { s.Questions[2].Category = 0 }, "question 3 references unknown category 0"},
		{"bad scale", func(s *model.Survey) {
			s.Questions[3].Type = model.QuestionTypeRating
			s.Questions[3].Scale = "five"
		}, "malformed scale"},
		{"no trigger values", func(s *model.Survey) { s.Rules[0].TriggerValues = model.TriggerValues{"x"} }, "no numeric trigger values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSurvey()
			tt.mutate(s)
			err := ValidateDefinition(s)
			require.Error(t, err)

			var defErrs DefinitionErrors
			require.ErrorAs(t, err, &defErrs)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
