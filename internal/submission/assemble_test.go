package submission

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyflow/internal/model"
)

func surveyQuestions() []model.Question {
	return []model.Question{
		{SequenceNum: 1, Type: model.QuestionTypeSingleChoice, Options: []model.Option{{ID: 1}, {ID: 2, IsOther: true}}},
		{SequenceNum: 2, Type: model.QuestionTypeMultiSelect, Options: []model.Option{{ID: 10}, {ID: 11}, {ID: 12, IsOther: true}}},
		{SequenceNum: 3, Type: model.QuestionTypeText},
		{SequenceNum: 4, Type: model.QuestionTypeNumber},
		{SequenceNum: 5, Type: model.QuestionTypeRating, Scale: "1-5"},
		{SequenceNum: 6, Type: model.QuestionType("matrix")},
		{SequenceNum: 7, Type: model.QuestionTypeDropDown, Options: []model.Option{{ID: 1, SubOptions: []model.Option{{ID: 5}}}}},
	}
}

func TestAssemble_TypeMapping(t *testing.T) {
	answers := model.Answers{
		"1": "2", "1_other": "bicycle",
		"2": []any{12.0}, "2_other": "my own",
		"3": "hello",
		"4": "0",
		"5": 4.0,
		"6": "ignored",
		"7": "5",
	}
	info := model.RespondentInfo{SessionID: "sess-1", UserAgent: "test"}
	payload := Assemble("survey-1", surveyQuestions(), answers, Options{Respondent: info})

	assert.Equal(t, "survey-1", payload.SurveyID)
	assert.Equal(t, info, payload.RespondentInfo)
	require.Len(t, payload.Responses, 6)

	byQ := map[int]model.AnswerRecord{}
	for _, r := range payload.Responses {
		byQ[r.QuestionSN] = r.Answer
	}
	assert.NotContains(t, byQ, 6)

	assert.Equal(t, 2, *byQ[1].SelectedOptionID)
	assert.True(t, byQ[1].IsOther)
	assert.Equal(t, "bicycle", *byQ[1].TextValue)

	assert.Equal(t, []int{12}, byQ[2].SelectedOptionIDs)
	assert.Equal(t, "my own", *byQ[2].TextValue)

	assert.Equal(t, "hello", *byQ[3].TextValue)
	assert.Equal(t, 0.0, *byQ[4].NumberValue)
	assert.Equal(t, 4.0, *byQ[5].RatingValue)
	assert.Equal(t, 5, *byQ[7].SelectedOptionID)
}

func TestAssemble_UnansweredAndVisibility(t *testing.T) {
	answers := model.Answers{"3": "kept", "4": "not a number"}
	payload := Assemble("s", surveyQuestions(), answers, Options{Visible: model.NewVisibilitySet(2, 3, 4)})

	require.Len(t, payload.Responses, 3)
	assert.Equal(t, []int{}, payload.Responses[0].Answer.SelectedOptionIDs)
	assert.Nil(t, payload.Responses[0].Answer.TextValue)
	assert.Equal(t, "kept", *payload.Responses[1].Answer.TextValue)
	assert.Nil(t, payload.Responses[2].Answer.NumberValue)
}

func TestAssemble_WireShape(t *testing.T) {
	answers := model.Answers{"2": []any{"12"}, "2_other": "other text", "1": "1", "4": "7.5"}
	payload := Assemble("s", surveyQuestions(), answers, Options{Visible: model.NewVisibilitySet(1, 2, 4)})

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded struct {
		Responses []struct {
			QuestionSN int            `json:"question_sn"`
			Answer     map[string]any `json:"answer"`
		} `json:"responses"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Responses, 3)

	assert.Equal(t, map[string]any{"selected_option_id": 1.0, "text_value": nil}, decoded.Responses[0].Answer)
	assert.Equal(t, map[string]any{"selected_option_ids": []any{12.0}, "text_value": "other text"}, decoded.Responses[1].Answer)
	assert.Equal(t, map[string]any{"number_value": 7.5}, decoded.Responses[2].Answer)
}
