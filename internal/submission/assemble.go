// Package submission turns an answer snapshot into the submission payload and
// tracks the submit lifecycle.
package submission

import (
	"fmt"
	"strings"

	"surveyflow/internal/model"
)

// Options tune Assemble
type Options struct {
	// Visible, when non-nil, limits the payload to these questions.
	Visible    model.VisibilitySet
	Respondent model.RespondentInfo
}

// Assemble maps each question to a type-tagged answer record. Questions of an
// unknown type are left out.
func Assemble(surveyID string, questions []model.Question, answers model.Answers, opts Options) model.SubmissionPayload {
	payload := model.SubmissionPayload{
		SurveyID:       surveyID,
		RespondentInfo: opts.Respondent,
		Responses:      make([]model.ResponseItem, 0, len(questions)),
	}
	for i := range questions {
		q := &questions[i]
		if opts.Visible != nil && !opts.Visible.Has(q.SequenceNum) {
			continue
		}
		record, ok := mapAnswer(q, answers)
		if !ok {
			continue
		}
		payload.Responses = append(payload.Responses, model.ResponseItem{
			QuestionSN:   q.SequenceNum,
			QuestionType: q.Type,
			Answer:       record,
		})
	}
	return payload
}

func mapAnswer(q *model.Question, answers model.Answers) (model.AnswerRecord, bool) {
	value := answers.Get(q.SequenceNum)
	other := strings.TrimSpace(answers.Other(q.SequenceNum))

	switch q.Type {
	case model.QuestionTypeSingleChoice, model.QuestionTypeDropDown:
		var rec model.AnswerRecord
		if id, ok := model.ParseInt(value); ok {
			rec.SelectedOptionID = &id
			if q.OtherOptionIDs()[id] {
				rec.IsOther = true
				rec.TextValue = textPtr(other)
			}
		}
		return rec, true

	case model.QuestionTypeMultiSelect:
		ids := model.ParseOptionIDs(value)
		if ids == nil {
			ids = []int{}
		}
		rec := model.AnswerRecord{SelectedOptionIDs: ids}
		otherIDs := q.OtherOptionIDs()
		for _, id := range ids {
			if otherIDs[id] {
				rec.TextValue = textPtr(other)
				break
			}
		}
		return rec, true

	case model.QuestionTypeText, model.QuestionTypeTextArea:
		var text string
		switch v := value.(type) {
		case nil:
		case string:
			text = v
		default:
			text = fmt.Sprint(v)
		}
		return model.AnswerRecord{TextValue: textPtr(text)}, true

	case model.QuestionTypeNumber:
		return model.AnswerRecord{NumberValue: numberPtr(value)}, true

	case model.QuestionTypeRating:
		return model.AnswerRecord{RatingValue: numberPtr(value)}, true
	}
	return model.AnswerRecord{}, false
}

func textPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func numberPtr(v any) *float64 {
	n, ok := model.ParseNumber(v)
	if !ok {
		return nil
	}
	return &n
}
