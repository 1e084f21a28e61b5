package model

import (
	"encoding/json"
	"time"
)

// AnswerRecord is the type-tagged answer of one question in a submission.
// Which fields are set depends on the question type.
type AnswerRecord struct {
	SelectedOptionID  *int     `bson:"selected_option_id,omitempty"`
	SelectedOptionIDs []int    `bson:"selected_option_ids,omitempty"`
	TextValue         *string  `bson:"text_value,omitempty"`
	IsOther           bool     `bson:"is_other,omitempty"`
	NumberValue       *float64 `bson:"number_value,omitempty"`
	RatingValue       *float64 `bson:"rating_value,omitempty"`
}

// ResponseItem is one answered question in a submission
type ResponseItem struct {
	QuestionSN   int          `json:"question_sn" bson:"question_sn"`
	QuestionType QuestionType `json:"question_type" bson:"question_type"`
	Answer       AnswerRecord `json:"answer" bson:"answer"`
}

// MarshalJSON emits the answer shape expected for the question type
func (r ResponseItem) MarshalJSON() ([]byte, error) {
	answer := map[string]any{}
	a := r.Answer
	switch r.QuestionType {
	case QuestionTypeSingleChoice, QuestionTypeDropDown:
		answer["selected_option_id"] = a.SelectedOptionID
		answer["text_value"] = a.TextValue
		if a.IsOther {
			answer["is_other"] = true
		}
	case QuestionTypeMultiSelect:
		ids := a.SelectedOptionIDs
		if ids == nil {
			ids = []int{}
		}
		answer["selected_option_ids"] = ids
		answer["text_value"] = a.TextValue
	case QuestionTypeText, QuestionTypeTextArea:
		answer["text_value"] = a.TextValue
	case QuestionTypeNumber:
		answer["number_value"] = a.NumberValue
	case QuestionTypeRating:
		answer["rating_value"] = a.RatingValue
	}

	return json.Marshal(struct {
		QuestionSN   int            `json:"question_sn"`
		QuestionType QuestionType   `json:"question_type"`
		Answer       map[string]any `json:"answer"`
	}{r.QuestionSN, r.QuestionType, answer})
}

// SubmissionPayload is the body sent to the submission service
type SubmissionPayload struct {
	SurveyID       string         `json:"survey_id" bson:"survey_id"`
	RespondentInfo RespondentInfo `json:"respondent_info" bson:"respondent_info"`
	Responses      []ResponseItem `json:"responses" bson:"responses"`
}

// StoredResponse is a submission archived in MongoDB
type StoredResponse struct {
	ID          string            `json:"id" bson:"_id"`
	SurveyID    string            `json:"surveyId" bson:"surveyId"`
	SessionID   string            `json:"sessionId" bson:"sessionId"`
	Payload     SubmissionPayload `json:"payload" bson:"payload"`
	SubmittedAt time.Time         `json:"submittedAt" bson:"submittedAt"`
}
