package skiplogic

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"surveyflow/internal/model"
)

// FieldError is a validation failure tied to one question
type FieldError struct {
	QuestionSN int    `json:"question_sn"`
	Message    string `json:"error"`
}

// FieldErrors collects per-question failures. An empty list is not an error.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fmt.Sprintf("question %d: %s", fe.QuestionSN, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ByQuestion indexes the messages by sequence number
func (e FieldErrors) ByQuestion() map[int]string {
	if len(e) == 0 {
		return nil
	}
	out := make(map[int]string, len(e))
	for _, fe := range e {
		out[fe.QuestionSN] = fe.Message
	}
	return out
}

const (
	MsgRequired      = "This field is required"
	MsgInvalidNumber = "Please enter a valid number"
	MsgInvalidOption = "Please select a valid option"
	MsgSpecifyOther  = "Please specify your answer"
)

// ValidateAnswer checks one question's answer against its constraints
func ValidateAnswer(q *model.Question, required bool, answers model.Answers) *FieldError {
	value := answers.Get(q.SequenceNum)
	fail := func(format string, args ...any) *FieldError {
		return &FieldError{QuestionSN: q.SequenceNum, Message: fmt.Sprintf(format, args...)}
	}

	if model.IsEmpty(value) {
		if required {
			return fail(MsgRequired)
		}
		return nil
	}

	c := q.Constraints
	switch q.Type {
	case model.QuestionTypeText, model.QuestionTypeTextArea:
		text, _ := value.(string)
		if text == "" {
			text = fmt.Sprint(value)
		}
		n := utf8.RuneCountInString(strings.TrimSpace(text))
		if c.MinLength != nil && n < *c.MinLength {
			return fail("Must be at least %d characters", *c.MinLength)
		}
		if c.MaxLength != nil && n > *c.MaxLength {
			return fail("Must be at most %d characters", *c.MaxLength)
		}

	case model.QuestionTypeNumber:
		n, ok := model.ParseNumber(value)
		if !ok {
			return fail(MsgInvalidNumber)
		}
		if c.MinValue != nil && n < *c.MinValue {
			return fail("Must be at least %g", *c.MinValue)
		}
		if c.MaxValue != nil && n > *c.MaxValue {
			return fail("Must be at most %g", *c.MaxValue)
		}

	case model.QuestionTypeRating:
		n, ok := model.ParseNumber(value)
		if !ok {
			return fail(MsgInvalidNumber)
		}
		if lo, hi, ok := q.ScaleRange(); ok && (n < float64(lo) || n > float64(hi)) {
			return fail("Rating must be between %d and %d", lo, hi)
		}

	case model.QuestionTypeSingleChoice, model.QuestionTypeDropDown:
		id, ok := model.ParseInt(value)
		if !ok {
			return fail(MsgInvalidOption)
		}
		opt, found := model.FindOption(model.AvailableOptions(q, answers), id)
		if !found {
			return fail(MsgInvalidOption)
		}
		if opt.IsOther && required && strings.TrimSpace(answers.Other(q.SequenceNum)) == "" {
			return fail(MsgSpecifyOther)
		}

	case model.QuestionTypeMultiSelect:
		ids := model.ParseOptionIDs(value)
		if len(ids) == 0 {
			if required {
				return fail(MsgRequired)
			}
			return nil
		}
		available := model.AvailableOptions(q, answers)
		for _, id := range ids {
			opt, found := model.FindOption(available, id)
			if !found {
				return fail(MsgInvalidOption)
			}
			if opt.IsOther && required && strings.TrimSpace(answers.Other(q.SequenceNum)) == "" {
				return fail(MsgSpecifyOther)
			}
		}
	}
	return nil
}

// ValidateQuestions validates every given question, in order. Callers pass
// only visible questions; REQUIRE rules are honoured through the index.
func ValidateQuestions(questions []model.Question, index RuleIndex, answers model.Answers) FieldErrors {
	var errs FieldErrors
	for i := range questions {
		q := &questions[i]
		if fe := ValidateAnswer(q, EffectiveRequired(q, index, answers), answers); fe != nil {
			errs = append(errs, *fe)
		}
	}
	return errs
}

// AnsweredProgress is the share of visible questions that hold an answer
func AnsweredProgress(questions []model.Question, visible model.VisibilitySet, answers model.Answers) float64 {
	total, answered := 0, 0
	for _, q := range questions {
		if !visible.Has(q.SequenceNum) {
			continue
		}
		total++
		if answers.Answered(q.SequenceNum) {
			answered++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(answered) / float64(total)
}
