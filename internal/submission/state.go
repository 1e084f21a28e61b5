package submission

import (
	"errors"

	"surveyflow/internal/model"
)

// Status of the submit lifecycle
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

var (
	ErrInFlight         = errors.New("submission already in progress")
	ErrAlreadySubmitted = errors.New("survey already submitted")
	ErrNotLoading       = errors.New("no submission in progress")
)

// State drives idle -> loading -> success|error. Error is retryable.
type State struct {
	Status      Status
	ResponseID  string
	Award       bool
	FieldErrors map[int]string
	Message     string
}

// FromView restores a persisted state
func FromView(v model.SubmissionView) *State {
	s := &State{
		Status:      Status(v.Status),
		ResponseID:  v.ResponseID,
		Award:       v.Award,
		FieldErrors: v.FieldErrors,
		Message:     v.Message,
	}
	if s.Status == "" {
		s.Status = StatusIdle
	}
	return s
}

// View returns the persistable form
func (s *State) View() model.SubmissionView {
	return model.SubmissionView{
		Status:      string(s.Status),
		ResponseID:  s.ResponseID,
		Award:       s.Award,
		FieldErrors: s.FieldErrors,
		Message:     s.Message,
	}
}

// Begin enters loading from idle or error and drops any earlier errors
func (s *State) Begin() error {
	switch s.Status {
	case StatusLoading:
		return ErrInFlight
	case StatusSuccess:
		return ErrAlreadySubmitted
	}
	s.Status = StatusLoading
	s.FieldErrors = nil
	s.Message = ""
	return nil
}

// Succeed records the accepted response
func (s *State) Succeed(responseID string, award bool) error {
	if s.Status != StatusLoading {
		return ErrNotLoading
	}
	s.Status = StatusSuccess
	s.ResponseID = responseID
	s.Award = award
	return nil
}

// Fail records field errors and/or a global message
func (s *State) Fail(fieldErrors map[int]string, message string) error {
	if s.Status != StatusLoading {
		return ErrNotLoading
	}
	s.Status = StatusError
	s.FieldErrors = fieldErrors
	s.Message = message
	return nil
}

// Reset returns to idle, e.g. when the respondent edits an answer after an error
func (s *State) Reset() {
	if s.Status == StatusSuccess {
		return
	}
	*s = State{Status: StatusIdle}
}
