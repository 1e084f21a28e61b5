package model

import "time"

// RespondentInfo is attached to every submission
type RespondentInfo struct {
	SessionID string `json:"session_id" bson:"session_id"`
	IPAddress string `json:"ip_address,omitempty" bson:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
}

// SessionState is the persisted progress of one respondent through one survey
type SessionState struct {
	ID             string         `json:"id"`
	SurveyID       string         `json:"surveyId"`
	Answers        Answers        `json:"answers"`
	PageIndex      int            `json:"pageIndex"`
	Visible        []int          `json:"visible"`        // Last visibility set handed to the respondent
	VerifyGen      uint64         `json:"verifyGen"`      // Bumped on every verification request
	FieldErrors    map[int]string `json:"fieldErrors,omitempty"`
	VerifyMessage  string         `json:"verifyMessage,omitempty"`
	Submission     SubmissionView `json:"submission"`
	History        []PageStep     `json:"history,omitempty"`
	RespondentInfo RespondentInfo `json:"respondentInfo"`
	StartedAt      time.Time      `json:"startedAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// PageStep records one forward move, most recent last in History. Skipped
// lists the categories a jump passed over; their questions are neither
// validated nor submitted.
type PageStep struct {
	Category int   `json:"category"`
	Skipped  []int `json:"skipped,omitempty"`
}

// SubmissionView is the serialisable submission lifecycle state
type SubmissionView struct {
	Status      string         `json:"status"`
	ResponseID  string         `json:"responseId,omitempty"`
	Award       bool           `json:"awardAssigned,omitempty"`
	FieldErrors map[int]string `json:"fieldErrors,omitempty"`
	Message     string         `json:"message,omitempty"`
}
