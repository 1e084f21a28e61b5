package model

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HostClaims are JWT claims for survey authors
type HostClaims struct {
	HostID string `json:"hostId"`
	jwt.RegisteredClaims
}

// RespondentClaims scope a token to one survey session
type RespondentClaims struct {
	SurveyID  string `json:"surveyId"`
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for host login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token     string    `json:"token"`
	HostID    string    `json:"hostId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
