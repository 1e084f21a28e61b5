package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyflow/internal/config"
	"surveyflow/internal/model"
)

func newTestAuth(ttl time.Duration) *AuthService {
	return NewAuthService(config.AuthConfig{
		HostUsername:       "admin",
		HostPassword:       "secret",
		JWTSecret:          "test-secret-0123456789",
		RespondentTokenTTL: ttl,
	})
}

func TestAuthService_Login(t *testing.T) {
	auth := newTestAuth(time.Hour)

	resp, err := auth.Login("admin", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	again, err := auth.Login("admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, resp.HostID, again.HostID)

	claims, err := auth.ValidateHostToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.HostID, claims.HostID)

	_, err = auth.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_HostTokensExpire(t *testing.T) {
	resp, err := newTestAuth(time.Hour).Login("admin", "secret")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(defaultHostTokenTTL), resp.ExpiresAt, time.Minute)

	stale := NewAuthService(config.AuthConfig{
		HostUsername: "admin",
		HostPassword: "secret",
		JWTSecret:    "test-secret-0123456789",
		HostTokenTTL: -time.Minute,
	})
	resp, err = stale.Login("admin", "secret")
	require.NoError(t, err)

	_, err = newTestAuth(time.Hour).ValidateHostToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_RespondentTokens(t *testing.T) {
	auth := newTestAuth(time.Hour)

	token, err := auth.GenerateRespondentToken("feedback", "session-1")
	require.NoError(t, err)

	claims, err := auth.ValidateRespondentToken(token)
	require.NoError(t, err)
	assert.Equal(t, "feedback", claims.SurveyID)
	assert.Equal(t, "session-1", claims.SessionID)

	_, err = auth.ValidateHostToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_RejectsBadTokens(t *testing.T) {
	auth := newTestAuth(time.Hour)

	expired, err := newTestAuth(-time.Minute).GenerateRespondentToken("feedback", "session-1")
	require.NoError(t, err)

	foreign := NewAuthService(config.AuthConfig{JWTSecret: "another-secret-0123456789", RespondentTokenTTL: time.Hour})
	forged, err := foreign.GenerateRespondentToken("feedback", "session-1")
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &model.RespondentClaims{SurveyID: "feedback", SessionID: "session-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong secret", forged},
		{"unsigned", unsigned},
		{"garbage", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.ValidateRespondentToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
