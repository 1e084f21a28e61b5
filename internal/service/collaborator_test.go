package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surveyflow/internal/config"
	"surveyflow/internal/metrics"
	"surveyflow/internal/model"
)

func collaboratorConfig(url string) config.CollaboratorConfig {
	return config.CollaboratorConfig{
		VerifyURL:  url,
		SubmitURL:  url,
		Token:      "collab-token",
		Timeout:    time.Second,
		MaxRetries: 3,
	}
}

func newTestVerifyClient(url string) *VerifyClient {
	c := NewVerifyClient(collaboratorConfig(url), zap.NewNop(), metrics.NewCollector("test"))
	c.client.baseBackoff = time.Millisecond
	return c
}

func newTestSubmitClient(url string) *SubmitClient {
	c := NewSubmitClient(collaboratorConfig(url), zap.NewNop(), metrics.NewCollector("test"))
	c.client.baseBackoff = time.Millisecond
	return c
}

func TestVerifyClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer collab-token", r.Header.Get("Authorization"))
		assert.Equal(t, "feedback", r.Header.Get("X-Survey-ID"))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var fields map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&fields))
		assert.Equal(t, "Widget", fields["2"])
		w.Write([]byte(`{"valid": true}`))
	}))
	defer srv.Close()

	result, err := newTestVerifyClient(srv.URL).Verify(context.Background(), "feedback", map[string]any{"2": "Widget"})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestVerifyClient_ParsesRejections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"valid": true, "errors": {"2": "Unknown product", "x": "ignored"}, "message": "Check your answers"}`))
	}))
	defer srv.Close()

	result, err := newTestVerifyClient(srv.URL).Verify(context.Background(), "feedback", map[string]any{"2": "Widget"})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, map[int]string{2: "Unknown product"}, result.FieldErrors())
	assert.Equal(t, "Check your answers", result.Message)
}

func TestVerifyClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestVerifyClient(srv.URL).Verify(context.Background(), "feedback", map[string]any{})
	assert.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNewVerifyClient_DisabledWithoutURL(t *testing.T) {
	assert.Nil(t, NewVerifyClient(config.CollaboratorConfig{}, zap.NewNop(), nil))
}

func TestSubmitClient(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		accepted bool
		id       string
		errors   map[int]string
		message  string
	}{
		{
			name:     "accepted",
			status:   http.StatusCreated,
			body:     `{"response_id": 981, "award_assigned": true}`,
			accepted: true,
			id:       "981",
		},
		{
			name:    "field errors as list",
			status:  http.StatusBadRequest,
			body:    `{"errors": [{"question_sn": 2, "error": "Too short"}], "message": "Invalid"}`,
			errors:  map[int]string{2: "Too short"},
			message: "Invalid",
		},
		{
			name:   "field errors keyed by question",
			status: http.StatusUnprocessableEntity,
			body:   `{"errors": {"5": "Out of range"}}`,
			errors: map[int]string{5: "Out of range"},
		},
		{
			name:    "detail only",
			status:  http.StatusConflict,
			body:    `{"detail": "Already submitted"}`,
			message: "Already submitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var payload model.SubmissionPayload
				require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				assert.Equal(t, "feedback", payload.SurveyID)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			result, err := newTestSubmitClient(srv.URL).Submit(context.Background(), &model.SubmissionPayload{SurveyID: "feedback"})
			require.NoError(t, err)
			assert.Equal(t, tt.accepted, result.Accepted)
			assert.Equal(t, tt.id, result.ResponseID)
			if tt.errors != nil {
				assert.Equal(t, tt.errors, result.FieldErrors)
			}
			assert.Equal(t, tt.message, result.Message)
		})
	}
}

func TestCollaboratorClient_OpensCircuit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestSubmitClient(srv.URL)
	c.client.maxRetries = 1
	for i := 0; i < 5; i++ {
		_, err := c.Submit(context.Background(), &model.SubmissionPayload{SurveyID: "feedback"})
		require.Error(t, err)
	}

	_, err := c.Submit(context.Background(), &model.SubmissionPayload{SurveyID: "feedback"})
	assert.ErrorIs(t, err, ErrCollaboratorUnavailable)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}
