package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"surveyflow/internal/config"
	"surveyflow/internal/metrics"
	"surveyflow/internal/model"
	"surveyflow/internal/repository"
)

// SubmitResult is the outcome of one submission attempt. A rejected
// submission is not an error: it carries field errors or a message.
type SubmitResult struct {
	Accepted      bool
	ResponseID    string
	AwardAssigned bool
	FieldErrors   map[int]string
	Message       string
}

// Submitter delivers an assembled payload
type Submitter interface {
	Submit(ctx context.Context, payload *model.SubmissionPayload) (*SubmitResult, error)
}

// SubmitClient posts payloads to the remote submission endpoint
type SubmitClient struct {
	url    string
	client *collaboratorClient
}

// NewSubmitClient creates a remote submitter
func NewSubmitClient(cfg config.CollaboratorConfig, logger *zap.Logger, m *metrics.Collector) *SubmitClient {
	return &SubmitClient{
		url:    cfg.SubmitURL,
		client: newCollaboratorClient("submit", cfg.Token, cfg.Timeout, cfg.MaxRetries, logger, m),
	}
}

type submitSuccessBody struct {
	ResponseID    any  `json:"response_id"`
	AwardAssigned bool `json:"award_assigned"`
}

// submitErrorBody accepts errors either as a list of {question_sn, error} or
// as an object keyed by sequence number
type submitErrorBody struct {
	Errors  json.RawMessage `json:"errors"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
}

func (c *SubmitClient) Submit(ctx context.Context, payload *model.SubmissionPayload) (*SubmitResult, error) {
	resp, err := c.client.postJSON(ctx, c.url, payload, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to submit response: %w", err)
	}

	if resp.status >= 200 && resp.status < 300 {
		var body submitSuccessBody
		if err := json.Unmarshal(resp.body, &body); err != nil {
			return nil, fmt.Errorf("failed to parse submission response: %w", err)
		}
		result := &SubmitResult{Accepted: true, AwardAssigned: body.AwardAssigned}
		if body.ResponseID != nil {
			result.ResponseID = fmt.Sprint(body.ResponseID)
		}
		return result, nil
	}

	var body submitErrorBody
	_ = json.Unmarshal(resp.body, &body)
	result := &SubmitResult{FieldErrors: parseFieldErrors(body.Errors), Message: body.Message}
	if result.Message == "" {
		result.Message = body.Detail
	}
	if result.Message == "" && len(result.FieldErrors) == 0 {
		result.Message = fmt.Sprintf("submission rejected (%d %s)", resp.status, http.StatusText(resp.status))
	}
	return result, nil
}

func parseFieldErrors(raw json.RawMessage) map[int]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[int]string)

	var list []struct {
		QuestionSN any    `json:"question_sn"`
		Error      string `json:"error"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, e := range list {
			if sn, ok := model.ParseInt(e.QuestionSN); ok {
				out[sn] = e.Error
			}
		}
		return out
	}

	var keyed map[string]string
	if err := json.Unmarshal(raw, &keyed); err == nil {
		for k, msg := range keyed {
			if sn, err := strconv.Atoi(k); err == nil {
				out[sn] = msg
			}
		}
	}
	return out
}

// LocalSubmitter accepts submissions without a remote service: it checks the
// payload against the definition and archives it in MongoDB.
type LocalSubmitter struct {
	surveys   *SurveyService
	responses repository.ResponseRepo
	logger    *zap.Logger
}

// NewLocalSubmitter creates a submitter backed by the response repository
func NewLocalSubmitter(surveys *SurveyService, responses repository.ResponseRepo, logger *zap.Logger) *LocalSubmitter {
	return &LocalSubmitter{surveys: surveys, responses: responses, logger: logger}
}

func (s *LocalSubmitter) Submit(ctx context.Context, payload *model.SubmissionPayload) (*SubmitResult, error) {
	survey, err := s.surveys.Get(ctx, payload.SurveyID)
	if err != nil {
		return nil, err
	}

	fieldErrors := make(map[int]string)
	for _, item := range payload.Responses {
		q, ok := survey.Question(item.QuestionSN)
		if !ok || q.Type != item.QuestionType {
			fieldErrors[item.QuestionSN] = "Unknown question"
			continue
		}
		if id := item.Answer.SelectedOptionID; id != nil {
			if _, found := model.FindOption(q.Options, *id); !found {
				fieldErrors[item.QuestionSN] = "Please select a valid option"
			}
		}
		for _, id := range item.Answer.SelectedOptionIDs {
			if _, found := model.FindOption(q.Options, id); !found {
				fieldErrors[item.QuestionSN] = "Please select a valid option"
			}
		}
	}
	if len(fieldErrors) > 0 {
		return &SubmitResult{FieldErrors: fieldErrors}, nil
	}

	existing, err := s.responses.GetBySession(ctx, payload.SurveyID, payload.RespondentInfo.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing response: %w", err)
	}
	if existing != nil {
		return &SubmitResult{Accepted: true, ResponseID: existing.ID}, nil
	}

	stored := &model.StoredResponse{
		ID:          uuid.New().String(),
		SurveyID:    payload.SurveyID,
		SessionID:   payload.RespondentInfo.SessionID,
		Payload:     *payload,
		SubmittedAt: time.Now(),
	}
	if err := s.responses.Create(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to store response: %w", err)
	}
	s.logger.Info("response stored",
		zap.String("surveyId", stored.SurveyID),
		zap.String("responseId", stored.ID))

	return &SubmitResult{Accepted: true, ResponseID: stored.ID}, nil
}
