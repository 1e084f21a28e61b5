package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"surveyflow/internal/cache"
	"surveyflow/internal/metrics"
	"surveyflow/internal/model"
	"surveyflow/internal/repository"
	"surveyflow/internal/skiplogic"
)

var (
	ErrSurveyNotFound   = errors.New("survey not found")
	ErrNotSurveyOwner   = errors.New("survey belongs to another host")
	ErrResponseNotFound = errors.New("response not found")
)

const (
	defaultResponseLimit = 50
	maxResponseLimit     = 500
)

// SurveyStats summarises activity on one survey
type SurveyStats struct {
	SurveyID       string `json:"surveyId"`
	ActiveSessions int64  `json:"activeSessions"`
	Responses      int64  `json:"responses"`
}

// SurveyService manages survey definitions. Reads go through the Redis
// definition cache; concurrent misses for one survey share a single load.
type SurveyService struct {
	surveyRepo   repository.SurveyRepo
	responseRepo repository.ResponseRepo
	definitions  cache.DefinitionCache
	sessions     cache.SessionCache
	logger       *zap.Logger
	metrics      *metrics.Collector
	loads        singleflight.Group
}

// NewSurveyService creates a new survey service
func NewSurveyService(
	surveyRepo repository.SurveyRepo,
	responseRepo repository.ResponseRepo,
	definitions cache.DefinitionCache,
	sessions cache.SessionCache,
	logger *zap.Logger,
	m *metrics.Collector,
) *SurveyService {
	return &SurveyService{
		surveyRepo:   surveyRepo,
		responseRepo: responseRepo,
		definitions:  definitions,
		sessions:     sessions,
		logger:       logger,
		metrics:      m,
	}
}

// Create validates and stores a new definition owned by hostID
func (s *SurveyService) Create(ctx context.Context, hostID string, survey *model.Survey) (*model.Survey, error) {
	if survey.ID == "" {
		survey.ID = uuid.New().String()
	}
	survey.HostID = hostID
	survey.Normalize()
	if err := skiplogic.ValidateDefinition(survey); err != nil {
		return nil, err
	}

	if err := s.surveyRepo.Create(ctx, survey); err != nil {
		return nil, err
	}
	s.logger.Info("survey created",
		zap.String("surveyId", survey.ID),
		zap.String("hostId", hostID),
		zap.Int("questions", len(survey.Questions)),
		zap.Int("rules", len(survey.Rules)))
	return survey, nil
}

// Update replaces a definition the host owns. Sessions already in progress
// pick up the new definition on their next request.
func (s *SurveyService) Update(ctx context.Context, hostID string, survey *model.Survey) (*model.Survey, error) {
	existing, err := s.surveyRepo.GetByID(ctx, survey.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrSurveyNotFound
	}
	if existing.HostID != hostID {
		return nil, ErrNotSurveyOwner
	}

	survey.HostID = hostID
	survey.CreatedAt = existing.CreatedAt
	survey.Normalize()
	if err := skiplogic.ValidateDefinition(survey); err != nil {
		return nil, err
	}

	matched, err := s.surveyRepo.Update(ctx, survey)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, ErrSurveyNotFound
	}
	s.invalidate(ctx, survey.ID)
	return survey, nil
}

// Get returns a normalised definition, from cache when possible
func (s *SurveyService) Get(ctx context.Context, id string) (*model.Survey, error) {
	if s.definitions != nil {
		cached, err := s.definitions.Get(ctx, id)
		if err != nil {
			s.logger.Warn("definition cache read failed", zap.String("surveyId", id), zap.Error(err))
		}
		if cached != nil {
			s.observeCache("hit")
			return cached, nil
		}
		s.observeCache("miss")
	}

	v, err, _ := s.loads.Do(id, func() (interface{}, error) {
		survey, err := s.surveyRepo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load survey: %w", err)
		}
		if survey == nil {
			return nil, ErrSurveyNotFound
		}
		survey.Normalize()
		if s.definitions != nil {
			if err := s.definitions.Set(ctx, survey); err != nil {
				s.logger.Warn("definition cache write failed", zap.String("surveyId", id), zap.Error(err))
			}
		}
		return survey, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneSurvey(v.(*model.Survey)), nil
}

// GetOwned returns a definition only if hostID owns it
func (s *SurveyService) GetOwned(ctx context.Context, hostID, id string) (*model.Survey, error) {
	survey, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if survey.HostID != hostID {
		return nil, ErrNotSurveyOwner
	}
	return survey, nil
}

// List returns the host's surveys, most recently updated first
func (s *SurveyService) List(ctx context.Context, hostID string) ([]*model.SurveySummary, error) {
	surveys, err := s.surveyRepo.ListByHost(ctx, hostID)
	if err != nil {
		return nil, err
	}
	if surveys == nil {
		surveys = []*model.SurveySummary{}
	}
	return surveys, nil
}

// Delete removes a definition the host owns. Stored responses are kept.
func (s *SurveyService) Delete(ctx context.Context, hostID, id string) error {
	if _, err := s.GetOwned(ctx, hostID, id); err != nil {
		return err
	}
	deleted, err := s.surveyRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrSurveyNotFound
	}
	s.invalidate(ctx, id)
	s.logger.Info("survey deleted", zap.String("surveyId", id), zap.String("hostId", hostID))
	return nil
}

// Stats counts live sessions and stored responses for a survey the host owns
func (s *SurveyService) Stats(ctx context.Context, hostID, id string) (*SurveyStats, error) {
	if _, err := s.GetOwned(ctx, hostID, id); err != nil {
		return nil, err
	}
	stats := &SurveyStats{SurveyID: id}

	if s.sessions != nil {
		active, err := s.sessions.CountActive(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to count sessions: %w", err)
		}
		stats.ActiveSessions = active
	}
	if s.responseRepo != nil {
		responses, err := s.responseRepo.CountBySurvey(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to count responses: %w", err)
		}
		stats.Responses = responses
	}
	return stats, nil
}

// Responses lists archived submissions of a survey the host owns, newest first
func (s *SurveyService) Responses(ctx context.Context, hostID, id string, limit int64) ([]*model.StoredResponse, error) {
	if _, err := s.GetOwned(ctx, hostID, id); err != nil {
		return nil, err
	}
	if s.responseRepo == nil {
		return []*model.StoredResponse{}, nil
	}
	if limit <= 0 {
		limit = defaultResponseLimit
	}
	if limit > maxResponseLimit {
		limit = maxResponseLimit
	}
	responses, err := s.responseRepo.ListBySurvey(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	if responses == nil {
		responses = []*model.StoredResponse{}
	}
	return responses, nil
}

// Response returns one archived submission of a survey the host owns
func (s *SurveyService) Response(ctx context.Context, hostID, id, responseID string) (*model.StoredResponse, error) {
	if _, err := s.GetOwned(ctx, hostID, id); err != nil {
		return nil, err
	}
	if s.responseRepo == nil {
		return nil, ErrResponseNotFound
	}
	response, err := s.responseRepo.GetByID(ctx, responseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load response: %w", err)
	}
	if response == nil || response.SurveyID != id {
		return nil, ErrResponseNotFound
	}
	return response, nil
}

func (s *SurveyService) invalidate(ctx context.Context, id string) {
	if s.definitions == nil {
		return
	}
	if err := s.definitions.Invalidate(ctx, id); err != nil {
		s.logger.Warn("definition cache invalidation failed", zap.String("surveyId", id), zap.Error(err))
	}
}

func (s *SurveyService) observeCache(result string) {
	if s.metrics != nil {
		s.metrics.DefinitionCache.WithLabelValues(result).Inc()
	}
}

// cloneSurvey copies the slices callers may mutate. Singleflight hands the
// same pointer to every waiter.
func cloneSurvey(in *model.Survey) *model.Survey {
	out := *in
	out.Questions = append([]model.Question(nil), in.Questions...)
	out.Categories = append([]model.Category(nil), in.Categories...)
	out.Rules = append([]model.Rule(nil), in.Rules...)
	out.KeyChoices = append([]model.KeyChoice(nil), in.KeyChoices...)
	return &out
}
