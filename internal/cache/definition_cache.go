package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"surveyflow/internal/model"
)

// DefinitionCache keeps normalised survey definitions close to the session API
type DefinitionCache interface {
	Set(ctx context.Context, survey *model.Survey) error
	Get(ctx context.Context, surveyID string) (*model.Survey, error)
	Invalidate(ctx context.Context, surveyID string) error
}

type definitionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDefinitionCache creates a new definition cache
func NewDefinitionCache(client *redis.Client, ttl time.Duration) DefinitionCache {
	return &definitionCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *definitionCache) key(surveyID string) string {
	return fmt.Sprintf("survey:%s:definition", surveyID)
}

func (c *definitionCache) Set(ctx context.Context, survey *model.Survey) error {
	data, err := json.Marshal(survey)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(survey.ID), data, c.ttl).Err()
}

func (c *definitionCache) Get(ctx context.Context, surveyID string) (*model.Survey, error) {
	data, err := c.client.Get(ctx, c.key(surveyID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var survey model.Survey
	if err := json.Unmarshal(data, &survey); err != nil {
		return nil, err
	}
	return &survey, nil
}

func (c *definitionCache) Invalidate(ctx context.Context, surveyID string) error {
	return c.client.Del(ctx, c.key(surveyID)).Err()
}
