package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"surveyflow/internal/model"
)

// SessionCache persists respondent session snapshots (answers, page index,
// visibility) so a respondent can resume after a reload.
type SessionCache interface {
	Save(ctx context.Context, state *model.SessionState) error
	Load(ctx context.Context, surveyID, sessionID string) (*model.SessionState, error)
	Delete(ctx context.Context, surveyID, sessionID string) error
	CountActive(ctx context.Context, surveyID string) (int64, error)
}

type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache creates a new session cache; idle sessions expire after ttl
func NewSessionCache(client *redis.Client, ttl time.Duration) SessionCache {
	return &sessionCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *sessionCache) key(surveyID, sessionID string) string {
	return fmt.Sprintf("survey:%s:session:%s", surveyID, sessionID)
}

func (c *sessionCache) indexKey(surveyID string) string {
	return fmt.Sprintf("survey:%s:sessions", surveyID)
}

func (c *sessionCache) Save(ctx context.Context, state *model.SessionState) error {
	state.UpdatedAt = time.Now()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.key(state.SurveyID, state.ID), data, c.ttl)
	pipe.ZAdd(ctx, c.indexKey(state.SurveyID), redis.Z{
		Score:  float64(state.UpdatedAt.Unix()),
		Member: state.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (c *sessionCache) Load(ctx context.Context, surveyID, sessionID string) (*model.SessionState, error) {
	data, err := c.client.Get(ctx, c.key(surveyID, sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state model.SessionState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if state.Answers == nil {
		state.Answers = model.Answers{}
	}
	return &state, nil
}

func (c *sessionCache) Delete(ctx context.Context, surveyID, sessionID string) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.key(surveyID, sessionID))
	pipe.ZRem(ctx, c.indexKey(surveyID), sessionID)
	_, err := pipe.Exec(ctx)
	return err
}

// CountActive counts sessions touched within the ttl window
func (c *sessionCache) CountActive(ctx context.Context, surveyID string) (int64, error) {
	cutoff := time.Now().Add(-c.ttl).Unix()
	key := c.indexKey(surveyID)
	if err := c.client.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%d", cutoff)).Err(); err != nil {
		return 0, err
	}
	return c.client.ZCard(ctx, key).Result()
}
