package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"surveyflow/internal/model"
)

// ResponseRepo archives accepted submissions
type ResponseRepo interface {
	Create(ctx context.Context, response *model.StoredResponse) error
	GetByID(ctx context.Context, id string) (*model.StoredResponse, error)
	GetBySession(ctx context.Context, surveyID, sessionID string) (*model.StoredResponse, error)
	ListBySurvey(ctx context.Context, surveyID string, limit int64) ([]*model.StoredResponse, error)
	CountBySurvey(ctx context.Context, surveyID string) (int64, error)
}

type responseRepo struct {
	collection *mongo.Collection
}

// NewResponseRepo creates a new response repository
func NewResponseRepo(db *mongo.Database) ResponseRepo {
	return &responseRepo{
		collection: db.Collection("responses"),
	}
}

func (r *responseRepo) Create(ctx context.Context, response *model.StoredResponse) error {
	if response.SubmittedAt.IsZero() {
		response.SubmittedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, response)
	return err
}

func (r *responseRepo) GetByID(ctx context.Context, id string) (*model.StoredResponse, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *responseRepo) GetBySession(ctx context.Context, surveyID, sessionID string) (*model.StoredResponse, error) {
	return r.findOne(ctx, bson.M{"surveyId": surveyID, "sessionId": sessionID})
}

func (r *responseRepo) findOne(ctx context.Context, filter bson.M) (*model.StoredResponse, error) {
	var response model.StoredResponse
	err := r.collection.FindOne(ctx, filter).Decode(&response)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &response, nil
}

func (r *responseRepo) ListBySurvey(ctx context.Context, surveyID string, limit int64) ([]*model.StoredResponse, error) {
	opts := options.Find().SetSort(bson.M{"submittedAt": -1})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.collection.Find(ctx, bson.M{"surveyId": surveyID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var responses []*model.StoredResponse
	if err := cursor.All(ctx, &responses); err != nil {
		return nil, err
	}
	return responses, nil
}

func (r *responseRepo) CountBySurvey(ctx context.Context, surveyID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"surveyId": surveyID})
}
