package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"surveyflow/internal/model"
)

var ErrDuplicateSurvey = errors.New("survey id already exists")

// SurveyRepo handles MongoDB operations for survey definitions
type SurveyRepo interface {
	Create(ctx context.Context, survey *model.Survey) error
	GetByID(ctx context.Context, id string) (*model.Survey, error)
	ListByHost(ctx context.Context, hostID string) ([]*model.SurveySummary, error)
	Update(ctx context.Context, survey *model.Survey) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type surveyRepo struct {
	collection *mongo.Collection
}

// NewSurveyRepo creates a new survey repository
func NewSurveyRepo(db *mongo.Database) SurveyRepo {
	return &surveyRepo{
		collection: db.Collection("surveys"),
	}
}

func (r *surveyRepo) Create(ctx context.Context, survey *model.Survey) error {
	survey.CreatedAt = time.Now()
	survey.UpdatedAt = survey.CreatedAt

	_, err := r.collection.InsertOne(ctx, survey)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateSurvey
	}
	return err
}

func (r *surveyRepo) GetByID(ctx context.Context, id string) (*model.Survey, error) {
	var survey model.Survey
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&survey)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &survey, nil
}

func (r *surveyRepo) ListByHost(ctx context.Context, hostID string) ([]*model.SurveySummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"hostId": hostID}}},
		{{Key: "$sort", Value: bson.M{"updatedAt": -1}}},
		{{Key: "$project", Value: bson.M{
			"title":         "$metadata.title",
			"questionCount": bson.M{"$size": bson.M{"$ifNull": bson.A{"$questions", bson.A{}}}},
			"updatedAt":     1,
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var surveys []*model.SurveySummary
	if err := cursor.All(ctx, &surveys); err != nil {
		return nil, err
	}
	return surveys, nil
}

// Update replaces a definition, keeping its creation time. It reports
// whether a stored definition matched.
func (r *surveyRepo) Update(ctx context.Context, survey *model.Survey) (bool, error) {
	survey.UpdatedAt = time.Now()
	update := bson.M{"$set": bson.M{
		"metadata":            survey.Metadata,
		"questions":           survey.Questions,
		"question_categories": survey.Categories,
		"key_choice":          survey.KeyChoices,
		"skip_logic":          survey.Rules,
		"updatedAt":           survey.UpdatedAt,
	}}
	opts := options.Update().SetUpsert(false)
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": survey.ID, "hostId": survey.HostID}, update, opts)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

func (r *surveyRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}
