package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the repositories query by. One stored
// response per session is enforced here.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection("surveys").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "hostId", Value: 1}, {Key: "updatedAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("failed to create survey index: %w", err)
	}

	if _, err := db.Collection("responses").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "surveyId", Value: 1}, {Key: "sessionId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "surveyId", Value: 1}, {Key: "submittedAt", Value: -1}},
		},
	}); err != nil {
		return fmt.Errorf("failed to create response indexes: %w", err)
	}
	return nil
}
