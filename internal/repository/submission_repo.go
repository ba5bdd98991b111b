package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"quizdeck/internal/model"
)

// SubmissionRepo persists crowdsourced question submissions.
type SubmissionRepo interface {
	Create(ctx context.Context, submission *model.Submission) error
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	ListByPIN(ctx context.Context, pin string) ([]*model.Submission, error)
	CountByPlayer(ctx context.Context, pin, playerID string) (int, error)
	Update(ctx context.Context, submission *model.Submission) error
	// SetSelection flips aiSelected on for the given ids and off for every
	// other submission in the session.
	SetSelection(ctx context.Context, pin string, selectedIDs []string) error
	DeleteByPIN(ctx context.Context, pin string) error
}

type submissionRepo struct {
	collection *mongo.Collection
}

func NewSubmissionRepo(db *mongo.Database) SubmissionRepo {
	return &submissionRepo{
		collection: db.Collection("submissions"),
	}
}

func (r *submissionRepo) Create(ctx context.Context, submission *model.Submission) error {
	if submission.ID == "" {
		submission.ID = primitive.NewObjectID().Hex()
	}
	submission.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, submission)
	return err
}

func (r *submissionRepo) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	var submission model.Submission
	err := r.collection.FindOne(ctx, map[string]interface{}{"_id": id}).Decode(&submission)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &submission, nil
}

func (r *submissionRepo) ListByPIN(ctx context.Context, pin string) ([]*model.Submission, error) {
	cursor, err := r.collection.Find(ctx, map[string]interface{}{"pin": pin})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var submissions []*model.Submission
	if err := cursor.All(ctx, &submissions); err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepo) CountByPlayer(ctx context.Context, pin, playerID string) (int, error) {
	count, err := r.collection.CountDocuments(ctx, map[string]interface{}{
		"pin":      pin,
		"playerId": playerID,
	})
	return int(count), err
}

func (r *submissionRepo) Update(ctx context.Context, submission *model.Submission) error {
	_, err := r.collection.ReplaceOne(ctx, map[string]interface{}{"_id": submission.ID}, submission)
	return err
}

func (r *submissionRepo) SetSelection(ctx context.Context, pin string, selectedIDs []string) error {
	_, err := r.collection.UpdateMany(ctx,
		map[string]interface{}{"pin": pin},
		map[string]interface{}{"$set": map[string]interface{}{"aiSelected": false}},
	)
	if err != nil {
		return err
	}
	if len(selectedIDs) == 0 {
		return nil
	}
	_, err = r.collection.UpdateMany(ctx,
		map[string]interface{}{
			"pin": pin,
			"_id": map[string]interface{}{"$in": selectedIDs},
		},
		map[string]interface{}{"$set": map[string]interface{}{"aiSelected": true}},
	)
	return err
}

func (r *submissionRepo) DeleteByPIN(ctx context.Context, pin string) error {
	_, err := r.collection.DeleteMany(ctx, map[string]interface{}{"pin": pin})
	return err
}
