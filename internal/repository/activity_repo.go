package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quizdeck/internal/model"
)

// ActivityRepo persists host-authored activities.
type ActivityRepo interface {
	Create(ctx context.Context, activity *model.Activity) error
	GetByID(ctx context.Context, id string) (*model.Activity, error)
	ListByHost(ctx context.Context, hostID string) ([]*model.Activity, error)
	Update(ctx context.Context, activity *model.Activity) error
	Delete(ctx context.Context, id string) error
}

type activityRepo struct {
	collection *mongo.Collection
}

func NewActivityRepo(db *mongo.Database) ActivityRepo {
	return &activityRepo{
		collection: db.Collection("activities"),
	}
}

func (r *activityRepo) Create(ctx context.Context, activity *model.Activity) error {
	if activity.ID == "" {
		activity.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now()
	activity.CreatedAt = now
	activity.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, activity)
	return err
}

func (r *activityRepo) GetByID(ctx context.Context, id string) (*model.Activity, error) {
	var activity model.Activity
	err := r.collection.FindOne(ctx, map[string]interface{}{"_id": id}).Decode(&activity)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepo) ListByHost(ctx context.Context, hostID string) ([]*model.Activity, error) {
	opts := options.Find().SetSort(map[string]interface{}{"updatedAt": -1})
	cursor, err := r.collection.Find(ctx, map[string]interface{}{"hostId": hostID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var activities []*model.Activity
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *activityRepo) Update(ctx context.Context, activity *model.Activity) error {
	activity.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, map[string]interface{}{"_id": activity.ID}, activity)
	return err
}

func (r *activityRepo) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, map[string]interface{}{"_id": id})
	return err
}
