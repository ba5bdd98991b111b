package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"quizdeck/internal/model"
)

// PlayerRepo persists per-session player records. AppendAnswer is the only
// write path for scores; it updates the answer list, total and streak in
// one operation so a crashed request cannot leave a half-applied score.
type PlayerRepo interface {
	Create(ctx context.Context, player *model.Player) error
	GetByID(ctx context.Context, id string) (*model.Player, error)
	ListByPIN(ctx context.Context, pin string) ([]*model.Player, error)
	AppendAnswer(ctx context.Context, playerID string, record model.AnswerRecord, newScore, newStreak int) error
	DeleteByPIN(ctx context.Context, pin string) error
}

type playerRepo struct {
	collection *mongo.Collection
}

func NewPlayerRepo(db *mongo.Database) PlayerRepo {
	return &playerRepo{
		collection: db.Collection("players"),
	}
}

func (r *playerRepo) Create(ctx context.Context, player *model.Player) error {
	if player.ID == "" {
		player.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, player)
	return err
}

func (r *playerRepo) GetByID(ctx context.Context, id string) (*model.Player, error) {
	var player model.Player
	err := r.collection.FindOne(ctx, map[string]interface{}{"_id": id}).Decode(&player)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &player, nil
}

func (r *playerRepo) ListByPIN(ctx context.Context, pin string) ([]*model.Player, error) {
	cursor, err := r.collection.Find(ctx, map[string]interface{}{"pin": pin})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var players []*model.Player
	if err := cursor.All(ctx, &players); err != nil {
		return nil, err
	}
	return players, nil
}

func (r *playerRepo) AppendAnswer(ctx context.Context, playerID string, record model.AnswerRecord, newScore, newStreak int) error {
	update := map[string]interface{}{
		"$push": map[string]interface{}{"answers": record},
		"$set": map[string]interface{}{
			"score":  newScore,
			"streak": newStreak,
		},
	}
	_, err := r.collection.UpdateOne(ctx, map[string]interface{}{"_id": playerID}, update)
	return err
}

func (r *playerRepo) DeleteByPIN(ctx context.Context, pin string) error {
	_, err := r.collection.DeleteMany(ctx, map[string]interface{}{"pin": pin})
	return err
}
