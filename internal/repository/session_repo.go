package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"quizdeck/internal/model"
)

// SessionRepo is the durable store for live sessions. The redis session
// cache fronts it; this is the source of truth.
type SessionRepo interface {
	Create(ctx context.Context, session *model.GameSession) error
	GetByID(ctx context.Context, id string) (*model.GameSession, error)
	GetByPIN(ctx context.Context, pin string) (*model.GameSession, error)
	Update(ctx context.Context, session *model.GameSession) error
	Delete(ctx context.Context, pin string) error
	// ListStale returns non-terminal sessions untouched since the cutoff,
	// for the cleanup job.
	ListStale(ctx context.Context, cutoff time.Time) ([]*model.GameSession, error)
}

type sessionRepo struct {
	collection *mongo.Collection
}

func NewSessionRepo(db *mongo.Database) SessionRepo {
	return &sessionRepo{
		collection: db.Collection("sessions"),
	}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.GameSession) error {
	if session.ID == "" {
		session.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, session)
	return err
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.GameSession, error) {
	var session model.GameSession
	err := r.collection.FindOne(ctx, map[string]interface{}{"_id": id}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) GetByPIN(ctx context.Context, pin string) (*model.GameSession, error) {
	var session model.GameSession
	err := r.collection.FindOne(ctx, map[string]interface{}{"pin": pin}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) Update(ctx context.Context, session *model.GameSession) error {
	session.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, map[string]interface{}{"_id": session.ID}, session)
	return err
}

func (r *sessionRepo) Delete(ctx context.Context, pin string) error {
	_, err := r.collection.DeleteOne(ctx, map[string]interface{}{"pin": pin})
	return err
}

func (r *sessionRepo) ListStale(ctx context.Context, cutoff time.Time) ([]*model.GameSession, error) {
	filter := map[string]interface{}{
		"state":     map[string]interface{}{"$ne": string(model.StateEnded)},
		"updatedAt": map[string]interface{}{"$lt": cutoff},
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*model.GameSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}
