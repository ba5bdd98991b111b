package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"quizdeck/internal/model"
)

// SessionCache keeps the live session document hot, keyed by PIN. The
// mongo repository stays authoritative; a miss here falls through to it.
type SessionCache interface {
	Set(ctx context.Context, session *model.GameSession) error
	Get(ctx context.Context, pin string) (*model.GameSession, error)
	Delete(ctx context.Context, pin string) error
}

type sessionCache struct {
	client *redis.Client
}

func NewSessionCache(client *redis.Client) SessionCache {
	return &sessionCache{client: client}
}

// Refreshed on every write; abandoned sessions age out with the cleanup
// job rather than here.
const sessionTTL = 24 * time.Hour

func (c *sessionCache) key(pin string) string {
	return "game:" + pin + ":session"
}

func (c *sessionCache) Set(ctx context.Context, session *model.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(session.PIN), data, sessionTTL).Err()
}

func (c *sessionCache) Get(ctx context.Context, pin string) (*model.GameSession, error) {
	data, err := c.client.Get(ctx, c.key(pin)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session model.GameSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *sessionCache) Delete(ctx context.Context, pin string) error {
	return c.client.Del(ctx, c.key(pin)).Err()
}
