package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RosterCache tracks who joined a session, for fast player counts and
// nickname uniqueness checks on join.
type RosterCache interface {
	Add(ctx context.Context, pin, playerID, nickname string) error
	Count(ctx context.Context, pin string) (int, error)
	NicknameTaken(ctx context.Context, pin, nickname string) (bool, error)
	Remove(ctx context.Context, pin, playerID string) error
	Delete(ctx context.Context, pin string) error
}

type rosterCache struct {
	client *redis.Client
}

func NewRosterCache(client *redis.Client) RosterCache {
	return &rosterCache{client: client}
}

func (c *rosterCache) key(pin string) string {
	return "game:" + pin + ":roster"
}

func (c *rosterCache) Add(ctx context.Context, pin, playerID, nickname string) error {
	if err := c.client.HSet(ctx, c.key(pin), playerID, nickname).Err(); err != nil {
		return err
	}
	return c.client.Expire(ctx, c.key(pin), 24*time.Hour).Err()
}

func (c *rosterCache) Count(ctx context.Context, pin string) (int, error) {
	n, err := c.client.HLen(ctx, c.key(pin)).Result()
	return int(n), err
}

func (c *rosterCache) NicknameTaken(ctx context.Context, pin, nickname string) (bool, error) {
	names, err := c.client.HVals(ctx, c.key(pin)).Result()
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if strings.EqualFold(name, nickname) {
			return true, nil
		}
	}
	return false, nil
}

func (c *rosterCache) Remove(ctx context.Context, pin, playerID string) error {
	return c.client.HDel(ctx, c.key(pin), playerID).Err()
}

func (c *rosterCache) Delete(ctx context.Context, pin string) error {
	return c.client.Del(ctx, c.key(pin)).Err()
}
