// Package resume lets a host pick a live session back up after a page
// reload or a new device login. A single pointer blob per host records
// where they were; resuming validates it against the live session before
// trusting it.
package resume

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"quizdeck/internal/model"
)

// Pointer is the per-host breadcrumb. One per host: starting a new
// session overwrites the previous pointer.
type Pointer struct {
	SessionID    string             `json:"sessionId"`
	PIN          string             `json:"pin"`
	ActivityID   string             `json:"activityId"`
	Title        string             `json:"title"`
	HostID       string             `json:"hostId"`
	ActivityType model.ActivityType `json:"activityType"`
	LastState    model.SessionState `json:"lastState"`
	ReturnPath   string             `json:"returnPath,omitempty"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// Store persists one pointer blob per host.
type Store interface {
	Save(ctx context.Context, ptr *Pointer) error
	// Load returns nil when no pointer exists. A blob that cannot be
	// decoded is treated as absent and removed.
	Load(ctx context.Context, hostID string) (*Pointer, error)
	Clear(ctx context.Context, hostID string) error
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a redis-backed pointer store. The key TTL matches
// the resume window so stale pointers age out on their own.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func pointerKey(hostID string) string {
	return "host:" + hostID + ":active"
}

func (s *redisStore) Save(ctx context.Context, ptr *Pointer) error {
	data, err := json.Marshal(ptr)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, pointerKey(ptr.HostID), data, s.ttl).Err()
}

func (s *redisStore) Load(ctx context.Context, hostID string) (*Pointer, error) {
	data, err := s.client.Get(ctx, pointerKey(hostID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ptr Pointer
	if err := json.Unmarshal([]byte(data), &ptr); err != nil {
		// Corrupted blob: drop it rather than fail every resume attempt.
		_ = s.client.Del(ctx, pointerKey(hostID)).Err()
		return nil, nil
	}
	return &ptr, nil
}

func (s *redisStore) Clear(ctx context.Context, hostID string) error {
	return s.client.Del(ctx, pointerKey(hostID)).Err()
}
