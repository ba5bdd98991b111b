package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"quizdeck/internal/model"
)

// Leaderboard maintains the derived leaderboard aggregate in Redis. The
// state machine initializes it when a question phase starts; the answer
// path applies one scoring event per player per question; readers only
// ever see the summary.
type Leaderboard interface {
	// Init resets the per-question fields (answered count, distribution)
	// and records the roster size. Cumulative scores survive across
	// questions within a session.
	Init(ctx context.Context, pin string, playerCount, questionIndex int) error
	// ApplyScore applies one scoring event. Re-applying the same event ID
	// is a no-op, so retried submissions cannot double-count.
	ApplyScore(ctx context.Context, pin string, event model.ScoreEvent) error
	// Snapshot reads the aggregate with the top n entries. Equal scores
	// rank the earlier achiever first.
	Snapshot(ctx context.Context, pin string, n int) (*model.LeaderboardAggregate, error)
	// AnsweredCount returns how many scoring events landed since Init.
	AnsweredCount(ctx context.Context, pin string) (int, error)
	Delete(ctx context.Context, pin string) error
}

type leaderboard struct {
	client *redis.Client
}

// NewLeaderboard creates a Redis-backed leaderboard aggregate.
func NewLeaderboard(client *redis.Client) Leaderboard {
	return &leaderboard{client: client}
}

// Aggregate keys live alongside the session and expire with it.
const aggregateTTL = 24 * time.Hour

func (c *leaderboard) scoreKey(pin string) string   { return fmt.Sprintf("game:%s:lb", pin) }
func (c *leaderboard) playersKey(pin string) string { return fmt.Sprintf("game:%s:lb:players", pin) }
func (c *leaderboard) eventsKey(pin string) string  { return fmt.Sprintf("game:%s:lb:events", pin) }
func (c *leaderboard) metaKey(pin string) string    { return fmt.Sprintf("game:%s:lb:meta", pin) }
func (c *leaderboard) distKey(pin string) string    { return fmt.Sprintf("game:%s:lb:dist", pin) }

// playerMeta is the per-player hash value. lastAt carries the tie-break:
// for equal total scores the earlier achiever ranks first.
type playerMeta struct {
	Nickname   string `json:"nickname"`
	Streak     int    `json:"streak"`
	LastPoints int    `json:"lastPoints"`
	LastAt     int64  `json:"lastAt"`
}

func (c *leaderboard) Init(ctx context.Context, pin string, playerCount, questionIndex int) error {
	if err := c.client.Del(ctx, c.distKey(pin)).Err(); err != nil {
		return err
	}
	err := c.client.HSet(ctx, c.metaKey(pin),
		"playerCount", playerCount,
		"answeredCount", 0,
		"questionIndex", questionIndex,
	).Err()
	if err != nil {
		return err
	}
	for _, key := range []string{c.scoreKey(pin), c.playersKey(pin), c.eventsKey(pin), c.metaKey(pin)} {
		if err := c.client.Expire(ctx, key, aggregateTTL).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (c *leaderboard) ApplyScore(ctx context.Context, pin string, event model.ScoreEvent) error {
	added, err := c.client.SAdd(ctx, c.eventsKey(pin), event.EventID).Result()
	if err != nil {
		return err
	}
	if added == 0 {
		return nil // already applied
	}

	if err := c.client.ZAdd(ctx, c.scoreKey(pin), redis.Z{
		Score:  float64(event.TotalScore),
		Member: event.PlayerID,
	}).Err(); err != nil {
		return err
	}

	meta, err := json.Marshal(playerMeta{
		Nickname:   event.Nickname,
		Streak:     event.Streak,
		LastPoints: event.Points,
		LastAt:     event.ScoredAtMS,
	})
	if err != nil {
		return err
	}
	if err := c.client.HSet(ctx, c.playersKey(pin), event.PlayerID, meta).Err(); err != nil {
		return err
	}

	if err := c.client.HIncrBy(ctx, c.metaKey(pin), "answeredCount", 1).Err(); err != nil {
		return err
	}
	if event.OptionKey != "" {
		if err := c.client.HIncrBy(ctx, c.distKey(pin), event.OptionKey, 1).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (c *leaderboard) Snapshot(ctx context.Context, pin string, n int) (*model.LeaderboardAggregate, error) {
	// Rosters are small, so read the whole ZSET and break ties in Go;
	// Redis orders equal scores lexically by member, not by time.
	results, err := c.client.ZRevRangeWithScores(ctx, c.scoreKey(pin), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	metas, err := c.client.HGetAll(ctx, c.playersKey(pin)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]model.AggregateEntry, 0, len(results))
	lastAt := make(map[string]int64, len(results))
	for _, z := range results {
		playerID := z.Member.(string)
		entry := model.AggregateEntry{
			PlayerID: playerID,
			Score:    int(z.Score),
		}
		if raw, ok := metas[playerID]; ok {
			var meta playerMeta
			if err := json.Unmarshal([]byte(raw), &meta); err == nil {
				entry.Nickname = meta.Nickname
				entry.Streak = meta.Streak
				entry.LastPoints = meta.LastPoints
				lastAt[playerID] = meta.LastAt
			}
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return lastAt[entries[i].PlayerID] < lastAt[entries[j].PlayerID]
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	meta, err := c.client.HGetAll(ctx, c.metaKey(pin)).Result()
	if err != nil {
		return nil, err
	}
	dist, err := c.client.HGetAll(ctx, c.distKey(pin)).Result()
	if err != nil {
		return nil, err
	}

	agg := &model.LeaderboardAggregate{
		PIN:           pin,
		Top:           entries,
		PlayerCount:   atoi(meta["playerCount"]),
		AnsweredCount: atoi(meta["answeredCount"]),
		QuestionIndex: atoi(meta["questionIndex"]),
	}
	if len(dist) > 0 {
		agg.Distribution = make(map[string]int, len(dist))
		for key, value := range dist {
			agg.Distribution[key] = atoi(value)
		}
	}
	return agg, nil
}

func (c *leaderboard) AnsweredCount(ctx context.Context, pin string) (int, error) {
	value, err := c.client.HGet(ctx, c.metaKey(pin), "answeredCount").Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return atoi(value), nil
}

func (c *leaderboard) Delete(ctx context.Context, pin string) error {
	return c.client.Del(ctx,
		c.scoreKey(pin),
		c.playersKey(pin),
		c.eventsKey(pin),
		c.metaKey(pin),
		c.distKey(pin),
	).Err()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
