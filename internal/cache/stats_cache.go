package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

const (
	systemStatsKey   = "stats:system"
	shareTokenPrefix = "quiz:share:"
	shareTokenTTL    = 24 * time.Hour
)

// StatsCache holds the serialized system-stats snapshot and share-token
// lookups. Dashboard numbers tolerate staleness up to the snapshot TTL.
type StatsCache struct {
	client      *redisv9.Client
	snapshotTTL time.Duration
}

func NewStatsCache(client *redisv9.Client, snapshotTTL time.Duration) *StatsCache {
	if snapshotTTL <= 0 {
		snapshotTTL = 30 * time.Second
	}
	return &StatsCache{client: client, snapshotTTL: snapshotTTL}
}

// GetSystemSnapshot unmarshals the cached snapshot into dest.
func (c *StatsCache) GetSystemSnapshot(ctx context.Context, dest interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, systemStatsKey).Result()
	if err == redisv9.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get system stats failed: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("unmarshal cached system stats failed: %w", err)
	}
	return true, nil
}

func (c *StatsCache) SetSystemSnapshot(ctx context.Context, snapshot interface{}) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal system stats failed: %w", err)
	}
	if err := c.client.Set(ctx, systemStatsKey, payload, c.snapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis set system stats failed: %w", err)
	}
	return nil
}

// GetShareQuizID resolves a share token to a quiz id, if cached.
func (c *StatsCache) GetShareQuizID(ctx context.Context, token string) (uint, bool, error) {
	id, err := c.client.Get(ctx, shareTokenPrefix+token).Uint64()
	if err == redisv9.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get share token failed: %w", err)
	}
	return uint(id), true, nil
}

func (c *StatsCache) SetShareQuizID(ctx context.Context, token string, quizID uint) error {
	if err := c.client.Set(ctx, shareTokenPrefix+token, uint64(quizID), shareTokenTTL).Err(); err != nil {
		return fmt.Errorf("redis set share token failed: %w", err)
	}
	return nil
}
