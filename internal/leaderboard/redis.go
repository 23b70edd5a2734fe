// Package leaderboard caches the karma ranking in a Redis sorted set.
//
// Postgres stays the source of truth. The cache is seeded from it on a miss,
// incremented after each committed settlement, and expires on its own so any
// drift is bounded by the TTL.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/mapmates/backend/internal/domain"
)

const (
	scoresKey = "leaderboard:karma"
	namesKey  = "leaderboard:names"

	// DefaultTTL bounds how long a seeded ranking is served.
	DefaultTTL = 5 * time.Minute
)

// Cache implements service.LeaderboardCache on Redis.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New returns a Cache using rdb. A ttl of zero selects DefaultTTL.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("leaderboard.Connect: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("leaderboard.Connect: ping: %w", err)
	}
	return rdb, nil
}

// Top returns the highest-karma users. ok is false when nothing is cached.
func (c *Cache) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, bool, error) {
	n, err := c.rdb.Exists(ctx, scoresKey).Result()
	if err != nil {
		return nil, false, fmt.Errorf("leaderboard.Cache.Top: %w", err)
	}
	if n == 0 {
		return nil, false, nil
	}

	scores, err := c.rdb.ZRevRangeWithScores(ctx, scoresKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("leaderboard.Cache.Top: %w", err)
	}
	if len(scores) == 0 {
		return []domain.LeaderboardEntry{}, true, nil
	}

	ids := make([]string, len(scores))
	for i, z := range scores {
		ids[i] = z.Member.(string)
	}
	names, err := c.rdb.HMGet(ctx, namesKey, ids...).Result()
	if err != nil {
		return nil, false, fmt.Errorf("leaderboard.Cache.Top: names: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(scores))
	for i, z := range scores {
		id, err := uuid.Parse(ids[i])
		if err != nil {
			return nil, false, fmt.Errorf("leaderboard.Cache.Top: member %q: %w", ids[i], err)
		}
		name, _ := names[i].(string)
		if name == "" {
			// A member without a name means a half-written seed; rebuild.
			return nil, false, nil
		}
		karma := int(z.Score)
		entries = append(entries, domain.LeaderboardEntry{
			Rank:     i + 1,
			UserID:   id,
			Username: name,
			Karma:    karma,
			Badge:    domain.Badge(karma),
		})
	}
	return entries, true, nil
}

// Seed replaces the cached ranking with users and starts the TTL. Redis
// cannot hold an empty sorted set, so seeding no users leaves a miss.
func (c *Cache) Seed(ctx context.Context, users []domain.User) error {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, scoresKey, namesKey)
		if len(users) == 0 {
			return nil
		}
		members := make([]redis.Z, len(users))
		names := make(map[string]any, len(users))
		for i, u := range users {
			members[i] = redis.Z{Score: float64(u.Karma), Member: u.ID.String()}
			names[u.ID.String()] = u.Username
		}
		p.ZAdd(ctx, scoresKey, members...)
		p.HSet(ctx, namesKey, names)
		p.Expire(ctx, scoresKey, c.ttl)
		p.Expire(ctx, namesKey, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("leaderboard.Cache.Seed: %w", err)
	}
	return nil
}

// Incr adds delta to a cached user's score. Users outside the cached set are
// left alone; the next seed picks them up.
func (c *Cache) Incr(ctx context.Context, userID uuid.UUID, delta int) error {
	err := c.rdb.ZAddArgsIncr(ctx, scoresKey, redis.ZAddArgs{
		XX:      true,
		Members: []redis.Z{{Score: float64(delta), Member: userID.String()}},
	}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("leaderboard.Cache.Incr: %w", err)
	}
	return nil
}

// Invalidate drops the cached ranking.
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Del(ctx, scoresKey, namesKey).Err(); err != nil {
		return fmt.Errorf("leaderboard.Cache.Invalidate: %w", err)
	}
	return nil
}
