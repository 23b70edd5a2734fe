package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/mapmates/backend/internal/domain"
	"github.com/pkordes/mapmates/backend/internal/repo"
)

const (
	defaultLeaderboardLimit = 20
	maxLeaderboardLimit     = 100

	// leaderboardSeedSize is how many users are loaded into the cache on a miss.
	leaderboardSeedSize = 1000
)

// Settlement is the karma change applied to a host for one review.
type Settlement struct {
	HostID uuid.UUID
	Rating int
	Delta  int
	Karma  int // host karma after the delta
}

// KarmaService owns every karma mutation and the leaderboard read path.
// The cache is optional; without it the leaderboard is read from Postgres.
type KarmaService struct {
	store repo.Store
	cache LeaderboardCache
	options
}

// NewKarmaService constructs a KarmaService. cache may be nil.
func NewKarmaService(store repo.Store, cache LeaderboardCache, opts ...Option) *KarmaService {
	return &KarmaService{store: store, cache: cache, options: buildOptions(opts)}
}

// Settle applies the karma delta for rating to hostID through users, which is
// normally bound to the caller's transaction. Ratings outside 1..5 fail with
// domain.ErrInvalidRating before anything is written.
func (k *KarmaService) Settle(ctx context.Context, users repo.UserRepo, hostID uuid.UUID, rating int) (Settlement, error) {
	delta, err := domain.KarmaDelta(rating)
	if err != nil {
		return Settlement{}, fmt.Errorf("service.KarmaService.Settle: %w", err)
	}
	karma, err := users.AddKarma(ctx, hostID, delta)
	if err != nil {
		return Settlement{}, fmt.Errorf("service.KarmaService.Settle: %w", err)
	}
	return Settlement{HostID: hostID, Rating: rating, Delta: delta, Karma: karma}, nil
}

// Publish propagates a committed settlement to metrics and the leaderboard
// cache. Cache failures are logged, not returned: Postgres stays the source
// of truth and the cache entry expires on its own.
func (k *KarmaService) Publish(ctx context.Context, s Settlement) {
	k.recorder.KarmaSettled(s.Delta)
	k.logger.InfoContext(ctx, "karma settled",
		"host_id", s.HostID, "rating", s.Rating, "delta", s.Delta, "karma", s.Karma)

	if k.cache == nil || s.Delta == 0 {
		return
	}
	if err := k.cache.Incr(ctx, s.HostID, s.Delta); err != nil {
		k.logger.WarnContext(ctx, "leaderboard cache increment failed", "host_id", s.HostID, "error", err)
	}
}

// Leaderboard returns the top users by karma with their badges.
// limit is clamped to [1, 100]; 0 selects the default of 20.
func (k *KarmaService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	switch {
	case limit <= 0:
		limit = defaultLeaderboardLimit
	case limit > maxLeaderboardLimit:
		limit = maxLeaderboardLimit
	}

	if k.cache != nil {
		entries, ok, err := k.cache.Top(ctx, limit)
		if err != nil {
			k.logger.WarnContext(ctx, "leaderboard cache read failed", "error", err)
		} else if ok {
			return entries, nil
		}
	}

	size := limit
	if k.cache != nil {
		size = leaderboardSeedSize
	}
	users, err := k.store.Users().ListByKarma(ctx, size)
	if err != nil {
		return nil, fmt.Errorf("service.KarmaService.Leaderboard: %w", err)
	}

	if k.cache != nil {
		if err := k.cache.Seed(ctx, users); err != nil {
			k.logger.WarnContext(ctx, "leaderboard cache seed failed", "error", err)
		}
	}

	if len(users) > limit {
		users = users[:limit]
	}
	entries := make([]domain.LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = domain.LeaderboardEntry{
			Rank:     i + 1,
			UserID:   u.ID,
			Username: u.Username,
			Karma:    u.Karma,
			Badge:    domain.Badge(u.Karma),
		}
	}
	return entries, nil
}
