package repository

import (
	"context"
	"time"

	"ForecastPull/internal/domain/models"
	"ForecastPull/pkg/cache"
)

// SnapshotCache stores derived read models (reputation snapshots and
// leaderboards) behind the shared cache service. Everything here can be
// dropped and rebuilt from the forecast store.
type SnapshotCache struct {
	svc cache.Service
	ttl time.Duration
}

// NewSnapshotCache wraps a cache service with snapshot key conventions.
func NewSnapshotCache(svc cache.Service, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SnapshotCache{svc: svc, ttl: ttl}
}

func reputationKey(forecasterID string) string {
	return cache.GenerateKey("reputation", forecasterID)
}

func leaderboardKey(metric, window string) string {
	return cache.GenerateKeyWithParams("leaderboard", metric, window)
}

// SetReputation caches one forecaster's snapshot.
func (c *SnapshotCache) SetReputation(ctx context.Context, snap *models.ReputationSnapshot) error {
	return c.svc.Set(ctx, reputationKey(snap.ForecasterID), snap, c.ttl)
}

// GetReputation returns (nil, nil) on a miss.
func (c *SnapshotCache) GetReputation(ctx context.Context, forecasterID string) (*models.ReputationSnapshot, error) {
	var snap models.ReputationSnapshot
	err := c.svc.Get(ctx, reputationKey(forecasterID), &snap)
	if err == cache.ErrCacheMiss {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// InvalidateReputation drops one forecaster's snapshot after rescoring.
func (c *SnapshotCache) InvalidateReputation(ctx context.Context, forecasterID string) error {
	return c.svc.Delete(ctx, reputationKey(forecasterID))
}

// SetLeaderboard replaces the full board for one (metric, window) key.
func (c *SnapshotCache) SetLeaderboard(ctx context.Context, board *models.Leaderboard) error {
	return c.svc.Set(ctx, leaderboardKey(board.Metric, board.Window), board, c.ttl)
}

// GetLeaderboard returns (nil, nil) on a miss.
func (c *SnapshotCache) GetLeaderboard(ctx context.Context, metric, window string) (*models.Leaderboard, error) {
	var board models.Leaderboard
	err := c.svc.Get(ctx, leaderboardKey(metric, window), &board)
	if err == cache.ErrCacheMiss {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &board, nil
}

// TryPollLease acquires the cross-instance poll-cycle lease. Only the holder
// runs a poll cycle; the lease expires on its own if the holder dies.
func (c *SnapshotCache) TryPollLease(ctx context.Context, ttl time.Duration) (bool, error) {
	return c.svc.TryLock(ctx, "poll:lease", ttl)
}

// ReleasePollLease frees the lease at the end of a cycle.
func (c *SnapshotCache) ReleasePollLease(ctx context.Context) error {
	return c.svc.Unlock(ctx, "poll:lease")
}
