package usecase

import (
	"context"
	"sort"
	"time"

	"ForecastPull/internal/domain/models"
	drepo "ForecastPull/internal/domain/repository"
	"ForecastPull/internal/repository"
	"ForecastPull/internal/services/scoring"
	"ForecastPull/pkg/logger"
)

// LeaderboardService builds ranked forecaster boards per (metric, window)
// key on its own refresh schedule. Boards are whole-cache snapshots: each
// refresh replaces the previous board outright, so readers never see a
// half-built ranking.
type LeaderboardService struct {
	forecasts   drepo.ForecastStore
	forecasters drepo.ForecasterStore
	cache       *repository.SnapshotCache
	buckets     int
	log         *logger.Logger
}

// NewLeaderboardService creates a new LeaderboardService instance.
func NewLeaderboardService(
	forecasts drepo.ForecastStore,
	forecasters drepo.ForecasterStore,
	cache *repository.SnapshotCache,
	buckets int,
	log *logger.Logger,
) *LeaderboardService {
	if buckets <= 0 {
		buckets = scoring.DefaultBucketCount
	}
	return &LeaderboardService{
		forecasts:   forecasts,
		forecasters: forecasters,
		cache:       cache,
		buckets:     buckets,
		log:         log,
	}
}

// Build ranks every active forecaster with at least one resolved forecast
// in the window. Ties break on forecaster ID so rebuilds are stable.
func (s *LeaderboardService) Build(ctx context.Context, metric string, window drepo.Window) (*models.Leaderboard, error) {
	since := drepo.WindowCutoff(window, time.Now().UTC())

	active, err := s.forecasters.ListForecasters(ctx, true)
	if err != nil {
		return nil, err
	}

	var entries []models.LeaderboardEntry
	for _, fc := range active {
		resolved, err := s.forecasts.ListResolvedByForecaster(ctx, fc.ID, since)
		if err != nil {
			return nil, err
		}
		if len(resolved) == 0 {
			continue
		}
		var sum float64
		for _, f := range resolved {
			sum += *f.Score
		}
		avg := sum / float64(len(resolved))
		vs := scoring.VsRandom(avg)
		entry := models.LeaderboardEntry{
			ForecasterID:  fc.ID,
			DisplayName:   fc.DisplayName,
			AvgScore:      &avg,
			ResolvedCount: len(resolved),
			VsRandom:      &vs,
		}
		entry.CalibrationError = scoring.BuildCalibration(fc.ID, resolved, s.buckets).AggregateError
		entries = append(entries, entry)
	}

	sortEntries(entries, metric)
	for i := range entries {
		entries[i].Rank = i + 1
	}

	board := &models.Leaderboard{
		Metric:      metric,
		Window:      string(window),
		Entries:     entries,
		RefreshedAt: time.Now().UTC(),
	}
	if s.cache != nil {
		_ = s.cache.SetLeaderboard(ctx, board)
	}
	return board, nil
}

func sortEntries(entries []models.LeaderboardEntry, metric string) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch metric {
		case models.MetricVolume:
			if a.ResolvedCount != b.ResolvedCount {
				return a.ResolvedCount > b.ResolvedCount
			}
		case models.MetricCalibration:
			av, bv := deref(a.CalibrationError), deref(b.CalibrationError)
			if av != bv {
				return av < bv
			}
		default: // reputation: lower Brier first
			av, bv := deref(a.AvgScore), deref(b.AvgScore)
			if av != bv {
				return av < bv
			}
		}
		return a.ForecasterID < b.ForecasterID
	})
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Get serves a board from cache, building it on a miss. Limit truncates the
// served copy only; the cache always holds the full board.
func (s *LeaderboardService) Get(ctx context.Context, metric string, window drepo.Window, limit int) (*models.Leaderboard, error) {
	var board *models.Leaderboard
	if s.cache != nil {
		if cached, err := s.cache.GetLeaderboard(ctx, metric, string(window)); err == nil && cached != nil {
			board = cached
		}
	}
	if board == nil {
		built, err := s.Build(ctx, metric, window)
		if err != nil {
			return nil, err
		}
		board = built
	}
	if limit > 0 && len(board.Entries) > limit {
		trimmed := *board
		trimmed.Entries = board.Entries[:limit]
		return &trimmed, nil
	}
	return board, nil
}

// RefreshAll rebuilds every (metric, window) board. One failed board is
// logged and skipped; the rest still refresh.
func (s *LeaderboardService) RefreshAll(ctx context.Context) {
	for _, metric := range []string{models.MetricReputation, models.MetricVolume, models.MetricCalibration} {
		for _, window := range drepo.Windows() {
			if _, err := s.Build(ctx, metric, window); err != nil {
				s.log.Error("leaderboard refresh failed",
					logger.String("metric", metric),
					logger.String("window", string(window)),
					logger.Error(err))
			}
		}
	}
}
