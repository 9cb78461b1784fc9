package usecase

import (
	"context"
	"time"

	"ForecastPull/internal/domain/models"
	drepo "ForecastPull/internal/domain/repository"
	"ForecastPull/internal/repository"
	"ForecastPull/internal/services/scoring"
)

// ReputationService derives per-forecaster reputation snapshots from scored
// forecasts. Snapshots are cached; the forecast store stays the source of
// truth so a refresh can always rebuild from scratch.
type ReputationService struct {
	forecasts   drepo.ForecastStore
	forecasters drepo.ForecasterStore
	cache       *repository.SnapshotCache
	epsilon     float64
}

// NewReputationService creates a new ReputationService instance.
func NewReputationService(
	forecasts drepo.ForecastStore,
	forecasters drepo.ForecasterStore,
	cache *repository.SnapshotCache,
	epsilon float64,
) *ReputationService {
	if epsilon <= 0 {
		epsilon = scoring.DefaultEpsilon
	}
	return &ReputationService{
		forecasts:   forecasts,
		forecasters: forecasters,
		cache:       cache,
		epsilon:     epsilon,
	}
}

// Refresh recomputes one forecaster's snapshot from all scored forecasts and
// replaces the cached value. Refreshes for different forecasters are
// independent; the full recompute makes concurrent refreshes of the same
// forecaster converge instead of losing updates.
func (s *ReputationService) Refresh(ctx context.Context, forecasterID string) (*models.ReputationSnapshot, error) {
	if _, err := s.forecasters.GetForecaster(ctx, forecasterID); err != nil {
		return nil, err
	}

	resolved, err := s.forecasts.ListResolvedByForecaster(ctx, forecasterID, time.Time{})
	if err != nil {
		return nil, err
	}

	snap := &models.ReputationSnapshot{
		ForecasterID:  forecasterID,
		ResolvedCount: len(resolved),
		Weight:        scoring.NeutralWeight,
		UpdatedAt:     time.Now().UTC(),
	}
	if len(resolved) > 0 {
		var sum float64
		for _, f := range resolved {
			sum += *f.Score
		}
		avg := sum / float64(len(resolved))
		snap.AvgScore = &avg
		snap.Weight = scoring.Weight(avg, s.epsilon)
	}

	if s.cache != nil {
		// Cache failures degrade to recompute-on-read, never block scoring.
		_ = s.cache.SetReputation(ctx, snap)
	}
	return snap, nil
}

// Get returns the cached snapshot, recomputing on a miss.
func (s *ReputationService) Get(ctx context.Context, forecasterID string) (*models.ReputationSnapshot, error) {
	if s.cache != nil {
		if snap, err := s.cache.GetReputation(ctx, forecasterID); err == nil && snap != nil {
			return snap, nil
		}
	}
	return s.Refresh(ctx, forecasterID)
}

// Weight returns the consensus weight for one forecaster. Forecasters with
// no resolved history get the neutral weight.
func (s *ReputationService) Weight(ctx context.Context, forecasterID string) (float64, error) {
	snap, err := s.Get(ctx, forecasterID)
	if err != nil {
		return 0, err
	}
	return snap.Weight, nil
}

// MarketComparison reports how often the forecaster beat the event price
// taken as a probability estimate, over forecasts where a price snapshot
// exists.
func (s *ReputationService) MarketComparison(ctx context.Context, forecasterID string) (*models.MarketComparison, error) {
	if _, err := s.forecasters.GetForecaster(ctx, forecasterID); err != nil {
		return nil, err
	}
	resolved, err := s.forecasts.ListResolvedByForecaster(ctx, forecasterID, time.Time{})
	if err != nil {
		return nil, err
	}

	out := &models.MarketComparison{ForecasterID: forecasterID}
	var scoreSum, marketSum float64
	for _, f := range resolved {
		if f.PriceAtSubmission == nil || f.OutcomeAtScoring == nil {
			continue
		}
		marketScore, err := scoring.BrierScore(*f.PriceAtSubmission, *f.OutcomeAtScoring)
		if err != nil {
			continue // price snapshot outside [0,1], not comparable
		}
		out.TotalComparable++
		scoreSum += *f.Score
		marketSum += marketScore
		if *f.Score < marketScore {
			out.BeatMarketCount++
		}
	}
	if out.TotalComparable > 0 {
		n := float64(out.TotalComparable)
		rate := float64(out.BeatMarketCount) / n
		avgScore := scoreSum / n
		avgMarket := marketSum / n
		out.BeatMarketRate = &rate
		out.AvgScore = &avgScore
		out.AvgMarketScore = &avgMarket
	}
	return out, nil
}
