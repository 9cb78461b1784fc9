package usecase

import (
	"context"
	"time"

	"ForecastPull/internal/domain/models"
	drepo "ForecastPull/internal/domain/repository"
	"ForecastPull/internal/services/scoring"
)

// ConsensusService computes the reputation-weighted aggregate probability
// for one open event, on demand. Weights are snapshotted at computation
// time; a consensus is never stored, only served.
type ConsensusService struct {
	events     drepo.EventStore
	forecasts  drepo.ForecastStore
	reputation *ReputationService
	metrics    drepo.Metrics
}

// NewConsensusService creates a new ConsensusService instance.
func NewConsensusService(
	events drepo.EventStore,
	forecasts drepo.ForecastStore,
	reputation *ReputationService,
	metrics drepo.Metrics,
) *ConsensusService {
	return &ConsensusService{
		events:     events,
		forecasts:  forecasts,
		reputation: reputation,
		metrics:    metrics,
	}
}

// Compute aggregates all current forecasts for an open event. Events that
// already resolved have a known outcome; asking for their consensus is an
// error, not a frozen answer.
func (s *ConsensusService) Compute(ctx context.Context, eventID string) (*models.Consensus, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.State != models.EventOpen {
		return nil, models.ErrEventNotOpen
	}

	fs, err := s.forecasts.ListEventForecasts(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(fs) == 0 {
		return nil, models.ErrNoConsensus
	}

	probs := make([]float64, len(fs))
	weights := make([]float64, len(fs))
	for i, f := range fs {
		probs[i] = f.Probability
		w, werr := s.reputation.Weight(ctx, f.ForecasterID)
		if werr != nil || w <= 0 {
			w = scoring.NeutralWeight
		}
		weights[i] = w
	}

	prob, spread, err := scoring.WeightedConsensus(probs, weights)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordConsensus(eventID, prob)
	return &models.Consensus{
		EventID:       eventID,
		Probability:   prob,
		ForecastCount: len(fs),
		Spread:        spread,
		ComputedAt:    time.Now().UTC(),
	}, nil
}
