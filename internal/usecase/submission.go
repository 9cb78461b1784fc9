package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ForecastPull/internal/domain/models"
	drepo "ForecastPull/internal/domain/repository"
	"ForecastPull/internal/services/scoring"
)

// SubmissionService owns the write path: forecaster registration and
// forecast submission. The open-state check here is the synchronization
// point that keeps late submissions out of scoring.
type SubmissionService struct {
	events      drepo.EventStore
	forecasts   drepo.ForecastStore
	forecasters drepo.ForecasterStore
	metrics     drepo.Metrics
}

// NewSubmissionService creates a new SubmissionService instance.
func NewSubmissionService(
	events drepo.EventStore,
	forecasts drepo.ForecastStore,
	forecasters drepo.ForecasterStore,
	metrics drepo.Metrics,
) *SubmissionService {
	return &SubmissionService{
		events:      events,
		forecasts:   forecasts,
		forecasters: forecasters,
		metrics:     metrics,
	}
}

// RegisterForecaster creates (or returns the existing) forecaster.
func (s *SubmissionService) RegisterForecaster(ctx context.Context, req *models.RegisterForecasterRequest) (*models.Forecaster, error) {
	return s.forecasters.CreateForecaster(ctx, &models.Forecaster{
		ID:          req.ForecasterID,
		DisplayName: req.DisplayName,
	})
}

// SubmitForecast records one probability estimate. Resubmitting for the same
// open event updates the existing forecast in place; submissions against an
// event that is no longer open are rejected, never silently scored.
func (s *SubmissionService) SubmitForecast(ctx context.Context, req *models.SubmitForecastRequest) (*models.Forecast, error) {
	if err := scoring.ValidateProbability(req.Probability); err != nil {
		return nil, err
	}

	fc, err := s.forecasters.GetForecaster(ctx, req.ForecasterID)
	if err != nil {
		return nil, err
	}
	if !fc.Active {
		return nil, models.ErrForecasterInactive
	}

	// First observation of an event registers it as open.
	event, err := s.events.GetEvent(ctx, req.EventID)
	if err == models.ErrEventNotFound {
		e := &models.Event{
			ID:       req.EventID,
			Title:    req.EventTitle,
			Category: req.EventCategory,
		}
		if req.EventPrice != nil {
			e.Price = *req.EventPrice
		}
		event, err = s.events.CreateEvent(ctx, e)
	}
	if err != nil {
		return nil, err
	}
	if event.State != models.EventOpen {
		return nil, models.ErrEventNotOpen
	}

	f := &models.Forecast{
		ID:           uuid.NewString(),
		ForecasterID: req.ForecasterID,
		EventID:      req.EventID,
		Probability:  req.Probability,
		Confidence:   req.Confidence,
		Rationale:    req.Rationale,
		SubmittedAt:  time.Now().UTC(),
	}
	if req.EventPrice != nil {
		p := *req.EventPrice
		f.PriceAtSubmission = &p
	} else if event.Price > 0 {
		p := event.Price
		f.PriceAtSubmission = &p
	}

	out, err := s.forecasts.UpsertOpenForecast(ctx, f)
	if err != nil {
		s.metrics.RecordError("submit")
		return nil, err
	}
	return out, nil
}

// GetForecaster returns one registered participant.
func (s *SubmissionService) GetForecaster(ctx context.Context, id string) (*models.Forecaster, error) {
	return s.forecasters.GetForecaster(ctx, id)
}

// DeactivateForecaster retires a participant. History and reputation stay.
func (s *SubmissionService) DeactivateForecaster(ctx context.Context, id string) error {
	return s.forecasters.DeactivateForecaster(ctx, id)
}

// Stats returns platform-wide totals.
func (s *SubmissionService) Stats(ctx context.Context) (*models.PlatformStats, error) {
	open, resolved, err := s.events.CountEvents(ctx)
	if err != nil {
		return nil, err
	}
	total, scored, err := s.forecasts.CountForecasts(ctx)
	if err != nil {
		return nil, err
	}
	fcs, err := s.forecasters.ListForecasters(ctx, false)
	if err != nil {
		return nil, err
	}
	return &models.PlatformStats{
		Forecasters:       len(fcs),
		Forecasts:         total,
		ResolvedForecasts: scored,
		OpenEvents:        open,
		ResolvedEvents:    resolved,
	}, nil
}
