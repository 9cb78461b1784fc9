package usecase

import (
	"context"
	"time"

	"ForecastPull/internal/domain/models"
	drepo "ForecastPull/internal/domain/repository"
	"ForecastPull/internal/services/scoring"
)

// CalibrationService bins a forecaster's resolved forecasts by stated
// probability and compares each band against its realized resolution rate.
type CalibrationService struct {
	forecasts   drepo.ForecastStore
	forecasters drepo.ForecasterStore
	buckets     int
}

// NewCalibrationService creates a new CalibrationService instance.
func NewCalibrationService(forecasts drepo.ForecastStore, forecasters drepo.ForecasterStore, buckets int) *CalibrationService {
	if buckets <= 0 {
		buckets = scoring.DefaultBucketCount
	}
	return &CalibrationService{forecasts: forecasts, forecasters: forecasters, buckets: buckets}
}

// Report builds the full calibration report for one forecaster.
func (s *CalibrationService) Report(ctx context.Context, forecasterID string) (*models.CalibrationReport, error) {
	if _, err := s.forecasters.GetForecaster(ctx, forecasterID); err != nil {
		return nil, err
	}
	resolved, err := s.forecasts.ListResolvedByForecaster(ctx, forecasterID, time.Time{})
	if err != nil {
		return nil, err
	}
	return scoring.BuildCalibration(forecasterID, resolved, s.buckets), nil
}

// WindowedError returns the aggregate calibration error over forecasts
// submitted at or after since (zero = all time); nil when nothing resolved.
func (s *CalibrationService) WindowedError(ctx context.Context, forecasterID string, since time.Time) (*float64, error) {
	resolved, err := s.forecasts.ListResolvedByForecaster(ctx, forecasterID, since)
	if err != nil {
		return nil, err
	}
	return scoring.BuildCalibration(forecasterID, resolved, s.buckets).AggregateError, nil
}
