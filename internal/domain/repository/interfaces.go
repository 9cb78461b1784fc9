package repository

import (
	"context"
	"time"

	"ForecastPull/internal/domain/models"
)

// EventStore is the authoritative event state. Implementations must make
// BeginResolution an atomic first-writer-wins transition.
type EventStore interface {
	// CreateEvent registers an event in the OPEN state. Creating an event
	// that already exists is a no-op returning the stored event.
	CreateEvent(ctx context.Context, e *models.Event) (*models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListOpenEvents(ctx context.Context) ([]*models.Event, error)

	// BeginResolution moves OPEN -> RESOLVING. Returns false without error
	// when the event is no longer open (duplicate signal: caller no-ops).
	BeginResolution(ctx context.Context, id string) (bool, error)
	// CompleteResolution moves RESOLVING -> RESOLVED and writes the terminal
	// outcome. Fails if the event is not in RESOLVING.
	CompleteResolution(ctx context.Context, id string, outcome bool, at time.Time) error
	// AbortResolution returns RESOLVING -> OPEN when the outcome could not
	// be written (e.g. malformed data discovered late).
	AbortResolution(ctx context.Context, id string) error

	// ListResolvedWithUnscored drives the recovery pass: resolved events
	// that still have at least one unscored forecast.
	ListResolvedWithUnscored(ctx context.Context) ([]*models.Event, error)

	CountEvents(ctx context.Context) (open int, resolved int, err error)
}

// ForecastStore holds submitted forecasts and their immutable scores.
type ForecastStore interface {
	// UpsertOpenForecast creates a forecast, or updates probability,
	// confidence and rationale in place when the forecaster already has an
	// unscored forecast for the event.
	UpsertOpenForecast(ctx context.Context, f *models.Forecast) (*models.Forecast, error)
	GetForecast(ctx context.Context, id string) (*models.Forecast, error)
	ListEventForecasts(ctx context.Context, eventID string) ([]*models.Forecast, error)
	ListUnscored(ctx context.Context, eventID string) ([]*models.Forecast, error)
	// ListResolvedByForecaster returns scored forecasts submitted at or
	// after since; a zero since means all time.
	ListResolvedByForecaster(ctx context.Context, forecasterID string, since time.Time) ([]*models.Forecast, error)

	// AttachScore writes the score exactly once. Returns false without
	// error when a score is already present (safe retry, caller no-ops).
	AttachScore(ctx context.Context, forecastID string, score float64, outcome bool, at time.Time) (bool, error)

	CountForecasts(ctx context.Context) (total int, resolved int, err error)
}

// ForecasterStore holds participant identities. Forecasters are never
// deleted, only deactivated.
type ForecasterStore interface {
	CreateForecaster(ctx context.Context, f *models.Forecaster) (*models.Forecaster, error)
	GetForecaster(ctx context.Context, id string) (*models.Forecaster, error)
	ListForecasters(ctx context.Context, activeOnly bool) ([]*models.Forecaster, error)
	DeactivateForecaster(ctx context.Context, id string) error
}

// ResolutionAuthority is the external source of truth for event outcomes.
// Implementations wrap failures in models.TransientError when a later retry
// can succeed.
type ResolutionAuthority interface {
	QueryResolution(ctx context.Context, eventID string) (*models.ResolutionStatus, error)
}

// NotificationPublisher carries resolution candidates from the poller to
// the applier (kafka topic, or the in-process pipeline in direct mode).
type NotificationPublisher interface {
	Publish(ctx context.Context, n *models.ResolutionNotification) error
	Close() error
}

// ScoreArchive is the append-only history of scored forecasts. Archive
// failures must never block or corrupt scoring itself.
type ScoreArchive interface {
	Append(ctx context.Context, f *models.Forecast) error
	// AppendBatch archives one event's scored forecasts in a single write.
	AppendBatch(ctx context.Context, fs []*models.Forecast) error
	// QueryScores returns archived scores for one forecaster within
	// [from, to], newest first.
	QueryScores(ctx context.Context, forecasterID string, from, to time.Time, limit int) ([]*models.Forecast, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics is the engine's instrumentation surface.
type Metrics interface {
	RecordEventResolved(category string)
	RecordForecastScored(result string) // "scored", "conflict", "invariant"
	RecordPollResult(status string)     // "open", "resolved", "transient", "malformed"
	RecordConsensus(eventID string, probability float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
