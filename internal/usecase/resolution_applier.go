package usecase

import (
	"context"
	"fmt"
	"time"

	"ForecastPull/internal/domain/models"
	drepo "ForecastPull/internal/domain/repository"
	"ForecastPull/internal/services/scoring"
	"ForecastPull/pkg/logger"
)

// ResolutionApplier consumes resolution notifications and drives the
// OPEN -> RESOLVING -> RESOLVED transition plus scoring. Applying the same
// notification twice is a no-op: the state machine absorbs duplicate
// signals and AttachScore absorbs scoring retries.
type ResolutionApplier struct {
	events     drepo.EventStore
	forecasts  drepo.ForecastStore
	reputation *ReputationService
	archive    drepo.ScoreArchive
	metrics    drepo.Metrics
	log        *logger.Logger
}

// NewResolutionApplier creates a new ResolutionApplier instance.
func NewResolutionApplier(
	events drepo.EventStore,
	forecasts drepo.ForecastStore,
	reputation *ReputationService,
	archive drepo.ScoreArchive,
	metrics drepo.Metrics,
	log *logger.Logger,
) *ResolutionApplier {
	return &ResolutionApplier{
		events:     events,
		forecasts:  forecasts,
		reputation: reputation,
		archive:    archive,
		metrics:    metrics,
		log:        log,
	}
}

// Apply processes one resolution notification end to end: claim the event,
// write the terminal outcome, then score every open forecast. A crash
// between the outcome write and scoring is repaired by Recover.
func (a *ResolutionApplier) Apply(ctx context.Context, n *models.ResolutionNotification) error {
	start := time.Now()

	ok, err := a.events.BeginResolution(ctx, n.EventID)
	if err != nil {
		a.metrics.RecordError("apply_begin")
		return fmt.Errorf("begin resolution %s: %w", n.EventID, err)
	}
	if !ok {
		// Duplicate resolution signal. Silently absorbed.
		a.log.Debug("duplicate resolution signal ignored", logger.String("event_id", n.EventID))
		return nil
	}

	resolvedAt := n.ResolvedAt
	if resolvedAt.IsZero() {
		resolvedAt = time.Now().UTC()
	}
	if err := a.events.CompleteResolution(ctx, n.EventID, n.Outcome, resolvedAt); err != nil {
		// Put the event back so the next cycle can retry.
		if abortErr := a.events.AbortResolution(ctx, n.EventID); abortErr != nil {
			a.log.Error("abort after failed completion",
				logger.String("event_id", n.EventID), logger.Error(abortErr))
		}
		a.metrics.RecordError("apply_complete")
		return fmt.Errorf("complete resolution %s: %w", n.EventID, err)
	}

	if event, gerr := a.events.GetEvent(ctx, n.EventID); gerr == nil {
		a.metrics.RecordEventResolved(event.Category)
	}

	scored := a.scoreEvent(ctx, n.EventID, n.Outcome, resolvedAt)
	a.metrics.RecordLatency("apply", time.Since(start).Seconds())
	a.log.Info("event resolved",
		logger.String("event_id", n.EventID),
		logger.Bool("outcome", n.Outcome),
		logger.Int("forecasts_scored", scored))
	return nil
}

// scoreEvent scores every unscored forecast for a resolved event and
// refreshes reputation for affected forecasters. One forecast's failure
// never blocks the rest.
func (a *ResolutionApplier) scoreEvent(ctx context.Context, eventID string, outcome bool, resolvedAt time.Time) int {
	pending, err := a.forecasts.ListUnscored(ctx, eventID)
	if err != nil {
		a.metrics.RecordError("score_list")
		a.log.Error("list unscored forecasts", logger.String("event_id", eventID), logger.Error(err))
		return 0
	}

	scored := 0
	affected := make(map[string]struct{})
	var toArchive []*models.Forecast
	for _, f := range pending {
		score, err := scoring.BrierScore(f.Probability, outcome)
		if err != nil {
			// Bad data reached the scorer. Fatal to this forecast only.
			a.metrics.RecordForecastScored("invariant")
			a.log.Error("scoring invariant violated",
				logger.String("forecast_id", f.ID),
				logger.String("event_id", eventID),
				logger.Error(err))
			continue
		}

		attached, err := a.forecasts.AttachScore(ctx, f.ID, score, outcome, resolvedAt)
		if err != nil {
			a.metrics.RecordError("score_attach")
			a.log.Error("attach score", logger.String("forecast_id", f.ID), logger.Error(err))
			continue
		}
		if !attached {
			// Already scored by an earlier attempt. Evidence of a safe retry.
			a.metrics.RecordForecastScored("conflict")
			continue
		}

		a.metrics.RecordForecastScored("scored")
		scored++
		affected[f.ForecasterID] = struct{}{}

		if a.archive != nil {
			if archived, gerr := a.forecasts.GetForecast(ctx, f.ID); gerr == nil {
				toArchive = append(toArchive, archived)
			}
		}
	}

	// One archive write per event. A failed archive never blocks scoring.
	if len(toArchive) > 0 {
		if aerr := a.archive.AppendBatch(ctx, toArchive); aerr != nil {
			a.metrics.RecordError("archive")
			a.log.Warn("score archive batch failed",
				logger.String("event_id", eventID),
				logger.Int("count", len(toArchive)),
				logger.Error(aerr))
		}
	}

	for forecasterID := range affected {
		if _, err := a.reputation.Refresh(ctx, forecasterID); err != nil {
			a.metrics.RecordError("reputation_refresh")
			a.log.Error("reputation refresh",
				logger.String("forecaster_id", forecasterID), logger.Error(err))
		}
	}
	return scored
}

// Recover finishes scoring for resolved events left with unscored forecasts
// by a crash between outcome write and scoring. Runs at startup before the
// poll loop takes over.
func (a *ResolutionApplier) Recover(ctx context.Context) error {
	events, err := a.events.ListResolvedWithUnscored(ctx)
	if err != nil {
		return fmt.Errorf("list resolved with unscored: %w", err)
	}
	for _, e := range events {
		if e.Outcome == nil || e.ResolvedAt == nil {
			a.log.Error("resolved event missing outcome", logger.String("event_id", e.ID))
			continue
		}
		n := a.scoreEvent(ctx, e.ID, *e.Outcome, *e.ResolvedAt)
		a.log.Info("recovered unscored event",
			logger.String("event_id", e.ID),
			logger.Int("forecasts_scored", n))
	}
	return nil
}
