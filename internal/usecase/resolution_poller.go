package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"ForecastPull/internal/domain/models"
	drepo "ForecastPull/internal/domain/repository"
	"ForecastPull/internal/repository"
	"ForecastPull/pkg/logger"
)

// PollerConfig bounds one poll cycle.
type PollerConfig struct {
	Interval     time.Duration // time between cycles
	Concurrency  int           // max in-flight authority queries
	QueryTimeout time.Duration // per-query deadline
	CycleBudget  time.Duration // soft cap; stops launching, finishes in-flight
	LeaseTTL     time.Duration // cross-instance mutual exclusion
}

func (c *PollerConfig) withDefaults() PollerConfig {
	out := *c
	if out.Interval <= 0 {
		out.Interval = 30 * time.Second
	}
	if out.Concurrency <= 0 {
		out.Concurrency = 8
	}
	if out.QueryTimeout <= 0 {
		out.QueryTimeout = 5 * time.Second
	}
	if out.CycleBudget <= 0 {
		out.CycleBudget = out.Interval
	}
	if out.LeaseTTL <= 0 {
		out.LeaseTTL = 2 * out.Interval
	}
	return out
}

// ResolutionPoller periodically asks the external authority about every
// open event and emits a notification for each resolved one. Transient
// failures are deferred to the next cycle; a stuck event never starves the
// batch.
type ResolutionPoller struct {
	events    drepo.EventStore
	authority drepo.ResolutionAuthority
	publisher drepo.NotificationPublisher
	lease     *repository.SnapshotCache
	metrics   drepo.Metrics
	log       *logger.Logger
	cfg       PollerConfig
}

// NewResolutionPoller creates a new ResolutionPoller instance. lease may be
// nil when the engine runs as a single instance.
func NewResolutionPoller(
	events drepo.EventStore,
	authority drepo.ResolutionAuthority,
	publisher drepo.NotificationPublisher,
	lease *repository.SnapshotCache,
	metrics drepo.Metrics,
	log *logger.Logger,
	cfg PollerConfig,
) *ResolutionPoller {
	return &ResolutionPoller{
		events:    events,
		authority: authority,
		publisher: publisher,
		lease:     lease,
		metrics:   metrics,
		log:       log,
		cfg:       cfg.withDefaults(),
	}
}

// Run drives poll cycles until ctx is cancelled.
func (p *ResolutionPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.log.Info("resolution poller started",
		logger.Duration("interval", p.cfg.Interval),
		logger.Int("concurrency", p.cfg.Concurrency))

	for {
		select {
		case <-ctx.Done():
			p.log.Info("resolution poller stopped")
			return
		case <-ticker.C:
			if err := p.RunCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.metrics.RecordError("poll_cycle")
				p.log.Error("poll cycle failed", logger.Error(err))
			}
		}
	}
}

// RunCycle queries every open event once, under the cross-instance lease.
// When the cycle budget runs out, queries already in flight finish and the
// rest wait for the next cycle.
func (p *ResolutionPoller) RunCycle(ctx context.Context) error {
	if p.lease != nil {
		acquired, err := p.lease.TryPollLease(ctx, p.cfg.LeaseTTL)
		if err != nil {
			return err
		}
		if !acquired {
			p.log.Debug("poll lease held elsewhere, skipping cycle")
			return nil
		}
		defer func() {
			if err := p.lease.ReleasePollLease(ctx); err != nil {
				p.log.Warn("release poll lease", logger.Error(err))
			}
		}()
	}

	open, err := p.events.ListOpenEvents(ctx)
	if err != nil {
		return err
	}
	if len(open) == 0 {
		return nil
	}

	start := time.Now()
	budget := time.After(p.cfg.CycleBudget)
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup

	deferred := 0
launch:
	for i, event := range open {
		select {
		case <-ctx.Done():
			deferred = len(open) - i
			break launch
		case <-budget:
			// Budget spent: in-flight queries finish, the rest wait for
			// the next cycle.
			deferred = len(open) - i
			break launch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(eventID string) {
			defer wg.Done()
			defer func() { <-sem }()
			p.pollOne(ctx, eventID)
		}(event.ID)
	}
	wg.Wait()

	p.metrics.RecordLatency("poll_cycle", time.Since(start).Seconds())
	if deferred > 0 {
		p.log.Warn("poll cycle budget exceeded",
			logger.Int("deferred_events", deferred),
			logger.Int("open_events", len(open)))
	}
	return ctx.Err()
}

// pollOne classifies one authority answer. Failures are isolated to the
// single event.
func (p *ResolutionPoller) pollOne(ctx context.Context, eventID string) {
	qctx, cancel := context.WithTimeout(ctx, p.cfg.QueryTimeout)
	defer cancel()

	status, err := p.authority.QueryResolution(qctx, eventID)
	switch {
	case err == nil && !status.Resolved:
		p.metrics.RecordPollResult("open")
		return

	case err == nil:
		if status.Outcome == nil {
			p.metrics.RecordPollResult("malformed")
			p.log.Error("resolved status without outcome", logger.String("event_id", eventID))
			return
		}
		p.metrics.RecordPollResult("resolved")
		resolvedAt := time.Now().UTC()
		if status.ResolvedAt != nil {
			resolvedAt = *status.ResolvedAt
		}
		n := &models.ResolutionNotification{
			EventID:    eventID,
			Outcome:    *status.Outcome,
			ResolvedAt: resolvedAt,
			Source:     "authority",
		}
		if perr := p.publisher.Publish(ctx, n); perr != nil {
			// Publish failure leaves the event open; next cycle retries.
			p.metrics.RecordError("poll_publish")
			p.log.Error("publish resolution notification",
				logger.String("event_id", eventID), logger.Error(perr))
		}
		return

	case models.IsTransient(err):
		// Retried with backoff on the next cycle; other events unaffected.
		p.metrics.RecordPollResult("transient")
		p.log.Warn("authority query deferred",
			logger.String("event_id", eventID), logger.Error(err))
		return

	default:
		var malformed *models.MalformedResolutionError
		if errors.As(err, &malformed) {
			// Never guessed at. Event stays open for manual inspection.
			p.metrics.RecordPollResult("malformed")
			p.log.Error("malformed resolution data",
				logger.String("event_id", eventID),
				logger.String("raw", malformed.Raw))
			return
		}
		p.metrics.RecordPollResult("transient")
		p.log.Warn("authority query failed",
			logger.String("event_id", eventID), logger.Error(err))
	}
}
