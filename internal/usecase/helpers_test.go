package usecase

import (
	"context"
	"sync"
	"time"

	"ForecastPull/internal/domain/models"
	drepo "ForecastPull/internal/domain/repository"
	"ForecastPull/internal/repository"
	"ForecastPull/pkg/logger"
)

// noopMetrics satisfies the metrics interface for tests.
type noopMetrics struct{}

func (noopMetrics) RecordEventResolved(string)      {}
func (noopMetrics) RecordForecastScored(string)     {}
func (noopMetrics) RecordPollResult(string)         {}
func (noopMetrics) RecordConsensus(string, float64) {}
func (noopMetrics) RecordError(string)              {}
func (noopMetrics) RecordLatency(string, float64)   {}

// countingMetrics records per-label counts for assertions.
type countingMetrics struct {
	mu     sync.Mutex
	scored map[string]int
	polls  map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{scored: map[string]int{}, polls: map[string]int{}}
}

func (m *countingMetrics) RecordEventResolved(string) {}
func (m *countingMetrics) RecordForecastScored(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scored[result]++
}
func (m *countingMetrics) RecordPollResult(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls[status]++
}
func (m *countingMetrics) RecordConsensus(string, float64) {}
func (m *countingMetrics) RecordError(string)              {}
func (m *countingMetrics) RecordLatency(string, float64)   {}

func (m *countingMetrics) scoredCount(result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scored[result]
}

func (m *countingMetrics) pollCount(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls[status]
}

// memoryArchive collects appended forecasts for assertions.
type memoryArchive struct {
	mu       sync.Mutex
	appended []*models.Forecast
	batches  int
}

func (a *memoryArchive) Append(ctx context.Context, f *models.Forecast) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.appended = append(a.appended, f)
	return nil
}

func (a *memoryArchive) AppendBatch(ctx context.Context, fs []*models.Forecast) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batches++
	a.appended = append(a.appended, fs...)
	return nil
}
func (a *memoryArchive) QueryScores(ctx context.Context, forecasterID string, from, to time.Time, limit int) ([]*models.Forecast, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*models.Forecast
	for _, f := range a.appended {
		if f.ForecasterID != forecasterID {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, f)
	}
	return out, nil
}
func (a *memoryArchive) Health(ctx context.Context) error { return nil }
func (a *memoryArchive) Close() error                     { return nil }

// stubAuthority serves canned resolution answers per event.
type stubAuthority struct {
	mu      sync.Mutex
	answers map[string]*models.ResolutionStatus
	errs    map[string]error
}

func newStubAuthority() *stubAuthority {
	return &stubAuthority{
		answers: map[string]*models.ResolutionStatus{},
		errs:    map[string]error{},
	}
}

func (a *stubAuthority) QueryResolution(ctx context.Context, eventID string) (*models.ResolutionStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err, ok := a.errs[eventID]; ok {
		return nil, err
	}
	if st, ok := a.answers[eventID]; ok {
		return st, nil
	}
	return &models.ResolutionStatus{EventID: eventID, Resolved: false}, nil
}

func (a *stubAuthority) resolve(eventID string, outcome bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := time.Now().UTC()
	a.answers[eventID] = &models.ResolutionStatus{
		EventID: eventID, Resolved: true, Outcome: &outcome, ResolvedAt: &now,
	}
}

func (a *stubAuthority) fail(eventID string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errs[eventID] = err
}

// capturingPublisher records published notifications.
type capturingPublisher struct {
	mu        sync.Mutex
	published []*models.ResolutionNotification
}

func (p *capturingPublisher) Publish(ctx context.Context, n *models.ResolutionNotification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, n)
	return nil
}
func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) all() []*models.ResolutionNotification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*models.ResolutionNotification, len(p.published))
	copy(out, p.published)
	return out
}

// engineFixture wires a full in-memory engine for end-to-end usecase tests.
type engineFixture struct {
	store      *repository.MemoryStore
	metrics    *countingMetrics
	archive    *memoryArchive
	submission *SubmissionService
	reputation *ReputationService
	consensus  *ConsensusService
	calib      *CalibrationService
	boards     *LeaderboardService
	applier    *ResolutionApplier
}

func newEngineFixture() *engineFixture {
	store := repository.NewMemoryStore()
	metrics := newCountingMetrics()
	archive := &memoryArchive{}
	log := logger.Nop()

	reputation := NewReputationService(store, store, nil, 0.1)
	f := &engineFixture{
		store:      store,
		metrics:    metrics,
		archive:    archive,
		submission: NewSubmissionService(store, store, store, metrics),
		reputation: reputation,
		consensus:  NewConsensusService(store, store, reputation, metrics),
		calib:      NewCalibrationService(store, store, 10),
		boards:     NewLeaderboardService(store, store, nil, 10, log),
		applier:    NewResolutionApplier(store, store, reputation, archive, metrics, log),
	}
	return f
}

func (f *engineFixture) register(ctx context.Context, id string) error {
	_, err := f.submission.RegisterForecaster(ctx, &models.RegisterForecasterRequest{
		ForecasterID: id, DisplayName: id,
	})
	return err
}

func (f *engineFixture) submit(ctx context.Context, forecaster, event string, p float64) (*models.Forecast, error) {
	return f.submission.SubmitForecast(ctx, &models.SubmitForecastRequest{
		ForecasterID: forecaster,
		EventID:      event,
		Probability:  p,
		Confidence:   models.ConfidenceMedium,
	})
}

func (f *engineFixture) resolveNow(ctx context.Context, event string, outcome bool) error {
	return f.applier.Apply(ctx, &models.ResolutionNotification{
		EventID:    event,
		Outcome:    outcome,
		ResolvedAt: time.Now().UTC(),
		Source:     "test",
	})
}

var _ drepo.Metrics = (*noopMetrics)(nil)
var _ drepo.Metrics = (*countingMetrics)(nil)
var _ drepo.ScoreArchive = (*memoryArchive)(nil)
var _ drepo.ResolutionAuthority = (*stubAuthority)(nil)
var _ drepo.NotificationPublisher = (*capturingPublisher)(nil)
