package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"ForecastPull/internal/domain/models"
	"ForecastPull/internal/domain/repository"
)

// MemoryStore is the authoritative in-process state for events, forecasts
// and forecasters. A single mutex guards all three maps so the resolution
// state machine transitions and score attachment stay atomic.
type MemoryStore struct {
	mu sync.Mutex

	events      map[string]*models.Event
	forecasts   map[string]*models.Forecast
	byEvent     map[string][]string // event ID -> forecast IDs, submission order
	forecasters map[string]*models.Forecaster
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:      make(map[string]*models.Event),
		forecasts:   make(map[string]*models.Forecast),
		byEvent:     make(map[string][]string),
		forecasters: make(map[string]*models.Forecaster),
	}
}

var (
	_ repository.EventStore      = (*MemoryStore)(nil)
	_ repository.ForecastStore   = (*MemoryStore)(nil)
	_ repository.ForecasterStore = (*MemoryStore)(nil)
)

// --- EventStore ---

func (s *MemoryStore) CreateEvent(ctx context.Context, e *models.Event) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.events[e.ID]; ok {
		return cloneEvent(existing), nil
	}
	cp := cloneEvent(e)
	if cp.State == "" {
		cp.State = models.EventOpen
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.events[cp.ID] = cp
	return cloneEvent(cp), nil
}

func (s *MemoryStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	return cloneEvent(e), nil
}

func (s *MemoryStore) ListOpenEvents(ctx context.Context) ([]*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Event
	for _, e := range s.events {
		if e.State == models.EventOpen {
			out = append(out, cloneEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) BeginResolution(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return false, models.ErrEventNotFound
	}
	if e.State != models.EventOpen {
		return false, nil
	}
	e.State = models.EventResolving
	return true, nil
}

func (s *MemoryStore) CompleteResolution(ctx context.Context, id string, outcome bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return models.ErrEventNotFound
	}
	if e.State != models.EventResolving {
		return &models.InvariantError{Subject: "event " + id, Detail: "complete called outside resolving state"}
	}
	o := outcome
	t := at.UTC()
	e.State = models.EventResolved
	e.Outcome = &o
	e.ResolvedAt = &t
	return nil
}

func (s *MemoryStore) AbortResolution(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return models.ErrEventNotFound
	}
	if e.State != models.EventResolving {
		return &models.InvariantError{Subject: "event " + id, Detail: "abort called outside resolving state"}
	}
	e.State = models.EventOpen
	return nil
}

func (s *MemoryStore) ListResolvedWithUnscored(ctx context.Context) ([]*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Event
	for id, e := range s.events {
		if e.State != models.EventResolved {
			continue
		}
		for _, fid := range s.byEvent[id] {
			if !s.forecasts[fid].Scored() {
				out = append(out, cloneEvent(e))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CountEvents(ctx context.Context) (open int, resolved int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		switch e.State {
		case models.EventResolved:
			resolved++
		default:
			open++
		}
	}
	return open, resolved, nil
}

// --- ForecastStore ---

func (s *MemoryStore) UpsertOpenForecast(ctx context.Context, f *models.Forecast) (*models.Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	// Resubmission replaces the unscored forecast in place.
	for _, fid := range s.byEvent[f.EventID] {
		existing := s.forecasts[fid]
		if existing.ForecasterID != f.ForecasterID || existing.Scored() {
			continue
		}
		existing.Probability = f.Probability
		existing.Confidence = f.Confidence
		existing.Rationale = f.Rationale
		existing.UpdatedAt = now
		return cloneForecast(existing), nil
	}
	cp := cloneForecast(f)
	if cp.SubmittedAt.IsZero() {
		cp.SubmittedAt = now
	}
	cp.UpdatedAt = now
	s.forecasts[cp.ID] = cp
	s.byEvent[cp.EventID] = append(s.byEvent[cp.EventID], cp.ID)
	return cloneForecast(cp), nil
}

func (s *MemoryStore) GetForecast(ctx context.Context, id string) (*models.Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forecasts[id]
	if !ok {
		return nil, models.ErrForecastNotFound
	}
	return cloneForecast(f), nil
}

func (s *MemoryStore) ListEventForecasts(ctx context.Context, eventID string) ([]*models.Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.byEvent[eventID]
	out := make([]*models.Forecast, 0, len(ids))
	for _, fid := range ids {
		out = append(out, cloneForecast(s.forecasts[fid]))
	}
	return out, nil
}

func (s *MemoryStore) ListUnscored(ctx context.Context, eventID string) ([]*models.Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Forecast
	for _, fid := range s.byEvent[eventID] {
		if f := s.forecasts[fid]; !f.Scored() {
			out = append(out, cloneForecast(f))
		}
	}
	return out, nil
}

func (s *MemoryStore) ListResolvedByForecaster(ctx context.Context, forecasterID string, since time.Time) ([]*models.Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Forecast
	for _, f := range s.forecasts {
		if f.ForecasterID != forecasterID || !f.Scored() {
			continue
		}
		if !since.IsZero() && f.SubmittedAt.Before(since) {
			continue
		}
		out = append(out, cloneForecast(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (s *MemoryStore) AttachScore(ctx context.Context, forecastID string, score float64, outcome bool, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forecasts[forecastID]
	if !ok {
		return false, models.ErrForecastNotFound
	}
	if f.Scored() {
		return false, nil
	}
	sc := score
	o := outcome
	t := at.UTC()
	f.Score = &sc
	f.OutcomeAtScoring = &o
	f.ScoredAt = &t
	return true, nil
}

func (s *MemoryStore) CountForecasts(ctx context.Context) (total int, resolved int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total = len(s.forecasts)
	for _, f := range s.forecasts {
		if f.Scored() {
			resolved++
		}
	}
	return total, resolved, nil
}

// --- ForecasterStore ---

func (s *MemoryStore) CreateForecaster(ctx context.Context, f *models.Forecaster) (*models.Forecaster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.forecasters[f.ID]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *f
	cp.Active = true
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.forecasters[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *MemoryStore) GetForecaster(ctx context.Context, id string) (*models.Forecaster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forecasters[id]
	if !ok {
		return nil, models.ErrForecasterNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *MemoryStore) ListForecasters(ctx context.Context, activeOnly bool) ([]*models.Forecaster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Forecaster
	for _, f := range s.forecasters {
		if activeOnly && !f.Active {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) DeactivateForecaster(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forecasters[id]
	if !ok {
		return models.ErrForecasterNotFound
	}
	f.Active = false
	return nil
}

func cloneEvent(e *models.Event) *models.Event {
	cp := *e
	if e.Outcome != nil {
		o := *e.Outcome
		cp.Outcome = &o
	}
	if e.ResolvedAt != nil {
		t := *e.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}

func cloneForecast(f *models.Forecast) *models.Forecast {
	cp := *f
	if f.PriceAtSubmission != nil {
		v := *f.PriceAtSubmission
		cp.PriceAtSubmission = &v
	}
	if f.Score != nil {
		v := *f.Score
		cp.Score = &v
	}
	if f.OutcomeAtScoring != nil {
		v := *f.OutcomeAtScoring
		cp.OutcomeAtScoring = &v
	}
	if f.ScoredAt != nil {
		t := *f.ScoredAt
		cp.ScoredAt = &t
	}
	return &cp
}
