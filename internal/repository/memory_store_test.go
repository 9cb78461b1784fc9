package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForecastPull/internal/domain/models"
)

func newTestEvent(id string) *models.Event {
	return &models.Event{ID: id, Title: "t", Category: "politics", State: models.EventOpen}
}

func TestCreateEventIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	e1, err := s.CreateEvent(ctx, newTestEvent("ev-1"))
	require.NoError(t, err)

	dup := newTestEvent("ev-1")
	dup.Title = "changed"
	e2, err := s.CreateEvent(ctx, dup)
	require.NoError(t, err)
	assert.Equal(t, e1.Title, e2.Title, "re-create must not overwrite")
}

func TestBeginResolutionFirstWriterWins(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.CreateEvent(ctx, newTestEvent("ev-1"))
	require.NoError(t, err)

	ok, err := s.BeginResolution(ctx, "ev-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.BeginResolution(ctx, "ev-1")
	require.NoError(t, err)
	assert.False(t, ok, "second begin must lose")

	require.NoError(t, s.CompleteResolution(ctx, "ev-1", true, time.Now()))

	ok, err = s.BeginResolution(ctx, "ev-1")
	require.NoError(t, err)
	assert.False(t, ok, "resolved events never reopen")

	e, err := s.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	require.True(t, e.Resolved())
	require.NotNil(t, e.Outcome)
	assert.True(t, *e.Outcome)
}

func TestAbortResolutionReopens(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.CreateEvent(ctx, newTestEvent("ev-1"))
	require.NoError(t, err)

	ok, err := s.BeginResolution(ctx, "ev-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.AbortResolution(ctx, "ev-1"))

	ok, err = s.BeginResolution(ctx, "ev-1")
	require.NoError(t, err)
	assert.True(t, ok, "aborted event is open again")
}

func TestCompleteOutsideResolvingFails(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.CreateEvent(ctx, newTestEvent("ev-1"))
	require.NoError(t, err)

	err = s.CompleteResolution(ctx, "ev-1", true, time.Now())
	var inv *models.InvariantError
	assert.ErrorAs(t, err, &inv)
}

func TestUpsertOpenForecastResubmission(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.CreateEvent(ctx, newTestEvent("ev-1"))
	require.NoError(t, err)

	f1, err := s.UpsertOpenForecast(ctx, &models.Forecast{
		ID: "fc-1", ForecasterID: "alice", EventID: "ev-1", Probability: 0.6,
	})
	require.NoError(t, err)

	f2, err := s.UpsertOpenForecast(ctx, &models.Forecast{
		ID: "fc-2", ForecasterID: "alice", EventID: "ev-1", Probability: 0.8,
	})
	require.NoError(t, err)
	assert.Equal(t, f1.ID, f2.ID, "resubmission keeps the original forecast")
	assert.Equal(t, 0.8, f2.Probability)

	all, err := s.ListEventForecasts(ctx, "ev-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAttachScoreExactlyOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.CreateEvent(ctx, newTestEvent("ev-1"))
	require.NoError(t, err)
	_, err = s.UpsertOpenForecast(ctx, &models.Forecast{
		ID: "fc-1", ForecasterID: "alice", EventID: "ev-1", Probability: 0.9,
	})
	require.NoError(t, err)

	ok, err := s.AttachScore(ctx, "fc-1", 0.01, true, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AttachScore(ctx, "fc-1", 0.99, false, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "second attach is a no-op")

	f, err := s.GetForecast(ctx, "fc-1")
	require.NoError(t, err)
	require.NotNil(t, f.Score)
	assert.Equal(t, 0.01, *f.Score, "first score sticks")
}

func TestListResolvedWithUnscored(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.CreateEvent(ctx, newTestEvent("ev-1"))
	require.NoError(t, err)
	_, err = s.UpsertOpenForecast(ctx, &models.Forecast{
		ID: "fc-1", ForecasterID: "alice", EventID: "ev-1", Probability: 0.9,
	})
	require.NoError(t, err)

	ok, err := s.BeginResolution(ctx, "ev-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.CompleteResolution(ctx, "ev-1", true, time.Now()))

	pending, err := s.ListResolvedWithUnscored(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ev-1", pending[0].ID)

	_, err = s.AttachScore(ctx, "fc-1", 0.01, true, time.Now())
	require.NoError(t, err)

	pending, err = s.ListResolvedWithUnscored(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestListResolvedByForecasterWindow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.CreateEvent(ctx, newTestEvent("ev-1"))
	require.NoError(t, err)

	old := time.Now().Add(-40 * 24 * time.Hour)
	_, err = s.UpsertOpenForecast(ctx, &models.Forecast{
		ID: "fc-old", ForecasterID: "alice", EventID: "ev-1", Probability: 0.4, SubmittedAt: old,
	})
	require.NoError(t, err)
	_, err = s.UpsertOpenForecast(ctx, &models.Forecast{
		ID: "fc-new", ForecasterID: "bob", EventID: "ev-1", Probability: 0.7,
	})
	require.NoError(t, err)

	for _, id := range []string{"fc-old", "fc-new"} {
		_, err = s.AttachScore(ctx, id, 0.1, true, time.Now())
		require.NoError(t, err)
	}

	all, err := s.ListResolvedByForecaster(ctx, "alice", time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	recent, err := s.ListResolvedByForecaster(ctx, "alice", time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, recent, "old submission falls outside the window")
}

func TestForecasterLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	f, err := s.CreateForecaster(ctx, &models.Forecaster{ID: "alice", DisplayName: "Alice"})
	require.NoError(t, err)
	assert.True(t, f.Active)

	require.NoError(t, s.DeactivateForecaster(ctx, "alice"))

	got, err := s.GetForecaster(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, got.Active)

	active, err := s.ListForecasters(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = s.GetForecaster(ctx, "nobody")
	assert.ErrorIs(t, err, models.ErrForecasterNotFound)
}
