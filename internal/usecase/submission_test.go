package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForecastPull/internal/domain/models"
)

func TestSubmitCreatesEventOnFirstObservation(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	require.NoError(t, f.register(ctx, "alice"))

	price := 0.62
	fc, err := f.submission.SubmitForecast(ctx, &models.SubmitForecastRequest{
		ForecasterID: "alice",
		EventID:      "ev-1",
		Probability:  0.7,
		Confidence:   models.ConfidenceHigh,
		EventTitle:   "Rate cut by September",
		EventPrice:   &price,
	})
	require.NoError(t, err)
	require.NotNil(t, fc.PriceAtSubmission)
	assert.Equal(t, 0.62, *fc.PriceAtSubmission)

	e, err := f.store.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, models.EventOpen, e.State)
	assert.Equal(t, "Rate cut by September", e.Title)
}

func TestSubmitRejectsResolvedEvent(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	require.NoError(t, f.register(ctx, "alice"))
	require.NoError(t, f.register(ctx, "bob"))

	_, err := f.submit(ctx, "alice", "ev-1", 0.6)
	require.NoError(t, err)
	require.NoError(t, f.resolveNow(ctx, "ev-1", true))

	// Late submission must be rejected at the boundary, never scored.
	_, err = f.submit(ctx, "bob", "ev-1", 0.99)
	assert.ErrorIs(t, err, models.ErrEventNotOpen)

	fs, err := f.store.ListEventForecasts(ctx, "ev-1")
	require.NoError(t, err)
	assert.Len(t, fs, 1)
}

func TestSubmitRejectsUnknownForecaster(t *testing.T) {
	f := newEngineFixture()
	_, err := f.submit(context.Background(), "ghost", "ev-1", 0.5)
	assert.ErrorIs(t, err, models.ErrForecasterNotFound)
}

func TestSubmitRejectsInactiveForecaster(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	require.NoError(t, f.register(ctx, "alice"))
	require.NoError(t, f.submission.DeactivateForecaster(ctx, "alice"))

	_, err := f.submit(ctx, "alice", "ev-1", 0.5)
	assert.ErrorIs(t, err, models.ErrForecasterInactive)
}

func TestSubmitRejectsOutOfRangeProbability(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	require.NoError(t, f.register(ctx, "alice"))

	for _, p := range []float64{-0.01, 1.01} {
		_, err := f.submit(ctx, "alice", "ev-1", p)
		var inv *models.InvariantError
		assert.ErrorAs(t, err, &inv, "p=%v", p)
	}
}

func TestResubmissionUpdatesInPlace(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	require.NoError(t, f.register(ctx, "alice"))

	first, err := f.submit(ctx, "alice", "ev-1", 0.4)
	require.NoError(t, err)
	second, err := f.submit(ctx, "alice", "ev-1", 0.8)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 0.8, second.Probability)
}

func TestStats(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	require.NoError(t, f.register(ctx, "alice"))
	require.NoError(t, f.register(ctx, "bob"))

	_, err := f.submit(ctx, "alice", "ev-1", 0.7)
	require.NoError(t, err)
	_, err = f.submit(ctx, "bob", "ev-2", 0.4)
	require.NoError(t, err)
	require.NoError(t, f.resolveNow(ctx, "ev-1", true))

	stats, err := f.submission.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Forecasters)
	assert.Equal(t, 2, stats.Forecasts)
	assert.Equal(t, 1, stats.ResolvedForecasts)
	assert.Equal(t, 1, stats.OpenEvents)
	assert.Equal(t, 1, stats.ResolvedEvents)
}
