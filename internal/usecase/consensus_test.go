package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForecastPull/internal/domain/models"
)

func TestConsensusSingleForecaster(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	require.NoError(t, f.register(ctx, "alice"))
	_, err := f.submit(ctx, "alice", "ev-1", 0.73)
	require.NoError(t, err)

	c, err := f.consensus.Compute(ctx, "ev-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.73, c.Probability, 1e-12, "single forecast passes through")
	assert.Equal(t, 1, c.ForecastCount)
	assert.Equal(t, 0.0, c.Spread)
}

func TestConsensusWeightsByReputation(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	require.NoError(t, f.register(ctx, "sharp"))
	require.NoError(t, f.register(ctx, "rookie"))

	// Build sharp a perfect track record: avg score 0 -> weight 1/0.1 = 10.
	_, err := f.submit(ctx, "sharp", "ev-past", 1.0)
	require.NoError(t, err)
	require.NoError(t, f.resolveNow(ctx, "ev-past", true))

	// rookie has no history -> neutral weight 1.
	_, err = f.submit(ctx, "sharp", "ev-live", 0.8)
	require.NoError(t, err)
	_, err = f.submit(ctx, "rookie", "ev-live", 0.3)
	require.NoError(t, err)

	c, err := f.consensus.Compute(ctx, "ev-live")
	require.NoError(t, err)
	// (10*0.8 + 1*0.3) / 11
	assert.InDelta(t, 8.3/11.0, c.Probability, 1e-9)
	assert.Equal(t, 2, c.ForecastCount)
	assert.Greater(t, c.Spread, 0.0)
}

func TestConsensusNoForecasts(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	require.NoError(t, f.register(ctx, "alice"))
	_, err := f.submit(ctx, "alice", "ev-1", 0.5)
	require.NoError(t, err)

	_, err = f.consensus.Compute(ctx, "ev-empty")
	assert.ErrorIs(t, err, models.ErrEventNotFound)

	// An event can exist with zero forecasts only via direct creation.
	_, err = f.store.CreateEvent(ctx, &models.Event{ID: "ev-bare", State: models.EventOpen})
	require.NoError(t, err)
	_, err = f.consensus.Compute(ctx, "ev-bare")
	assert.ErrorIs(t, err, models.ErrNoConsensus)
}

func TestConsensusRejectsResolvedEvent(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	require.NoError(t, f.register(ctx, "alice"))
	_, err := f.submit(ctx, "alice", "ev-1", 0.5)
	require.NoError(t, err)
	require.NoError(t, f.resolveNow(ctx, "ev-1", true))

	_, err = f.consensus.Compute(ctx, "ev-1")
	assert.ErrorIs(t, err, models.ErrEventNotOpen, "resolved events have an outcome, not a consensus")
}
