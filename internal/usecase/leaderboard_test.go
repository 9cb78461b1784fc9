package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForecastPull/internal/domain/models"
	drepo "ForecastPull/internal/domain/repository"
)

// seeds three forecasters: sharp (2 resolved, great), noisy (3 resolved,
// poor), fresh (no resolved history).
func seedBoardFixture(t *testing.T, f *engineFixture) {
	t.Helper()
	ctx := context.Background()
	for _, id := range []string{"sharp", "noisy", "fresh"} {
		require.NoError(t, f.register(ctx, id))
	}

	events := []struct {
		id      string
		outcome bool
		probs   map[string]float64
	}{
		{"ev-1", true, map[string]float64{"sharp": 0.9, "noisy": 0.2}},
		{"ev-2", false, map[string]float64{"sharp": 0.1, "noisy": 0.8}},
		{"ev-3", true, map[string]float64{"noisy": 0.4}},
	}
	for _, ev := range events {
		for who, p := range ev.probs {
			_, err := f.submit(ctx, who, ev.id, p)
			require.NoError(t, err)
		}
		require.NoError(t, f.resolveNow(ctx, ev.id, ev.outcome))
	}

	// fresh has only an open forecast.
	_, err := f.submit(ctx, "fresh", "ev-open", 0.5)
	require.NoError(t, err)
}

func TestLeaderboardReputationOrdering(t *testing.T) {
	f := newEngineFixture()
	seedBoardFixture(t, f)

	board, err := f.boards.Build(context.Background(), models.MetricReputation, drepo.WindowAll)
	require.NoError(t, err)
	require.Len(t, board.Entries, 2, "forecasters without resolved history are excluded")

	assert.Equal(t, "sharp", board.Entries[0].ForecasterID)
	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, "noisy", board.Entries[1].ForecasterID)
	assert.Equal(t, 2, board.Entries[1].Rank)

	require.NotNil(t, board.Entries[0].AvgScore)
	assert.InDelta(t, 0.01, *board.Entries[0].AvgScore, 1e-12)
	require.NotNil(t, board.Entries[0].VsRandom)
	assert.InDelta(t, 0.24, *board.Entries[0].VsRandom, 1e-12)
}

func TestLeaderboardVolumeOrdering(t *testing.T) {
	f := newEngineFixture()
	seedBoardFixture(t, f)

	board, err := f.boards.Build(context.Background(), models.MetricVolume, drepo.WindowAll)
	require.NoError(t, err)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "noisy", board.Entries[0].ForecasterID, "3 resolved beats 2")
	assert.Equal(t, 3, board.Entries[0].ResolvedCount)
}

func TestLeaderboardTieBreaksOnID(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	for _, id := range []string{"zeta", "alpha"} {
		require.NoError(t, f.register(ctx, id))
		_, err := f.submit(ctx, id, "ev-1", 0.9)
		require.NoError(t, err)
	}
	require.NoError(t, f.resolveNow(ctx, "ev-1", true))

	board, err := f.boards.Build(ctx, models.MetricReputation, drepo.WindowAll)
	require.NoError(t, err)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "alpha", board.Entries[0].ForecasterID, "equal scores order by ID")
}

func TestLeaderboardGetHonorsLimit(t *testing.T) {
	f := newEngineFixture()
	seedBoardFixture(t, f)
	ctx := context.Background()

	board, err := f.boards.Get(ctx, models.MetricReputation, drepo.WindowAll, 1)
	require.NoError(t, err)
	assert.Len(t, board.Entries, 1)
	assert.Equal(t, "sharp", board.Entries[0].ForecasterID)
}

func TestLeaderboardRefreshAll(t *testing.T) {
	f := newEngineFixture()
	seedBoardFixture(t, f)
	ctx := context.Background()

	f.boards.RefreshAll(ctx)

	for _, metric := range []string{models.MetricReputation, models.MetricVolume, models.MetricCalibration} {
		for _, window := range drepo.Windows() {
			board, err := f.boards.Get(ctx, metric, window, 0)
			require.NoError(t, err)
			assert.Equal(t, metric, board.Metric)
			assert.Equal(t, string(window), board.Window)
		}
	}
}

func TestCalibrationReportThroughService(t *testing.T) {
	f := newEngineFixture()
	seedBoardFixture(t, f)
	ctx := context.Background()

	rep, err := f.calib.Report(ctx, "sharp")
	require.NoError(t, err)
	assert.Equal(t, 2, rep.ResolvedCount)
	require.NotNil(t, rep.AggregateError)
	// sharp said 0.9 (hit) and 0.1 (hit on the complement): both buckets
	// fully resolved their way, each off by 0.1.
	assert.InDelta(t, 0.1, *rep.AggregateError, 1e-9)

	_, err = f.calib.Report(ctx, "ghost")
	assert.ErrorIs(t, err, models.ErrForecasterNotFound)
}

func TestMarketComparison(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	require.NoError(t, f.register(ctx, "alice"))

	price := 0.5
	_, err := f.submission.SubmitForecast(ctx, &models.SubmitForecastRequest{
		ForecasterID: "alice", EventID: "ev-1", Probability: 0.9,
		Confidence: models.ConfidenceMedium, EventPrice: &price,
	})
	require.NoError(t, err)
	require.NoError(t, f.resolveNow(ctx, "ev-1", true))

	cmp, err := f.reputation.MarketComparison(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, cmp.TotalComparable)
	assert.Equal(t, 1, cmp.BeatMarketCount, "0.01 beats the market's 0.25")
	require.NotNil(t, cmp.AvgMarketScore)
	assert.InDelta(t, 0.25, *cmp.AvgMarketScore, 1e-12)
}
