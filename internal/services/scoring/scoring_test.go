package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForecastPull/internal/domain/models"
)

func TestBrierScoreBounds(t *testing.T) {
	s, err := BrierScore(1.0, true)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s)

	s, err = BrierScore(0.0, true)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s)

	s, err = BrierScore(1.0, false)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s)

	s, err = BrierScore(0.5, true)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, s, 1e-12)
}

func TestBrierScoreExamples(t *testing.T) {
	s, err := BrierScore(0.9, true)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, s, 1e-12)

	s, err = BrierScore(0.9, false)
	require.NoError(t, err)
	assert.InDelta(t, 0.81, s, 1e-12)
}

func TestBrierScoreRejectsOutOfRange(t *testing.T) {
	for _, p := range []float64{-0.1, 1.1, 2} {
		_, err := BrierScore(p, true)
		var inv *models.InvariantError
		require.ErrorAs(t, err, &inv, "p=%v", p)
	}
}

func TestWeightMonotonicity(t *testing.T) {
	// Better (lower) average scores must never yield lower weights.
	prev := Weight(0, DefaultEpsilon)
	for s := 0.05; s <= 1.0; s += 0.05 {
		w := Weight(s, DefaultEpsilon)
		assert.Less(t, w, prev, "weight must strictly decrease, score=%v", s)
		prev = w
	}
	assert.InDelta(t, 10.0, Weight(0, DefaultEpsilon), 1e-12)
	assert.InDelta(t, 1.0/1.1, Weight(1, DefaultEpsilon), 1e-12)
}

func TestRunningMeanMatchesScratch(t *testing.T) {
	samples := []float64{0.01, 0.81, 0.25, 0.49, 0.0, 1.0, 0.16}
	mean := 0.0
	var sum float64
	for i, s := range samples {
		mean = RunningMean(mean, i, s)
		sum += s
		assert.InDelta(t, sum/float64(i+1), mean, 1e-12)
	}
}

func TestVsRandom(t *testing.T) {
	assert.InDelta(t, 0.15, VsRandom(0.10), 1e-12)
	assert.InDelta(t, -0.25, VsRandom(0.50), 1e-12)
}

func TestWeightedConsensusSingle(t *testing.T) {
	p, spread, err := WeightedConsensus([]float64{0.73}, []float64{NeutralWeight})
	require.NoError(t, err)
	assert.InDelta(t, 0.73, p, 1e-12)
	assert.Equal(t, 0.0, spread)
}

func TestWeightedConsensusWeighted(t *testing.T) {
	// 0.8 at weight 2 and 0.4 at weight 1 pull toward the heavier voice.
	p, spread, err := WeightedConsensus([]float64{0.8, 0.4}, []float64{2, 1})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, p, 1e-9)
	assert.InDelta(t, 0.2, spread, 1e-9)
}

func TestWeightedConsensusSpreadIgnoresWeights(t *testing.T) {
	// Spread reports forecaster disagreement on the raw probabilities;
	// reweighting the same probabilities must not change it.
	_, s1, err := WeightedConsensus([]float64{0.9, 0.1}, []float64{1, 1})
	require.NoError(t, err)
	_, s2, err := WeightedConsensus([]float64{0.9, 0.1}, []float64{5, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.4, s1, 1e-9)
	assert.Equal(t, s1, s2)
}

func TestWeightedConsensusEmpty(t *testing.T) {
	_, _, err := WeightedConsensus(nil, nil)
	assert.ErrorIs(t, err, models.ErrNoConsensus)
}

func TestWeightedConsensusDefaultsNonPositiveWeights(t *testing.T) {
	p, _, err := WeightedConsensus([]float64{0.2, 0.6}, []float64{0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.4, p, 1e-12)
}
