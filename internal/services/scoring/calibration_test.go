package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForecastPull/internal/domain/models"
)

func scored(p float64, outcome bool) *models.Forecast {
	s := (p - models.OutcomeValue(outcome)) * (p - models.OutcomeValue(outcome))
	now := time.Now()
	return &models.Forecast{
		Probability:      p,
		Score:            &s,
		OutcomeAtScoring: &outcome,
		ScoredAt:         &now,
	}
}

func TestBucketIndexPartition(t *testing.T) {
	// Every probability lands in exactly one bucket; 1.0 joins the top one.
	assert.Equal(t, 0, BucketIndex(0.0, 10))
	assert.Equal(t, 0, BucketIndex(0.0999, 10))
	assert.Equal(t, 1, BucketIndex(0.1, 10))
	assert.Equal(t, 8, BucketIndex(0.8999, 10))
	assert.Equal(t, 9, BucketIndex(0.9, 10))
	assert.Equal(t, 9, BucketIndex(1.0, 10))
}

func TestBucketIndexExhaustive(t *testing.T) {
	for i := 0; i <= 1000; i++ {
		p := float64(i) / 1000
		idx := BucketIndex(p, 10)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 10)
		if p < 1.0 {
			require.LessOrEqual(t, float64(idx)/10, p)
			require.Less(t, p, float64(idx+1)/10)
		}
	}
}

func TestBuildCalibrationPerfect(t *testing.T) {
	// 0.9 forecasts that resolve true 90% of the time are well calibrated
	// within their bucket.
	var fs []*models.Forecast
	for i := 0; i < 10; i++ {
		fs = append(fs, scored(0.9, i < 9))
	}
	rep := BuildCalibration("f1", fs, 10)
	require.NotNil(t, rep.AggregateError)
	assert.Equal(t, 10, rep.ResolvedCount)
	assert.InDelta(t, 0.0, *rep.AggregateError, 1e-9)

	top := rep.Buckets[9]
	assert.Equal(t, 10, top.Count)
	assert.InDelta(t, 0.9, top.MeanForecast, 1e-12)
	assert.InDelta(t, 0.9, top.ResolutionRate, 1e-12)
}

func TestBuildCalibrationOverconfident(t *testing.T) {
	// Always saying 0.9 for coin flips is 0.4 off inside the bucket.
	var fs []*models.Forecast
	for i := 0; i < 10; i++ {
		fs = append(fs, scored(0.9, i%2 == 0))
	}
	rep := BuildCalibration("f1", fs, 10)
	require.NotNil(t, rep.AggregateError)
	assert.InDelta(t, 0.4, *rep.AggregateError, 1e-9)
}

func TestBuildCalibrationCountWeighted(t *testing.T) {
	// A crowded miscalibrated bucket dominates a sparse perfect one.
	var fs []*models.Forecast
	for i := 0; i < 9; i++ {
		fs = append(fs, scored(0.95, false)) // bucket 9, error 0.95
	}
	fs = append(fs, scored(0.05, false)) // bucket 0, error 0.05
	rep := BuildCalibration("f1", fs, 10)
	require.NotNil(t, rep.AggregateError)
	assert.InDelta(t, (9*0.95+1*0.05)/10, *rep.AggregateError, 1e-9)
}

func TestBuildCalibrationSkipsUnscored(t *testing.T) {
	fs := []*models.Forecast{{Probability: 0.5}}
	rep := BuildCalibration("f1", fs, 10)
	assert.Equal(t, 0, rep.ResolvedCount)
	assert.Nil(t, rep.AggregateError)
	assert.Nil(t, rep.AvgScore)
	assert.Len(t, rep.Buckets, 10)
}

func TestBuildCalibrationBucketBounds(t *testing.T) {
	rep := BuildCalibration("f1", nil, 4)
	require.Len(t, rep.Buckets, 4)
	assert.Equal(t, 0.0, rep.Buckets[0].Lo)
	assert.Equal(t, 0.25, rep.Buckets[0].Hi)
	assert.Equal(t, 0.75, rep.Buckets[3].Lo)
	assert.Equal(t, 1.0, rep.Buckets[3].Hi)
}
