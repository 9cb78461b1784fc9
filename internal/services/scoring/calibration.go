package scoring

import (
	"ForecastPull/internal/domain/models"
)

// DefaultBucketCount partitions [0,1] into ten equal probability bands.
const DefaultBucketCount = 10

// BucketIndex maps a probability into one of n equal-width buckets.
// The closed top edge (p == 1.0) lands in the top bucket.
func BucketIndex(p float64, n int) int {
	if n <= 0 {
		n = DefaultBucketCount
	}
	i := int(p * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// BuildCalibration bins scored forecasts by stated probability and compares
// each bucket's mean forecast against its realized resolution rate. Empty
// buckets carry zero counts and are excluded from the aggregate error.
func BuildCalibration(forecasterID string, forecasts []*models.Forecast, n int) *models.CalibrationReport {
	if n <= 0 {
		n = DefaultBucketCount
	}
	width := 1.0 / float64(n)
	buckets := make([]models.CalibrationBucket, n)
	for i := range buckets {
		buckets[i].Lo = float64(i) * width
		buckets[i].Hi = float64(i+1) * width
	}

	sums := make([]float64, n)
	hits := make([]int, n)
	total := 0
	var scoreSum float64
	for _, f := range forecasts {
		if !f.Scored() || f.OutcomeAtScoring == nil {
			continue
		}
		i := BucketIndex(f.Probability, n)
		buckets[i].Count++
		sums[i] += f.Probability
		if *f.OutcomeAtScoring {
			hits[i]++
		}
		scoreSum += *f.Score
		total++
	}

	var weightedErr float64
	for i := range buckets {
		if buckets[i].Count == 0 {
			continue
		}
		c := float64(buckets[i].Count)
		buckets[i].MeanForecast = sums[i] / c
		buckets[i].ResolutionRate = float64(hits[i]) / c
		e := buckets[i].MeanForecast - buckets[i].ResolutionRate
		if e < 0 {
			e = -e
		}
		buckets[i].Error = e
		weightedErr += e * c
	}

	report := &models.CalibrationReport{
		ForecasterID:  forecasterID,
		ResolvedCount: total,
		Buckets:       buckets,
	}
	if total > 0 {
		avg := scoreSum / float64(total)
		agg := weightedErr / float64(total)
		report.AvgScore = &avg
		report.AggregateError = &agg
	}
	return report
}
