package scoring

import (
	"fmt"
	"math"

	"ForecastPull/internal/domain/models"
)

// DefaultEpsilon dampens the reputation weight of near-perfect forecasters
// so a single lucky call cannot dominate the consensus.
const DefaultEpsilon = 0.1

// NeutralWeight is assigned to forecasters with no resolved history yet.
const NeutralWeight = 1.0

// BrierScore returns the squared error between a probability forecast and
// the realized outcome. 0 is a perfect call, 1 a maximally wrong one.
func BrierScore(probability float64, outcome bool) (float64, error) {
	if err := ValidateProbability(probability); err != nil {
		return 0, err
	}
	d := probability - models.OutcomeValue(outcome)
	return d * d, nil
}

// ValidateProbability rejects values outside [0, 1]. Out-of-range
// probabilities are refused rather than clamped: a clamp would silently
// rewrite the forecaster's stated belief.
func ValidateProbability(p float64) error {
	if p != p { // NaN
		return &models.InvariantError{Subject: "probability", Detail: "NaN"}
	}
	if p < 0 || p > 1 {
		return &models.InvariantError{Subject: "probability", Detail: fmt.Sprintf("%v outside [0,1]", p)}
	}
	return nil
}

// Weight converts an average Brier score into a consensus weight. Lower
// scores (better forecasters) yield higher weights; epsilon bounds the
// maximum weight at 1/epsilon.
func Weight(avgScore float64, epsilon float64) float64 {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return 1.0 / (avgScore + epsilon)
}

// RunningMean folds one sample into an existing mean without retaining the
// sample set.
func RunningMean(mean float64, count int, sample float64) float64 {
	if count <= 0 {
		return sample
	}
	n := float64(count)
	return (mean*n + sample) / (n + 1)
}

// VsRandom is the forecaster's edge over the uniform 0.5 baseline; positive
// means better than chance.
func VsRandom(avgScore float64) float64 {
	return models.RandomBaselineScore - avgScore
}

// WeightedConsensus collapses forecasts into a single probability using the
// supplied per-forecast weights. The spread is the population stddev of the
// raw probabilities, unweighted, so it reports how much forecasters disagree
// rather than how the weighting resolved the disagreement.
// Inputs must be the same length; an empty input yields models.ErrNoConsensus.
func WeightedConsensus(probabilities []float64, weights []float64) (prob float64, spread float64, err error) {
	if len(probabilities) == 0 {
		return 0, 0, models.ErrNoConsensus
	}
	if len(probabilities) != len(weights) {
		return 0, 0, &models.InvariantError{Subject: "consensus", Detail: "probability/weight length mismatch"}
	}
	var sumW, sumWP, sumP float64
	for i, p := range probabilities {
		if verr := ValidateProbability(p); verr != nil {
			return 0, 0, verr
		}
		w := weights[i]
		if w <= 0 {
			w = NeutralWeight
		}
		sumW += w
		sumWP += w * p
		sumP += p
	}
	if sumW == 0 {
		return 0, 0, models.ErrNoConsensus
	}
	prob = sumWP / sumW
	n := float64(len(probabilities))
	rawMean := sumP / n
	var sumD float64
	for _, p := range probabilities {
		d := p - rawMean
		sumD += d * d
	}
	spread = math.Sqrt(sumD / n)
	return prob, spread, nil
}
