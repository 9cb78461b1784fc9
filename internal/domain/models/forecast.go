package models

import "time"

// ResolutionState is the lifecycle state of a tracked event.
type ResolutionState string

const (
	EventOpen      ResolutionState = "open"
	EventResolving ResolutionState = "resolving" // transient, held only while one resolution is applied
	EventResolved  ResolutionState = "resolved"
)

// Confidence labels accepted on forecast submission.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Forecaster is a registered participant. Reputation is never stored here;
// it lives in ReputationSnapshot and is derived from scored forecasts.
type Forecaster struct {
	ID          string    `json:"forecaster_id"`
	DisplayName string    `json:"display_name"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Event is a tracked binary event. Once resolved, State, Outcome and
// ResolvedAt are terminal.
type Event struct {
	ID         string          `json:"event_id"`
	Title      string          `json:"title"`
	Category   string          `json:"category"`
	Price      float64         `json:"price"` // externally supplied scalar, snapshot at submission time
	State      ResolutionState `json:"state"`
	Outcome    *bool           `json:"outcome,omitempty"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Resolved reports whether the event reached its terminal state.
func (e *Event) Resolved() bool { return e.State == EventResolved }

// Forecast is one probability estimate for one event. Score is nil exactly
// while the event is open; once attached it is immutable.
type Forecast struct {
	ID           string  `json:"forecast_id"`
	ForecasterID string  `json:"forecaster_id"`
	EventID      string  `json:"event_id"`
	Probability  float64 `json:"probability"`
	Confidence   string  `json:"confidence"`
	Rationale    string  `json:"rationale,omitempty"`

	// Price of the event when the forecast was submitted, kept for the
	// beat-the-market comparison. Nil when the event carried no price.
	PriceAtSubmission *float64 `json:"price_at_submission,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Score            *float64   `json:"score,omitempty"`
	OutcomeAtScoring *bool      `json:"outcome,omitempty"`
	ScoredAt         *time.Time `json:"scored_at,omitempty"`
}

// Scored reports whether a score has been attached.
func (f *Forecast) Scored() bool { return f.Score != nil }

// ReputationSnapshot is the cached per-forecaster reputation statistic.
// AvgScore is nil until the first forecast resolves.
type ReputationSnapshot struct {
	ForecasterID  string    `json:"forecaster_id"`
	AvgScore      *float64  `json:"avg_score,omitempty"`
	ResolvedCount int       `json:"resolved_count"`
	Weight        float64   `json:"weight"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Consensus is the reputation-weighted aggregate over one open event.
type Consensus struct {
	EventID       string    `json:"event_id"`
	Probability   float64   `json:"probability"`
	ForecastCount int       `json:"forecast_count"`
	Spread        float64   `json:"spread"` // population stddev of submitted probabilities
	ComputedAt    time.Time `json:"computed_at"`
}

// CalibrationBucket covers [Lo, Hi) of the probability axis; the top bucket
// additionally includes 1.0.
type CalibrationBucket struct {
	Lo             float64 `json:"bucket_min"`
	Hi             float64 `json:"bucket_max"`
	Count          int     `json:"count"`
	MeanForecast   float64 `json:"mean_forecast"`
	ResolutionRate float64 `json:"resolution_rate"`
	Error          float64 `json:"calibration_error"`
}

// CalibrationReport aggregates a forecaster's resolved forecasts by bucket.
// AggregateError is nil when no forecasts have resolved.
type CalibrationReport struct {
	ForecasterID   string              `json:"forecaster_id"`
	ResolvedCount  int                 `json:"resolved_count"`
	AvgScore       *float64            `json:"avg_score,omitempty"`
	AggregateError *float64            `json:"aggregate_error,omitempty"`
	Buckets        []CalibrationBucket `json:"buckets"`
}

// Leaderboard sort metrics and time windows.
const (
	MetricReputation  = "reputation"  // avg score, ascending (lower Brier is better)
	MetricVolume      = "volume"      // resolved forecast count, descending
	MetricCalibration = "calibration" // aggregate calibration error, ascending
)

// RandomBaselineScore is the expected Brier score of always forecasting 0.5.
const RandomBaselineScore = 0.25

// LeaderboardEntry is one cached ranking row. Entirely derived; safe to drop
// and rebuild.
type LeaderboardEntry struct {
	Rank             int      `json:"rank"`
	ForecasterID     string   `json:"forecaster_id"`
	DisplayName      string   `json:"display_name"`
	AvgScore         *float64 `json:"avg_score,omitempty"`
	ResolvedCount    int      `json:"resolved_count"`
	CalibrationError *float64 `json:"calibration_error,omitempty"`
	VsRandom         *float64 `json:"vs_random,omitempty"` // positive = better than random
}

// Leaderboard is a full cache snapshot for one (metric, window) key.
type Leaderboard struct {
	Metric      string             `json:"metric"`
	Window      string             `json:"window"`
	Entries     []LeaderboardEntry `json:"entries"`
	RefreshedAt time.Time          `json:"refreshed_at"`
}

// MarketComparison reports how a forecaster fared against the event price
// taken as a probability estimate.
type MarketComparison struct {
	ForecasterID    string   `json:"forecaster_id"`
	TotalComparable int      `json:"total_comparable"`
	BeatMarketCount int      `json:"beat_market_count"`
	BeatMarketRate  *float64 `json:"beat_market_rate,omitempty"`
	AvgScore        *float64 `json:"avg_score,omitempty"`
	AvgMarketScore  *float64 `json:"avg_market_score,omitempty"`
}

// ResolutionStatus is one answer from the external resolution authority.
type ResolutionStatus struct {
	EventID    string     `json:"event_id"`
	Resolved   bool       `json:"resolved"`
	Outcome    *bool      `json:"outcome,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// ResolutionNotification is the message the poller emits and the applier
// consumes. Applying it is idempotent.
type ResolutionNotification struct {
	EventID    string    `json:"event_id"`
	Outcome    bool      `json:"outcome"`
	ResolvedAt time.Time `json:"resolved_at"`
	Source     string    `json:"source,omitempty"`
}

// PlatformStats are aggregate totals for the stats endpoint.
type PlatformStats struct {
	Forecasters       int `json:"total_forecasters"`
	Forecasts         int `json:"total_forecasts"`
	ResolvedForecasts int `json:"total_resolved_forecasts"`
	OpenEvents        int `json:"open_events"`
	ResolvedEvents    int `json:"resolved_events"`
}

// OutcomeValue maps a binary outcome to the realized value the scorer uses.
func OutcomeValue(outcome bool) float64 {
	if outcome {
		return 1
	}
	return 0
}
