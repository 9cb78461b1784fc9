package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	eventsResolved  *prometheus.CounterVec
	forecastsScored *prometheus.CounterVec
	pollResults     *prometheus.CounterVec
	consensusGauge  *prometheus.GaugeVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		eventsResolved: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastpull_events_resolved_total",
				Help: "Total number of events moved to their terminal state",
			},
			[]string{"category"},
		),
		forecastsScored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastpull_forecasts_scored_total",
				Help: "Scoring attempts by result (scored, conflict, invariant)",
			},
			[]string{"result"},
		),
		pollResults: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastpull_poll_results_total",
				Help: "Authority query outcomes per poll cycle",
			},
			[]string{"status"},
		),
		consensusGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forecastpull_consensus_probability",
				Help: "Last computed consensus probability per event",
			},
			[]string{"event_id"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastpull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forecastpull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordEventResolved records one terminal event transition.
func (r *Recorder) RecordEventResolved(category string) {
	if category == "" {
		category = "uncategorized"
	}
	r.eventsResolved.WithLabelValues(category).Inc()
}

// RecordForecastScored records one scoring attempt by result.
func (r *Recorder) RecordForecastScored(result string) {
	r.forecastsScored.WithLabelValues(result).Inc()
}

// RecordPollResult records one authority query classification.
func (r *Recorder) RecordPollResult(status string) {
	r.pollResults.WithLabelValues(status).Inc()
}

// RecordConsensus records the last computed consensus for an event.
func (r *Recorder) RecordConsensus(eventID string, probability float64) {
	r.consensusGauge.WithLabelValues(eventID).Set(probability)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
