package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ForecastPull/internal/domain/models"
	"ForecastPull/internal/domain/repository"
)

// ClickHouseScoreArchive appends scored forecasts to ClickHouse. The archive
// is write-only from the engine's point of view; the query path exists for
// offline analysis and tests.
type ClickHouseScoreArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseScoreArchive creates a ClickHouse-backed score archive.
func NewClickHouseScoreArchive(db *sql.DB, table string) repository.ScoreArchive {
	return &ClickHouseScoreArchive{db: db, table: table}
}

// ScoreHistorySchema returns the DDL for the score history table. Column
// types must accept exactly what Append binds: confidence is the submitted
// label ("high"/"medium"/"low"), not a number.
func ScoreHistorySchema(database, table string) []string {
	return []string{
		"CREATE DATABASE IF NOT EXISTS " + database,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			forecast_id String,
			forecaster_id String,
			event_id String,
			probability Float64,
			confidence LowCardinality(String),
			outcome UInt8,
			score Float64,
			submitted_at DateTime64(3),
			scored_at DateTime64(3)
		) ENGINE=MergeTree ORDER BY (forecaster_id, scored_at)`, database, table),
	}
}

func (a *ClickHouseScoreArchive) Append(ctx context.Context, f *models.Forecast) error {
	if !f.Scored() || f.OutcomeAtScoring == nil || f.ScoredAt == nil {
		return fmt.Errorf("archive: forecast %s has no score attached", f.ID)
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (forecast_id, forecaster_id, event_id, probability, confidence, outcome, score, submitted_at, scored_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		a.table)
	outcome := uint8(0)
	if *f.OutcomeAtScoring {
		outcome = 1
	}
	_, err := a.db.ExecContext(ctx, q,
		f.ID,
		f.ForecasterID,
		f.EventID,
		f.Probability,
		f.Confidence,
		outcome,
		*f.Score,
		f.SubmittedAt,
		*f.ScoredAt,
	)
	return err
}

// AppendBatch archives a whole scored event in one round trip.
func (a *ClickHouseScoreArchive) AppendBatch(ctx context.Context, fs []*models.Forecast) error {
	if len(fs) == 0 {
		return nil
	}
	values := make([]string, 0, len(fs))
	args := make([]interface{}, 0, len(fs)*9)
	for _, f := range fs {
		if !f.Scored() || f.OutcomeAtScoring == nil || f.ScoredAt == nil {
			continue
		}
		outcome := uint8(0)
		if *f.OutcomeAtScoring {
			outcome = 1
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			f.ID, f.ForecasterID, f.EventID,
			f.Probability, f.Confidence, outcome, *f.Score,
			f.SubmittedAt, *f.ScoredAt,
		)
	}
	if len(values) == 0 {
		return nil
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (forecast_id, forecaster_id, event_id, probability, confidence, outcome, score, submitted_at, scored_at) VALUES %s",
		a.table, strings.Join(values, ","))
	_, err := a.db.ExecContext(ctx, q, args...)
	return err
}

// QueryScores returns archived scores for one forecaster, newest first.
func (a *ClickHouseScoreArchive) QueryScores(ctx context.Context, forecasterID string, from, to time.Time, limit int) ([]*models.Forecast, error) {
	q := fmt.Sprintf(
		"SELECT forecast_id, event_id, probability, outcome, score, scored_at FROM %s WHERE forecaster_id = ? AND scored_at >= ? AND scored_at <= ? ORDER BY scored_at DESC LIMIT ?",
		a.table)
	rows, err := a.db.QueryContext(ctx, q, forecasterID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Forecast
	for rows.Next() {
		var (
			f       models.Forecast
			outcome uint8
			score   float64
			at      time.Time
		)
		if err := rows.Scan(&f.ID, &f.EventID, &f.Probability, &outcome, &score, &at); err != nil {
			return nil, err
		}
		f.ForecasterID = forecasterID
		o := outcome == 1
		f.OutcomeAtScoring = &o
		f.Score = &score
		f.ScoredAt = &at
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (a *ClickHouseScoreArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *ClickHouseScoreArchive) Close() error {
	return nil // Pool managed by pkg
}

// NoopScoreArchive discards scores; used when ClickHouse is disabled.
type NoopScoreArchive struct{}

func (NoopScoreArchive) Append(ctx context.Context, f *models.Forecast) error { return nil }
func (NoopScoreArchive) AppendBatch(ctx context.Context, fs []*models.Forecast) error {
	return nil
}
func (NoopScoreArchive) QueryScores(ctx context.Context, forecasterID string, from, to time.Time, limit int) ([]*models.Forecast, error) {
	return nil, nil
}
func (NoopScoreArchive) Health(ctx context.Context) error { return nil }
func (NoopScoreArchive) Close() error                     { return nil }
