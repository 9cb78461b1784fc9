package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreHistorySchemaColumns(t *testing.T) {
	stmts := ScoreHistorySchema("forecastpull", "score_history")
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS forecastpull", stmts[0])

	ddl := stmts[1]
	assert.Contains(t, ddl, "forecastpull.score_history")

	// Every column Append binds must exist in the table.
	for _, col := range []string{
		"forecast_id", "forecaster_id", "event_id",
		"probability", "confidence", "outcome",
		"score", "submitted_at", "scored_at",
	} {
		assert.Contains(t, ddl, col)
	}

	// Confidence is the submitted label, a string, never a numeric column.
	for _, line := range strings.Split(ddl, "\n") {
		if strings.Contains(line, "confidence") {
			assert.Contains(t, line, "LowCardinality(String)")
			assert.NotContains(t, line, "Float")
		}
	}
}
