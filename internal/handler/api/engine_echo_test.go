package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ForecastPull/internal/domain/models"
	internalrepo "ForecastPull/internal/repository"
	"ForecastPull/internal/service/ratelimit"
	"ForecastPull/internal/usecase"
	xlogger "ForecastPull/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopMetrics struct{}

func (nopMetrics) RecordEventResolved(string)      {}
func (nopMetrics) RecordForecastScored(string)     {}
func (nopMetrics) RecordPollResult(string)         {}
func (nopMetrics) RecordConsensus(string, float64) {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLatency(string, float64)   {}

func newTestServer(t *testing.T) (*echo.Echo, *internalrepo.MemoryStore) {
	t.Helper()

	store := internalrepo.NewMemoryStore()
	m := nopMetrics{}
	log := xlogger.Nop()

	reputation := usecase.NewReputationService(store, store, nil, 0.1)
	h := NewEngineEchoHandler(
		log,
		usecase.NewSubmissionService(store, store, store, m),
		usecase.NewConsensusService(store, store, reputation, m),
		reputation,
		usecase.NewCalibrationService(store, store, 10),
		usecase.NewLeaderboardService(store, store, nil, 10, log),
		internalrepo.NoopScoreArchive{},
		ratelimit.New(),
	)

	e := echo.New()
	h.RegisterRoutes(e)
	return e, store
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAndSubmitFlow(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/forecasters",
		`{"forecaster_id":"alice","display_name":"Alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/forecasts",
		`{"forecaster_id":"alice","event_id":"evt-1","probability":0.7,"event_title":"Rate cut by March"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/consensus/evt-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data models.Consensus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.InDelta(t, 0.7, envelope.Data.Probability, 1e-9)
	assert.Equal(t, 1, envelope.Data.ForecastCount)
}

func TestSubmitValidation(t *testing.T) {
	e, _ := newTestServer(t)

	doJSON(e, http.MethodPost, "/api/forecasters",
		`{"forecaster_id":"alice","display_name":"Alice"}`)

	// Probability out of range never reaches the usecase.
	rec := doJSON(e, http.MethodPost, "/api/forecasts",
		`{"forecaster_id":"alice","event_id":"evt-1","probability":1.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown forecaster is a 404.
	rec = doJSON(e, http.MethodPost, "/api/forecasts",
		`{"forecaster_id":"ghost","event_id":"evt-1","probability":0.5}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeactivatedForecasterConflict(t *testing.T) {
	e, _ := newTestServer(t)

	doJSON(e, http.MethodPost, "/api/forecasters",
		`{"forecaster_id":"alice","display_name":"Alice"}`)
	rec := doJSON(e, http.MethodDelete, "/api/forecasters/alice", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/forecasts",
		`{"forecaster_id":"alice","event_id":"evt-1","probability":0.5}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestConsensusWithoutForecasts(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/api/consensus/missing-event", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitRateLimited(t *testing.T) {
	e, _ := newTestServer(t)

	doJSON(e, http.MethodPost, "/api/forecasters",
		`{"forecaster_id":"alice","display_name":"Alice"}`)

	// Burst past the per-forecaster token bucket.
	limited := false
	for i := 0; i < 20; i++ {
		rec := doJSON(e, http.MethodPost, "/api/forecasts",
			fmt.Sprintf(`{"forecaster_id":"alice","event_id":"evt-%d","probability":0.5}`, i))
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.True(t, limited)
}

func TestLeaderboardDefaults(t *testing.T) {
	e, store := newTestServer(t)

	doJSON(e, http.MethodPost, "/api/forecasters",
		`{"forecaster_id":"alice","display_name":"Alice"}`)
	doJSON(e, http.MethodPost, "/api/forecasts",
		`{"forecaster_id":"alice","event_id":"evt-1","probability":0.9}`)
	resolveEvent(t, store, "evt-1", true)

	rec := doJSON(e, http.MethodGet, "/api/leaderboard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data models.Leaderboard `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, models.MetricReputation, envelope.Data.Metric)
	assert.Equal(t, "all", envelope.Data.Window)

	rec = doJSON(e, http.MethodGet, "/api/leaderboard?metric=sharpe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalibrationSinceParam(t *testing.T) {
	e, _ := newTestServer(t)

	doJSON(e, http.MethodPost, "/api/forecasters",
		`{"forecaster_id":"alice","display_name":"Alice"}`)

	rec := doJSON(e, http.MethodGet, "/api/calibration/alice?since=not-a-time", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/calibration/alice?since=2024-01-01T00:00:00Z", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScoreHistoryEmptyWithoutArchive(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/api/forecasters/alice/history?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data []*models.Forecast `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Empty(t, envelope.Data)

	rec = doJSON(e, http.MethodGet, "/api/forecasters/alice/history?limit=5000", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	e, _ := newTestServer(t)
	rec := doJSON(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

// resolveEvent drives an event to its terminal state directly through the
// store so the read APIs above see scored data.
func resolveEvent(t *testing.T, store *internalrepo.MemoryStore, eventID string, outcome bool) {
	t.Helper()
	ctx := context.Background()

	ok, err := store.BeginResolution(ctx, eventID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.CompleteResolution(ctx, eventID, outcome, time.Now().UTC()))

	forecasts, err := store.ListUnscored(ctx, eventID)
	require.NoError(t, err)
	for _, f := range forecasts {
		score := (f.Probability - models.OutcomeValue(outcome)) * (f.Probability - models.OutcomeValue(outcome))
		attached, err := store.AttachScore(ctx, f.ID, score, outcome, time.Now().UTC())
		require.NoError(t, err)
		require.True(t, attached)
	}
}
