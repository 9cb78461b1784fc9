package authority

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForecastPull/internal/domain/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, WithRateLimit(1000, 1000))
	require.NoError(t, err)
	return c
}

func TestQueryResolutionOpen(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resolutions/ev-1", r.URL.Path)
		w.Write([]byte(`{"event_id":"ev-1","status":"open"}`))
	})

	st, err := c.QueryResolution(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.False(t, st.Resolved)
	assert.Nil(t, st.Outcome)
}

func TestQueryResolutionResolved(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"event_id":"ev-1","status":"resolved","outcome":1,"resolved_at":"2026-08-01T12:00:00Z"}`))
	})

	st, err := c.QueryResolution(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.True(t, st.Resolved)
	require.NotNil(t, st.Outcome)
	assert.True(t, *st.Outcome)
	require.NotNil(t, st.ResolvedAt)
}

func TestQueryResolutionServerErrorIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.QueryResolution(context.Background(), "ev-1")
	require.Error(t, err)
	assert.True(t, models.IsTransient(err))
}

func TestQueryResolutionRateLimitedIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.QueryResolution(context.Background(), "ev-1")
	require.Error(t, err)
	assert.True(t, models.IsTransient(err))
}

func TestQueryResolutionUnknownEventStaysOpen(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	st, err := c.QueryResolution(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.False(t, st.Resolved)
}

func TestQueryResolutionMalformedOutcome(t *testing.T) {
	cases := []string{
		`{"event_id":"ev-1","status":"resolved"}`,             // missing outcome
		`{"event_id":"ev-1","status":"resolved","outcome":2}`, // non-binary
		`{"event_id":"ev-1","status":"maybe"}`,                // unknown status
		`not json`,
	}
	for _, body := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
		_, err := c.QueryResolution(context.Background(), "ev-1")
		var malformed *models.MalformedResolutionError
		require.ErrorAs(t, err, &malformed, "body=%s", body)
		assert.False(t, models.IsTransient(err), "malformed must not be retried blindly")
	}
}
