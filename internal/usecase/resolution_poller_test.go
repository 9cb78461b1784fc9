package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForecastPull/internal/domain/models"
	"ForecastPull/pkg/logger"
)

func newTestPoller(f *engineFixture, authority *stubAuthority, pub *capturingPublisher) *ResolutionPoller {
	return NewResolutionPoller(f.store, authority, pub, nil, f.metrics, logger.Nop(), PollerConfig{
		Interval:     time.Minute,
		Concurrency:  4,
		QueryTimeout: time.Second,
		CycleBudget:  5 * time.Second,
	})
}

func TestRunCyclePublishesResolvedOnly(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	require.NoError(t, f.register(ctx, "alice"))
	for _, ev := range []string{"ev-1", "ev-2", "ev-3"} {
		_, err := f.submit(ctx, "alice", ev, 0.5)
		require.NoError(t, err)
	}

	authority := newStubAuthority()
	authority.resolve("ev-2", true)
	pub := &capturingPublisher{}
	poller := newTestPoller(f, authority, pub)

	require.NoError(t, poller.RunCycle(ctx))

	published := pub.all()
	require.Len(t, published, 1)
	assert.Equal(t, "ev-2", published[0].EventID)
	assert.True(t, published[0].Outcome)
	assert.Equal(t, 2, f.metrics.pollCount("open"))
	assert.Equal(t, 1, f.metrics.pollCount("resolved"))
}

func TestRunCycleIsolatesFailures(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	require.NoError(t, f.register(ctx, "alice"))
	for _, ev := range []string{"ev-slow", "ev-bad", "ev-good"} {
		_, err := f.submit(ctx, "alice", ev, 0.5)
		require.NoError(t, err)
	}

	authority := newStubAuthority()
	authority.fail("ev-slow", &models.TransientError{Err: context.DeadlineExceeded})
	authority.fail("ev-bad", &models.MalformedResolutionError{EventID: "ev-bad", Raw: "outcome=maybe"})
	authority.resolve("ev-good", false)
	pub := &capturingPublisher{}
	poller := newTestPoller(f, authority, pub)

	require.NoError(t, poller.RunCycle(ctx))

	published := pub.all()
	require.Len(t, published, 1, "one stuck event never starves the batch")
	assert.Equal(t, "ev-good", published[0].EventID)
	assert.Equal(t, 1, f.metrics.pollCount("transient"))
	assert.Equal(t, 1, f.metrics.pollCount("malformed"))

	// Failed events stay open for the next cycle.
	for _, ev := range []string{"ev-slow", "ev-bad"} {
		e, err := f.store.GetEvent(ctx, ev)
		require.NoError(t, err)
		assert.Equal(t, models.EventOpen, e.State)
	}
}

func TestRunCycleEmptyStore(t *testing.T) {
	f := newEngineFixture()
	authority := newStubAuthority()
	pub := &capturingPublisher{}
	poller := newTestPoller(f, authority, pub)

	require.NoError(t, poller.RunCycle(context.Background()))
	assert.Empty(t, pub.all())
}

func TestPollerAndApplierEndToEnd(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	require.NoError(t, f.register(ctx, "alice"))
	_, err := f.submit(ctx, "alice", "ev-1", 0.9)
	require.NoError(t, err)

	authority := newStubAuthority()
	authority.resolve("ev-1", true)
	pub := &capturingPublisher{}
	poller := newTestPoller(f, authority, pub)

	require.NoError(t, poller.RunCycle(ctx))
	for _, n := range pub.all() {
		require.NoError(t, f.applier.Apply(ctx, n))
	}

	fs, err := f.store.ListEventForecasts(ctx, "ev-1")
	require.NoError(t, err)
	require.Len(t, fs, 1)
	require.True(t, fs[0].Scored())
	assert.InDelta(t, 0.01, *fs[0].Score, 1e-12)
}
