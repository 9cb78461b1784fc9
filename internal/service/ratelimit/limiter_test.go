package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowConsumesTokens(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("alice", 3, 0))
	}
	assert.False(t, l.Allow("alice", 3, 0))
	// Other keys have their own bucket.
	assert.True(t, l.Allow("bob", 3, 0))
}

func TestEvictDropsIdleBuckets(t *testing.T) {
	l := New()
	assert.True(t, l.Allow("alice", 10, 1))
	assert.True(t, l.Allow("bob", 10, 1))

	l.mu.Lock()
	l.m["alice"].last = time.Now().Add(-time.Hour)
	l.mu.Unlock()

	assert.Equal(t, 1, l.Evict(30*time.Minute))
	l.mu.Lock()
	_, ok := l.m["alice"]
	n := len(l.m)
	l.mu.Unlock()
	assert.False(t, ok)
	assert.Equal(t, 1, n)
}

func TestAllowSweepsIdleBuckets(t *testing.T) {
	l := New()
	assert.True(t, l.Allow("idle", 10, 1))
	l.mu.Lock()
	l.m["idle"].last = time.Now().Add(-2 * idleTTL)
	l.ops = sweepEvery - 1
	l.mu.Unlock()

	assert.True(t, l.Allow("active", 10, 1))

	l.mu.Lock()
	_, ok := l.m["idle"]
	l.mu.Unlock()
	assert.False(t, ok)
}
