package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

const (
	// idleTTL is how long a bucket may sit unused before a sweep drops it.
	idleTTL = 10 * time.Minute
	// sweepEvery spaces out the inline sweeps so Allow stays cheap.
	sweepEvery = 4096
)

// Limiter is a keyed token bucket. The submission handler keys it by
// forecaster ID so one noisy participant cannot drown the write path.
// Idle buckets are swept inline every sweepEvery calls so the key set
// does not grow without bound.
type Limiter struct {
	mu  sync.Mutex
	m   map[string]*bucket
	ops uint64
}

func New() *Limiter { return &Limiter{m: make(map[string]*bucket)} }

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops++
	if l.ops%sweepEvery == 0 {
		l.evictLocked(now.Add(-idleTTL))
	}
	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = b
	}
	// refill
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens -= 1
		return true
	}
	return false
}

// Evict drops buckets idle longer than maxIdle. Returns the number of
// buckets removed.
func (l *Limiter) Evict(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.evictLocked(time.Now().Add(-maxIdle))
}

func (l *Limiter) evictLocked(cutoff time.Time) int {
	removed := 0
	for k, b := range l.m {
		if b.last.Before(cutoff) {
			delete(l.m, k)
			removed++
		}
	}
	return removed
}
