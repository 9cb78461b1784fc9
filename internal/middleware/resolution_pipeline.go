package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ForecastPull/internal/domain/models"
	domrepo "ForecastPull/internal/domain/repository"
)

// Applier is the minimal consumer interface the pipeline needs.
type Applier interface {
	Apply(ctx context.Context, n *models.ResolutionNotification) error
}

// maxApplyAttempts caps how often one notification is retried, the inline
// Publish attempt included. The poller re-detects a still-resolved event on
// a later cycle, so a capped drop loses nothing permanently.
const maxApplyAttempts = 5

// retryItem carries a buffered notification and its attempt count.
type retryItem struct {
	n        *models.ResolutionNotification
	attempts int
}

// ResolutionPipeline is the in-process transport between poller and applier
// when the engine runs without a broker (backend: direct). It validates
// notifications and buffers them when the applier is failing, retrying with
// backoff so a resolution is never silently lost inside one process run.
// Permanent failures and notifications past the attempt cap are dropped and
// counted instead of circulating forever.
type ResolutionPipeline struct {
	applier Applier
	metrics domrepo.Metrics
	bufSize int
	bufCh   chan *retryItem
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type PipelineOption func(*ResolutionPipeline)

// WithBufferSize sets the retry buffer size for failed applies.
func WithBufferSize(n int) PipelineOption {
	return func(p *ResolutionPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewResolutionPipeline creates a new pipeline.
func NewResolutionPipeline(applier Applier, metrics domrepo.Metrics, opts ...PipelineOption) *ResolutionPipeline {
	p := &ResolutionPipeline{
		applier: applier,
		metrics: metrics,
		bufSize: 256,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *retryItem, p.bufSize)
	return p
}

// retryable reports whether a failed apply can succeed on a later attempt.
// A resolution for an event the store has never seen stays unknown forever.
func retryable(err error) bool {
	return !errors.Is(err, models.ErrEventNotFound)
}

// Start launches background retry of buffered notifications.
func (p *ResolutionPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case it := <-p.bufCh:
				if it == nil || it.n == nil {
					continue
				}
				if err := p.applier.Apply(ctx, it.n); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					it.attempts++
					if !retryable(err) || it.attempts >= maxApplyAttempts {
						p.metrics.RecordError("pipeline_buffer_drop")
						continue
					}
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- it:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background retry loop.
func (p *ResolutionPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Publish validates and applies one notification, buffering it for retry
// when the applier fails. Implements the same contract as the Kafka
// publisher so the poller cannot tell the backends apart.
func (p *ResolutionPipeline) Publish(ctx context.Context, n *models.ResolutionNotification) error {
	start := time.Now()
	if err := validateNotification(n); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}

	if err := p.applier.Apply(ctx, n); err != nil {
		p.metrics.RecordError("pipeline_apply")
		if !retryable(err) {
			p.metrics.RecordError("pipeline_buffer_drop")
			return fmt.Errorf("pipeline downstream: %w", err)
		}
		// buffer non-blocking
		select {
		case p.bufCh <- &retryItem{n: n, attempts: 1}:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_apply", time.Since(start).Seconds())
	return nil
}

// Close satisfies the publisher contract.
func (p *ResolutionPipeline) Close() error {
	p.Stop()
	return nil
}

var _ domrepo.NotificationPublisher = (*ResolutionPipeline)(nil)

func validateNotification(n *models.ResolutionNotification) error {
	if n == nil {
		return fmt.Errorf("notification nil")
	}
	if n.EventID == "" {
		return fmt.Errorf("event id empty")
	}
	if n.ResolvedAt.IsZero() {
		return fmt.Errorf("resolved_at missing")
	}
	return nil
}
