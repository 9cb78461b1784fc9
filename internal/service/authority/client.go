package authority

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"ForecastPull/internal/domain/models"
	"ForecastPull/internal/domain/repository"
	xhttp "ForecastPull/pkg/http"
)

// Client queries the external resolution authority over HTTP. A shared rate
// limiter keeps the bounded-concurrency poller inside the authority's quota.
type Client struct {
	baseURL string
	client  *xhttp.Client
	limiter *rate.Limiter
}

// Config holds authority client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RatePerSecond caps outbound queries; Burst allows short spikes.
	RatePerSecond float64
	Burst         int
}

// Option configures the client.
type Option func(*Config)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithRateLimit sets the outbound query rate.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Config) {
		c.RatePerSecond = perSecond
		c.Burst = burst
	}
}

// NewClient creates an authority client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("authority: base URL is required")
	}
	cfg := &Config{
		BaseURL:       baseURL,
		Timeout:       5 * time.Second,
		RatePerSecond: 20,
		Burst:         5,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
	}, nil
}

var _ repository.ResolutionAuthority = (*Client)(nil)

// resolutionPayload is the authority's wire format. Outcome arrives as 0/1.
type resolutionPayload struct {
	EventID    string `json:"event_id"`
	Status     string `json:"status"` // "open" | "resolved"
	Outcome    *int   `json:"outcome,omitempty"`
	ResolvedAt string `json:"resolved_at,omitempty"`
}

// QueryResolution asks the authority for one event's status. Network
// failures, 429 and 5xx responses come back wrapped in TransientError so
// the poller retries on the next cycle; an undecodable outcome comes back
// as MalformedResolutionError and is never guessed at.
func (c *Client) QueryResolution(ctx context.Context, eventID string) (*models.ResolutionStatus, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/resolutions/" + eventID,
	})
	if err != nil {
		return nil, &models.TransientError{Err: fmt.Errorf("query resolution %s: %w", eventID, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &models.TransientError{Err: fmt.Errorf("query resolution %s: %w", eventID, err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &models.TransientError{
			Err: fmt.Errorf("query resolution %s: authority status %d", eventID, resp.StatusCode),
		}
	case resp.StatusCode == http.StatusNotFound:
		// Authority does not track this event yet: still open.
		return &models.ResolutionStatus{EventID: eventID, Resolved: false}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, &models.MalformedResolutionError{
			EventID: eventID,
			Raw:     fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(body, 256)),
		}
	}

	var payload resolutionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &models.MalformedResolutionError{EventID: eventID, Raw: truncate(body, 256)}
	}

	status := &models.ResolutionStatus{EventID: eventID}
	switch payload.Status {
	case "open":
		return status, nil
	case "resolved":
		if payload.Outcome == nil || (*payload.Outcome != 0 && *payload.Outcome != 1) {
			return nil, &models.MalformedResolutionError{EventID: eventID, Raw: truncate(body, 256)}
		}
		o := *payload.Outcome == 1
		status.Resolved = true
		status.Outcome = &o
		if payload.ResolvedAt != "" {
			if at, perr := time.Parse(time.RFC3339, payload.ResolvedAt); perr == nil {
				status.ResolvedAt = &at
			}
		}
		return status, nil
	default:
		return nil, &models.MalformedResolutionError{EventID: eventID, Raw: truncate(body, 256)}
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
