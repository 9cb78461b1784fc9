package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's failure taxonomy. Handlers map these onto
// HTTP responses; the applier and poller use them to decide retry vs no-op.
var (
	ErrEventNotFound      = errors.New("event not found")
	ErrForecasterNotFound = errors.New("forecaster not found")
	ErrForecasterInactive = errors.New("forecaster is deactivated")
	ErrForecastNotFound   = errors.New("forecast not found")

	// ErrEventNotOpen rejects submissions (and consensus reads) against an
	// event that is no longer open.
	ErrEventNotOpen = errors.New("event is not open")

	// ErrNoConsensus signals zero submitted forecasts, not a failure.
	ErrNoConsensus = errors.New("no forecasts submitted for event")

	// ErrAlreadyResolved marks a duplicate resolution signal. Always a no-op.
	ErrAlreadyResolved = errors.New("event already resolved")

	// ErrAlreadyScored marks a scoring conflict: evidence of a safe retry,
	// never logged as an error.
	ErrAlreadyScored = errors.New("forecast already scored")
)

// TransientError wraps a recoverable authority failure (network, rate
// limit). The poller retries it on the next cycle.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable on a later poll cycle.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// MalformedResolutionError marks a resolution answer with an outcome
// encoding the engine refuses to guess at. The event stays open.
type MalformedResolutionError struct {
	EventID string
	Raw     string
}

func (e *MalformedResolutionError) Error() string {
	return fmt.Sprintf("malformed resolution for event %s: %q", e.EventID, e.Raw)
}

// InvariantError marks data that should never have reached the component,
// e.g. a probability outside [0,1] at scoring time. Fatal to the single
// forecast, never to the batch.
type InvariantError struct {
	Subject string
	Detail  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated on %s: %s", e.Subject, e.Detail)
}
