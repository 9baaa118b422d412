package queue

import (
	"time"
)

const (
	DefaultMaxAttempts     = 5
	DefaultBaseDelay       = time.Second
	DefaultFailedRetention = time.Hour

	// maxBackoffShift bounds the doubling so large attempt counts cannot overflow.
	maxBackoffShift = 20
)

// RetryPolicy controls attempt limits, backoff, and retention.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// FailedRetention is how long a Failed entry survives a reload, measured
	// from its CreatedAt.
	FailedRetention time.Duration
	// SucceededRetention purges Succeeded entries on reload. Zero keeps them.
	SucceededRetention time.Duration
}

// DefaultRetryPolicy returns five attempts with 1s doubling backoff and one
// hour of failed-entry retention.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     DefaultMaxAttempts,
		BaseDelay:       DefaultBaseDelay,
		FailedRetention: DefaultFailedRetention,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	defaults := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaults.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaults.BaseDelay
	}
	if p.FailedRetention <= 0 {
		p.FailedRetention = defaults.FailedRetention
	}
	if p.SucceededRetention < 0 {
		p.SucceededRetention = 0
	}
	return p
}

// Backoff returns the wait after the given failed attempt (1-based):
// base, 2*base, 4*base, ...
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	return p.BaseDelay * time.Duration(1<<shift)
}

// Expired reports whether a loaded entry falls outside its retention window.
func (p RetryPolicy) Expired(status Status, createdAt, now time.Time) bool {
	switch status {
	case StatusFailed:
		return now.Sub(createdAt) > p.FailedRetention
	case StatusSucceeded:
		return p.SucceededRetention > 0 && now.Sub(createdAt) > p.SucceededRetention
	default:
		return false
	}
}

type decision int

const (
	decisionSucceed decision = iota
	decisionRetry
	decisionFail
)

func (d decision) outcome() string {
	switch d {
	case decisionSucceed:
		return OutcomeSucceeded
	case decisionRetry:
		return OutcomeRetry
	default:
		return OutcomeFailed
	}
}

// decide maps the result of attempt number attempt to the next transition.
//
//	success                         -> Succeeded
//	terminal error                  -> Failed
//	error, attempt >= MaxAttempts   -> Failed
//	error otherwise                 -> Pending after Backoff(attempt)
func (p RetryPolicy) decide(attempt int, err error) (decision, time.Duration) {
	switch {
	case err == nil:
		return decisionSucceed, 0
	case IsTerminal(err):
		return decisionFail, 0
	case attempt >= p.MaxAttempts:
		return decisionFail, 0
	default:
		return decisionRetry, p.Backoff(attempt)
	}
}
