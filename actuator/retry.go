package actuator

import (
	"math"
	"time"
)

// RetryStrategy encapsulates the decision and delay between retries. The
// actuator's own retry/back-off policy is explicitly out of scope for the
// TM core (base spec §6); it is still needed by the actuator itself, so
// it lives here. Ported near-verbatim from runner/retry.go.
type RetryStrategy interface {
	// SleepDuration returns how long to wait before the next retry
	// attempt. attempt starts at 0, incrementing after each failure.
	SleepDuration(attempt int, err error) time.Duration
}

// NoDelayStrategy retries immediately without waiting.
type NoDelayStrategy struct{}

// SleepDuration always returns zero.
func (n NoDelayStrategy) SleepDuration(_ int, _ error) time.Duration {
	return 0
}

// FixedIntervalStrategy waits the same Interval between every pair of
// attempts. It is not the actuator's default (New uses NoDelayStrategy);
// pass it through WithRetryStrategy to use it.
type FixedIntervalStrategy struct {
	Interval time.Duration
}

// SleepDuration returns the fixed interval regardless of attempt.
func (f FixedIntervalStrategy) SleepDuration(_ int, _ error) time.Duration {
	return f.Interval
}

// ExponentialBackoffStrategy implements capped exponential backoff.
//
//	WithRetryStrategy(ExponentialBackoffStrategy{
//	    Base:   100 * time.Millisecond,
//	    Factor: 2,
//	    Max:    5 * time.Second,
//	})
type ExponentialBackoffStrategy struct {
	// Base is the starting delay (e.g., 100ms).
	Base time.Duration
	// Factor is multiplied each iteration (e.g., 2 => 100ms, 200ms, 400ms, ...).
	Factor float64
	// Max caps the exponential growth.
	Max time.Duration
}

// SleepDuration implements exponential backoff with a cap at Max.
func (e ExponentialBackoffStrategy) SleepDuration(attempt int, _ error) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(e.Base) * math.Pow(e.Factor, float64(attempt))
	if time.Duration(delay) > e.Max && e.Max > 0 {
		return e.Max
	}
	return time.Duration(delay)
}
