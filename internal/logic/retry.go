package logic

import "time"

// RetryPolicy bounds how long a pending state change may wait for the
// broker link before the device gives up and restarts.
type RetryPolicy struct {
	MaxAttempts int           // connectivity checks before giving up
	Interval    time.Duration // wait before each check
}

// DefaultRetryPolicy waits roughly one minute.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 60,
	Interval:    time.Second,
}

// Budget returns the total time spent waiting before the policy is exhausted.
func (p RetryPolicy) Budget() time.Duration {
	if p.MaxAttempts <= 0 {
		return 0
	}
	return time.Duration(p.MaxAttempts) * p.Interval
}

// Exhausted reports whether attempts checks have used up the budget.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}
