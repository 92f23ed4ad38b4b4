package ratelimit

import (
	"fmt"
	"time"
)

// CheckResult is the outcome of a rate limit check.
type CheckResult struct {
	Exceeded bool
	Current  int
	Limit    int
	Reason   string
}

// Check compares the number of calls already in the window against the limit.
func Check(count int, cfg Config) CheckResult {
	if !cfg.HasLimit() {
		return CheckResult{Current: count}
	}
	if count >= cfg.MaxCalls {
		return CheckResult{
			Exceeded: true,
			Current:  count,
			Limit:    cfg.MaxCalls,
			Reason: fmt.Sprintf("rate limit exceeded: %d/%d calls in %s window",
				count, cfg.MaxCalls, cfg.window()),
		}
	}
	return CheckResult{Current: count, Limit: cfg.MaxCalls}
}

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time
