package ranking

import (
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/services/llm"
)

const defaultMaxAttempts = 5

// RetryPolicy bounds judge calls per slot.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// PolicyFromConfig maps the [ranking] section onto a retry policy.
func PolicyFromConfig(r config.Ranking) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: r.MaxRetries,
		BaseDelay:   time.Duration(r.BackoffBaseMS) * time.Millisecond,
		MaxDelay:    time.Duration(r.BackoffMaxMS) * time.Millisecond,
	}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return defaultMaxAttempts
	}
	return p.MaxAttempts
}

// Delay is the wait before retry number attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return llm.BackoffDelay(p.BaseDelay, p.MaxDelay, attempt)
}
