package ratelimit

import (
	"context"
	"time"
)

// Decision describes the outcome of a rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter decides whether one more event is allowed for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
