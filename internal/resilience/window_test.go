package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreakerWindowForgetsOldFailures(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	b := NewBreaker("window", Policy{MinRequests: 3, FailureRatio: 0.6, OpenFor: time.Minute, Window: time.Minute})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	b.Report(ctx, false)
	b.Report(ctx, false)
	now = now.Add(2 * time.Minute)
	b.Report(ctx, false)
	b.Report(ctx, true)
	b.Report(ctx, true)
	require.Equal(t, Closed, b.State())

	b.Report(ctx, false)
	b.Report(ctx, false)
	require.Equal(t, Open, b.State())
	require.False(t, b.Allow(ctx))

	now = now.Add(time.Minute)
	require.True(t, b.Allow(ctx))
	require.Equal(t, HalfOpen, b.State())
}
