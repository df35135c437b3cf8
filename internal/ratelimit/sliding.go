package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Sliding implements a sliding-window limiter backed by Redis sorted sets.
// It is used for login attempts, where bursts at window edges matter.
type Sliding struct {
	Client *redis.Client
	Prefix string
	Window time.Duration
	Max    int
}

// Allow registers an event for the key and reports whether it is within the limit.
func (l Sliding) Allow(ctx context.Context, key string) (Decision, error) {
	now := time.Now()
	d := Decision{Allowed: true, Limit: l.Max, Remaining: l.Max, Reset: now.Add(l.Window)}
	if l.Client == nil || l.Max <= 0 || l.Window <= 0 {
		return d, nil
	}

	redisKey := l.Prefix + key
	cutoff := strconv.FormatInt(now.Add(-l.Window).UnixNano(), 10)

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: fmt.Sprintf("%d:%s", now.UnixNano(), uuid.NewString())})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Limit: l.Max, Reset: d.Reset}, err
	}

	current := int(countCmd.Val())
	d.Allowed = current <= l.Max
	d.Remaining = max(l.Max-current, 0)
	return d, nil
}
