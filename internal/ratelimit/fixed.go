package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Fixed is a fixed-window limiter built on ulule/limiter with a Redis store.
// It guards the comparison endpoints, where per-minute quotas are enough.
type Fixed struct {
	lim *limiter.Limiter
}

// NewFixed allows max events per period for each key.
func NewFixed(client *redis.Client, prefix string, period time.Duration, max int) (*Fixed, error) {
	if client == nil {
		return nil, errors.New("ratelimit: redis client is required")
	}
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, err
	}
	return &Fixed{lim: limiter.New(store, limiter.Rate{Period: period, Limit: int64(max)})}, nil
}

// Allow increments the counter for key.
func (f *Fixed) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := f.lim.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Limit:     int(res.Limit),
		Remaining: int(res.Remaining),
		Reset:     time.Unix(res.Reset, 0),
	}, nil
}
