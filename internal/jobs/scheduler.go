package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-grocer/internal/vendor"
)

type registrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

type vendorLister interface {
	List(ctx context.Context) ([]vendor.Vendor, error)
}

// Schedule registers a periodic price refresh for every active vendor and the
// daily expiry scan. It returns the number of entries registered.
func Schedule(ctx context.Context, s registrar, vendors vendorLister, refreshEvery time.Duration, scanCron string) (int, error) {
	if refreshEvery <= 0 {
		refreshEvery = 6 * time.Hour
	}
	list, err := vendors.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list vendors: %w", err)
	}
	spec := "@every " + refreshEvery.String()
	n := 0
	for _, v := range list {
		task, err := NewPriceRefreshTask(v.Slug, refreshEvery/2)
		if err != nil {
			return n, err
		}
		if _, err := s.Register(spec, task); err != nil {
			return n, fmt.Errorf("register refresh for %s: %w", v.Slug, err)
		}
		n++
	}
	if scanCron != "" {
		if _, err := s.Register(scanCron, NewInventoryScanTask()); err != nil {
			return n, fmt.Errorf("register inventory scan: %w", err)
		}
		n++
	}
	return n, nil
}
