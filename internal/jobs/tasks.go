package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TypePriceRefresh re-reads the live prices of one vendor.
	TypePriceRefresh = "prices:refresh"
	// TypeInventoryScan counts pantry items nearing expiry.
	TypeInventoryScan = "inventory:scan-expiring"

	QueuePrices  = "prices"
	QueueDefault = "default"
)

// PriceRefreshPayload is the body of a prices:refresh task.
type PriceRefreshPayload struct {
	Vendor string `json:"vendor"`
}

// NewPriceRefreshTask builds a refresh task for the vendor slug. Tasks for the
// same vendor are unique for the given window.
func NewPriceRefreshTask(vendor string, unique time.Duration) (*asynq.Task, error) {
	vendor = strings.ToLower(strings.TrimSpace(vendor))
	if vendor == "" {
		return nil, fmt.Errorf("jobs: vendor is required")
	}
	payload, err := json.Marshal(PriceRefreshPayload{Vendor: vendor})
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{asynq.Queue(QueuePrices), asynq.MaxRetry(3), asynq.Timeout(10 * time.Minute)}
	if unique > 0 {
		opts = append(opts, asynq.Unique(unique))
	}
	return asynq.NewTask(TypePriceRefresh, payload, opts...), nil
}

// NewInventoryScanTask builds the daily expiry scan task.
func NewInventoryScanTask() *asynq.Task {
	return asynq.NewTask(TypeInventoryScan, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(2))
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EnqueuePriceRefresh queues an immediate refresh of vendor. A refresh that is
// already queued is not duplicated.
func EnqueuePriceRefresh(ctx context.Context, c enqueuer, vendor string) (string, error) {
	task, err := NewPriceRefreshTask(vendor, 15*time.Minute)
	if err != nil {
		return "", err
	}
	info, err := c.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", TypePriceRefresh, err)
	}
	return info.ID, nil
}
