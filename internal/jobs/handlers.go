package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-grocer/internal/common"
	"github.com/noah-isme/backend-grocer/internal/inventory"
	"github.com/noah-isme/backend-grocer/internal/lock"
	"github.com/noah-isme/backend-grocer/internal/obs"
	"github.com/noah-isme/backend-grocer/internal/pricefeed"
)

type vendorRefresher interface {
	RefreshVendor(ctx context.Context, slug string) (pricefeed.Result, error)
}

type expiryScanner interface {
	ScanExpiring(ctx context.Context, now time.Time) (inventory.ScanResult, error)
}

// Handlers processes the background tasks.
type Handlers struct {
	Prices    vendorRefresher
	Inventory expiryScanner
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Mux routes task types to their handlers.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(h.logging)
	mux.HandleFunc(TypePriceRefresh, h.HandlePriceRefresh)
	mux.HandleFunc(TypeInventoryScan, h.HandleInventoryScan)
	return mux
}

func (h *Handlers) logging(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		logger := h.Logger.With().Str("task_type", t.Type()).Logger()
		if id, ok := asynq.GetTaskID(ctx); ok {
			logger = logger.With().Str("task_id", id).Logger()
		}
		ctx = logger.WithContext(ctx)
		start := time.Now()
		err := next.ProcessTask(ctx, t)
		evt := logger.Info()
		if err != nil {
			evt = logger.Error().Err(err)
		}
		evt.Dur("duration", time.Since(start)).Msg("task processed")
		return err
	})
}

// HandlePriceRefresh processes prices:refresh. A refresh already running
// elsewhere is skipped without retry.
func (h *Handlers) HandlePriceRefresh(ctx context.Context, t *asynq.Task) error {
	var p PriceRefreshPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || p.Vendor == "" {
		obs.ObserveJob(TypePriceRefresh, "invalid")
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if h.Prices == nil {
		return fmt.Errorf("price refresher not configured: %w", asynq.SkipRetry)
	}
	_, err := h.Prices.RefreshVendor(ctx, p.Vendor)
	switch {
	case err == nil:
		obs.ObserveJob(TypePriceRefresh, "ok")
		return nil
	case errors.Is(err, lock.ErrLocked):
		obs.ObserveJob(TypePriceRefresh, "skipped")
		obs.Ctx(ctx).Info().Str("vendor", p.Vendor).Msg("refresh already running")
		return nil
	case common.IsAppError(err):
		obs.ObserveJob(TypePriceRefresh, "invalid")
		return fmt.Errorf("refresh %s: %v: %w", p.Vendor, err, asynq.SkipRetry)
	default:
		obs.ObserveJob(TypePriceRefresh, "error")
		return fmt.Errorf("refresh %s: %w", p.Vendor, err)
	}
}

// HandleInventoryScan processes inventory:scan-expiring.
func (h *Handlers) HandleInventoryScan(ctx context.Context, _ *asynq.Task) error {
	if h.Inventory == nil {
		return fmt.Errorf("inventory scanner not configured: %w", asynq.SkipRetry)
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	if _, err := h.Inventory.ScanExpiring(ctx, now()); err != nil {
		obs.ObserveJob(TypeInventoryScan, "error")
		return err
	}
	obs.ObserveJob(TypeInventoryScan, "ok")
	return nil
}
