package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/backend-grocer/internal/common"
	"github.com/noah-isme/backend-grocer/internal/obs"
	"github.com/noah-isme/backend-grocer/internal/pricing"
	"github.com/noah-isme/backend-grocer/internal/store"
)

type refreshStore interface {
	GetVendorBySlug(ctx context.Context, slug string) (store.Vendor, error)
	ListRefreshableQuotes(ctx context.Context, vendorID pgtype.UUID) ([]store.ProductCatalog, error)
	UpdateQuotePrice(ctx context.Context, id pgtype.UUID, price int64) error
	MarkQuoteUnavailable(ctx context.Context, id pgtype.UUID) error
}

type priceFetcher interface {
	Fetch(ctx context.Context, vendor, url, selector string) (pricing.Money, error)
}

type locker interface {
	TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

type invalidator interface {
	Invalidate(ctx context.Context) error
}

// Result counts the outcomes of one vendor refresh.
type Result struct {
	Vendor      string `json:"vendor"`
	Updated     int    `json:"updated"`
	Unchanged   int    `json:"unchanged"`
	Unavailable int    `json:"unavailable"`
}

// Refresher re-reads the live prices of a vendor's catalog quotes.
type Refresher struct {
	Store       refreshStore
	Fetcher     priceFetcher
	Locker      locker
	Catalog     invalidator
	Concurrency int
	LockTTL     time.Duration
	// Selectors holds per-vendor default CSS selectors used when a quote
	// has none of its own.
	Selectors map[string]string
}

// RefreshVendor updates every quote of the vendor that has a product URL.
// Quotes whose page cannot be read are marked out of stock. When another
// worker already refreshes the vendor, lock.ErrLocked is returned.
func (r *Refresher) RefreshVendor(ctx context.Context, slug string) (Result, error) {
	vendor, err := r.Store.GetVendorBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Result{}, common.NotFound("vendor")
		}
		return Result{}, fmt.Errorf("get vendor: %w", err)
	}

	res := Result{Vendor: vendor.Slug}
	run := func(ctx context.Context) error {
		var err error
		res, err = r.refresh(ctx, vendor)
		return err
	}
	if r.Locker == nil {
		err = run(ctx)
	} else {
		ttl := r.LockTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		err = r.Locker.TryWithLock(ctx, "prices:"+vendor.Slug, ttl, run)
	}
	if err != nil {
		return res, err
	}

	if res.Updated+res.Unavailable > 0 && r.Catalog != nil {
		if err := r.Catalog.Invalidate(ctx); err != nil {
			obs.Ctx(ctx).Warn().Err(err).Msg("catalog cache invalidation failed")
		}
	}
	obs.Ctx(ctx).Info().
		Str("vendor", res.Vendor).
		Int("updated", res.Updated).
		Int("unchanged", res.Unchanged).
		Int("unavailable", res.Unavailable).
		Msg("vendor prices refreshed")
	return res, nil
}

func (r *Refresher) refresh(ctx context.Context, vendor store.Vendor) (Result, error) {
	quotes, err := r.Store.ListRefreshableQuotes(ctx, vendor.ID)
	if err != nil {
		return Result{}, fmt.Errorf("list refreshable quotes: %w", err)
	}

	res := Result{Vendor: vendor.Slug}
	var mu sync.Mutex
	count := func(outcome string) {
		mu.Lock()
		defer mu.Unlock()
		switch outcome {
		case "updated":
			res.Updated++
		case "unchanged":
			res.Unchanged++
		default:
			res.Unavailable++
		}
		obs.ObservePriceRefresh(vendor.Slug, outcome)
	}

	limit := r.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, q := range quotes {
		q := q
		g.Go(func() error {
			outcome, err := r.refreshQuote(gctx, vendor.Slug, q)
			if err != nil {
				return err
			}
			count(outcome)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, nil
}

// refreshQuote returns an error only for store failures or cancellation;
// fetch failures become the "unavailable" outcome.
func (r *Refresher) refreshQuote(ctx context.Context, vendor string, q store.ProductCatalog) (string, error) {
	selector := q.PriceSelector.String
	if !q.PriceSelector.Valid || selector == "" {
		selector = r.Selectors[vendor]
	}
	price, err := r.Fetcher.Fetch(ctx, vendor, q.ProductUrl.String, selector)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		obs.Ctx(ctx).Debug().Err(err).Str("vendor", vendor).Str("quote_id", store.UUIDString(q.ID)).Msg("price fetch failed")
		if !q.InStock {
			return "unavailable", nil
		}
		if err := r.Store.MarkQuoteUnavailable(ctx, q.ID); err != nil {
			return "", fmt.Errorf("mark quote unavailable: %w", err)
		}
		return "unavailable", nil
	}
	if int64(price) == q.CurrentPrice && q.InStock {
		return "unchanged", nil
	}
	if err := r.Store.UpdateQuotePrice(ctx, q.ID, int64(price)); err != nil {
		return "", fmt.Errorf("update quote price: %w", err)
	}
	return "updated", nil
}
