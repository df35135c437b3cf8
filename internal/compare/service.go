package compare

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-grocer/internal/basket"
	"github.com/noah-isme/backend-grocer/internal/cache"
	"github.com/noah-isme/backend-grocer/internal/obs"
	"github.com/noah-isme/backend-grocer/internal/pricing"
	"github.com/noah-isme/backend-grocer/internal/store"
)

type basketReader interface {
	Get(ctx context.Context, userID, category string) (basket.Basket, error)
}

type quoteProvider interface {
	ListQuotesForProducts(ctx context.Context, productIds []pgtype.UUID) ([]store.ListQuotesForProductsRow, error)
}

type priorityProvider interface {
	Priority(ctx context.Context) ([]string, error)
}

// Line is one basket line priced at every vendor that stocks it. Prices are
// line totals, unit price times quantity.
type Line struct {
	ItemID     string                     `json:"itemId"`
	ProductID  string                     `json:"productId"`
	Name       string                     `json:"name"`
	Quantity   int32                      `json:"quantity"`
	UnitPrices map[VendorID]pricing.Money `json:"unitPrices"`
	Prices     map[VendorID]pricing.Money `json:"prices"`
	BestVendor VendorID                   `json:"bestVendor"`
}

// BasketComparison is the comparison of a user's active basket.
type BasketComparison struct {
	Result
	BasketID            string        `json:"basketId"`
	BasketVersion       int64         `json:"basketVersion"`
	Priority            []VendorID    `json:"priority"`
	Items               []Line        `json:"items"`
	CheapestVendor      VendorID      `json:"cheapestVendor,omitempty"`
	CheapestVendorTotal pricing.Money `json:"cheapestVendorTotal,omitempty"`
}

// Service compares baskets against stored vendor quotes.
type Service struct {
	baskets basketReader
	quotes  quoteProvider
	vendors priorityProvider
	cache   *cache.JSON
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Baskets basketReader
	Quotes  quoteProvider
	Vendors priorityProvider
	Cache   *cache.JSON
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Baskets == nil || cfg.Quotes == nil || cfg.Vendors == nil {
		return nil, errors.New("compare: baskets, quotes and vendors are required")
	}
	return &Service{baskets: cfg.Baskets, quotes: cfg.Quotes, vendors: cfg.Vendors, cache: cfg.Cache}, nil
}

// CompareBasket prices the user's active basket across vendors. Results are
// cached per basket version until the next price refresh clears them.
func (s *Service) CompareBasket(ctx context.Context, userID string) (BasketComparison, error) {
	return s.basketComparison(ctx, userID, true)
}

// Recompare prices the basket from the stored quotes, bypassing the cache,
// and stores the fresh result. Order placement uses it.
func (s *Service) Recompare(ctx context.Context, userID string) (BasketComparison, error) {
	return s.basketComparison(ctx, userID, false)
}

func (s *Service) basketComparison(ctx context.Context, userID string, useCache bool) (BasketComparison, error) {
	b, err := s.baskets.Get(ctx, userID, "")
	if err != nil {
		return BasketComparison{}, err
	}

	key := cache.KeyCompare(b.ID, b.Version)
	if useCache {
		var cached BasketComparison
		if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
			obs.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("compare cache read failed")
		} else if ok {
			obs.ObserveCompare("ok", cached.Savings)
			return cached, nil
		}
	}

	out, err := s.compareBasket(ctx, b)
	if err != nil {
		obs.ObserveCompare(ResultLabel(err), 0)
		return BasketComparison{}, err
	}
	obs.ObserveCompare("ok", out.Savings)
	if err := s.cache.Set(ctx, key, out); err != nil {
		obs.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("compare cache write failed")
	}
	return out, nil
}

// CompareCatalog compares a client-supplied catalog. An empty priority falls
// back to the configured vendor order.
func (s *Service) CompareCatalog(ctx context.Context, catalog []ItemQuote, priority []VendorID) (Result, []VendorID, error) {
	if len(priority) == 0 {
		slugs, err := s.vendors.Priority(ctx)
		if err != nil {
			return Result{}, nil, err
		}
		priority = toVendorIDs(slugs)
	}
	res, err := Compare(catalog, priority)
	if err != nil {
		obs.ObserveCompare(ResultLabel(err), 0)
		return Result{}, nil, err
	}
	obs.ObserveCompare("ok", res.Savings)
	return res, priority, nil
}

func (s *Service) compareBasket(ctx context.Context, b basket.Basket) (BasketComparison, error) {
	slugs, err := s.vendors.Priority(ctx)
	if err != nil {
		return BasketComparison{}, err
	}
	priority := toVendorIDs(slugs)
	known := make(map[VendorID]struct{}, len(priority))
	for _, v := range priority {
		known[v] = struct{}{}
	}

	ids := make([]pgtype.UUID, 0, len(b.Items))
	for _, item := range b.Items {
		id, err := store.ToUUID(item.ProductID)
		if err != nil {
			return BasketComparison{}, fmt.Errorf("basket item %s: %w", item.ID, err)
		}
		ids = append(ids, id)
	}
	unitPrices := make(map[string]map[VendorID]pricing.Money, len(ids))
	if len(ids) > 0 {
		rows, err := s.quotes.ListQuotesForProducts(ctx, ids)
		if err != nil {
			return BasketComparison{}, fmt.Errorf("list quotes: %w", err)
		}
		for _, row := range rows {
			vendor := VendorID(row.VendorSlug)
			if _, ok := known[vendor]; !ok || !row.InStock {
				continue
			}
			pid := store.UUIDString(row.ProductID)
			if unitPrices[pid] == nil {
				unitPrices[pid] = make(map[VendorID]pricing.Money)
			}
			unitPrices[pid][vendor] = row.CurrentPrice
		}
	}

	catalog := make([]ItemQuote, 0, len(b.Items))
	lines := make([]Line, 0, len(b.Items))
	for _, item := range b.Items {
		units := unitPrices[item.ProductID]
		prices := make(map[VendorID]pricing.Money, len(units))
		for vendor, unit := range units {
			prices[vendor] = unit * pricing.Money(item.Quantity)
		}
		catalog = append(catalog, ItemQuote{ItemID: item.ID, Name: item.Name, Prices: prices})
		lines = append(lines, Line{
			ItemID:     item.ID,
			ProductID:  item.ProductID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrices: units,
			Prices:     prices,
		})
	}

	res, err := Compare(catalog, priority)
	if err != nil {
		return BasketComparison{}, err
	}
	for i := range lines {
		lines[i].BestVendor = res.PerItemBestVendor[lines[i].ItemID]
	}
	out := BasketComparison{
		Result:        res,
		BasketID:      b.ID,
		BasketVersion: b.Version,
		Priority:      priority,
		Items:         lines,
	}
	if vendor, total, ok := CheapestSingleVendor(res, priority); ok {
		out.CheapestVendor, out.CheapestVendorTotal = vendor, total
	}
	return out, nil
}

// ResultLabel names an outcome for metrics.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, new(EmptyCatalogError)):
		return "empty_catalog"
	case errors.As(err, new(NoQuoteError)):
		return "no_quote"
	case errors.As(err, new(UnknownVendorError)):
		return "unknown_vendor"
	case errors.As(err, new(InvalidPriceError)):
		return "invalid_price"
	case errors.As(err, new(DuplicateItemError)):
		return "duplicate_item"
	default:
		return "error"
	}
}

func toVendorIDs(slugs []string) []VendorID {
	out := make([]VendorID, len(slugs))
	for i, s := range slugs {
		out[i] = VendorID(s)
	}
	return out
}
