package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-grocer/internal/cache"
	"github.com/noah-isme/backend-grocer/internal/common"
	"github.com/noah-isme/backend-grocer/internal/pricing"
	"github.com/noah-isme/backend-grocer/internal/store"
)

type queryProvider interface {
	CountProducts(ctx context.Context, arg store.CountProductsParams) (int64, error)
	ListProducts(ctx context.Context, arg store.ListProductsParams) ([]store.ListProductsRow, error)
	GetProductByID(ctx context.Context, id pgtype.UUID) (store.Product, error)
	ListQuotesByProduct(ctx context.Context, productID pgtype.UUID) ([]store.ListQuotesByProductRow, error)
	ListCategories(ctx context.Context) ([]store.ListCategoriesRow, error)
}

// Service answers product searches and caches the results.
type Service struct {
	queries      queryProvider
	cache        *cache.JSON
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries      queryProvider
	Cache        *cache.JSON
	DefaultLimit int
	MaxLimit     int
}

// ListParams captures filters for product listing.
type ListParams struct {
	Query    string
	Category string
	Page     int
	Limit    int
}

// PriceRange is the spread of in-stock prices across vendors.
type PriceRange struct {
	Min pricing.Money `json:"min"`
	Max pricing.Money `json:"max"`
}

// ProductListItem is one search result.
type ProductListItem struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Category    string      `json:"category"`
	Unit        string      `json:"unit"`
	PriceRange  *PriceRange `json:"priceRange,omitempty"`
	VendorCount int         `json:"vendorCount"`
}

// Quote is a vendor's offer for a product.
type Quote struct {
	VendorSlug string         `json:"vendor"`
	VendorName string         `json:"vendorName"`
	Price      pricing.Money  `json:"price"`
	MRP        *pricing.Money `json:"mrp,omitempty"`
	InStock    bool           `json:"inStock"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// ProductDetail is a product with every vendor quote.
type ProductDetail struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Category       string      `json:"category"`
	Unit           string      `json:"unit"`
	ShelfLifeDays  *int        `json:"shelfLifeDays,omitempty"`
	Quotes         []Quote     `json:"quotes"`
	PriceRange     *PriceRange `json:"priceRange,omitempty"`
	CheapestVendor string      `json:"cheapestVendor,omitempty"`
}

// Category is a product category with its size.
type Category struct {
	Name         string `json:"name"`
	ProductCount int64  `json:"productCount"`
}

// ProductListResult contains list data and pagination metadata.
type ProductListResult struct {
	Items []ProductListItem
	Total int64
	Page  int
	Limit int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{queries: cfg.Queries, cache: cfg.Cache, defaultLimit: defaultLimit, maxLimit: maxLimit}, nil
}

// ParseListParams normalises raw query values. Limits above the maximum are clamped.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{
		Query:    strings.TrimSpace(values.Get("q")),
		Category: strings.TrimSpace(values.Get("category")),
		Page:     1,
		Limit:    s.defaultLimit,
	}
	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, common.BadRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return params, common.BadRequest("limit", "limit must be a positive integer", err)
		}
		params.Limit = limit
	}
	if params.Limit > s.maxLimit {
		params.Limit = s.maxLimit
	}
	return params, nil
}

type cachedList struct {
	Items []ProductListItem `json:"items"`
	Total int64             `json:"total"`
}

// ListProducts searches products by name and category.
func (s *Service) ListProducts(ctx context.Context, params ListParams) (ProductListResult, error) {
	key := cache.KeyProductList(params.Query, params.Category, params.Page, params.Limit)
	var cached cachedList
	if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok {
		return ProductListResult{Items: cached.Items, Total: cached.Total, Page: params.Page, Limit: params.Limit}, nil
	}

	total, err := s.queries.CountProducts(ctx, store.CountProductsParams{
		Q:        optionalString(params.Query),
		Category: optionalString(params.Category),
	})
	if err != nil {
		return ProductListResult{}, fmt.Errorf("count products: %w", err)
	}
	rows, err := s.queries.ListProducts(ctx, store.ListProductsParams{
		Q:           optionalString(params.Query),
		Category:    optionalString(params.Category),
		OffsetValue: common.Offset(params.Page, params.Limit),
		LimitValue:  int32(params.Limit),
	})
	if err != nil {
		return ProductListResult{}, fmt.Errorf("list products: %w", err)
	}

	items := make([]ProductListItem, 0, len(rows))
	for _, row := range rows {
		item := ProductListItem{
			ID:          store.UUIDString(row.ID),
			Name:        row.Name,
			Category:    row.Category,
			Unit:        row.Unit,
			VendorCount: int(row.VendorCount),
		}
		if row.MinPrice.Valid && row.MaxPrice.Valid {
			item.PriceRange = &PriceRange{Min: row.MinPrice.Int64, Max: row.MaxPrice.Int64}
		}
		items = append(items, item)
	}
	_ = s.cache.Set(ctx, key, cachedList{Items: items, Total: total})
	return ProductListResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit}, nil
}

// GetProduct returns a product with its quotes, cheapest in-stock vendor first
// on price ties by vendor priority.
func (s *Service) GetProduct(ctx context.Context, id string) (ProductDetail, error) {
	pid, err := store.ToUUID(id)
	if err != nil {
		return ProductDetail{}, common.NotFound("product")
	}
	key := cache.KeyProduct(id)
	var detail ProductDetail
	if ok, err := s.cache.Get(ctx, key, &detail); err == nil && ok {
		return detail, nil
	}

	product, err := s.queries.GetProductByID(ctx, pid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductDetail{}, common.NotFound("product")
		}
		return ProductDetail{}, fmt.Errorf("get product: %w", err)
	}
	quotes, err := s.queries.ListQuotesByProduct(ctx, pid)
	if err != nil {
		return ProductDetail{}, fmt.Errorf("list quotes: %w", err)
	}

	detail = ProductDetail{
		ID:       store.UUIDString(product.ID),
		Name:     product.Name,
		Category: product.Category,
		Unit:     product.Unit,
		Quotes:   make([]Quote, 0, len(quotes)),
	}
	if product.TypicalShelfLifeDays.Valid {
		days := int(product.TypicalShelfLifeDays.Int32)
		detail.ShelfLifeDays = &days
	}
	for _, q := range quotes {
		quote := Quote{VendorSlug: q.VendorSlug, VendorName: q.VendorName, Price: q.CurrentPrice, InStock: q.InStock}
		if q.Mrp.Valid {
			mrp := q.Mrp.Int64
			quote.MRP = &mrp
		}
		if q.UpdatedAt.Valid {
			quote.UpdatedAt = q.UpdatedAt.Time
		}
		detail.Quotes = append(detail.Quotes, quote)

		if !q.InStock {
			continue
		}
		// quotes arrive in priority order, so a strict comparison keeps ties on the earlier vendor
		if detail.PriceRange == nil {
			detail.PriceRange = &PriceRange{Min: q.CurrentPrice, Max: q.CurrentPrice}
			detail.CheapestVendor = q.VendorSlug
			continue
		}
		if q.CurrentPrice < detail.PriceRange.Min {
			detail.PriceRange.Min = q.CurrentPrice
			detail.CheapestVendor = q.VendorSlug
		}
		if q.CurrentPrice > detail.PriceRange.Max {
			detail.PriceRange.Max = q.CurrentPrice
		}
	}
	_ = s.cache.Set(ctx, key, detail)
	return detail, nil
}

// ListCategories returns every category with its product count.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, Category{Name: row.Category, ProductCount: row.ProductCount})
	}
	return out, nil
}

// Invalidate drops every cached catalog payload and basket comparison, both
// of which embed vendor prices. Price refreshes call it.
func (s *Service) Invalidate(ctx context.Context) error {
	for _, prefix := range []string{cache.ProductsPrefix(), cache.ComparePrefix()} {
		if err := s.cache.DeletePrefix(ctx, prefix); err != nil {
			return fmt.Errorf("invalidate %s: %w", prefix, err)
		}
	}
	return nil
}

func optionalString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
