package inventory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-grocer/internal/basket"
	"github.com/noah-isme/backend-grocer/internal/common"
	"github.com/noah-isme/backend-grocer/internal/obs"
	"github.com/noah-isme/backend-grocer/internal/store"
)

const dateLayout = "2006-01-02"

type queryProvider interface {
	ListInventoryItems(ctx context.Context, userID pgtype.UUID) ([]store.InventoryRow, error)
	ListExpiringInventory(ctx context.Context, before pgtype.Date) ([]store.InventoryRow, error)
	GetInventoryItem(ctx context.Context, id, userID pgtype.UUID) (store.InventoryRow, error)
	CreateInventoryItem(ctx context.Context, arg store.CreateInventoryItemParams) (pgtype.UUID, error)
	UpdateInventoryItem(ctx context.Context, arg store.UpdateInventoryItemParams) (int64, error)
	DeleteInventoryItem(ctx context.Context, id, userID pgtype.UUID) (int64, error)
}

type basketAdder interface {
	Add(ctx context.Context, userID string, in basket.AddInput) (basket.Basket, error)
}

// Item is a pantry entry with its computed status.
type Item struct {
	ID           string  `json:"id"`
	ProductID    string  `json:"productId"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Quantity     float64 `json:"quantity"`
	PackQuantity float64 `json:"packQuantity"`
	Unit         string  `json:"unit"`
	ExpiryDate   string  `json:"expiryDate,omitempty"`
	DaysLeft     *int    `json:"daysLeft,omitempty"`
	Location     string  `json:"location,omitempty"`
	Status       Status  `json:"status"`
}

// CreateInput records a product in the pantry.
type CreateInput struct {
	ProductID    string  `json:"productId" validate:"required,uuid"`
	Quantity     float64 `json:"quantity" validate:"gte=0"`
	PackQuantity float64 `json:"packQuantity" validate:"gt=0"`
	Unit         string  `json:"unit" validate:"required,max=16"`
	ExpiryDate   string  `json:"expiryDate" validate:"omitempty,datetime=2006-01-02"`
	Location     string  `json:"location" validate:"omitempty,max=64"`
}

// UpdateInput changes an entry. An empty ExpiryDate clears it.
type UpdateInput struct {
	Quantity   *float64 `json:"quantity" validate:"omitempty,gte=0"`
	ExpiryDate *string  `json:"expiryDate"`
	Location   *string  `json:"location" validate:"omitempty,max=64"`
}

// Filter selects a subset of the pantry.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterExpiring Filter = "expiring"
	FilterLow      Filter = "low"
)

// ScanResult summarises an expiry scan across all households.
type ScanResult struct {
	Expiring   int `json:"expiring"`
	Expired    int `json:"expired"`
	Households int `json:"households"`
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Queries  queryProvider
	Basket   basketAdder
	WarnDays int
	LowRatio float64
}

// Service manages household pantry stock.
type Service struct {
	queries  queryProvider
	basket   basketAdder
	warnDays int
	lowRatio float64
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	warn := cfg.WarnDays
	if warn < 0 {
		warn = 0
	}
	return &Service{
		queries:  cfg.Queries,
		basket:   cfg.Basket,
		warnDays: warn,
		lowRatio: cfg.LowRatio,
		now:      time.Now,
	}
}

// WithNow overrides the clock.
func (s *Service) WithNow(fn func() time.Time) *Service {
	if fn != nil {
		s.now = fn
	}
	return s
}

// ParseFilter validates the filter query parameter.
func ParseFilter(raw string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterExpiring, FilterLow:
		return f, nil
	default:
		return "", common.BadRequest("filter", "must be one of all, expiring, low", nil)
	}
}

// List returns the pantry of a user. The expiring filter includes expired items.
func (s *Service) List(ctx context.Context, userID string, filter Filter) ([]Item, error) {
	uid, err := userUUID(userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.queries.ListInventoryItems(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	now := s.now()
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		item := s.toItem(row, now)
		if !filter.matches(item.Status) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (f Filter) matches(st Status) bool {
	switch f {
	case FilterExpiring:
		return st == StatusExpiring || st == StatusExpired
	case FilterLow:
		return st == StatusLow
	default:
		return true
	}
}

// Get returns one pantry entry.
func (s *Service) Get(ctx context.Context, userID, itemID string) (Item, error) {
	uid, err := userUUID(userID)
	if err != nil {
		return Item{}, err
	}
	id, err := store.ToUUID(itemID)
	if err != nil {
		return Item{}, common.NotFound("inventory item")
	}
	row, err := s.queries.GetInventoryItem(ctx, id, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, common.NotFound("inventory item")
		}
		return Item{}, fmt.Errorf("get inventory item: %w", err)
	}
	return s.toItem(row, s.now()), nil
}

// Create records a pantry entry.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Item, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Item{}, err
	}
	uid, err := userUUID(userID)
	if err != nil {
		return Item{}, err
	}
	productID, err := store.ToUUID(in.ProductID)
	if err != nil {
		return Item{}, common.BadRequest("productId", "invalid product id", err)
	}
	expiry, err := parseDate(in.ExpiryDate)
	if err != nil {
		return Item{}, err
	}
	id, err := s.queries.CreateInventoryItem(ctx, store.CreateInventoryItemParams{
		UserID:       uid,
		ProductID:    productID,
		Quantity:     in.Quantity,
		PackQuantity: in.PackQuantity,
		Unit:         in.Unit,
		ExpiryDate:   expiry,
		Location:     optionalText(in.Location),
	})
	if err != nil {
		if store.IsForeignKeyViolation(err) {
			return Item{}, common.NotFound("product")
		}
		return Item{}, fmt.Errorf("create inventory item: %w", err)
	}
	return s.Get(ctx, userID, store.UUIDString(id))
}

// Update changes a pantry entry.
func (s *Service) Update(ctx context.Context, userID, itemID string, in UpdateInput) (Item, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Item{}, err
	}
	if in.Quantity == nil && in.ExpiryDate == nil && in.Location == nil {
		return Item{}, common.NewAppError("VALIDATION_ERROR", "nothing to update", http.StatusBadRequest, nil)
	}
	uid, err := userUUID(userID)
	if err != nil {
		return Item{}, err
	}
	id, err := store.ToUUID(itemID)
	if err != nil {
		return Item{}, common.NotFound("inventory item")
	}

	params := store.UpdateInventoryItemParams{ID: id, UserID: uid}
	if in.Quantity != nil {
		params.Quantity = pgtype.Float8{Float64: *in.Quantity, Valid: true}
	}
	if in.ExpiryDate != nil {
		expiry, err := parseDate(*in.ExpiryDate)
		if err != nil {
			return Item{}, err
		}
		params.SetExpiry = true
		params.ExpiryDate = expiry
	}
	if in.Location != nil {
		params.Location = pgtype.Text{String: *in.Location, Valid: true}
	}
	n, err := s.queries.UpdateInventoryItem(ctx, params)
	if err != nil {
		return Item{}, fmt.Errorf("update inventory item: %w", err)
	}
	if n == 0 {
		return Item{}, common.NotFound("inventory item")
	}
	return s.Get(ctx, userID, itemID)
}

// Delete removes a pantry entry.
func (s *Service) Delete(ctx context.Context, userID, itemID string) error {
	uid, err := userUUID(userID)
	if err != nil {
		return err
	}
	id, err := store.ToUUID(itemID)
	if err != nil {
		return common.NotFound("inventory item")
	}
	n, err := s.queries.DeleteInventoryItem(ctx, id, uid)
	if err != nil {
		return fmt.Errorf("delete inventory item: %w", err)
	}
	if n == 0 {
		return common.NotFound("inventory item")
	}
	return nil
}

// Suggestions lists items that are running out or about to expire, soonest first.
func (s *Service) Suggestions(ctx context.Context, userID string) ([]Item, error) {
	items, err := s.List(ctx, userID, FilterAll)
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for _, it := range items {
		if it.Status != StatusNormal {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return urgency(out[i]) < urgency(out[j])
	})
	return out, nil
}

func urgency(it Item) int {
	if it.DaysLeft != nil && it.Status != StatusLow {
		return *it.DaysLeft
	}
	return 1 << 20
}

// AddToList puts the product of a pantry entry on the shopping list.
func (s *Service) AddToList(ctx context.Context, userID, itemID string) (basket.Basket, error) {
	if s.basket == nil {
		return basket.Basket{}, common.NewAppError("INTERNAL", "basket not configured", http.StatusInternalServerError, nil)
	}
	item, err := s.Get(ctx, userID, itemID)
	if err != nil {
		return basket.Basket{}, err
	}
	return s.basket.Add(ctx, userID, basket.AddInput{ProductID: item.ProductID, Quantity: 1})
}

// ScanExpiring counts stocked items across all households that expire within
// the warning window of now and publishes the count.
func (s *Service) ScanExpiring(ctx context.Context, now time.Time) (ScanResult, error) {
	y, m, d := now.Date()
	before := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, s.warnDays)
	rows, err := s.queries.ListExpiringInventory(ctx, pgtype.Date{Time: before, Valid: true})
	if err != nil {
		return ScanResult{}, fmt.Errorf("list expiring inventory: %w", err)
	}
	var res ScanResult
	households := make(map[[16]byte]struct{})
	for _, row := range rows {
		households[row.UserID.Bytes] = struct{}{}
		if DaysBetween(now, row.ExpiryDate.Time) < 0 {
			res.Expired++
		} else {
			res.Expiring++
		}
	}
	res.Households = len(households)
	obs.SetExpiringItems(res.Expiring)
	obs.Ctx(ctx).Info().
		Int("expiring", res.Expiring).
		Int("expired", res.Expired).
		Int("households", res.Households).
		Msg("inventory expiry scan")
	return res, nil
}

func (s *Service) toItem(row store.InventoryRow, now time.Time) Item {
	stock := Stock{Quantity: row.Quantity, PackQuantity: row.PackQuantity}
	item := Item{
		ID:           store.UUIDString(row.ID),
		ProductID:    store.UUIDString(row.ProductID),
		Name:         row.ProductName,
		Category:     row.Category,
		Quantity:     row.Quantity,
		PackQuantity: row.PackQuantity,
		Unit:         row.Unit,
	}
	if row.ExpiryDate.Valid {
		t := row.ExpiryDate.Time
		stock.ExpiryDate = &t
		item.ExpiryDate = t.Format(dateLayout)
	}
	if row.Location.Valid {
		item.Location = row.Location.String
	}
	item.Status, item.DaysLeft = Classify(stock, now, s.warnDays, s.lowRatio)
	return item
}

func userUUID(userID string) (pgtype.UUID, error) {
	uid, err := store.ToUUID(userID)
	if err != nil {
		return pgtype.UUID{}, common.NewAppError("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized, err)
	}
	return uid, nil
}

func parseDate(raw string) (pgtype.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return pgtype.Date{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return pgtype.Date{}, common.BadRequest("expiryDate", "must be YYYY-MM-DD", err)
	}
	return pgtype.Date{Time: t, Valid: true}, nil
}

func optionalText(v string) pgtype.Text {
	v = strings.TrimSpace(v)
	if v == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: v, Valid: true}
}
