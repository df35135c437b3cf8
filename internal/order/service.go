package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-grocer/internal/common"
	"github.com/noah-isme/backend-grocer/internal/compare"
	"github.com/noah-isme/backend-grocer/internal/obs"
	"github.com/noah-isme/backend-grocer/internal/pricing"
	"github.com/noah-isme/backend-grocer/internal/store"
	"github.com/noah-isme/backend-grocer/internal/vendor"
)

const (
	ModeOptimal = "optimal"
	modeSingle  = "single:"
)

type comparer interface {
	Recompare(ctx context.Context, userID string) (compare.BasketComparison, error)
}

type vendorLister interface {
	List(ctx context.Context) ([]vendor.Vendor, error)
}

type queryProvider interface {
	CountOrdersForUser(ctx context.Context, userID pgtype.UUID, status interface{}) (int64, error)
	ListOrdersForUser(ctx context.Context, arg store.ListOrdersForUserParams) ([]store.Order, error)
	GetOrderForUser(ctx context.Context, id, userID pgtype.UUID) (store.Order, error)
	ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]store.ListOrderItemsRow, error)
	UpdateOrderStatus(ctx context.Context, id pgtype.UUID, status string) error
}

// Writer is the set of queries placing an order runs inside one transaction.
type Writer interface {
	CreateOrder(ctx context.Context, arg store.CreateOrderParams) (store.Order, error)
	CreateOrderItem(ctx context.Context, arg store.CreateOrderItemParams) error
	SetBasketStatus(ctx context.Context, id pgtype.UUID, status string) error
}

// TxFunc runs fn in a transaction, committing when it returns nil.
type TxFunc func(ctx context.Context, fn func(Writer) error) error

// PoolTx adapts a pgx pool to TxFunc.
func PoolTx(b store.TxBeginner) TxFunc {
	return func(ctx context.Context, fn func(Writer) error) error {
		return store.InTx(ctx, b, func(q *store.Queries) error { return fn(q) })
	}
}

// Summary is an order as shown in the order history.
type Summary struct {
	ID          string        `json:"id"`
	OrderNumber string        `json:"orderNumber"`
	Status      Status        `json:"status"`
	Mode        string        `json:"mode"`
	Subtotal    pricing.Money `json:"subtotal"`
	DeliveryFee pricing.Money `json:"deliveryFee"`
	Tax         pricing.Money `json:"tax"`
	Total       pricing.Money `json:"total"`
	Savings     pricing.Money `json:"savings"`
	IsAutoOrder bool          `json:"isAutoOrder"`
	PlacedAt    time.Time     `json:"placedAt"`
}

// Line is one product of an order.
type Line struct {
	ProductID  string        `json:"productId"`
	Name       string        `json:"name"`
	Quantity   int32         `json:"quantity"`
	UnitPrice  pricing.Money `json:"unitPrice"`
	TotalPrice pricing.Money `json:"totalPrice"`
}

// VendorGroup collects the lines bought from one vendor.
type VendorGroup struct {
	Vendor     string        `json:"vendor"`
	VendorName string        `json:"vendorName"`
	Subtotal   pricing.Money `json:"subtotal"`
	Items      []Line        `json:"items"`
}

// Detail is an order with its lines grouped by vendor.
type Detail struct {
	Summary
	Vendors []VendorGroup `json:"vendors"`
}

// ListParams filters the order history.
type ListParams struct {
	Status  string
	Page    int
	PerPage int
}

// Service places and tracks orders.
type Service struct {
	compare comparer
	vendors vendorLister
	queries queryProvider
	tx      TxFunc
	taxBps  int
	now     func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Compare comparer
	Vendors vendorLister
	Queries queryProvider
	Tx      TxFunc
	TaxBPS  int
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Compare == nil || cfg.Vendors == nil || cfg.Queries == nil || cfg.Tx == nil {
		return nil, errors.New("order: compare, vendors, queries and tx are required")
	}
	return &Service{compare: cfg.Compare, vendors: cfg.Vendors, queries: cfg.Queries, tx: cfg.Tx, taxBps: cfg.TaxBPS, now: time.Now}, nil
}

// Place turns the active basket into an order. Mode "optimal" buys every
// item from its cheapest vendor; "single:<vendor>" buys everything from one
// vendor, which must stock the whole list. The basket is closed in the same
// transaction.
func (s *Service) Place(ctx context.Context, userID, mode string) (Detail, error) {
	uid, err := store.ToUUID(userID)
	if err != nil {
		return Detail{}, common.NewAppError("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized, err)
	}
	single, err := parseMode(mode)
	if err != nil {
		return Detail{}, err
	}

	cmp, err := s.compare.Recompare(ctx, userID)
	if err != nil {
		return Detail{}, compare.ToAppError(err)
	}
	vendors, err := s.vendors.List(ctx)
	if err != nil {
		return Detail{}, err
	}
	bySlug := make(map[string]vendor.Vendor, len(vendors))
	terms := make(map[string]pricing.DeliveryTerms, len(vendors))
	for _, v := range vendors {
		bySlug[v.Slug] = v
		terms[v.Slug] = pricing.DeliveryTerms{Fee: v.DeliveryFee, FreeThreshold: v.FreeDeliveryThreshold}
	}

	lines, err := assign(cmp, single)
	if err != nil {
		return Detail{}, err
	}
	split := pricing.SplitSummary(lines, terms, s.taxBps)
	for slug, sub := range split.Vendors {
		if minimum := bySlug[slug].MinOrderValue; minimum > 0 && sub.Subtotal < minimum {
			return Detail{}, common.NewAppError("BELOW_MINIMUM_ORDER", "order for "+slug+" is below the vendor minimum", http.StatusUnprocessableEntity, nil).
				WithDetails(map[string]any{"vendor": slug, "subtotal": sub.Subtotal, "minimum": minimum})
		}
	}

	var highest pricing.Money
	for _, total := range cmp.SingleVendorTotals {
		if total > highest {
			highest = total
		}
	}
	savings := highest - split.Total.Subtotal
	if savings < 0 {
		savings = 0
	}

	basketID, err := store.ToUUID(cmp.BasketID)
	if err != nil {
		return Detail{}, fmt.Errorf("basket id: %w", err)
	}
	modeLabel := ModeOptimal
	if single != "" {
		modeLabel = modeSingle + string(single)
	}

	var created store.Order
	err = s.tx(ctx, func(w Writer) error {
		created, err = w.CreateOrder(ctx, store.CreateOrderParams{
			UserID:      uid,
			OrderNumber: s.orderNumber(),
			Mode:        modeLabel,
			Subtotal:    split.Total.Subtotal,
			DeliveryFee: split.Total.Delivery,
			Tax:         split.Total.Tax,
			Total:       split.Total.Total,
			Savings:     savings,
		})
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		for i, line := range lines {
			v := bySlug[line.Vendor]
			vid, err := store.ToUUID(v.ID)
			if err != nil {
				return fmt.Errorf("vendor %s: %w", line.Vendor, err)
			}
			pid, err := store.ToUUID(cmp.Items[i].ProductID)
			if err != nil {
				return fmt.Errorf("product %s: %w", cmp.Items[i].ProductID, err)
			}
			if err := w.CreateOrderItem(ctx, store.CreateOrderItemParams{
				OrderID:    created.ID,
				VendorID:   vid,
				ProductID:  pid,
				Quantity:   int32(line.Qty),
				UnitPrice:  line.UnitPrice,
				TotalPrice: line.UnitPrice * pricing.Money(line.Qty),
			}); err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
		}
		if err := w.SetBasketStatus(ctx, basketID, "ordered"); err != nil {
			return fmt.Errorf("close basket: %w", err)
		}
		return nil
	})
	if err != nil {
		return Detail{}, err
	}

	obs.ObserveOrderPlaced(strings.SplitN(modeLabel, ":", 2)[0])
	obs.Ctx(ctx).Info().Str("order_number", created.OrderNumber).Str("mode", modeLabel).Int64("total", created.Total).Msg("order placed")

	detail := Detail{Summary: toSummary(created)}
	groups := make(map[string]int)
	for i, line := range lines {
		idx, ok := groups[line.Vendor]
		if !ok {
			idx = len(detail.Vendors)
			groups[line.Vendor] = idx
			detail.Vendors = append(detail.Vendors, VendorGroup{Vendor: line.Vendor, VendorName: bySlug[line.Vendor].Name})
		}
		total := line.UnitPrice * pricing.Money(line.Qty)
		detail.Vendors[idx].Subtotal += total
		detail.Vendors[idx].Items = append(detail.Vendors[idx].Items, Line{
			ProductID:  cmp.Items[i].ProductID,
			Name:       cmp.Items[i].Name,
			Quantity:   int32(line.Qty),
			UnitPrice:  line.UnitPrice,
			TotalPrice: total,
		})
	}
	return detail, nil
}

// List returns the user's orders, newest first.
func (s *Service) List(ctx context.Context, userID string, params ListParams) ([]Summary, int64, error) {
	uid, err := store.ToUUID(userID)
	if err != nil {
		return nil, 0, common.NewAppError("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized, err)
	}
	var status any
	if params.Status != "" {
		if !Status(params.Status).Valid() {
			return nil, 0, common.BadRequest("status", "unknown order status", nil)
		}
		status = params.Status
	}
	total, err := s.queries.CountOrdersForUser(ctx, uid, status)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := s.queries.ListOrdersForUser(ctx, store.ListOrdersForUserParams{
		UserID: uid,
		Status: status,
		Limit:  int32(params.PerPage),
		Offset: common.Offset(params.Page, params.PerPage),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSummary(row))
	}
	return out, total, nil
}

// Get returns one of the user's orders with lines grouped by vendor.
func (s *Service) Get(ctx context.Context, userID, orderID string) (Detail, error) {
	o, err := s.load(ctx, userID, orderID)
	if err != nil {
		return Detail{}, err
	}
	rows, err := s.queries.ListOrderItems(ctx, o.ID)
	if err != nil {
		return Detail{}, fmt.Errorf("list order items: %w", err)
	}
	detail := Detail{Summary: toSummary(o), Vendors: []VendorGroup{}}
	groups := make(map[string]int)
	for _, row := range rows {
		idx, ok := groups[row.VendorSlug]
		if !ok {
			idx = len(detail.Vendors)
			groups[row.VendorSlug] = idx
			detail.Vendors = append(detail.Vendors, VendorGroup{Vendor: row.VendorSlug, VendorName: row.VendorName})
		}
		detail.Vendors[idx].Subtotal += row.TotalPrice
		detail.Vendors[idx].Items = append(detail.Vendors[idx].Items, Line{
			ProductID:  store.UUIDString(row.ProductID),
			Name:       row.ProductName,
			Quantity:   row.Quantity,
			UnitPrice:  row.UnitPrice,
			TotalPrice: row.TotalPrice,
		})
	}
	return detail, nil
}

// Cancel cancels an order that has not started processing.
func (s *Service) Cancel(ctx context.Context, userID, orderID string) (Summary, error) {
	o, err := s.load(ctx, userID, orderID)
	if err != nil {
		return Summary{}, err
	}
	if !CanTransition(Status(o.Status), StatusCancelled) {
		return Summary{}, common.NewAppError("INVALID_STATE", "only pending or confirmed orders can be cancelled", http.StatusConflict, nil).
			WithDetails(map[string]any{"status": o.Status})
	}
	if err := s.queries.UpdateOrderStatus(ctx, o.ID, string(StatusCancelled)); err != nil {
		return Summary{}, fmt.Errorf("cancel order: %w", err)
	}
	o.Status = string(StatusCancelled)
	return toSummary(o), nil
}

func (s *Service) load(ctx context.Context, userID, orderID string) (store.Order, error) {
	uid, err := store.ToUUID(userID)
	if err != nil {
		return store.Order{}, common.NewAppError("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized, err)
	}
	oid, err := store.ToUUID(orderID)
	if err != nil {
		return store.Order{}, common.NotFound("order")
	}
	o, err := s.queries.GetOrderForUser(ctx, oid, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Order{}, common.NotFound("order")
		}
		return store.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// assign picks the vendor and unit price of every basket line, in basket order.
func assign(cmp compare.BasketComparison, single compare.VendorID) ([]pricing.SplitLine, error) {
	if single != "" {
		if _, ok := cmp.SingleVendorTotals[single]; !ok {
			return nil, common.NewAppError("VENDOR_CANNOT_FULFIL", "vendor "+string(single)+" does not stock every item on the list", http.StatusUnprocessableEntity, nil).
				WithDetails(map[string]any{"vendor": single})
		}
	}
	lines := make([]pricing.SplitLine, 0, len(cmp.Items))
	for _, item := range cmp.Items {
		v := single
		if v == "" {
			v = item.BestVendor
		}
		unit, ok := item.UnitPrices[v]
		if !ok {
			return nil, fmt.Errorf("order: no unit price for %s at %s", item.ItemID, v)
		}
		lines = append(lines, pricing.SplitLine{Vendor: string(v), Item: pricing.Item{Qty: int(item.Quantity), UnitPrice: unit}})
	}
	return lines, nil
}

func parseMode(mode string) (compare.VendorID, error) {
	mode = strings.TrimSpace(mode)
	switch {
	case mode == "" || mode == ModeOptimal:
		return "", nil
	case strings.HasPrefix(mode, modeSingle) && len(mode) > len(modeSingle):
		return compare.VendorID(strings.TrimPrefix(mode, modeSingle)), nil
	default:
		return "", common.BadRequest("mode", `mode must be "optimal" or "single:<vendor>"`, nil)
	}
}

func (s *Service) orderNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "GRC-" + s.now().UTC().Format("20060102") + "-" + id[:8]
}

func toSummary(o store.Order) Summary {
	out := Summary{
		ID:          store.UUIDString(o.ID),
		OrderNumber: o.OrderNumber,
		Status:      Status(o.Status),
		Mode:        o.Mode,
		Subtotal:    o.Subtotal,
		DeliveryFee: o.DeliveryFee,
		Tax:         o.Tax,
		Total:       o.Total,
		Savings:     o.Savings,
		IsAutoOrder: o.IsAutoOrder,
	}
	if o.PlacedAt.Valid {
		out.PlacedAt = o.PlacedAt.Time
	}
	return out
}
