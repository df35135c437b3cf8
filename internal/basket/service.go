package basket

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-grocer/internal/common"
	"github.com/noah-isme/backend-grocer/internal/store"
)

type queryProvider interface {
	EnsureActiveBasket(ctx context.Context, userID pgtype.UUID) (store.Basket, error)
	BumpBasketVersion(ctx context.Context, id pgtype.UUID) (int64, error)
	ListBasketItems(ctx context.Context, arg store.ListBasketItemsParams) ([]store.ListBasketItemsRow, error)
	AddBasketItem(ctx context.Context, arg store.AddBasketItemParams) (store.BasketItem, error)
	UpdateBasketItem(ctx context.Context, arg store.UpdateBasketItemParams) (store.BasketItem, error)
	DeleteBasketItem(ctx context.Context, id, basketID pgtype.UUID) (int64, error)
	GetProductByID(ctx context.Context, id pgtype.UUID) (store.Product, error)
}

// Item is one line of the shopping list.
type Item struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Unit      string `json:"unit"`
	Quantity  int32  `json:"quantity"`
	Checked   bool   `json:"checked"`
}

// Basket is a household's current shopping list. Version grows with every
// mutation and keys cached comparisons.
type Basket struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
	Items   []Item `json:"items"`
}

// AddInput adds a product to the list. Adding a product already listed
// increases its quantity.
type AddInput struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int32  `json:"quantity" validate:"omitempty,min=1,max=999"`
}

// UpdateInput changes the quantity or checked flag of a line.
type UpdateInput struct {
	Quantity *int32 `json:"quantity" validate:"omitempty,min=1,max=999"`
	Checked  *bool  `json:"checked"`
}

// Service manages the active basket of each user.
type Service struct {
	queries queryProvider
}

// NewService constructs a Service.
func NewService(q queryProvider) *Service {
	return &Service{queries: q}
}

// Get returns the active basket, creating an empty one on first use. A
// non-empty category limits the items returned.
func (s *Service) Get(ctx context.Context, userID, category string) (Basket, error) {
	b, err := s.active(ctx, userID)
	if err != nil {
		return Basket{}, err
	}
	return s.load(ctx, b.ID, b.Version, category)
}

// Add puts a product on the list.
func (s *Service) Add(ctx context.Context, userID string, in AddInput) (Basket, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Basket{}, err
	}
	productID, err := store.ToUUID(in.ProductID)
	if err != nil {
		return Basket{}, common.BadRequest("productId", "invalid product id", err)
	}
	if _, err := s.queries.GetProductByID(ctx, productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Basket{}, common.NotFound("product")
		}
		return Basket{}, fmt.Errorf("get product: %w", err)
	}
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}

	b, err := s.active(ctx, userID)
	if err != nil {
		return Basket{}, err
	}
	if _, err := s.queries.AddBasketItem(ctx, store.AddBasketItemParams{BasketID: b.ID, ProductID: productID, Quantity: qty}); err != nil {
		return Basket{}, fmt.Errorf("add basket item: %w", err)
	}
	return s.touched(ctx, b.ID)
}

// Update changes a line of the list.
func (s *Service) Update(ctx context.Context, userID, itemID string, in UpdateInput) (Basket, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Basket{}, err
	}
	if in.Quantity == nil && in.Checked == nil {
		return Basket{}, common.NewAppError("VALIDATION_ERROR", "nothing to update", http.StatusBadRequest, nil)
	}
	id, err := store.ToUUID(itemID)
	if err != nil {
		return Basket{}, common.NotFound("basket item")
	}
	b, err := s.active(ctx, userID)
	if err != nil {
		return Basket{}, err
	}

	params := store.UpdateBasketItemParams{ID: id, BasketID: b.ID}
	if in.Quantity != nil {
		params.Quantity = pgtype.Int4{Int32: *in.Quantity, Valid: true}
	}
	if in.Checked != nil {
		params.Checked = pgtype.Bool{Bool: *in.Checked, Valid: true}
	}
	if _, err := s.queries.UpdateBasketItem(ctx, params); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Basket{}, common.NotFound("basket item")
		}
		return Basket{}, fmt.Errorf("update basket item: %w", err)
	}
	return s.touched(ctx, b.ID)
}

// Remove deletes a line of the list.
func (s *Service) Remove(ctx context.Context, userID, itemID string) (Basket, error) {
	id, err := store.ToUUID(itemID)
	if err != nil {
		return Basket{}, common.NotFound("basket item")
	}
	b, err := s.active(ctx, userID)
	if err != nil {
		return Basket{}, err
	}
	n, err := s.queries.DeleteBasketItem(ctx, id, b.ID)
	if err != nil {
		return Basket{}, fmt.Errorf("delete basket item: %w", err)
	}
	if n == 0 {
		return Basket{}, common.NotFound("basket item")
	}
	return s.touched(ctx, b.ID)
}

func (s *Service) active(ctx context.Context, userID string) (store.Basket, error) {
	uid, err := store.ToUUID(userID)
	if err != nil {
		return store.Basket{}, common.NewAppError("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized, err)
	}
	b, err := s.queries.EnsureActiveBasket(ctx, uid)
	if err != nil {
		return store.Basket{}, fmt.Errorf("ensure basket: %w", err)
	}
	return b, nil
}

func (s *Service) touched(ctx context.Context, basketID pgtype.UUID) (Basket, error) {
	version, err := s.queries.BumpBasketVersion(ctx, basketID)
	if err != nil {
		return Basket{}, fmt.Errorf("bump basket version: %w", err)
	}
	return s.load(ctx, basketID, version, "")
}

func (s *Service) load(ctx context.Context, basketID pgtype.UUID, version int64, category string) (Basket, error) {
	var cat any
	if category != "" {
		cat = category
	}
	rows, err := s.queries.ListBasketItems(ctx, store.ListBasketItemsParams{BasketID: basketID, Category: cat})
	if err != nil {
		return Basket{}, fmt.Errorf("list basket items: %w", err)
	}
	out := Basket{ID: store.UUIDString(basketID), Version: version, Items: make([]Item, 0, len(rows))}
	for _, row := range rows {
		out.Items = append(out.Items, Item{
			ID:        store.UUIDString(row.ID),
			ProductID: store.UUIDString(row.ProductID),
			Name:      row.ProductName,
			Category:  row.Category,
			Unit:      row.Unit,
			Quantity:  row.Quantity,
			Checked:   row.Checked,
		})
	}
	return out, nil
}
