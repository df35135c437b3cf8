package basket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-grocer/internal/common"
	"github.com/noah-isme/backend-grocer/internal/store"
)

type fakeQueries struct {
	mu       sync.Mutex
	products map[pgtype.UUID]store.Product
	baskets  map[pgtype.UUID]*store.Basket
	items    []store.BasketItem
}

func newFakeQueries(products ...store.Product) *fakeQueries {
	f := &fakeQueries{products: map[pgtype.UUID]store.Product{}, baskets: map[pgtype.UUID]*store.Basket{}}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeQueries) EnsureActiveBasket(_ context.Context, userID pgtype.UUID) (store.Basket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.baskets[userID]; ok {
		return *b, nil
	}
	b := &store.Basket{ID: store.NewUUID(), UserID: userID, Status: "active"}
	f.baskets[userID] = b
	return *b, nil
}

func (f *fakeQueries) BumpBasketVersion(_ context.Context, id pgtype.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.baskets {
		if b.ID == id {
			b.Version++
			return b.Version, nil
		}
	}
	return 0, pgx.ErrNoRows
}

func (f *fakeQueries) ListBasketItems(_ context.Context, arg store.ListBasketItemsParams) ([]store.ListBasketItemsRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []store.ListBasketItemsRow
	for _, it := range f.items {
		if it.BasketID != arg.BasketID {
			continue
		}
		p := f.products[it.ProductID]
		if c, ok := arg.Category.(string); ok && p.Category != c {
			continue
		}
		rows = append(rows, store.ListBasketItemsRow{ID: it.ID, ProductID: it.ProductID, ProductName: p.Name, Category: p.Category, Unit: p.Unit, Quantity: it.Quantity, Checked: it.Checked})
	}
	return rows, nil
}

func (f *fakeQueries) AddBasketItem(_ context.Context, arg store.AddBasketItemParams) (store.BasketItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].BasketID == arg.BasketID && f.items[i].ProductID == arg.ProductID {
			f.items[i].Quantity += arg.Quantity
			return f.items[i], nil
		}
	}
	it := store.BasketItem{ID: store.NewUUID(), BasketID: arg.BasketID, ProductID: arg.ProductID, Quantity: arg.Quantity}
	f.items = append(f.items, it)
	return it, nil
}

func (f *fakeQueries) UpdateBasketItem(_ context.Context, arg store.UpdateBasketItemParams) (store.BasketItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == arg.ID && f.items[i].BasketID == arg.BasketID {
			if arg.Quantity.Valid {
				f.items[i].Quantity = arg.Quantity.Int32
			}
			if arg.Checked.Valid {
				f.items[i].Checked = arg.Checked.Bool
			}
			return f.items[i], nil
		}
	}
	return store.BasketItem{}, pgx.ErrNoRows
}

func (f *fakeQueries) DeleteBasketItem(_ context.Context, id, basketID pgtype.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id && f.items[i].BasketID == basketID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeQueries) GetProductByID(_ context.Context, id pgtype.UUID) (store.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return store.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

var (
	milk  = store.Product{ID: store.NewUUID(), Name: "Milk 1L", Category: "dairy", Unit: "l"}
	bread = store.Product{ID: store.NewUUID(), Name: "Brown Bread", Category: "bakery", Unit: "pack"}
)

func TestAddMergesQuantitiesAndBumpsVersion(t *testing.T) {
	svc := NewService(newFakeQueries(milk, bread))
	ctx := context.Background()
	user := store.UUIDString(store.NewUUID())

	empty, err := svc.Get(ctx, user, "")
	require.NoError(t, err)
	require.Empty(t, empty.Items)

	b, err := svc.Add(ctx, user, AddInput{ProductID: store.UUIDString(milk.ID)})
	require.NoError(t, err)
	require.Equal(t, int64(1), b.Version)
	require.Equal(t, int32(1), b.Items[0].Quantity)

	b, err = svc.Add(ctx, user, AddInput{ProductID: store.UUIDString(milk.ID), Quantity: 2})
	require.NoError(t, err)
	require.Len(t, b.Items, 1)
	require.Equal(t, int32(3), b.Items[0].Quantity)
	require.Equal(t, int64(2), b.Version)

	_, err = svc.Add(ctx, user, AddInput{ProductID: store.UUIDString(bread.ID)})
	require.NoError(t, err)
	dairy, err := svc.Get(ctx, user, "dairy")
	require.NoError(t, err)
	require.Len(t, dairy.Items, 1)
	require.Equal(t, "Milk 1L", dairy.Items[0].Name)
}

func TestAddUnknownProduct(t *testing.T) {
	svc := NewService(newFakeQueries())
	_, err := svc.Add(context.Background(), store.UUIDString(store.NewUUID()), AddInput{ProductID: store.UUIDString(store.NewUUID())})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}

func TestUpdateAndRemove(t *testing.T) {
	svc := NewService(newFakeQueries(milk))
	ctx := context.Background()
	user := store.UUIDString(store.NewUUID())
	b, err := svc.Add(ctx, user, AddInput{ProductID: store.UUIDString(milk.ID)})
	require.NoError(t, err)
	itemID := b.Items[0].ID

	checked := true
	b, err = svc.Update(ctx, user, itemID, UpdateInput{Checked: &checked})
	require.NoError(t, err)
	require.True(t, b.Items[0].Checked)

	_, err = svc.Update(ctx, user, itemID, UpdateInput{})
	require.Error(t, err)

	other := store.UUIDString(store.NewUUID())
	_, err = svc.Remove(ctx, other, itemID)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)

	b, err = svc.Remove(ctx, user, itemID)
	require.NoError(t, err)
	require.Empty(t, b.Items)
}

func TestHandlers(t *testing.T) {
	h := &Handler{Service: NewService(newFakeQueries(milk))}
	user := store.UUIDString(store.NewUUID())
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(common.WithUserID(r.Context(), user)))
		})
	})
	r.Get("/api/v1/basket/items", h.List)
	r.Post("/api/v1/basket/items", h.Add)
	r.Patch("/api/v1/basket/items/{itemId}", h.Update)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/basket/items", strings.NewReader(`{"productId":"`+store.UUIDString(milk.ID)+`","quantity":2}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"quantity":2`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/basket/items", strings.NewReader(`{"productId":"`+store.UUIDString(milk.ID)+`","quantity":0,"extra":1}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/basket/items/"+store.UUIDString(store.NewUUID()), strings.NewReader(`{"quantity":4}`)))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/basket/items", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Milk 1L")
}
