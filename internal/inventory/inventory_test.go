package inventory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-grocer/internal/basket"
	"github.com/noah-isme/backend-grocer/internal/common"
	"github.com/noah-isme/backend-grocer/internal/store"
)

var today = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func date(days int) pgtype.Date {
	return pgtype.Date{Time: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days), Valid: true}
}

type fakeQueries struct {
	mu   sync.Mutex
	rows []store.InventoryRow
}

func (f *fakeQueries) ListInventoryItems(_ context.Context, userID pgtype.UUID) ([]store.InventoryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.InventoryRow
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeQueries) ListExpiringInventory(_ context.Context, before pgtype.Date) ([]store.InventoryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.InventoryRow
	for _, r := range f.rows {
		if r.ExpiryDate.Valid && !r.ExpiryDate.Time.After(before.Time) && r.Quantity > 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeQueries) GetInventoryItem(_ context.Context, id, userID pgtype.UUID) (store.InventoryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id && r.UserID == userID {
			return r, nil
		}
	}
	return store.InventoryRow{}, pgx.ErrNoRows
}

func (f *fakeQueries) CreateInventoryItem(_ context.Context, arg store.CreateInventoryItemParams) (pgtype.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := store.NewUUID()
	f.rows = append(f.rows, store.InventoryRow{
		ID: id, UserID: arg.UserID, ProductID: arg.ProductID, ProductName: "Milk", Category: "Dairy",
		Quantity: arg.Quantity, PackQuantity: arg.PackQuantity, Unit: arg.Unit,
		ExpiryDate: arg.ExpiryDate, Location: arg.Location,
	})
	return id, nil
}

func (f *fakeQueries) UpdateInventoryItem(_ context.Context, arg store.UpdateInventoryItemParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		r := &f.rows[i]
		if r.ID != arg.ID || r.UserID != arg.UserID {
			continue
		}
		if arg.Quantity.Valid {
			r.Quantity = arg.Quantity.Float64
		}
		if arg.SetExpiry {
			r.ExpiryDate = arg.ExpiryDate
		}
		if arg.Location.Valid {
			r.Location = arg.Location
		}
		return 1, nil
	}
	return 0, nil
}

func (f *fakeQueries) DeleteInventoryItem(_ context.Context, id, userID pgtype.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == id && r.UserID == userID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

type fakeBasket struct {
	added []basket.AddInput
}

func (f *fakeBasket) Add(_ context.Context, _ string, in basket.AddInput) (basket.Basket, error) {
	f.added = append(f.added, in)
	return basket.Basket{ID: "b1", Version: int64(len(f.added))}, nil
}

type fixture struct {
	svc    *Service
	q      *fakeQueries
	basket *fakeBasket
	user   string
	milk   string
	rice   string
	eggs   string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	user := store.NewUUID()
	other := store.NewUUID()
	milk, rice, eggs := store.NewUUID(), store.NewUUID(), store.NewUUID()
	q := &fakeQueries{rows: []store.InventoryRow{
		{ID: milk, UserID: user, ProductID: store.NewUUID(), ProductName: "Milk", Quantity: 1, PackQuantity: 1, Unit: "l", ExpiryDate: date(2)},
		{ID: rice, UserID: user, ProductID: store.NewUUID(), ProductName: "Rice", Quantity: 1, PackQuantity: 5, Unit: "kg"},
		{ID: eggs, UserID: user, ProductID: store.NewUUID(), ProductName: "Eggs", Quantity: 12, PackQuantity: 12, Unit: "pcs", ExpiryDate: date(-1)},
		{ID: store.NewUUID(), UserID: other, ProductID: store.NewUUID(), ProductName: "Bread", Quantity: 1, PackQuantity: 1, Unit: "pcs", ExpiryDate: date(1)},
	}}
	b := &fakeBasket{}
	svc := NewService(ServiceConfig{Queries: q, Basket: b, WarnDays: 3, LowRatio: 0.25}).WithNow(func() time.Time { return today })
	return fixture{
		svc: svc, q: q, basket: b,
		user: store.UUIDString(user),
		milk: store.UUIDString(milk), rice: store.UUIDString(rice), eggs: store.UUIDString(eggs),
	}
}

func TestClassify(t *testing.T) {
	in := func(days int) *time.Time {
		d := date(days).Time
		return &d
	}
	cases := []struct {
		name  string
		stock Stock
		want  Status
		days  *int
	}{
		{"normal", Stock{Quantity: 5, PackQuantity: 5}, StatusNormal, nil},
		{"low by ratio", Stock{Quantity: 1, PackQuantity: 4}, StatusLow, nil},
		{"empty", Stock{Quantity: 0, PackQuantity: 4}, StatusLow, nil},
		{"expiring today", Stock{Quantity: 5, PackQuantity: 5, ExpiryDate: in(0)}, StatusExpiring, intPtr(0)},
		{"expiring at edge", Stock{Quantity: 5, PackQuantity: 5, ExpiryDate: in(3)}, StatusExpiring, intPtr(3)},
		{"beyond window", Stock{Quantity: 5, PackQuantity: 5, ExpiryDate: in(4)}, StatusNormal, intPtr(4)},
		{"expired", Stock{Quantity: 5, PackQuantity: 5, ExpiryDate: in(-2)}, StatusExpired, intPtr(-2)},
		{"expiring beats low", Stock{Quantity: 0, PackQuantity: 5, ExpiryDate: in(1)}, StatusExpiring, intPtr(1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, days := Classify(tc.stock, today, 3, 0.25)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.days, days)
		})
	}
}

func intPtr(v int) *int { return &v }

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.svc.List(ctx, f.user, FilterAll)
	require.NoError(t, err)
	require.Len(t, all, 3)

	expiring, err := f.svc.List(ctx, f.user, FilterExpiring)
	require.NoError(t, err)
	require.Len(t, expiring, 2)
	require.Equal(t, StatusExpiring, expiring[0].Status)
	require.Equal(t, 2, *expiring[0].DaysLeft)
	require.Equal(t, StatusExpired, expiring[1].Status)

	low, err := f.svc.List(ctx, f.user, FilterLow)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, "Rice", low[0].Name)

	_, err = ParseFilter("stale")
	require.Error(t, err)
}

func TestCreateUpdateDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.Create(ctx, f.user, CreateInput{
		ProductID: store.UUIDString(store.NewUUID()), Quantity: 2, PackQuantity: 2, Unit: "l",
		ExpiryDate: "2026-03-12", Location: "fridge",
	})
	require.NoError(t, err)
	require.Equal(t, StatusExpiring, item.Status)
	require.Equal(t, "fridge", item.Location)

	none := ""
	qty := 0.25
	item, err = f.svc.Update(ctx, f.user, item.ID, UpdateInput{ExpiryDate: &none, Quantity: &qty})
	require.NoError(t, err)
	require.Empty(t, item.ExpiryDate)
	require.Equal(t, StatusLow, item.Status)

	_, err = f.svc.Update(ctx, f.user, item.ID, UpdateInput{})
	require.Error(t, err)

	bad := "12/03/2026"
	_, err = f.svc.Update(ctx, f.user, item.ID, UpdateInput{ExpiryDate: &bad})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)

	require.NoError(t, f.svc.Delete(ctx, f.user, item.ID))
	err = f.svc.Delete(ctx, f.user, item.ID)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}

func TestSuggestionsAndAddToList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	items, err := f.svc.Suggestions(ctx, f.user)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "Eggs", items[0].Name)
	require.Equal(t, "Milk", items[1].Name)
	require.Equal(t, "Rice", items[2].Name)

	b, err := f.svc.AddToList(ctx, f.user, f.rice)
	require.NoError(t, err)
	require.Equal(t, int64(1), b.Version)
	require.Len(t, f.basket.added, 1)
	require.Equal(t, items[2].ProductID, f.basket.added[0].ProductID)

	_, err = f.svc.AddToList(ctx, f.user, store.UUIDString(store.NewUUID()))
	require.Error(t, err)
}

func TestScanExpiring(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.ScanExpiring(context.Background(), today)
	require.NoError(t, err)
	require.Equal(t, ScanResult{Expiring: 2, Expired: 1, Households: 2}, res)
}

func TestHandlers(t *testing.T) {
	f := newFixture(t)
	h := &Handler{Service: f.svc}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(common.WithUserID(req.Context(), f.user)))
		})
	})
	r.Get("/inventory", h.List)
	r.Post("/inventory", h.Create)
	r.Delete("/inventory/{id}", h.Delete)
	r.Post("/inventory/{id}/add-to-list", h.AddToList)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inventory?filter=low", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"Rice"`)
	require.NotContains(t, rec.Body.String(), `"Milk"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inventory?filter=bogus", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	body := `{"productId":"` + store.UUIDString(store.NewUUID()) + `","quantity":1,"packQuantity":1,"unit":"kg"}`
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/inventory", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/inventory", strings.NewReader(`{"quantity":1}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/inventory/"+f.milk+"/add-to-list", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/inventory/"+f.eggs, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	unauth := httptest.NewRecorder()
	h.List(unauth, httptest.NewRequest(http.MethodGet, "/inventory", nil))
	require.Equal(t, http.StatusUnauthorized, unauth.Code)
}
