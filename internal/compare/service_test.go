package compare_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/backend-grocer/internal/basket"
	"github.com/noah-isme/backend-grocer/internal/cache"
	"github.com/noah-isme/backend-grocer/internal/common"
	"github.com/noah-isme/backend-grocer/internal/compare"
	"github.com/noah-isme/backend-grocer/internal/pricing"
	"github.com/noah-isme/backend-grocer/internal/store"
)

type fakeBaskets struct {
	basket basket.Basket
}

func (f *fakeBaskets) Get(context.Context, string, string) (basket.Basket, error) {
	return f.basket, nil
}

type fakeQuotes struct {
	rows  []store.ListQuotesForProductsRow
	calls int
}

func (f *fakeQuotes) ListQuotesForProducts(_ context.Context, ids []pgtype.UUID) ([]store.ListQuotesForProductsRow, error) {
	f.calls++
	wanted := make(map[pgtype.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []store.ListQuotesForProductsRow
	for _, r := range f.rows {
		if wanted[r.ProductID] {
			out = append(out, r)
		}
	}
	return out, nil
}

type fixedPriority []string

func (p fixedPriority) Priority(context.Context) ([]string, error) { return p, nil }

var (
	milkID  = store.NewUUID()
	breadID = store.NewUUID()
	eggsID  = store.NewUUID()
)

func quote(product pgtype.UUID, vendor string, price pricing.Money, inStock bool) store.ListQuotesForProductsRow {
	return store.ListQuotesForProductsRow{ProductID: product, VendorSlug: vendor, CurrentPrice: price, InStock: inStock}
}

func sampleQuotes() *fakeQuotes {
	return &fakeQuotes{rows: []store.ListQuotesForProductsRow{
		quote(milkID, "amazon", 5800, true), quote(milkID, "flipkart", 5200, true), quote(milkID, "jiomart", 5500, true), quote(milkID, "blinkit", 6000, true),
		quote(breadID, "amazon", 4200, true), quote(breadID, "flipkart", 4500, true), quote(breadID, "jiomart", 4300, true), quote(breadID, "blinkit", 4000, true),
		quote(eggsID, "amazon", 6800, true), quote(eggsID, "flipkart", 6500, true), quote(eggsID, "jiomart", 7000, true), quote(eggsID, "blinkit", 6500, true),
		quote(eggsID, "bigbasket", 100, true),
	}}
}

func sampleBasket() basket.Basket {
	return basket.Basket{ID: "basket-1", Version: 3, Items: []basket.Item{
		{ID: "line-milk", ProductID: store.UUIDString(milkID), Name: "Milk 1L", Quantity: 2},
		{ID: "line-bread", ProductID: store.UUIDString(breadID), Name: "Brown Bread", Quantity: 1},
		{ID: "line-eggs", ProductID: store.UUIDString(eggsID), Name: "Eggs (12)", Quantity: 1},
	}}
}

var vendorOrder = fixedPriority{"amazon", "flipkart", "jiomart", "blinkit"}

func newService(t *testing.T, b basket.Basket, q *fakeQuotes, c *cache.JSON) *compare.Service {
	t.Helper()
	svc, err := compare.NewService(compare.ServiceConfig{Baskets: &fakeBaskets{basket: b}, Quotes: q, Vendors: vendorOrder, Cache: c})
	require.NoError(t, err)
	return svc
}

func TestCompareBasketScalesByQuantity(t *testing.T) {
	svc := newService(t, sampleBasket(), sampleQuotes(), nil)
	res, err := svc.CompareBasket(context.Background(), "user")
	require.NoError(t, err)

	want := compare.Result{
		PerItemBestVendor:  map[string]compare.VendorID{"line-milk": "flipkart", "line-bread": "blinkit", "line-eggs": "flipkart"},
		OptimalSplitTotal:  10400 + 4000 + 6500,
		SingleVendorTotals: map[compare.VendorID]pricing.Money{"amazon": 22600, "flipkart": 21400, "jiomart": 22300, "blinkit": 22500},
		Savings:            22600 - 20900,
	}
	if diff := cmp.Diff(want, res.Result); diff != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", diff)
	}
	require.Equal(t, compare.VendorID("flipkart"), res.CheapestVendor)
	require.Equal(t, pricing.Money(21400), res.CheapestVendorTotal)
	require.Equal(t, pricing.Money(5200), res.Items[0].UnitPrices["flipkart"])
	require.NotContains(t, res.Items[2].Prices, compare.VendorID("bigbasket"))
}

func TestCompareBasketTreatsOutOfStockAsUnavailable(t *testing.T) {
	q := sampleQuotes()
	for i := range q.rows {
		if q.rows[i].ProductID == breadID && q.rows[i].VendorSlug == "blinkit" {
			q.rows[i].InStock = false
		}
	}
	res, err := newService(t, sampleBasket(), q, nil).CompareBasket(context.Background(), "user")
	require.NoError(t, err)
	require.Equal(t, compare.VendorID("amazon"), res.PerItemBestVendor["line-bread"])
	require.NotContains(t, res.SingleVendorTotals, compare.VendorID("blinkit"))
}

func TestCompareBasketErrors(t *testing.T) {
	_, err := newService(t, basket.Basket{ID: "empty"}, sampleQuotes(), nil).CompareBasket(context.Background(), "user")
	require.ErrorAs(t, err, new(compare.EmptyCatalogError))

	b := sampleBasket()
	b.Items = append(b.Items, basket.Item{ID: "line-saffron", ProductID: store.UUIDString(store.NewUUID()), Name: "Saffron", Quantity: 1})
	_, err = newService(t, b, sampleQuotes(), nil).CompareBasket(context.Background(), "user")
	var noQuote compare.NoQuoteError
	require.ErrorAs(t, err, &noQuote)
	require.Equal(t, "Saffron", noQuote.Name)

	var appErr *common.AppError
	require.ErrorAs(t, compare.ToAppError(err), &appErr)
	require.Equal(t, "NO_QUOTE", appErr.Code)
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
}

func TestCompareBasketUsesCachePerVersion(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.New(client, time.Minute)

	q := sampleQuotes()
	b := &fakeBaskets{basket: sampleBasket()}
	svc, err := compare.NewService(compare.ServiceConfig{Baskets: b, Quotes: q, Vendors: vendorOrder, Cache: c})
	require.NoError(t, err)

	first, err := svc.CompareBasket(context.Background(), "user")
	require.NoError(t, err)
	second, err := svc.CompareBasket(context.Background(), "user")
	require.NoError(t, err)
	require.Equal(t, 1, q.calls)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("cached result differs (-first +second):\n%s", diff)
	}

	b.basket.Version++
	_, err = svc.CompareBasket(context.Background(), "user")
	require.NoError(t, err)
	require.Equal(t, 2, q.calls)
}

func TestComparisonFollowsPriceChanges(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.New(client, time.Minute)
	ctx := context.Background()

	q := sampleQuotes()
	svc := newService(t, sampleBasket(), q, c)
	before, err := svc.CompareBasket(ctx, "user")
	require.NoError(t, err)
	require.Equal(t, pricing.Money(20900), before.OptimalSplitTotal)

	for i := range q.rows {
		if q.rows[i].ProductID == milkID && q.rows[i].VendorSlug == "flipkart" {
			q.rows[i].CurrentPrice = 100
		}
	}

	placed, err := svc.Recompare(ctx, "user")
	require.NoError(t, err)
	require.Equal(t, 2, q.calls)
	require.Equal(t, pricing.Money(200+4000+6500), placed.OptimalSplitTotal)
	require.Equal(t, pricing.Money(100), placed.Items[0].UnitPrices["flipkart"])

	cached, err := svc.CompareBasket(ctx, "user")
	require.NoError(t, err)
	require.Equal(t, 2, q.calls, "recompare refreshes the cached entry")
	require.Equal(t, placed.OptimalSplitTotal, cached.OptimalSplitTotal)

	for i := range q.rows {
		if q.rows[i].ProductID == breadID && q.rows[i].VendorSlug == "blinkit" {
			q.rows[i].InStock = false
		}
	}
	require.NoError(t, c.DeletePrefix(ctx, cache.ComparePrefix()))
	after, err := svc.CompareBasket(ctx, "user")
	require.NoError(t, err)
	require.Equal(t, 3, q.calls)
	require.Equal(t, compare.VendorID("amazon"), after.PerItemBestVendor["line-bread"])
	require.NotContains(t, after.SingleVendorTotals, compare.VendorID("blinkit"))
}

func TestCatalogHandler(t *testing.T) {
	h := &compare.Handler{Service: newService(t, sampleBasket(), sampleQuotes(), nil), Currency: "INR"}

	body := `{"items":[
		{"itemId":"milk","name":"Milk","prices":{"A":58,"B":52,"C":55,"D":60}},
		{"itemId":"bread","name":"Bread","prices":{"A":42,"B":45,"C":43,"D":40}},
		{"itemId":"eggs","name":"Eggs","prices":{"A":68,"B":65,"C":70,"D":65}}
	],"priority":["A","B","C","D"]}`
	rec := httptest.NewRecorder()
	h.Catalog(rec, httptest.NewRequest(http.MethodPost, "/api/v1/compare", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Result         compare.Result    `json:"result"`
			CheapestVendor compare.VendorID `json:"cheapestVendor"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, pricing.Money(157), resp.Data.Result.OptimalSplitTotal)
	require.Equal(t, pricing.Money(11), resp.Data.Result.Savings)
	require.Equal(t, compare.VendorID("B"), resp.Data.CheapestVendor)

	rec = httptest.NewRecorder()
	h.Catalog(rec, httptest.NewRequest(http.MethodPost, "/api/v1/compare",
		strings.NewReader(`{"items":[{"itemId":"milk","prices":{"Z":10}}],"priority":["A"]}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "UNKNOWN_VENDOR")

	rec = httptest.NewRecorder()
	h.Catalog(rec, httptest.NewRequest(http.MethodPost, "/api/v1/compare", strings.NewReader(`{"items":[]}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogHandlerRejectsVendorsOutsidePriority(t *testing.T) {
	h := &compare.Handler{Service: newService(t, sampleBasket(), sampleQuotes(), nil), Currency: "INR"}

	cases := []struct {
		name   string
		body   string
		vendor string
	}{
		{"partial priority", `{"items":[{"itemId":"milk","prices":{"A":58,"B":52}},{"itemId":"bread","prices":{"A":42,"C":40}}],"priority":["A","B"]}`, "C"},
		{"store priority", `{"items":[{"itemId":"milk","prices":{"amazon":58,"zepto":50}}]}`, "zepto"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Catalog(rec, httptest.NewRequest(http.MethodPost, "/api/v1/compare", strings.NewReader(tc.body)))
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

			var resp struct {
				Error struct {
					Code    string         `json:"code"`
					Details map[string]any `json:"details"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Equal(t, "UNKNOWN_VENDOR", resp.Error.Code)
			require.Equal(t, tc.vendor, resp.Error.Details["vendor"])
		})
	}
}

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestExportLogsWriteFailure(t *testing.T) {
	h := &compare.Handler{Service: newService(t, sampleBasket(), sampleQuotes(), nil), Currency: "INR"}
	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	ctx := common.WithUserID(logger.WithContext(context.Background()), "user")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/basket/compare/export", nil).WithContext(ctx)

	h.Export(brokenWriter{httptest.NewRecorder()}, req)
	require.Contains(t, logs.String(), "write comparison workbook failed")
	require.Contains(t, logs.String(), "connection reset")
}

func TestExportWorkbook(t *testing.T) {
	svc := newService(t, sampleBasket(), sampleQuotes(), nil)
	h := &compare.Handler{Service: svc, Currency: "INR"}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/basket/compare/export", nil)
	req = req.WithContext(common.WithUserID(req.Context(), "user"))
	rec := httptest.NewRecorder()
	h.Export(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Comparison")
	require.NoError(t, err)
	require.Equal(t, []string{"Item", "Quantity", "amazon", "flipkart", "jiomart", "blinkit", "Best vendor"}, rows[0])
	require.Equal(t, "Milk 1L", rows[1][0])
	require.Equal(t, "flipkart", rows[1][6])
	require.Len(t, rows, 5)

	total, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	require.Equal(t, "209", total)
}
