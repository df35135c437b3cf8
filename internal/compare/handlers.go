package compare

import (
	"errors"
	"net/http"

	"github.com/noah-isme/backend-grocer/internal/common"
	"github.com/noah-isme/backend-grocer/internal/obs"
)

// Handler serves comparison endpoints.
type Handler struct {
	Service  *Service
	Currency string
}

type catalogRequest struct {
	Items    []ItemQuote `json:"items" validate:"required,min=1,dive"`
	Priority []VendorID  `json:"priority"`
}

// Basket handles GET /api/v1/basket/compare.
func (h *Handler) Basket(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "compare service not configured", nil)
		return
	}
	userID, ok := common.RequireUser(w, r)
	if !ok {
		return
	}
	res, err := h.Service.CompareBasket(r.Context(), userID)
	if err != nil {
		common.WriteError(w, ToAppError(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res, "meta": map[string]any{"currency": h.Currency}})
}

// Catalog handles POST /api/v1/compare.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "compare service not configured", nil)
		return
	}
	var req catalogRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	res, priority, err := h.Service.CompareCatalog(r.Context(), req.Items, req.Priority)
	if err != nil {
		common.WriteError(w, ToAppError(err))
		return
	}
	body := map[string]any{"result": res}
	if vendor, total, ok := CheapestSingleVendor(res, priority); ok {
		body["cheapestVendor"] = vendor
		body["cheapestVendorTotal"] = total
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": body, "meta": map[string]any{"priority": priority}})
}

// Export handles GET /api/v1/basket/compare/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "compare service not configured", nil)
		return
	}
	userID, ok := common.RequireUser(w, r)
	if !ok {
		return
	}
	res, err := h.Service.CompareBasket(r.Context(), userID)
	if err != nil {
		common.WriteError(w, ToAppError(err))
		return
	}
	f, err := Workbook(res, h.Currency)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="basket-comparison.xlsx"`)
	if err := f.Write(w); err != nil {
		obs.Ctx(r.Context()).Warn().Err(err).Str("user_id", userID).Msg("write comparison workbook failed")
	}
}

// ToAppError maps comparison input errors to 422 responses. Other errors pass through.
func ToAppError(err error) error {
	var (
		noQuote   NoQuoteError
		unknown   UnknownVendorError
		invalid   InvalidPriceError
		duplicate DuplicateItemError
	)
	switch {
	case errors.As(err, new(EmptyCatalogError)):
		return common.NewAppError("EMPTY_CATALOG", "the list has no items to compare", http.StatusUnprocessableEntity, err)
	case errors.As(err, &noQuote):
		return common.NewAppError("NO_QUOTE", "no vendor currently sells "+itemLabel(noQuote.Name, noQuote.ItemID), http.StatusUnprocessableEntity, err).
			WithDetails(map[string]any{"itemId": noQuote.ItemID, "name": noQuote.Name})
	case errors.As(err, &unknown):
		return common.NewAppError("UNKNOWN_VENDOR", "vendor "+string(unknown.Vendor)+" is not in the priority list", http.StatusUnprocessableEntity, err).
			WithDetails(map[string]any{"itemId": unknown.ItemID, "vendor": unknown.Vendor})
	case errors.As(err, &invalid):
		return common.NewAppError("INVALID_PRICE", "prices must not be negative", http.StatusUnprocessableEntity, err).
			WithDetails(map[string]any{"itemId": invalid.ItemID, "vendor": invalid.Vendor, "price": invalid.Price})
	case errors.As(err, &duplicate):
		return common.NewAppError("DUPLICATE_ITEM", "item "+duplicate.ItemID+" is listed twice", http.StatusUnprocessableEntity, err).
			WithDetails(map[string]any{"itemId": duplicate.ItemID})
	default:
		return err
	}
}

func itemLabel(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
