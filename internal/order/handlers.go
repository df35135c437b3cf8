package order

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-grocer/internal/common"
)

// Handler serves the order endpoints.
type Handler struct {
	Service *Service
}

type placeRequest struct {
	Mode string `json:"mode" validate:"omitempty,max=64"`
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return "", false
	}
	return common.RequireUser(w, r)
}

// Place handles POST /api/v1/orders.
func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var req placeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	detail, err := h.Service.Place(r.Context(), userID, req.Mode)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": detail})
}

// List handles GET /api/v1/orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, 20, 100)
	orders, total, err := h.Service.List(r.Context(), userID, ListParams{Status: r.URL.Query().Get("status"), Page: page, PerPage: perPage})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       orders,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Get handles GET /api/v1/orders/{orderId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	detail, err := h.Service.Get(r.Context(), userID, chi.URLParam(r, "orderId"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

// Cancel handles POST /api/v1/orders/{orderId}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	summary, err := h.Service.Cancel(r.Context(), userID, chi.URLParam(r, "orderId"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}
