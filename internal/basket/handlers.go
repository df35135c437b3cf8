package basket

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-grocer/internal/common"
)

// Handler serves the shopping list endpoints. All routes require auth.
type Handler struct {
	Service *Service
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "basket service not configured", nil)
		return "", false
	}
	return common.RequireUser(w, r)
}

// List handles GET /api/v1/basket/items.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	b, err := h.Service.Get(r.Context(), userID, r.URL.Query().Get("category"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": b})
}

// Add handles POST /api/v1/basket/items.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var in AddInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	b, err := h.Service.Add(r.Context(), userID, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": b})
}

// Update handles PATCH /api/v1/basket/items/{itemId}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var in UpdateInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	b, err := h.Service.Update(r.Context(), userID, chi.URLParam(r, "itemId"), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": b})
}

// Remove handles DELETE /api/v1/basket/items/{itemId}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	b, err := h.Service.Remove(r.Context(), userID, chi.URLParam(r, "itemId"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": b})
}
