package inventory

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-grocer/internal/common"
)

// Handler serves the pantry endpoints. All routes require auth.
type Handler struct {
	Service *Service
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "inventory service not configured", nil)
		return "", false
	}
	return common.RequireUser(w, r)
}

// List handles GET /api/v1/inventory?filter=all|expiring|low.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	filter, err := ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	items, err := h.Service.List(r.Context(), userID, filter)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items, "meta": map[string]any{"filter": filter}})
}

// Create handles POST /api/v1/inventory.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var in CreateInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	item, err := h.Service.Create(r.Context(), userID, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": item})
}

// Update handles PATCH /api/v1/inventory/{id}.
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
	item, err := h.Service.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

// Delete handles DELETE /api/v1/inventory/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Suggestions handles GET /api/v1/inventory/suggestions.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	items, err := h.Service.Suggestions(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// AddToList handles POST /api/v1/inventory/{id}/add-to-list.
func (h *Handler) AddToList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	b, err := h.Service.AddToList(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": b})
}
