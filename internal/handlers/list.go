package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// GetList returns every list position in rank order
// @Summary List
// @Description Levels in rank order; levels that failed to load carry an error instead of a name
// @Tags List
// @Produce json
// @Success 200 {array} models.ListItem
// @Router /list [get]
func (h *Handler) GetList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.GetList(r.Context())
	if err != nil {
		h.serviceError(w, err, "Failed to load list")
		return
	}
	h.jsonResponse(w, http.StatusOK, items)
}

// GetLevel returns the level at a rank
// @Summary Level
// @Tags List
// @Produce json
// @Param rank path int true "1-based rank"
// @Success 200 {object} models.LevelDetail
// @Failure 400 {object} map[string]string "Bad rank"
// @Failure 404 {object} map[string]string "No such level"
// @Router /list/{rank} [get]
func (h *Handler) GetLevel(w http.ResponseWriter, r *http.Request) {
	rank, err := strconv.Atoi(chi.URLParam(r, "rank"))
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid rank")
		return
	}

	detail, err := h.service.GetLevel(r.Context(), rank)
	if err != nil {
		h.serviceError(w, err, "Failed to load level")
		return
	}
	h.jsonResponse(w, http.StatusOK, detail)
}

// GetEditors returns the list staff
// @Summary Editors
// @Tags List
// @Produce json
// @Success 200 {array} models.Editor
// @Router /editors [get]
func (h *Handler) GetEditors(w http.ResponseWriter, r *http.Request) {
	editors, err := h.service.GetEditors(r.Context())
	if err != nil {
		h.serviceError(w, err, "Failed to load editors")
		return
	}
	h.jsonResponse(w, http.StatusOK, editors)
}
