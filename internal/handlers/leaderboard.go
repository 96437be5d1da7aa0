package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// GetLeaderboard returns one page of the player leaderboard
// @Summary Global Leaderboard
// @Description Players ranked by total list points
// @Tags Leaderboard
// @Produce json
// @Param limit query int false "Limit" default(25)
// @Param page query int false "Page" default(1)
// @Success 200 {object} models.LeaderboardPage
// @Failure 503 {object} map[string]string "No snapshot yet"
// @Router /leaderboard [get]
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 25
	page := 1
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	result, err := h.service.GetLeaderboard(r.Context(), limit, page)
	if err != nil {
		h.serviceError(w, err, "Failed to load leaderboard")
		return
	}
	h.jsonResponse(w, http.StatusOK, result)
}

// GetPlayer returns a single player's leaderboard entry
// @Summary Player Breakdown
// @Description Completed and progressed levels for one player, matched case-insensitively
// @Tags Leaderboard
// @Produce json
// @Param user path string true "Player name"
// @Success 200 {object} models.LeaderboardRow
// @Failure 404 {object} map[string]string "Unknown player"
// @Router /leaderboard/{user} [get]
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	if user == "" {
		h.errorResponse(w, http.StatusBadRequest, "Missing user")
		return
	}

	row, err := h.service.GetPlayer(r.Context(), user)
	if err != nil {
		h.serviceError(w, err, "Failed to load player")
		return
	}
	h.jsonResponse(w, http.StatusOK, row)
}

// Refresh recomputes the leaderboard from the data source
// @Summary Refresh
// @Tags System
// @Produce json
// @Success 200 {object} models.SnapshotInfo
// @Failure 502 {object} map[string]string "List could not be loaded"
// @Router /refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Refresh(r.Context())
	if err != nil {
		h.logger.Errorw("Manual refresh failed", "error", err)
		h.errorResponse(w, http.StatusBadGateway, "Failed to load list")
		return
	}
	h.jsonResponse(w, http.StatusOK, info)
}
