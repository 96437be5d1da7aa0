package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gdlist/list-api/internal/logic"
	"github.com/gdlist/list-api/internal/ratelimit"
)

// Health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready reports whether a snapshot has been computed and the cache answers
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	info, hasSnapshot := h.service.Info()
	checks := map[string]bool{
		"snapshot": hasSnapshot,
		"cache":    h.cache == nil || h.cache.Ping(ctx) == nil,
	}

	allHealthy := true
	for _, ok := range checks {
		if !ok {
			allHealthy = false
			break
		}
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	h.jsonResponse(w, status, map[string]interface{}{
		"ready":    allHealthy,
		"checks":   checks,
		"snapshot": info,
	})
}

// RateLimitMiddleware rejects clients that exceed their token bucket with 429
func (h *Handler) RateLimitMiddleware(limiter *ratelimit.KeyedRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			if !limiter.Allow(key) {
				h.logger.Warnw("Rate limit exceeded", "ip", key, "path", r.URL.Path)
				w.Header().Set("Retry-After", "1")
				h.errorResponse(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr; RealIP middleware has already
// applied X-Forwarded-For / X-Real-IP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// serviceError maps service errors to HTTP statuses
func (h *Handler) serviceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, logic.ErrLevelNotFound),
		errors.Is(err, logic.ErrLevelUnavailable),
		errors.Is(err, logic.ErrPlayerNotFound):
		h.errorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, logic.ErrNoSnapshot):
		h.logger.Errorw(msg, "error", err)
		h.errorResponse(w, http.StatusServiceUnavailable, "Leaderboard not available yet")
	default:
		h.logger.Errorw(msg, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, msg)
	}
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warnw("Failed to encode response", "error", err)
	}
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}
