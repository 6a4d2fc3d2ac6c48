// Package api provides the HTTP endpoints that sit beside the chat socket.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/coursetutor/internal/bridge"
	"github.com/ashureev/coursetutor/internal/config"
	"github.com/ashureev/coursetutor/internal/store"
	"github.com/go-chi/chi/v5"
)

const healthCheckTimeout = 5 * time.Second

// Handler serves health and client configuration endpoints.
type Handler struct {
	cfg   *config.Config
	cache store.ClipRepository
	sm    *bridge.SessionManager
}

// NewHandler creates a new Handler. cache may be nil when the clip cache is disabled.
func NewHandler(cfg *config.Config, cache store.ClipRepository, sm *bridge.SessionManager) *Handler {
	return &Handler{cfg: cfg, cache: cache, sm: sm}
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/config", h.GetConfig)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// GetConfig returns the settings the browser needs before opening the socket.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"voice_default":      h.cfg.VoiceDefault,
		"clip_cache_enabled": h.cache != nil,
	})
}

// Health returns the health status of the server and its clip cache.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status":   "healthy",
		"checks":   checks,
		"sessions": h.sm.Count(),
	}
	statusCode := http.StatusOK

	if h.cache == nil {
		checks["clip_cache"] = "disabled"
		JSON(w, statusCode, status)
		return
	}

	if err := h.cache.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["clip_cache"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["clip_cache"] = "ok"
		if stats, err := h.cache.Stats(ctx); err == nil {
			status["clip_cache"] = stats
		} else {
			slog.Warn("Failed to read clip cache stats", "error", err)
		}
	}

	JSON(w, statusCode, status)
}
