package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/middleware"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// UsageHandler serves the usage projection consumed by the UI before
// quota-gated actions.
type UsageHandler struct {
	usageSvc service.UsageService
	logger   zerolog.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(usageSvc service.UsageService, logger zerolog.Logger) *UsageHandler {
	return &UsageHandler{usageSvc: usageSvc, logger: logger}
}

// RegisterRoutes registers the usage endpoint.
func (h *UsageHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/users/me/usage", authMw(http.HandlerFunc(h.getUsage)))
}

func (h *UsageHandler) getUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	info, err := h.usageSvc.GetUsage(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to fetch usage", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}
