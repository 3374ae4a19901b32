package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// VideoHandler handles quota-gated video submission and status polling.
type VideoHandler struct {
	videoSvc service.VideoService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(videoSvc service.VideoService, v *validator.Validate, logger zerolog.Logger) *VideoHandler {
	return &VideoHandler{videoSvc: videoSvc, validate: v, logger: logger}
}

// RegisterRoutes mounts video routes under /videos
func (h *VideoHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/videos", authMw(http.HandlerFunc(h.submit)))
	mux.Handle("/videos/", authMw(http.HandlerFunc(h.handleVideo)))
}

func (h *VideoHandler) submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req dto.VideoSubmitDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.SummaryRatio == 0 {
		req.SummaryRatio = 0.5
	}

	result, err := h.videoSvc.Submit(r.Context(), userID, req.YouTubeURL, req.SummaryRatio)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsageLimitExceeded):
			http.Error(w, "monthly processing limit reached", http.StatusForbidden)
		case errors.Is(err, service.ErrUsageNotRecorded):
			http.Error(w, "failed to record usage", http.StatusInternalServerError)
		default:
			http.Error(w, "failed to submit video", http.StatusInternalServerError)
		}
		return
	}

	resp := dto.VideoSubmitResponseDTO{TaskID: result.TaskID, Message: result.Message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *VideoHandler) handleVideo(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/videos/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "status" || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	status, err := h.videoSvc.Status(r.Context(), parts[0])
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to fetch task status", http.StatusInternalServerError)
		return
	}

	resp := dto.VideoStatusResponseDTO{
		TaskID:   status.TaskID,
		Status:   status.Status,
		Progress: status.Progress,
		Message:  status.Message,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}
