package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gospelpresentation/backend/internal/middleware"
	"github.com/gospelpresentation/backend/internal/models"
	"github.com/gospelpresentation/backend/internal/services"
)

type ProgressHandler struct {
	profileLoader
	progress *services.ProgressService
	timeout  time.Duration
}

func NewProgressHandler(profiles *services.ProfileService, authz *services.Authorizer, progress *services.ProgressService, timeout time.Duration, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		profileLoader: profileLoader{profiles: profiles, authz: authz, logger: logger},
		progress:      progress,
		timeout:       timeout,
	}
}

func (h *ProgressHandler) TrackView(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == models.DefaultProfileSlug {
		writeServiceError(w, h.logger, "Failed to save progress", services.ErrProgressDisabled)
		return
	}

	var req models.TrackViewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	if h.load(ctx, w, middleware.GetActor(r.Context()), slug, permRead) == nil {
		return
	}

	view, err := h.progress.TrackView(ctx, slug, req)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to save progress", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(view))
}

func (h *ProgressHandler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == models.DefaultProfileSlug {
		writeServiceError(w, h.logger, "Failed to reset progress", services.ErrProgressDisabled)
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	if h.load(ctx, w, middleware.GetActor(r.Context()), slug, permRead) == nil {
		return
	}

	if err := h.progress.Reset(ctx, slug); err != nil {
		writeServiceError(w, h.logger, "Failed to reset progress", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Progress reset"}))
}
