package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gospelpresentation/backend/internal/editor"
	"github.com/gospelpresentation/backend/internal/middleware"
	"github.com/gospelpresentation/backend/internal/models"
	"github.com/gospelpresentation/backend/internal/services"
)

// FavoriteHandler serves the favorite-reference view of a profile and the
// batched content edits that toggle favorites and rearrange references.
type FavoriteHandler struct {
	profileLoader
	timeout time.Duration
}

func NewFavoriteHandler(profiles *services.ProfileService, authz *services.Authorizer, timeout time.Duration, logger *zap.Logger) *FavoriteHandler {
	return &FavoriteHandler{
		profileLoader: profileLoader{profiles: profiles, authz: authz, logger: logger},
		timeout:       timeout,
	}
}

func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	p := h.load(ctx, w, actor, chi.URLParam(r, "slug"), permRead)
	if p == nil {
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(p.GospelData.Favorites()))
}

type applyEditsRequest struct {
	Operations []editor.Operation `json:"operations"`
}

// ApplyEdits runs a batch of editor operations against a working copy and
// commits the result once. One bad operation rejects the whole batch.
func (h *FavoriteHandler) ApplyEdits(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	var req applyEditsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Operations) == 0 {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("At least one operation is required"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	p := h.load(ctx, w, actor, chi.URLParam(r, "slug"), permEdit)
	if p == nil {
		return
	}

	ed := editor.New(p)
	if err := ed.ApplyAll(req.Operations); err != nil {
		writeServiceError(w, h.logger, "Failed to apply edits", err)
		return
	}
	if errs := ed.Data().Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}
	updated, err := ed.Commit(ctx, h.profiles)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to save edits", err)
		return
	}

	h.logger.Info("content edited",
		zap.String("slug", updated.Slug),
		zap.Int("operations", len(req.Operations)),
		zap.String("user_id", actor.UserID))
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(updated))
}
