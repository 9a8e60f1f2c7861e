package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gospelpresentation/backend/internal/middleware"
	"github.com/gospelpresentation/backend/internal/models"
	"github.com/gospelpresentation/backend/internal/services"
	"github.com/gospelpresentation/backend/internal/validation"
)

type ProfileHandler struct {
	profileLoader
	timeout time.Duration
}

func NewProfileHandler(profiles *services.ProfileService, authz *services.Authorizer, timeout time.Duration, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileLoader: profileLoader{profiles: profiles, authz: authz, logger: logger},
		timeout:       timeout,
	}
}

func (h *ProfileHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	profiles, err := h.profiles.List(ctx, actor)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to list profiles", err)
		return
	}

	out := make([]interface{}, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, project(r, actor, p))
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(out))
}

func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	var req models.CreateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.profiles.Create(ctx, actor, req)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to create profile", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(p))
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	p := h.load(ctx, w, actor, chi.URLParam(r, "slug"), permRead)
	if p == nil {
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(project(r, actor, p)))
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	var req models.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	p := h.load(ctx, w, actor, chi.URLParam(r, "slug"), permEdit)
	if p == nil {
		return
	}
	if req.IsTemplate != nil && !actor.IsAdmin() {
		writeServiceError(w, h.logger, "Failed to update profile", services.ErrForbidden)
		return
	}

	updated, err := h.profiles.Update(ctx, p.Slug, req.Patch())
	if err != nil {
		writeServiceError(w, h.logger, "Failed to update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(updated))
}

func (h *ProfileHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	slug := chi.URLParam(r, "slug")
	p, err := h.profiles.GetBySlug(ctx, slug)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to delete profile", err)
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
		return
	}
	// The default profile is refused before the role check so even admins get 403.
	if p.IsDefault {
		writeServiceError(w, h.logger, "Failed to delete profile", services.ErrDefaultProfileProtected)
		return
	}
	if !services.CanManage(actor, p) {
		writeServiceError(w, h.logger, "Failed to delete profile", services.ErrForbidden)
		return
	}

	if err := h.profiles.Delete(ctx, slug); err != nil {
		writeServiceError(w, h.logger, "Failed to delete profile", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Profile deleted"}))
}

// RecordVisit always succeeds; the counter is best-effort.
func (h *ProfileHandler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.profiles.IncrementVisitCount(ctx, chi.URLParam(r, "slug"))
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}

func (h *ProfileHandler) SlugSuggestion(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	existing, err := h.profiles.ListSlugs(ctx)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to suggest slug", err)
		return
	}
	slug := validation.GenerateSlugSuggestion(title, existing)
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.SlugSuggestionResponse{Slug: slug}))
}

func (h *ProfileHandler) SlugCheck(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	existing, err := h.profiles.ListSlugs(ctx)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to check slug", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(validation.ValidateSlug(slug, existing)))
}
