package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gospelpresentation/backend/internal/models"
	"github.com/gospelpresentation/backend/internal/services"
)

type AccessHandler struct {
	profileLoader
	access  *services.AccessService
	timeout time.Duration
}

func NewAccessHandler(profiles *services.ProfileService, authz *services.Authorizer, access *services.AccessService, timeout time.Duration, logger *zap.Logger) *AccessHandler {
	return &AccessHandler{
		profileLoader: profileLoader{profiles: profiles, authz: authz, logger: logger},
		access:        access,
		timeout:       timeout,
	}
}

func (h *AccessHandler) ListAccess(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	p := h.load(ctx, w, actor, chi.URLParam(r, "slug"), permManage)
	if p == nil {
		return
	}

	grants, err := h.access.List(ctx, p.ID)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to list access", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(grants))
}

func (h *AccessHandler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	var req models.GrantAccessRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	p := h.load(ctx, w, actor, chi.URLParam(r, "slug"), permManage)
	if p == nil {
		return
	}

	grantedBy := actor.Email
	if grantedBy == "" {
		grantedBy = actor.UserID
	}
	result, err := h.access.Grant(ctx, p.ID, req.Emails, grantedBy)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to grant access", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(result))
}

// RevokeAccess takes the email from the query string. Revoking an email that
// holds no grant still succeeds.
func (h *AccessHandler) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	email := r.URL.Query().Get("email")

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	p := h.load(ctx, w, actor, chi.URLParam(r, "slug"), permManage)
	if p == nil {
		return
	}

	if err := h.access.Revoke(ctx, p.ID, email); err != nil {
		writeServiceError(w, h.logger, "Failed to revoke access", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Access revoked"}))
}
