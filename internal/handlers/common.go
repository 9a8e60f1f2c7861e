package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/gospelpresentation/backend/internal/editor"
	"github.com/gospelpresentation/backend/internal/middleware"
	"github.com/gospelpresentation/backend/internal/models"
	"github.com/gospelpresentation/backend/internal/services"
)

const maxBodyBytes = 2 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func contextWithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(parent, d)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return false
	}
	return true
}

// requireActor writes 401 and returns nil when the request is anonymous.
func requireActor(w http.ResponseWriter, r *http.Request) *models.Actor {
	actor := middleware.GetActor(r.Context())
	if !actor.Authenticated() {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return nil
	}
	return actor
}

// writeServiceError maps service errors onto status codes. Anything
// unrecognized is logged and reported as failMsg with a 500; store error text
// never reaches the client.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, failMsg string, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(verr.Fields))
	case errors.Is(err, services.ErrProgressDisabled):
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Progress is not tracked for the default profile"))
	case errors.Is(err, services.ErrBadRequest):
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Bad request"))
	case errors.Is(err, editor.ErrOutOfRange),
		errors.Is(err, editor.ErrEmptyReference),
		errors.Is(err, editor.ErrUnknownOp),
		errors.Is(err, editor.ErrNoChanges):
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(err.Error()))
	case errors.Is(err, models.ErrInvalidBackup):
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Backup file has no profile or gospelData"))
	case errors.Is(err, services.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
	case errors.Is(err, services.ErrDefaultProfileProtected):
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("The default profile cannot be deleted"))
	case errors.Is(err, services.ErrForbidden):
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("You do not have permission to perform this action"))
	case errors.Is(err, services.ErrProfileNotFound):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
	case errors.Is(err, services.ErrSourceNotFound):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Source profile not found"))
	case errors.Is(err, services.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("User not found"))
	case errors.Is(err, services.ErrDuplicateSlug):
		writeJSON(w, http.StatusConflict, models.NewErrorResponse("This URL slug is already in use"))
	default:
		logger.Error(failMsg, zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse(failMsg))
	}
}

// profileLoader fetches a profile by slug and applies a permission check,
// writing the error response itself when the check fails.
type profileLoader struct {
	profiles *services.ProfileService
	authz    *services.Authorizer
	logger   *zap.Logger
}

type permission int

const (
	permRead permission = iota
	permEdit
	permManage
)

func (l profileLoader) load(ctx context.Context, w http.ResponseWriter, actor *models.Actor, slug string, perm permission) *models.Profile {
	p, err := l.profiles.GetBySlug(ctx, slug)
	if err != nil {
		writeServiceError(w, l.logger, "Failed to load profile", err)
		return nil
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
		return nil
	}

	var allowed bool
	switch perm {
	case permRead:
		allowed, err = l.authz.CanRead(ctx, actor, p)
		if err != nil {
			writeServiceError(w, l.logger, "Failed to load profile", err)
			return nil
		}
	case permEdit:
		allowed = services.CanEdit(actor, p)
	case permManage:
		allowed = services.CanManage(actor, p)
	}
	if !allowed {
		if !actor.Authenticated() {
			writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		} else {
			writeJSON(w, http.StatusForbidden, models.NewErrorResponse("You do not have permission to access this profile"))
		}
		return nil
	}
	return p
}

// project returns the full record for admin requests by a manager, otherwise
// the public projection.
func project(r *http.Request, actor *models.Actor, p *models.Profile) interface{} {
	if r.URL.Query().Get("admin") == "true" && services.CanManage(actor, p) {
		return p
	}
	return p.Public()
}
