package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gospelpresentation/backend/internal/models"
	"github.com/gospelpresentation/backend/internal/services"
)

type UserHandler struct {
	users   *services.UserService
	timeout time.Duration
	logger  *zap.Logger
}

func NewUserHandler(users *services.UserService, timeout time.Duration, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, timeout: timeout, logger: logger}
}

// Me returns the caller's resolved identity and role.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == nil {
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(actor))
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	users, err := h.users.List(ctx)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to list users", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(users))
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor := requireAdmin(w, r)
	if actor == nil {
		return
	}

	var req models.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := chi.URLParam(r, "userId")
	u, err := h.users.Update(ctx, userID, req)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to update user", err)
		return
	}

	h.logger.Info("user updated",
		zap.String("user_id", userID),
		zap.String("role", string(u.Role)),
		zap.String("by", actor.UserID))
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(u))
}

func requireAdmin(w http.ResponseWriter, r *http.Request) *models.Actor {
	actor := requireActor(w, r)
	if actor == nil {
		return nil
	}
	if !actor.IsAdmin() {
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Admin access required"))
		return nil
	}
	return actor
}
