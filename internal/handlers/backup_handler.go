package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gospelpresentation/backend/internal/models"
	"github.com/gospelpresentation/backend/internal/services"
)

type BackupHandler struct {
	profileLoader
	timeout time.Duration
}

func NewBackupHandler(profiles *services.ProfileService, authz *services.Authorizer, timeout time.Duration, logger *zap.Logger) *BackupHandler {
	return &BackupHandler{
		profileLoader: profileLoader{profiles: profiles, authz: authz, logger: logger},
		timeout:       timeout,
	}
}

// Export returns the profile as a downloadable backup document.
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
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

	exportedBy := actor.Email
	if exportedBy == "" {
		exportedBy = actor.UserID
	}
	backup := models.NewProfileBackup(p, exportedBy, time.Now())
	filename := fmt.Sprintf("%s-backup-%s.json", p.Slug, backup.Backup.ExportedAt.Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	writeJSON(w, http.StatusOK, backup)
}

// Restore replaces the profile's content with a backup. The slug inside the
// backup is ignored.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	backup, err := models.ParseBackup(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid backup file"))
		return
	}
	if errs := backup.Profile.GospelData.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	p := h.load(ctx, w, actor, chi.URLParam(r, "slug"), permManage)
	if p == nil {
		return
	}

	updated, err := h.profiles.Update(ctx, p.Slug, backup.RestorePatch())
	if err != nil {
		writeServiceError(w, h.logger, "Failed to restore profile", err)
		return
	}

	h.logger.Info("profile restored",
		zap.String("slug", updated.Slug),
		zap.String("backup_version", backup.Backup.Version),
		zap.String("user_id", actor.UserID))
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(updated))
}
