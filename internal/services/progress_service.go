package services

import (
	"context"
	"time"

	"github.com/gospelpresentation/backend/internal/models"
)

type profileUpdater interface {
	Update(ctx context.Context, slug string, patch models.ProfilePatch) (*models.Profile, error)
}

// ProgressService maintains the last-viewed-scripture pointer. The pointer is
// either unset or a whole {reference, sectionId, subsectionId, viewedAt}
// value; a new view replaces it and a reset clears it.
type ProgressService struct {
	profiles profileUpdater
	now      func() time.Time
}

func NewProgressService(profiles profileUpdater) *ProgressService {
	return &ProgressService{
		profiles: profiles,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ProgressService) TrackView(ctx context.Context, slug string, req models.TrackViewRequest) (*models.ScriptureProgress, error) {
	if slug == models.DefaultProfileSlug {
		return nil, ErrProgressDisabled
	}

	view := &models.ScriptureProgress{
		Reference:    req.Reference,
		SectionID:    req.SectionID,
		SubsectionID: req.SubsectionID,
		ViewedAt:     s.now(),
	}
	view.Normalize()
	if errs := view.Validate(); len(errs) > 0 {
		return nil, NewValidationError(errs)
	}

	p, err := s.profiles.Update(ctx, slug, models.ProfilePatch{LastViewedScripture: view})
	if err != nil {
		return nil, err
	}
	return p.LastViewedScripture, nil
}

func (s *ProgressService) Reset(ctx context.Context, slug string) error {
	if slug == models.DefaultProfileSlug {
		return ErrProgressDisabled
	}
	_, err := s.profiles.Update(ctx, slug, models.ProfilePatch{ClearProgress: true})
	return err
}
