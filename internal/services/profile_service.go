package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gospelpresentation/backend/internal/models"
)

type ProfileService struct {
	store  Store
	authz  *Authorizer
	logger *zap.Logger
	now    func() time.Time
}

func NewProfileService(store Store, authz *Authorizer, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		store:  store,
		authz:  authz,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create clones the source profile's content into a new profile owned by the
// actor. Shape validation happens before any store call.
func (s *ProfileService) Create(ctx context.Context, actor *models.Actor, req models.CreateProfileRequest) (*models.Profile, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	if !actor.CanCreateProfiles() {
		return nil, ErrForbidden
	}

	req.Normalize()
	if errs := req.Validate(); len(errs) > 0 {
		return nil, NewValidationError(errs)
	}
	if req.IsTemplate && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	existing, err := s.store.GetProfileBySlug(ctx, req.Slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateSlug
	}

	source, err := s.store.GetProfileBySlug(ctx, req.CloneFromSlug)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, ErrSourceNotFound
	}
	// A source the actor cannot read is reported as missing.
	ok, err := s.authz.CanRead(ctx, actor, source)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSourceNotFound
	}

	now := s.now()
	owner := actor.UserID
	p := &models.Profile{
		ID:          uuid.NewString(),
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		IsTemplate:  req.IsTemplate,
		GospelData:  source.GospelData.Clone(),
		CreatedBy:   &owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InsertProfile(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("profile created",
		zap.String("slug", p.Slug),
		zap.String("clone_from", source.Slug),
		zap.String("created_by", owner))
	p.OwnerDisplayName = actor.DisplayName
	return p, nil
}

// GetBySlug returns (nil, nil) when no profile has the slug.
func (s *ProfileService) GetBySlug(ctx context.Context, slug string) (*models.Profile, error) {
	p, err := s.store.GetProfileBySlug(ctx, slug)
	if err != nil || p == nil {
		return nil, err
	}
	s.enrichOwners(ctx, []*models.Profile{p})
	return p, nil
}

// List returns the profiles visible to the actor, each enriched with the
// owner's display name and the emails holding access grants.
func (s *ProfileService) List(ctx context.Context, actor *models.Actor) ([]*models.Profile, error) {
	all, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	granted := make(map[string]struct{})
	if actor.Authenticated() && !actor.IsAdmin() && actor.Email != "" {
		ids, err := s.store.ListGrantedProfileIDs(ctx, actor.Email)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			granted[id] = struct{}{}
		}
	}

	visible := make([]*models.Profile, 0, len(all))
	for _, p := range all {
		_, isGranted := granted[p.ID]
		if p.IsDefault || p.IsTemplate || isGranted || CanManage(actor, p) {
			visible = append(visible, p)
		}
	}

	ids := make([]string, 0, len(visible))
	for _, p := range visible {
		ids = append(ids, p.ID)
	}
	grants, err := s.store.ListGrantsForProfiles(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range visible {
		for _, g := range grants[p.ID] {
			p.AccessEmails = append(p.AccessEmails, g.UserEmail)
		}
	}

	s.enrichOwners(ctx, visible)
	return visible, nil
}

// ListSlugs returns every slug in use, for uniqueness checks and suggestions.
func (s *ProfileService) ListSlugs(ctx context.Context) ([]string, error) {
	return s.store.ListSlugs(ctx)
}

// Update applies a partial patch. Slug, id and createdAt cannot change;
// updatedAt is always refreshed. Progress written to the default profile is
// dropped, and a progress pointer without viewedAt is stamped with now.
func (s *ProfileService) Update(ctx context.Context, slug string, patch models.ProfilePatch) (*models.Profile, error) {
	now := s.now()
	if slug == models.DefaultProfileSlug {
		patch.LastViewedScripture = nil
		patch.ClearProgress = false
	}
	if lv := patch.LastViewedScripture; lv != nil {
		if errs := lv.Validate(); len(errs) > 0 {
			return nil, NewValidationError(errs)
		}
		view := *lv
		view.Normalize()
		if view.ViewedAt.IsZero() {
			view.ViewedAt = now
		}
		patch.LastViewedScripture = &view
	}

	p, err := s.store.UpdateProfile(ctx, slug, patch, now)
	if err != nil {
		return nil, err
	}
	s.enrichOwners(ctx, []*models.Profile{p})
	return p, nil
}

// Delete removes a profile and its grants. The default profile is never
// deleted, whoever asks.
func (s *ProfileService) Delete(ctx context.Context, slug string) error {
	p, err := s.store.GetProfileBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrProfileNotFound
	}
	if p.IsDefault {
		return ErrDefaultProfileProtected
	}
	if err := s.store.DeleteProfile(ctx, slug); err != nil {
		return err
	}
	s.logger.Info("profile deleted", zap.String("slug", slug), zap.String("id", p.ID))
	return nil
}

// IncrementVisitCount is best-effort: failures are logged and never returned
// so page rendering is not blocked on the counter.
func (s *ProfileService) IncrementVisitCount(ctx context.Context, slug string) {
	if err := s.store.IncrementVisitCount(ctx, slug, s.now()); err != nil {
		s.logger.Warn("increment visit count", zap.String("slug", slug), zap.Error(err))
	}
}

// EnsureDefault seeds the default profile if none exists.
func (s *ProfileService) EnsureDefault(ctx context.Context, data models.GospelPresentationData) error {
	now := s.now()
	p := &models.Profile{
		ID:          uuid.NewString(),
		Slug:        models.DefaultProfileSlug,
		Title:       "Default",
		Description: "The standard gospel presentation",
		IsDefault:   true,
		GospelData:  data.Clone(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.EnsureDefaultProfile(ctx, p); err != nil {
		return fmt.Errorf("seed default profile: %w", err)
	}
	return nil
}

func (s *ProfileService) enrichOwners(ctx context.Context, ps []*models.Profile) {
	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		if p.CreatedBy != nil {
			ids = append(ids, *p.CreatedBy)
		}
	}
	if len(ids) == 0 {
		return
	}
	users, err := s.store.GetUsers(ctx, ids)
	if err != nil {
		s.logger.Warn("resolve owner display names", zap.Error(err))
		return
	}
	for _, p := range ps {
		if p.CreatedBy == nil {
			continue
		}
		if u, ok := users[*p.CreatedBy]; ok {
			p.OwnerDisplayName = u.DisplayName
		}
	}
}
