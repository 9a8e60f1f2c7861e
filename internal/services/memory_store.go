package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gospelpresentation/backend/internal/models"
)

// MemoryStore is an in-process Store for development and tests. Records are
// cloned on the way in and out so callers never share tree memory with it.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*models.Profile                 // slug -> profile
	grants   map[string]map[string]*models.AccessGrant // profileID -> email -> grant
	users    map[string]*models.UserProfile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*models.Profile),
		grants:   make(map[string]map[string]*models.AccessGrant),
		users:    make(map[string]*models.UserProfile),
	}
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func (s *MemoryStore) InsertProfile(ctx context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[p.Slug]; exists {
		return ErrDuplicateSlug
	}
	if p.IsDefault && s.defaultLocked() != nil {
		return ErrDuplicateSlug
	}
	s.profiles[p.Slug] = p.Clone()
	return nil
}

func (s *MemoryStore) GetProfileBySlug(ctx context.Context, slug string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.profiles[slug].Clone(), nil
}

func (s *MemoryStore) GetProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.Clone())
	}
	sortProfiles(out)
	return out, nil
}

func (s *MemoryStore) ListSlugs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.profiles))
	for slug := range s.profiles {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, slug string, patch models.ProfilePatch, now time.Time) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.profiles[slug]
	if !exists {
		return nil, ErrProfileNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.IsTemplate != nil {
		p.IsTemplate = *patch.IsTemplate
	}
	if patch.GospelData != nil {
		p.GospelData = patch.GospelData.Clone()
	}
	if patch.ClearProgress {
		p.LastViewedScripture = nil
	}
	if patch.LastViewedScripture != nil {
		lv := *patch.LastViewedScripture
		p.LastViewedScripture = &lv
	}
	p.UpdatedAt = now
	return p.Clone(), nil
}

func (s *MemoryStore) DeleteProfile(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.profiles[slug]
	if !exists {
		return ErrProfileNotFound
	}
	if p.IsDefault {
		return ErrDefaultProfileProtected
	}
	delete(s.profiles, slug)
	delete(s.grants, p.ID)
	return nil
}

func (s *MemoryStore) IncrementVisitCount(ctx context.Context, slug string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.profiles[slug]
	if !exists {
		return ErrProfileNotFound
	}
	p.VisitCount++
	t := now
	p.LastVisited = &t
	return nil
}

func (s *MemoryStore) EnsureDefaultProfile(ctx context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.defaultLocked() != nil {
		return nil
	}
	if _, exists := s.profiles[p.Slug]; exists {
		return ErrDuplicateSlug
	}
	s.profiles[p.Slug] = p.Clone()
	return nil
}

func (s *MemoryStore) defaultLocked() *models.Profile {
	for _, p := range s.profiles {
		if p.IsDefault {
			return p
		}
	}
	return nil
}

func (s *MemoryStore) UpsertGrant(ctx context.Context, g *models.AccessGrant) (*models.AccessGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byEmail := s.grants[g.ProfileID]
	if byEmail == nil {
		byEmail = make(map[string]*models.AccessGrant)
		s.grants[g.ProfileID] = byEmail
	}
	existing, ok := byEmail[g.UserEmail]
	if !ok {
		existing = &models.AccessGrant{ID: g.ID, ProfileID: g.ProfileID, UserEmail: g.UserEmail}
		if existing.ID == "" {
			existing.ID = uuid.NewString()
		}
		byEmail[g.UserEmail] = existing
	}
	existing.GrantedBy = g.GrantedBy
	existing.GrantedAt = g.GrantedAt

	out := *existing
	return &out, nil
}

func (s *MemoryStore) DeleteGrant(ctx context.Context, profileID, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byEmail, ok := s.grants[profileID]; ok {
		delete(byEmail, email)
	}
	return nil
}

func (s *MemoryStore) ListGrants(ctx context.Context, profileID string) ([]models.AccessGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.grantsLocked(profileID), nil
}

func (s *MemoryStore) ListGrantsForProfiles(ctx context.Context, profileIDs []string) (map[string][]models.AccessGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]models.AccessGrant, len(profileIDs))
	for _, id := range profileIDs {
		if grants := s.grantsLocked(id); len(grants) > 0 {
			out[id] = grants
		}
	}
	return out, nil
}

func (s *MemoryStore) grantsLocked(profileID string) []models.AccessGrant {
	out := make([]models.AccessGrant, 0, len(s.grants[profileID]))
	for _, g := range s.grants[profileID] {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserEmail < out[j].UserEmail })
	return out
}

func (s *MemoryStore) HasGrant(ctx context.Context, profileID, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.grants[profileID][email]
	return ok, nil
}

func (s *MemoryStore) ListGrantedProfileIDs(ctx context.Context, email string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0)
	for profileID, byEmail := range s.grants {
		if _, ok := byEmail[email]; ok {
			out = append(out, profileID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (s *MemoryStore) GetUsers(ctx context.Context, ids []string) (map[string]*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*models.UserProfile, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}
	return out, nil
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.UserProfile, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpsertUser(ctx context.Context, u *models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *u
	s.users[u.ID] = &cp
	return nil
}

// sortProfiles orders the default first, then templates, then by title.
func sortProfiles(ps []*models.Profile) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a.IsDefault != b.IsDefault {
			return a.IsDefault
		}
		if a.IsTemplate != b.IsTemplate {
			return a.IsTemplate
		}
		return a.Title < b.Title
	})
}
