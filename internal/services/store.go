package services

import (
	"context"
	"time"

	"github.com/gospelpresentation/backend/internal/models"
)

// ProfileStore persists profile records. Lookups return (nil, nil) when the
// record is absent; mutations return ErrProfileNotFound.
type ProfileStore interface {
	InsertProfile(ctx context.Context, p *models.Profile) error
	GetProfileBySlug(ctx context.Context, slug string) (*models.Profile, error)
	GetProfileByID(ctx context.Context, id string) (*models.Profile, error)
	ListProfiles(ctx context.Context) ([]*models.Profile, error)
	ListSlugs(ctx context.Context) ([]string, error)
	UpdateProfile(ctx context.Context, slug string, patch models.ProfilePatch, now time.Time) (*models.Profile, error)
	// DeleteProfile removes a non-default profile and its access grants.
	DeleteProfile(ctx context.Context, slug string) error
	// IncrementVisitCount must be atomic with respect to concurrent callers.
	IncrementVisitCount(ctx context.Context, slug string, now time.Time) error
	// EnsureDefaultProfile inserts p unless a default profile already exists.
	EnsureDefaultProfile(ctx context.Context, p *models.Profile) error
}

// GrantStore persists access grants. Emails are stored normalized.
type GrantStore interface {
	UpsertGrant(ctx context.Context, g *models.AccessGrant) (*models.AccessGrant, error)
	DeleteGrant(ctx context.Context, profileID, email string) error
	ListGrants(ctx context.Context, profileID string) ([]models.AccessGrant, error)
	ListGrantsForProfiles(ctx context.Context, profileIDs []string) (map[string][]models.AccessGrant, error)
	HasGrant(ctx context.Context, profileID, email string) (bool, error)
	ListGrantedProfileIDs(ctx context.Context, email string) ([]string, error)
}

// UserStore persists auth-side user profiles.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.UserProfile, error)
	GetUsers(ctx context.Context, ids []string) (map[string]*models.UserProfile, error)
	ListUsers(ctx context.Context) ([]*models.UserProfile, error)
	// UpsertUser writes the whole record, empty fields included.
	UpsertUser(ctx context.Context, u *models.UserProfile) error
}

// Store is the full persistence surface, implemented by MongoStore and MemoryStore.
type Store interface {
	ProfileStore
	GrantStore
	UserStore
	Close(ctx context.Context) error
}
