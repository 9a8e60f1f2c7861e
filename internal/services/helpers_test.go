package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gospelpresentation/backend/internal/models"
)

func testGospelData() models.GospelPresentationData {
	return models.GospelPresentationData{
		{
			Section: "1",
			Title:   "God's Love",
			Subsections: []models.Subsection{
				{
					Title:   "Created for relationship",
					Content: "God made us to know Him.",
					ScriptureReferences: []models.ScriptureReference{
						{Reference: "John 3:16", Favorite: true},
						{Reference: "Genesis 1:27"},
					},
					NestedSubsections: []models.Subsection{
						{Title: "Going deeper", Content: "More detail.", ScriptureReferences: []models.ScriptureReference{{Reference: "Psalm 139:14"}}},
					},
				},
			},
		},
		{
			Section: "2",
			Title:   "Our Problem",
			Subsections: []models.Subsection{
				{Title: "Sin separates", Content: "All have sinned.", ScriptureReferences: []models.ScriptureReference{{Reference: "Romans 3:23"}}},
			},
		},
	}
}

var (
	adminActor     = &models.Actor{UserID: "admin-1", Email: "admin@example.com", Role: models.RoleAdmin, DisplayName: "Admin"}
	counselorActor = &models.Actor{UserID: "counselor-1", Email: "counselor@example.com", Role: models.RoleCounselor, DisplayName: "Pat Counselor"}
	otherCounselor = &models.Actor{UserID: "counselor-2", Email: "other@example.com", Role: models.RoleCounselor}
	counseleeActor = &models.Actor{UserID: "counselee-1", Email: "seeker@example.com", Role: models.RoleCounselee}
)

type testEnv struct {
	store    *MemoryStore
	authz    *Authorizer
	profiles *ProfileService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := NewMemoryStore()
	authz := NewAuthorizer(store)
	profiles := NewProfileService(store, authz, zap.NewNop())
	require.NoError(t, profiles.EnsureDefault(context.Background(), testGospelData()))
	return &testEnv{store: store, authz: authz, profiles: profiles}
}

func (e *testEnv) create(t *testing.T, actor *models.Actor, slug, title string) *models.Profile {
	t.Helper()
	p, err := e.profiles.Create(context.Background(), actor, models.CreateProfileRequest{Slug: slug, Title: title})
	require.NoError(t, err)
	return p
}
