package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gospelpresentation/backend/internal/models"
)

func TestProfileService_CreateClonesDefault(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.profiles.Create(ctx, counselorActor, models.CreateProfileRequest{Slug: "youth", Title: "Youth Group"})
	require.NoError(t, err)

	def, err := env.profiles.GetBySlug(ctx, models.DefaultProfileSlug)
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "youth", p.Slug)
	assert.Equal(t, "Youth Group", p.Title)
	assert.False(t, p.IsDefault)
	assert.Equal(t, int64(0), p.VisitCount)
	require.NotNil(t, p.CreatedBy)
	assert.Equal(t, counselorActor.UserID, *p.CreatedBy)
	assert.Equal(t, def.GospelData, p.GospelData)

	// Editing the clone must leave the default untouched.
	p.GospelData[0].Subsections[0].ScriptureReferences[0].Reference = "Changed 1:1"
	_, err = env.profiles.Update(ctx, "youth", models.ProfilePatch{GospelData: p.GospelData})
	require.NoError(t, err)

	def, err = env.profiles.GetBySlug(ctx, models.DefaultProfileSlug)
	require.NoError(t, err)
	assert.Equal(t, "John 3:16", def.GospelData[0].Subsections[0].ScriptureReferences[0].Reference)
}

func TestProfileService_CreateFromOtherProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	src := env.create(t, counselorActor, "source", "Source")
	title := "Edited section"
	src.GospelData[0].Title = title
	_, err := env.profiles.Update(ctx, "source", models.ProfilePatch{GospelData: src.GospelData})
	require.NoError(t, err)

	p, err := env.profiles.Create(ctx, counselorActor, models.CreateProfileRequest{Slug: "copy", Title: "Copy", CloneFromSlug: "source"})
	require.NoError(t, err)
	assert.Equal(t, title, p.GospelData[0].Title)
}

func TestProfileService_CreateRejections(t *testing.T) {
	tests := []struct {
		name    string
		actor   *models.Actor
		req     models.CreateProfileRequest
		wantErr error
		field   string
	}{
		{name: "anonymous", actor: nil, req: models.CreateProfileRequest{Slug: "youth", Title: "Youth"}, wantErr: ErrUnauthorized},
		{name: "counselee", actor: counseleeActor, req: models.CreateProfileRequest{Slug: "youth", Title: "Youth"}, wantErr: ErrForbidden},
		{name: "template by counselor", actor: counselorActor, req: models.CreateProfileRequest{Slug: "youth", Title: "Youth", IsTemplate: true}, wantErr: ErrForbidden},
		{name: "reserved slug", actor: counselorActor, req: models.CreateProfileRequest{Slug: "admin", Title: "Admin"}, field: "slug"},
		{name: "short slug", actor: counselorActor, req: models.CreateProfileRequest{Slug: "ab", Title: "Ab"}, field: "slug"},
		{name: "empty title", actor: counselorActor, req: models.CreateProfileRequest{Slug: "youth", Title: "   "}, field: "title"},
		{name: "missing source", actor: counselorActor, req: models.CreateProfileRequest{Slug: "youth", Title: "Youth", CloneFromSlug: "nothere"}, wantErr: ErrSourceNotFound},
		{name: "duplicate default slug", actor: adminActor, req: models.CreateProfileRequest{Slug: "default", Title: "Again"}, field: "slug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.profiles.Create(context.Background(), tt.actor, tt.req)
			require.Error(t, err)

			if tt.field != "" {
				var verr *ValidationError
				require.True(t, errors.As(err, &verr), "want validation error, got %v", err)
				assert.Contains(t, verr.Fields, tt.field)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestProfileService_CreateDuplicateSlug(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, counselorActor, "youth", "Youth")

	_, err := env.profiles.Create(context.Background(), otherCounselor, models.CreateProfileRequest{Slug: "youth", Title: "Other Youth"})
	assert.ErrorIs(t, err, ErrDuplicateSlug)
}

func TestProfileService_CreateFromUnreadableSource(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, counselorActor, "private", "Private")

	_, err := env.profiles.Create(context.Background(), otherCounselor, models.CreateProfileRequest{Slug: "stolen", Title: "Stolen", CloneFromSlug: "private"})
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

// failingStore fails every call so tests can prove validation runs first.
type failingStore struct {
	*MemoryStore
	calls int
}

func (s *failingStore) GetProfileBySlug(ctx context.Context, slug string) (*models.Profile, error) {
	s.calls++
	return nil, errors.New("store unavailable")
}

func TestProfileService_ValidationBeforeStore(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore()}
	svc := NewProfileService(store, NewAuthorizer(store), zap.NewNop())

	_, err := svc.Create(context.Background(), counselorActor, models.CreateProfileRequest{Slug: "admin", Title: "Admin"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 0, store.calls)
}

func TestProfileService_UpdatePartial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	before := env.create(t, counselorActor, "youth", "Youth")

	time.Sleep(2 * time.Millisecond)
	title := "Youth Group 2024"
	after, err := env.profiles.Update(ctx, "youth", models.ProfilePatch{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, title, after.Title)
	assert.Equal(t, before.Slug, after.Slug)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.GospelData, after.GospelData)
	assert.True(t, after.CreatedAt.Equal(before.CreatedAt))
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
}

func TestProfileService_UpdateProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.create(t, counselorActor, "youth", "Youth")

	p, err := env.profiles.Update(ctx, "youth", models.ProfilePatch{
		LastViewedScripture: &models.ScriptureProgress{Reference: "John 3:16", SectionID: "1", SubsectionID: "1-0"},
	})
	require.NoError(t, err)
	require.NotNil(t, p.LastViewedScripture)
	assert.False(t, p.LastViewedScripture.ViewedAt.IsZero())

	_, err = env.profiles.Update(ctx, "youth", models.ProfilePatch{
		LastViewedScripture: &models.ScriptureProgress{Reference: "John 3:16"},
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "sectionId")
}

func TestProfileService_UpdateDropsProgressOnDefault(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.profiles.Update(ctx, models.DefaultProfileSlug, models.ProfilePatch{
		LastViewedScripture: &models.ScriptureProgress{Reference: "John 3:16", SectionID: "1", SubsectionID: "1-0"},
	})
	require.NoError(t, err)
	assert.Nil(t, p.LastViewedScripture)
}

func TestProfileService_UpdateTemplateFlag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.create(t, counselorActor, "youth", "Youth")

	on := true
	p, err := env.profiles.Update(ctx, "youth", models.ProfilePatch{IsTemplate: &on})
	require.NoError(t, err)
	assert.True(t, p.IsTemplate)
}

func TestProfileService_UpdateMissing(t *testing.T) {
	env := newTestEnv(t)
	title := "x"
	_, err := env.profiles.Update(context.Background(), "nothere", models.ProfilePatch{Title: &title})
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestProfileService_GetBySlugAbsent(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.profiles.GetBySlug(context.Background(), "nothere")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProfileService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.create(t, counselorActor, "youth", "Youth")

	access := NewAccessService(env.store, env.store, nil, time.Second, zap.NewNop())
	_, err := access.Grant(ctx, p.ID, []string{"friend@example.com"}, counselorActor.Email)
	require.NoError(t, err)

	require.NoError(t, env.profiles.Delete(ctx, "youth"))

	got, err := env.profiles.GetBySlug(ctx, "youth")
	require.NoError(t, err)
	assert.Nil(t, got)

	grants, err := access.List(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, grants, "grants are removed with the profile")

	assert.ErrorIs(t, env.profiles.Delete(ctx, "youth"), ErrProfileNotFound)
}

func TestProfileService_DefaultCannotBeDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assert.ErrorIs(t, env.profiles.Delete(ctx, models.DefaultProfileSlug), ErrDefaultProfileProtected)

	p, err := env.profiles.GetBySlug(ctx, models.DefaultProfileSlug)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.IsDefault)
}

func TestProfileService_IncrementVisitCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.create(t, counselorActor, "youth", "Youth")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.profiles.IncrementVisitCount(ctx, "youth")
		}()
	}
	wg.Wait()

	p, err := env.profiles.GetBySlug(ctx, "youth")
	require.NoError(t, err)
	assert.Equal(t, int64(20), p.VisitCount)
	assert.NotNil(t, p.LastVisited)

	// Missing slugs are swallowed.
	env.profiles.IncrementVisitCount(ctx, "nothere")
}

func TestProfileService_ListVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mine := env.create(t, counselorActor, "mine", "Mine")
	env.create(t, otherCounselor, "theirs", "Theirs")
	_, err := env.profiles.Create(ctx, adminActor, models.CreateProfileRequest{Slug: "starter", Title: "Starter", IsTemplate: true})
	require.NoError(t, err)

	access := NewAccessService(env.store, env.store, nil, time.Second, zap.NewNop())
	_, err = access.Grant(ctx, mine.ID, []string{counseleeActor.Email}, counselorActor.Email)
	require.NoError(t, err)

	slugs := func(actor *models.Actor) []string {
		ps, err := env.profiles.List(ctx, actor)
		require.NoError(t, err)
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.Slug)
		}
		return out
	}

	assert.Equal(t, []string{"default", "starter"}, slugs(nil))
	assert.Equal(t, []string{"default", "starter", "mine"}, slugs(counselorActor))
	assert.Equal(t, []string{"default", "starter", "mine"}, slugs(counseleeActor))
	assert.Equal(t, []string{"default", "starter", "mine", "theirs"}, slugs(adminActor))

	ps, err := env.profiles.List(ctx, counselorActor)
	require.NoError(t, err)
	for _, p := range ps {
		if p.Slug == "mine" {
			assert.Equal(t, []string{counseleeActor.Email}, p.AccessEmails)
		}
	}
}

func TestProfileService_OwnerDisplayName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.UpsertUser(ctx, &models.UserProfile{ID: counselorActor.UserID, Role: models.RoleCounselor, DisplayName: "Pat Counselor"}))
	env.create(t, counselorActor, "youth", "Youth")

	p, err := env.profiles.GetBySlug(ctx, "youth")
	require.NoError(t, err)
	assert.Equal(t, "Pat Counselor", p.OwnerDisplayName)
}

func TestProfileService_EnsureDefaultIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.profiles.EnsureDefault(ctx, models.GospelPresentationData{}))

	p, err := env.profiles.GetBySlug(ctx, models.DefaultProfileSlug)
	require.NoError(t, err)
	assert.Len(t, p.GospelData, 2, "existing default content is kept")
	assert.Nil(t, p.CreatedBy)
}
