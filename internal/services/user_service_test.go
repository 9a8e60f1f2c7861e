package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gospelpresentation/backend/internal/models"
)

func TestUserService_ResolveActor(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewUserService(store, []string{" Boss@Example.com "}, zap.NewNop())

	actor, err := svc.ResolveActor(ctx, "uid-1", "New@Example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleCounselee, actor.Role)
	assert.Equal(t, "new@example.com", actor.Email)

	stored, err := store.GetUser(ctx, "uid-1")
	require.NoError(t, err)
	require.NotNil(t, stored, "first sign-in records the user")

	boss, err := svc.ResolveActor(ctx, "uid-2", "boss@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, boss.Role)
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewUserService(store, nil, zap.NewNop())

	_, err := svc.ResolveActor(ctx, "uid-1", "pat@example.com")
	require.NoError(t, err)

	role := models.RoleCounselor
	name := "Pat"
	u, err := svc.Update(ctx, "uid-1", models.UpdateUserRequest{Role: &role, DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCounselor, u.Role)
	assert.Equal(t, "Pat", u.DisplayName)

	actor, err := svc.ResolveActor(ctx, "uid-1", "pat@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleCounselor, actor.Role)
	assert.Equal(t, "Pat", actor.DisplayName)

	cleared := ""
	_, err = svc.Update(ctx, "uid-1", models.UpdateUserRequest{DisplayName: &cleared})
	require.NoError(t, err)
	stored, err := store.GetUser(ctx, "uid-1")
	require.NoError(t, err)
	assert.Empty(t, stored.DisplayName)
	assert.Equal(t, "pat@example.com", stored.Email)
	assert.Equal(t, models.RoleCounselor, stored.Role)

	_, err = svc.Update(ctx, "missing", models.UpdateUserRequest{Role: &role})
	assert.ErrorIs(t, err, ErrUserNotFound)

	bad := models.Role("owner")
	_, err = svc.Update(ctx, "uid-1", models.UpdateUserRequest{Role: &bad})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
