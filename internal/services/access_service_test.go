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

type fakeInviter struct {
	mu    sync.Mutex
	calls []InviteRequest
	err   error
}

func (f *fakeInviter) Invite(ctx context.Context, req InviteRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.err
}

func (f *fakeInviter) emails() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Email)
	}
	return out
}

func TestAccessService_GrantNormalizesAndDedupes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.create(t, counselorActor, "youth", "Youth")

	inviter := &fakeInviter{}
	svc := NewAccessService(env.store, env.store, inviter, time.Second, zap.NewNop())

	result, err := svc.Grant(ctx, p.ID, []string{" Friend@Example.com ", "friend@example.com", "not-an-email", "b@example.org"}, counselorActor.Email)
	require.NoError(t, err)
	svc.Close()

	granted := make([]string, 0, len(result.Granted))
	for _, g := range result.Granted {
		granted = append(granted, g.UserEmail)
		assert.Equal(t, p.ID, g.ProfileID)
		assert.Equal(t, counselorActor.Email, g.GrantedBy)
		assert.False(t, g.GrantedAt.IsZero())
	}
	assert.Equal(t, []string{"friend@example.com", "b@example.org"}, granted)
	assert.Equal(t, []string{"not-an-email"}, result.Invalid)

	grants, err := svc.List(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, grants, 2)

	assert.ElementsMatch(t, []string{"friend@example.com", "b@example.org"}, inviter.emails())
	for _, c := range inviter.calls {
		assert.Equal(t, "youth", c.Profile.Slug)
	}
}

func TestAccessService_GrantTwiceKeepsOneGrant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.create(t, counselorActor, "youth", "Youth")
	svc := NewAccessService(env.store, env.store, nil, time.Second, zap.NewNop())

	_, err := svc.Grant(ctx, p.ID, []string{"friend@example.com"}, "first@example.com")
	require.NoError(t, err)
	_, err = svc.Grant(ctx, p.ID, []string{"FRIEND@example.com"}, "second@example.com")
	require.NoError(t, err)

	grants, err := svc.List(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "second@example.com", grants[0].GrantedBy)
}

func TestAccessService_GrantWithNoValidEmails(t *testing.T) {
	env := newTestEnv(t)
	p := env.create(t, counselorActor, "youth", "Youth")
	svc := NewAccessService(env.store, env.store, nil, time.Second, zap.NewNop())

	_, err := svc.Grant(context.Background(), p.ID, []string{"nope", ""}, counselorActor.Email)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "emails")
}

func TestAccessService_InviteFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.create(t, counselorActor, "youth", "Youth")

	inviter := &fakeInviter{err: errors.New("mail provider down")}
	svc := NewAccessService(env.store, env.store, inviter, time.Second, zap.NewNop())

	result, err := svc.Grant(ctx, p.ID, []string{"friend@example.com"}, counselorActor.Email)
	require.NoError(t, err)
	svc.Close()

	assert.Len(t, result.Granted, 1)
	assert.Equal(t, []string{"friend@example.com"}, inviter.emails())

	ok, err := env.store.HasGrant(ctx, p.ID, "friend@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAccessService_RevokeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.create(t, counselorActor, "youth", "Youth")
	svc := NewAccessService(env.store, env.store, nil, time.Second, zap.NewNop())

	_, err := svc.Grant(ctx, p.ID, []string{"friend@example.com"}, counselorActor.Email)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, p.ID, "Friend@Example.com"))
	require.NoError(t, svc.Revoke(ctx, p.ID, "friend@example.com"))

	grants, err := svc.List(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, grants)

	var verr *ValidationError
	assert.True(t, errors.As(svc.Revoke(ctx, p.ID, "  "), &verr))
}

func TestAuthorizer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.create(t, counselorActor, "youth", "Youth")
	def, err := env.profiles.GetBySlug(ctx, models.DefaultProfileSlug)
	require.NoError(t, err)

	svc := NewAccessService(env.store, env.store, nil, time.Second, zap.NewNop())
	_, err = svc.Grant(ctx, p.ID, []string{counseleeActor.Email}, counselorActor.Email)
	require.NoError(t, err)

	canRead := func(actor *models.Actor, p *models.Profile) bool {
		ok, err := env.authz.CanRead(ctx, actor, p)
		require.NoError(t, err)
		return ok
	}

	assert.True(t, canRead(nil, def))
	assert.False(t, canRead(nil, p))
	assert.True(t, canRead(counselorActor, p))
	assert.True(t, canRead(counseleeActor, p))
	assert.True(t, canRead(adminActor, p))
	assert.False(t, canRead(otherCounselor, p))

	assert.True(t, CanManage(counselorActor, p))
	assert.True(t, CanManage(adminActor, p))
	assert.False(t, CanManage(counseleeActor, p))
	assert.False(t, CanManage(nil, p))

	assert.True(t, CanEdit(counselorActor, p))
	assert.False(t, CanEdit(counselorActor, def))
	assert.True(t, CanEdit(adminActor, def))
}
