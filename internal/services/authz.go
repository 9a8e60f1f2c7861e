package services

import (
	"context"

	"github.com/gospelpresentation/backend/internal/models"
)

// Authorizer answers permission questions about a profile for an actor. The
// store's own constraints still apply underneath; this is the boundary check.
type Authorizer struct {
	grants GrantStore
}

func NewAuthorizer(grants GrantStore) *Authorizer {
	return &Authorizer{grants: grants}
}

// CanRead: default and template profiles are readable by anyone; others need
// the owner, an admin, or an access grant for the actor's email.
func (a *Authorizer) CanRead(ctx context.Context, actor *models.Actor, p *models.Profile) (bool, error) {
	if p.IsDefault || p.IsTemplate {
		return true, nil
	}
	if !actor.Authenticated() {
		return false, nil
	}
	if CanManage(actor, p) {
		return true, nil
	}
	if actor.Email == "" {
		return false, nil
	}
	return a.grants.HasGrant(ctx, p.ID, actor.Email)
}

// CanManage reports whether the actor may manage access, delete, or export the
// profile: the owner or an admin.
func CanManage(actor *models.Actor, p *models.Profile) bool {
	if !actor.Authenticated() {
		return false
	}
	return actor.IsAdmin() || p.OwnedBy(actor.UserID)
}

// CanEdit reports whether the actor may change the profile's content. Default
// and template profiles are admin-only.
func CanEdit(actor *models.Actor, p *models.Profile) bool {
	if p.IsDefault || p.IsTemplate {
		return actor.IsAdmin()
	}
	return CanManage(actor, p)
}
