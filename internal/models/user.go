package models

import "time"

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCounselor Role = "counselor"
	RoleCounselee Role = "counselee"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCounselor, RoleCounselee:
		return true
	}
	return false
}

// UserProfile is the auth-side record keyed by the identity provider uid.
type UserProfile struct {
	ID          string    `json:"id" bson:"_id"`
	Email       string    `json:"email" bson:"email,omitempty"`
	Role        Role      `json:"role" bson:"role"`
	DisplayName string    `json:"displayName" bson:"display_name,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// Actor is the caller of an operation. A nil *Actor is anonymous.
type Actor struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
	DisplayName string `json:"displayName"`
}

func (a *Actor) Authenticated() bool {
	return a != nil && a.UserID != ""
}

func (a *Actor) IsAdmin() bool {
	return a.Authenticated() && a.Role == RoleAdmin
}

// CanCreateProfiles reports whether the actor's role allows creating profiles.
func (a *Actor) CanCreateProfiles() bool {
	return a.Authenticated() && (a.Role == RoleAdmin || a.Role == RoleCounselor)
}

type UpdateUserRequest struct {
	Role        *Role   `json:"role"`
	DisplayName *string `json:"displayName"`
}

func (r *UpdateUserRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Role != nil && !r.Role.Valid() {
		errors["role"] = "Role must be one of admin, counselor, counselee"
	}
	if r.DisplayName != nil && len(*r.DisplayName) > 100 {
		errors["displayName"] = "Display name is too long"
	}

	return errors
}
