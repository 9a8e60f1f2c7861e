package models

import "time"

// AccessGrant allows the holder of UserEmail to read a non-default profile.
type AccessGrant struct {
	ID        string    `json:"id" bson:"_id"`
	ProfileID string    `json:"profileId" bson:"profile_id"`
	UserEmail string    `json:"userEmail" bson:"user_email"`
	GrantedBy string    `json:"grantedBy" bson:"granted_by"`
	GrantedAt time.Time `json:"grantedAt" bson:"granted_at"`
}

type GrantAccessRequest struct {
	Emails []string `json:"emails"`
}

func (r *GrantAccessRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if len(r.Emails) == 0 {
		errors["emails"] = "At least one email is required"
	}
	return errors
}

// GrantAccessResult reports which emails were granted and which were discarded
// as malformed.
type GrantAccessResult struct {
	Granted []AccessGrant `json:"granted"`
	Invalid []string      `json:"invalid,omitempty"`
}
