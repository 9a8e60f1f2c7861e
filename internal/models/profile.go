package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gospelpresentation/backend/internal/validation"
)

// DefaultProfileSlug names the single system-wide default profile.
const DefaultProfileSlug = "default"

// MaxDescriptionLength bounds Profile.Description.
const MaxDescriptionLength = 200

// ScriptureProgress is the last-viewed-scripture pointer of a profile.
type ScriptureProgress struct {
	Reference    string    `json:"reference" bson:"reference"`
	SectionID    string    `json:"sectionId" bson:"section_id"`
	SubsectionID string    `json:"subsectionId" bson:"subsection_id"`
	ViewedAt     time.Time `json:"viewedAt" bson:"viewed_at"`
}

// Normalize trims the three location fields.
func (sp *ScriptureProgress) Normalize() {
	sp.Reference = strings.TrimSpace(sp.Reference)
	sp.SectionID = strings.TrimSpace(sp.SectionID)
	sp.SubsectionID = strings.TrimSpace(sp.SubsectionID)
}

// Validate requires every location field. ViewedAt is stamped by the server.
func (sp *ScriptureProgress) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(sp.Reference) == "" {
		errors["reference"] = "Reference is required"
	}
	if strings.TrimSpace(sp.SectionID) == "" {
		errors["sectionId"] = "Section ID is required"
	}
	if strings.TrimSpace(sp.SubsectionID) == "" {
		errors["subsectionId"] = "Subsection ID is required"
	}
	return errors
}

// Profile is a named, owned copy of the content tree. CreatedBy is nil for the
// system default profile. OwnerDisplayName and AccessEmails are derived on read
// and never persisted.
type Profile struct {
	ID                  string                 `json:"id" bson:"_id"`
	Slug                string                 `json:"slug" bson:"slug"`
	Title               string                 `json:"title" bson:"title"`
	Description         string                 `json:"description" bson:"description"`
	IsDefault           bool                   `json:"isDefault" bson:"is_default"`
	IsTemplate          bool                   `json:"isTemplate" bson:"is_template"`
	VisitCount          int64                  `json:"visitCount" bson:"visit_count"`
	GospelData          GospelPresentationData `json:"gospelData" bson:"gospel_data"`
	LastViewedScripture *ScriptureProgress     `json:"lastViewedScripture" bson:"last_viewed_scripture"`
	CreatedBy           *string                `json:"createdBy" bson:"created_by"`
	OwnerDisplayName    string                 `json:"ownerDisplayName,omitempty" bson:"-"`
	AccessEmails        []string               `json:"accessEmails,omitempty" bson:"-"`
	CreatedAt           time.Time              `json:"createdAt" bson:"created_at"`
	UpdatedAt           time.Time              `json:"updatedAt" bson:"updated_at"`
	LastVisited         *time.Time             `json:"lastVisited" bson:"last_visited"`
}

// OwnedBy reports whether userID created the profile.
func (p *Profile) OwnedBy(userID string) bool {
	return p != nil && p.CreatedBy != nil && userID != "" && *p.CreatedBy == userID
}

// Clone returns a deep copy of the record, including the content tree.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	out.GospelData = p.GospelData.Clone()
	if p.LastViewedScripture != nil {
		lv := *p.LastViewedScripture
		out.LastViewedScripture = &lv
	}
	if p.CreatedBy != nil {
		cb := *p.CreatedBy
		out.CreatedBy = &cb
	}
	if p.LastVisited != nil {
		t := *p.LastVisited
		out.LastVisited = &t
	}
	if p.AccessEmails != nil {
		out.AccessEmails = append([]string(nil), p.AccessEmails...)
	}
	return &out
}

// PublicProfile is safe to return to any reader (no id, timestamps or owner fields).
type PublicProfile struct {
	Slug                string                 `json:"slug"`
	Title               string                 `json:"title"`
	Description         string                 `json:"description"`
	IsDefault           bool                   `json:"isDefault"`
	IsTemplate          bool                   `json:"isTemplate"`
	GospelData          GospelPresentationData `json:"gospelData"`
	LastViewedScripture *ScriptureProgress     `json:"lastViewedScripture"`
	OwnerDisplayName    string                 `json:"ownerDisplayName,omitempty"`
}

func (p *Profile) Public() PublicProfile {
	return PublicProfile{
		Slug:                p.Slug,
		Title:               p.Title,
		Description:         p.Description,
		IsDefault:           p.IsDefault,
		IsTemplate:          p.IsTemplate,
		GospelData:          p.GospelData,
		LastViewedScripture: p.LastViewedScripture,
		OwnerDisplayName:    p.OwnerDisplayName,
	}
}

type CreateProfileRequest struct {
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	CloneFromSlug string `json:"cloneFromSlug"`
	IsTemplate    bool   `json:"isTemplate"`
}

// Normalize trims user input and applies the default clone source.
func (r *CreateProfileRequest) Normalize() {
	r.Slug = strings.TrimSpace(r.Slug)
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.CloneFromSlug = strings.TrimSpace(r.CloneFromSlug)
	if r.CloneFromSlug == "" {
		r.CloneFromSlug = DefaultProfileSlug
	}
}

// Validate checks shape only. Slug uniqueness is enforced by the store.
func (r *CreateProfileRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if res := validation.ValidateSlug(r.Slug, nil); !res.IsValid {
		errors["slug"] = res.Error
	}
	if res := validation.ValidateTitle(r.Title); !res.IsValid {
		errors["title"] = res.Error
	}
	if !validDescription(r.Description) {
		errors["description"] = "Description must be 200 characters or less"
	}

	return errors
}

func validDescription(d string) bool {
	return utf8.RuneCountInString(d) <= MaxDescriptionLength
}

// ProfilePatch lists the only mutable fields of a profile. Nil fields are left
// unchanged. Slug, id and createdAt have no representation here.
type ProfilePatch struct {
	Title               *string
	Description         *string
	IsTemplate          *bool
	GospelData          GospelPresentationData
	LastViewedScripture *ScriptureProgress
	ClearProgress       bool
}

// Empty reports whether the patch changes nothing but updatedAt.
func (p ProfilePatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.IsTemplate == nil &&
		p.GospelData == nil && p.LastViewedScripture == nil && !p.ClearProgress
}

type UpdateProfileRequest struct {
	Title               *string                `json:"title"`
	Description         *string                `json:"description"`
	IsTemplate          *bool                  `json:"isTemplate"`
	GospelData          GospelPresentationData `json:"gospelData"`
	LastViewedScripture *ScriptureProgress     `json:"lastViewedScripture"`
}

func (r *UpdateProfileRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Title != nil {
		if res := validation.ValidateTitle(strings.TrimSpace(*r.Title)); !res.IsValid {
			errors["title"] = res.Error
		}
	}
	if r.Description != nil && !validDescription(strings.TrimSpace(*r.Description)) {
		errors["description"] = "Description must be 200 characters or less"
	}
	for k, v := range r.GospelData.Validate() {
		errors["gospelData."+k] = v
	}
	if r.LastViewedScripture != nil {
		for k, v := range r.LastViewedScripture.Validate() {
			errors["lastViewedScripture."+k] = v
		}
	}

	return errors
}

func (r *UpdateProfileRequest) Patch() ProfilePatch {
	patch := ProfilePatch{
		IsTemplate: r.IsTemplate,
		GospelData: r.GospelData,
	}
	if r.LastViewedScripture != nil {
		lv := *r.LastViewedScripture
		lv.Normalize()
		lv.ViewedAt = time.Time{}
		patch.LastViewedScripture = &lv
	}
	if r.Title != nil {
		t := strings.TrimSpace(*r.Title)
		patch.Title = &t
	}
	if r.Description != nil {
		d := strings.TrimSpace(*r.Description)
		patch.Description = &d
	}
	return patch
}

// TrackViewRequest is the body of a scripture-progress update.
type TrackViewRequest struct {
	Reference    string `json:"reference"`
	SectionID    string `json:"sectionId"`
	SubsectionID string `json:"subsectionId"`
}
