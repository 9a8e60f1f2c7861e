package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData() GospelPresentationData {
	return GospelPresentationData{
		{
			Section: "1",
			Title:   "God's Love",
			Subsections: []Subsection{
				{
					Title: "Created",
					ScriptureReferences: []ScriptureReference{
						{Reference: "John 3:16", Favorite: true},
						{Reference: "Genesis 1:27"},
					},
					NestedSubsections: []Subsection{
						{Title: "Deeper", ScriptureReferences: []ScriptureReference{{Reference: "Psalm 139:14", Favorite: true}}},
					},
				},
			},
		},
		{
			Section:     "2",
			Title:       "Our Problem",
			Subsections: []Subsection{{Title: "Sin", ScriptureReferences: []ScriptureReference{{Reference: "Romans 3:23", Favorite: true}}}},
		},
	}
}

func TestGospelData_CloneIsDeep(t *testing.T) {
	orig := sampleData()
	cp := orig.Clone()
	require.Equal(t, orig, cp)

	cp[0].Title = "x"
	cp[0].Subsections[0].ScriptureReferences[0].Reference = "x"
	cp[0].Subsections[0].NestedSubsections[0].ScriptureReferences[0].Favorite = false

	assert.Equal(t, "God's Love", orig[0].Title)
	assert.Equal(t, "John 3:16", orig[0].Subsections[0].ScriptureReferences[0].Reference)
	assert.True(t, orig[0].Subsections[0].NestedSubsections[0].ScriptureReferences[0].Favorite)
}

func TestGospelData_Favorites(t *testing.T) {
	favs := sampleData().Favorites()
	require.Len(t, favs, 3)

	assert.Equal(t, "John 3:16", favs[0].Reference)
	assert.Nil(t, favs[0].NestedIndex)

	assert.Equal(t, "Psalm 139:14", favs[1].Reference)
	require.NotNil(t, favs[1].NestedIndex)
	assert.Equal(t, 0, *favs[1].NestedIndex)
	assert.Equal(t, "Deeper", favs[1].SubsectionTitle)

	assert.Equal(t, "Romans 3:23", favs[2].Reference)
	assert.Equal(t, 1, favs[2].SectionIndex)
}

func TestGospelData_Validate(t *testing.T) {
	data := sampleData()
	assert.Empty(t, data.Validate())

	data[1].Title = " "
	data[0].Subsections[0].NestedSubsections[0].ScriptureReferences[0].Reference = ""
	errs := data.Validate()
	assert.Contains(t, errs, "sections.1.title")
	assert.Contains(t, errs, "sections.0.subsections.0.nestedSubsections.0.scriptureReferences.0")
}

func TestGospelData_JSONShape(t *testing.T) {
	b, err := json.Marshal(sampleData()[:1])
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, `"scriptureReferences"`)
	assert.Contains(t, s, `"nestedSubsections"`)
	assert.Contains(t, s, `"favorite":true`)
}

func TestCreateProfileRequest(t *testing.T) {
	req := CreateProfileRequest{Slug: " youth ", Title: " Youth Group "}
	req.Normalize()
	assert.Equal(t, "youth", req.Slug)
	assert.Equal(t, "Youth Group", req.Title)
	assert.Equal(t, DefaultProfileSlug, req.CloneFromSlug)
	assert.Empty(t, req.Validate())

	req.Description = strings.Repeat("a", MaxDescriptionLength+1)
	req.Slug = "Youth"
	errs := req.Validate()
	assert.Contains(t, errs, "description")
	assert.Contains(t, errs, "slug")
}

func TestUpdateProfileRequest_Patch(t *testing.T) {
	title := "  New title "
	req := UpdateProfileRequest{Title: &title}
	assert.Empty(t, req.Validate())

	patch := req.Patch()
	require.NotNil(t, patch.Title)
	assert.Equal(t, "New title", *patch.Title)
	assert.Nil(t, patch.Description)
	assert.Nil(t, patch.GospelData)
	assert.False(t, patch.Empty())
	assert.True(t, ProfilePatch{}.Empty())

	empty := ""
	assert.Contains(t, (&UpdateProfileRequest{Title: &empty}).Validate(), "title")
}

func TestUpdateProfileRequest_TrimsBeforeLengthChecks(t *testing.T) {
	title := "  " + strings.Repeat("a", 50) + "  "
	desc := " " + strings.Repeat("é", MaxDescriptionLength) + " "
	req := UpdateProfileRequest{Title: &title, Description: &desc}
	assert.Empty(t, req.Validate())

	long := strings.Repeat("é", MaxDescriptionLength+1)
	assert.Contains(t, (&UpdateProfileRequest{Description: &long}).Validate(), "description")

	create := CreateProfileRequest{Slug: "accents", Title: "Accents", Description: strings.Repeat("é", 150)}
	create.Normalize()
	assert.Empty(t, create.Validate())
}

func TestUpdateProfileRequest_ProgressAndTemplate(t *testing.T) {
	tmpl := true
	req := UpdateProfileRequest{
		IsTemplate: &tmpl,
		LastViewedScripture: &ScriptureProgress{
			Reference:    " John 3:16 ",
			SectionID:    "1",
			SubsectionID: "1-0",
			ViewedAt:     time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	assert.Empty(t, req.Validate())

	patch := req.Patch()
	require.NotNil(t, patch.IsTemplate)
	assert.True(t, *patch.IsTemplate)
	require.NotNil(t, patch.LastViewedScripture)
	assert.Equal(t, "John 3:16", patch.LastViewedScripture.Reference)
	assert.True(t, patch.LastViewedScripture.ViewedAt.IsZero(), "client viewedAt is ignored")
	assert.Equal(t, " John 3:16 ", req.LastViewedScripture.Reference)

	errs := (&UpdateProfileRequest{LastViewedScripture: &ScriptureProgress{SectionID: "1"}}).Validate()
	assert.Contains(t, errs, "lastViewedScripture.reference")
	assert.Contains(t, errs, "lastViewedScripture.subsectionId")
	assert.NotContains(t, errs, "lastViewedScripture.sectionId")
}

func TestProfile_PublicHidesInternals(t *testing.T) {
	owner := "uid-1"
	p := &Profile{ID: "id-1", Slug: "youth", Title: "Youth", CreatedBy: &owner, VisitCount: 3, AccessEmails: []string{"a@example.com"}}
	b, err := json.Marshal(p.Public())
	require.NoError(t, err)

	s := string(b)
	assert.Contains(t, s, `"slug":"youth"`)
	for _, hidden := range []string{"id-1", "createdBy", "visitCount", "accessEmails", "createdAt"} {
		assert.NotContains(t, s, hidden)
	}
	assert.True(t, p.OwnedBy("uid-1"))
	assert.False(t, p.OwnedBy(""))
}

func TestBackup_RoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Profile{Slug: "youth", Title: "Youth", Description: "desc", GospelData: sampleData()}

	b, err := json.Marshal(NewProfileBackup(p, "admin@example.com", now))
	require.NoError(t, err)

	parsed, err := ParseBackup(b)
	require.NoError(t, err)
	assert.Equal(t, BackupVersion, parsed.Backup.Version)
	assert.Equal(t, "admin@example.com", parsed.Backup.ExportedBy)
	assert.Equal(t, p.GospelData, parsed.Profile.GospelData)

	patch := parsed.RestorePatch()
	require.NotNil(t, patch.Title)
	assert.Equal(t, "Youth", *patch.Title)
	assert.True(t, patch.ClearProgress)
}

func TestParseBackup_Legacy(t *testing.T) {
	parsed, err := ParseBackup([]byte(`{"gospelData":[{"section":"1","title":"Only","subsections":[]}]}`))
	require.NoError(t, err)
	require.Len(t, parsed.Profile.GospelData, 1)

	patch := parsed.RestorePatch()
	assert.Nil(t, patch.Title)
	assert.Nil(t, patch.Description)

	_, err = ParseBackup([]byte(`{"profile":{"slug":"x"}}`))
	assert.ErrorIs(t, err, ErrInvalidBackup)

	_, err = ParseBackup([]byte(`not json`))
	assert.Error(t, err)
}

func TestActorRoles(t *testing.T) {
	var anon *Actor
	assert.False(t, anon.Authenticated())
	assert.False(t, anon.IsAdmin())
	assert.False(t, anon.CanCreateProfiles())

	assert.True(t, (&Actor{UserID: "u", Role: RoleCounselor}).CanCreateProfiles())
	assert.False(t, (&Actor{UserID: "u", Role: RoleCounselee}).CanCreateProfiles())
	assert.True(t, (&Actor{UserID: "u", Role: RoleAdmin}).IsAdmin())
	assert.False(t, Role("owner").Valid())
}
