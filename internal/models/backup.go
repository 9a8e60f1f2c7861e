package models

import (
	"encoding/json"
	"errors"
	"time"
)

// BackupVersion is written into every exported backup.
const BackupVersion = "1.0"

var ErrInvalidBackup = errors.New("backup file has no profile or gospelData")

type BackupProfile struct {
	Slug                string                 `json:"slug"`
	Title               string                 `json:"title"`
	Description         string                 `json:"description"`
	IsTemplate          bool                   `json:"isTemplate"`
	GospelData          GospelPresentationData `json:"gospelData"`
	LastViewedScripture *ScriptureProgress     `json:"lastViewedScripture"`
}

type BackupMeta struct {
	ExportedAt time.Time `json:"exportedAt"`
	ExportedBy string    `json:"exportedBy"`
	Version    string    `json:"version"`
}

// ProfileBackup is the persisted backup file format.
type ProfileBackup struct {
	Profile BackupProfile `json:"profile"`
	Backup  BackupMeta    `json:"backup"`
}

func NewProfileBackup(p *Profile, exportedBy string, now time.Time) ProfileBackup {
	return ProfileBackup{
		Profile: BackupProfile{
			Slug:                p.Slug,
			Title:               p.Title,
			Description:         p.Description,
			IsTemplate:          p.IsTemplate,
			GospelData:          p.GospelData.Clone(),
			LastViewedScripture: p.LastViewedScripture,
		},
		Backup: BackupMeta{
			ExportedAt: now.UTC(),
			ExportedBy: exportedBy,
			Version:    BackupVersion,
		},
	}
}

// ParseBackup accepts the current format and the legacy flat {gospelData: [...]}.
// Legacy files carry no metadata, so Backup is zero and Title is empty.
func ParseBackup(data []byte) (*ProfileBackup, error) {
	var raw struct {
		Profile    *BackupProfile         `json:"profile"`
		Backup     BackupMeta             `json:"backup"`
		GospelData GospelPresentationData `json:"gospelData"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	switch {
	case raw.Profile != nil && raw.Profile.GospelData != nil:
		return &ProfileBackup{Profile: *raw.Profile, Backup: raw.Backup}, nil
	case raw.GospelData != nil:
		return &ProfileBackup{Profile: BackupProfile{GospelData: raw.GospelData}}, nil
	}
	return nil, ErrInvalidBackup
}

// RestorePatch turns a backup into the update applied to the target profile.
func (b *ProfileBackup) RestorePatch() ProfilePatch {
	patch := ProfilePatch{GospelData: b.Profile.GospelData.Clone()}
	if b.Profile.Title != "" {
		t := b.Profile.Title
		patch.Title = &t
	}
	if b.Profile.Description != "" {
		d := b.Profile.Description
		patch.Description = &d
	}
	if b.Profile.LastViewedScripture != nil {
		lv := *b.Profile.LastViewedScripture
		patch.LastViewedScripture = &lv
	} else {
		patch.ClearProgress = true
	}
	return patch
}
