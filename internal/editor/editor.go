// Package editor mutates an in-memory copy of a profile's content tree and
// commits it back as one whole-tree update. Nothing is persisted until Commit.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gospelpresentation/backend/internal/models"
)

var (
	ErrOutOfRange     = errors.New("location out of range")
	ErrEmptyReference = errors.New("scripture reference cannot be empty")
	ErrNoChanges      = errors.New("no unsaved changes")
	ErrUnknownOp      = errors.New("unknown operation")
)

// Location addresses a subsection, or a nested subsection when Nested is set.
type Location struct {
	Section    int  `json:"section"`
	Subsection int  `json:"subsection"`
	Nested     *int `json:"nested,omitempty"`
}

func (l Location) String() string {
	if l.Nested != nil {
		return fmt.Sprintf("%d.%d.%d", l.Section, l.Subsection, *l.Nested)
	}
	return fmt.Sprintf("%d.%d", l.Section, l.Subsection)
}

// Updater persists a patch and returns the stored record.
type Updater interface {
	Update(ctx context.Context, slug string, patch models.ProfilePatch) (*models.Profile, error)
}

type Editor struct {
	slug  string
	saved models.GospelPresentationData
	data  models.GospelPresentationData
	dirty bool
}

// New starts an editing session over a deep copy of p's tree.
func New(p *models.Profile) *Editor {
	return &Editor{
		slug:  p.Slug,
		saved: p.GospelData.Clone(),
		data:  p.GospelData.Clone(),
	}
}

func (e *Editor) Slug() string { return e.slug }

// Data returns a copy of the working tree, including unsaved edits.
func (e *Editor) Data() models.GospelPresentationData { return e.data.Clone() }

func (e *Editor) HasUnsavedChanges() bool { return e.dirty }

// Discard drops unsaved edits.
func (e *Editor) Discard() {
	e.data = e.saved.Clone()
	e.dirty = false
}

func (e *Editor) SetSectionTitle(section int, title string) error {
	if section < 0 || section >= len(e.data) {
		return fmt.Errorf("%w: section %d", ErrOutOfRange, section)
	}
	e.data[section].Title = title
	e.dirty = true
	return nil
}

func (e *Editor) SetSubsectionTitle(loc Location, title string) error {
	sub, err := e.subsection(loc)
	if err != nil {
		return err
	}
	sub.Title = title
	e.dirty = true
	return nil
}

func (e *Editor) SetSubsectionContent(loc Location, content string) error {
	sub, err := e.subsection(loc)
	if err != nil {
		return err
	}
	sub.Content = content
	e.dirty = true
	return nil
}

func (e *Editor) ToggleFavorite(loc Location, index int) error {
	sub, err := e.subsection(loc)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(sub.ScriptureReferences) {
		return fmt.Errorf("%w: reference %d at %s", ErrOutOfRange, index, loc)
	}
	sub.ScriptureReferences[index].Favorite = !sub.ScriptureReferences[index].Favorite
	e.dirty = true
	return nil
}

// AddReference appends a reference to the end of the subsection's list.
func (e *Editor) AddReference(loc Location, reference string) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return ErrEmptyReference
	}
	sub, err := e.subsection(loc)
	if err != nil {
		return err
	}
	sub.ScriptureReferences = append(sub.ScriptureReferences, models.ScriptureReference{Reference: reference})
	e.dirty = true
	return nil
}

func (e *Editor) RemoveReference(loc Location, index int) error {
	sub, err := e.subsection(loc)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(sub.ScriptureReferences) {
		return fmt.Errorf("%w: reference %d at %s", ErrOutOfRange, index, loc)
	}
	sub.ScriptureReferences = removeAt(sub.ScriptureReferences, index)
	e.dirty = true
	return nil
}

// MoveReference removes the reference at from/fromIndex and inserts it at
// to/toIndex, where toIndex is a position in the destination list after the
// removal. toIndex past the end appends. A move never duplicates.
func (e *Editor) MoveReference(from Location, fromIndex int, to Location, toIndex int) error {
	src, err := e.subsection(from)
	if err != nil {
		return err
	}
	if fromIndex < 0 || fromIndex >= len(src.ScriptureReferences) {
		return fmt.Errorf("%w: reference %d at %s", ErrOutOfRange, fromIndex, from)
	}
	// Resolve the destination before mutating so a bad target leaves the tree untouched.
	if _, err := e.subsection(to); err != nil {
		return err
	}
	if toIndex < 0 {
		return fmt.Errorf("%w: target index %d", ErrOutOfRange, toIndex)
	}

	ref := src.ScriptureReferences[fromIndex]
	src.ScriptureReferences = removeAt(src.ScriptureReferences, fromIndex)

	dst, _ := e.subsection(to)
	if toIndex > len(dst.ScriptureReferences) {
		toIndex = len(dst.ScriptureReferences)
	}
	dst.ScriptureReferences = insertAt(dst.ScriptureReferences, toIndex, ref)
	e.dirty = true
	return nil
}

// Commit persists the whole tree in one update and replaces the working copy
// with the stored result, which is authoritative.
func (e *Editor) Commit(ctx context.Context, u Updater) (*models.Profile, error) {
	if !e.dirty {
		return nil, ErrNoChanges
	}
	p, err := u.Update(ctx, e.slug, models.ProfilePatch{GospelData: e.data.Clone()})
	if err != nil {
		return nil, err
	}
	e.saved = p.GospelData.Clone()
	e.data = p.GospelData.Clone()
	e.dirty = false
	return p, nil
}

func (e *Editor) subsection(loc Location) (*models.Subsection, error) {
	if loc.Section < 0 || loc.Section >= len(e.data) {
		return nil, fmt.Errorf("%w: section %d", ErrOutOfRange, loc.Section)
	}
	subs := e.data[loc.Section].Subsections
	if loc.Subsection < 0 || loc.Subsection >= len(subs) {
		return nil, fmt.Errorf("%w: subsection %s", ErrOutOfRange, loc)
	}
	sub := &subs[loc.Subsection]
	if loc.Nested == nil {
		return sub, nil
	}
	n := *loc.Nested
	if n < 0 || n >= len(sub.NestedSubsections) {
		return nil, fmt.Errorf("%w: nested subsection %s", ErrOutOfRange, loc)
	}
	return &sub.NestedSubsections[n], nil
}

func removeAt(refs []models.ScriptureReference, i int) []models.ScriptureReference {
	out := make([]models.ScriptureReference, 0, len(refs)-1)
	out = append(out, refs[:i]...)
	return append(out, refs[i+1:]...)
}

func insertAt(refs []models.ScriptureReference, i int, ref models.ScriptureReference) []models.ScriptureReference {
	out := make([]models.ScriptureReference, 0, len(refs)+1)
	out = append(out, refs[:i]...)
	out = append(out, ref)
	return append(out, refs[i:]...)
}
