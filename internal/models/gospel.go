package models

import (
	"strconv"
	"strings"
)

// ScriptureReference is one citation in a subsection. Order within the
// owning slice is display and navigation order.
type ScriptureReference struct {
	Reference string `json:"reference" bson:"reference"`
	Favorite  bool   `json:"favorite" bson:"favorite"`
}

// Subsection carries text plus its references. NestedSubsections is nil when
// the subsection has no nested content.
type Subsection struct {
	Title               string               `json:"title" bson:"title"`
	Content             string               `json:"content" bson:"content"`
	ScriptureReferences []ScriptureReference `json:"scriptureReferences" bson:"scripture_references"`
	NestedSubsections   []Subsection         `json:"nestedSubsections,omitempty" bson:"nested_subsections,omitempty"`
}

type Section struct {
	Section     string       `json:"section" bson:"section"`
	Title       string       `json:"title" bson:"title"`
	Subsections []Subsection `json:"subsections" bson:"subsections"`
}

// GospelPresentationData is the full content tree of a profile.
type GospelPresentationData []Section

// Clone returns a deep copy. Profiles never share tree memory.
func (d GospelPresentationData) Clone() GospelPresentationData {
	if d == nil {
		return nil
	}
	out := make(GospelPresentationData, len(d))
	for i, sec := range d {
		out[i] = Section{
			Section:     sec.Section,
			Title:       sec.Title,
			Subsections: cloneSubsections(sec.Subsections),
		}
	}
	return out
}

func cloneSubsections(in []Subsection) []Subsection {
	if in == nil {
		return nil
	}
	out := make([]Subsection, len(in))
	for i, sub := range in {
		out[i] = Subsection{
			Title:             sub.Title,
			Content:           sub.Content,
			NestedSubsections: cloneSubsections(sub.NestedSubsections),
		}
		if sub.ScriptureReferences != nil {
			out[i].ScriptureReferences = append([]ScriptureReference(nil), sub.ScriptureReferences...)
		}
	}
	return out
}

// Validate reports structural problems keyed by a dotted path.
func (d GospelPresentationData) Validate() map[string]string {
	errors := make(map[string]string)
	for i, sec := range d {
		if strings.TrimSpace(sec.Title) == "" {
			errors[pathKey("sections", i, "title")] = "Section title is required"
		}
		for j, sub := range sec.Subsections {
			validateSubsection(errors, pathKey("sections", i, "subsections")+"."+strconv.Itoa(j), sub)
		}
	}
	return errors
}

func validateSubsection(errors map[string]string, prefix string, sub Subsection) {
	for k, ref := range sub.ScriptureReferences {
		if strings.TrimSpace(ref.Reference) == "" {
			errors[prefix+".scriptureReferences."+strconv.Itoa(k)] = "Scripture reference cannot be empty"
		}
	}
	for n, nested := range sub.NestedSubsections {
		validateSubsection(errors, prefix+".nestedSubsections."+strconv.Itoa(n), nested)
	}
}

// FavoriteReference is a favorite scripture reference with its location.
type FavoriteReference struct {
	Reference       string `json:"reference"`
	SectionIndex    int    `json:"sectionIndex"`
	SubsectionIndex int    `json:"subsectionIndex"`
	NestedIndex     *int   `json:"nestedIndex,omitempty"`
	SectionTitle    string `json:"sectionTitle"`
	SubsectionTitle string `json:"subsectionTitle"`
}

// Favorites walks the tree in display order and returns favorite references.
func (d GospelPresentationData) Favorites() []FavoriteReference {
	out := make([]FavoriteReference, 0)
	for i, sec := range d {
		for j, sub := range sec.Subsections {
			for _, ref := range sub.ScriptureReferences {
				if ref.Favorite {
					out = append(out, FavoriteReference{
						Reference:       ref.Reference,
						SectionIndex:    i,
						SubsectionIndex: j,
						SectionTitle:    sec.Title,
						SubsectionTitle: sub.Title,
					})
				}
			}
			for n, nested := range sub.NestedSubsections {
				for _, ref := range nested.ScriptureReferences {
					if ref.Favorite {
						idx := n
						out = append(out, FavoriteReference{
							Reference:       ref.Reference,
							SectionIndex:    i,
							SubsectionIndex: j,
							NestedIndex:     &idx,
							SectionTitle:    sec.Title,
							SubsectionTitle: nested.Title,
						})
					}
				}
			}
		}
	}
	return out
}

func pathKey(root string, i int, field string) string {
	return root + "." + strconv.Itoa(i) + "." + field
}
