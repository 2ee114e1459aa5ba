package model

import "github.com/ppiankov/kinscan/internal/flexdate"

// Person is a normalized biographical record with links to relatives.
// Each extraction builds fresh nodes; the same individual may appear in
// several places of a tree as independent copies.
type Person struct {
	Name       string         `json:"name"`
	GivenName  string         `json:"given_name,omitempty"`
	FamilyName string         `json:"family_name,omitempty"`
	BirthDate  *flexdate.Date `json:"birth_date,omitempty"`
	BirthPlace string         `json:"birth_place,omitempty"`
	DeathDate  *flexdate.Date `json:"death_date,omitempty"`
	DeathPlace string         `json:"death_place,omitempty"`

	Parents  []*Person `json:"parents,omitempty"`
	Spouses  []*Person `json:"spouses,omitempty"`
	Children []*Person `json:"children,omitempty"`
}

// DisplayName returns the name, or "Unknown" when none was found.
func (p *Person) DisplayName() string {
	if p.Name == "" {
		return "Unknown"
	}
	return p.Name
}

// HasBirthDate reports whether a usable birth date is set.
func (p *Person) HasBirthDate() bool {
	return p.BirthDate != nil && !p.BirthDate.IsZero()
}

// HasDeathDate reports whether a usable death date is set.
func (p *Person) HasDeathDate() bool {
	return p.DeathDate != nil && !p.DeathDate.IsZero()
}

// Relation names how a displayed person relates to the row above it.
type Relation string

const (
	RelationSelf   Relation = "self"
	RelationParent Relation = "parent"
	RelationSpouse Relation = "spouse"
	RelationChild  Relation = "child"
)

// SearchLink is a ready-made query URL on a third-party site.
type SearchLink struct {
	Site string `json:"site"`
	URL  string `json:"url"`
}
