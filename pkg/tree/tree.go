// Package tree defines the genealogical record model: persons, family units,
// and the graph that holds one side of a reconciliation run. Records are
// loaded once and treated as immutable for the duration of a run; relation
// fields are foreign keys into the same graph, not ownership.
package tree

import (
	"sort"
	"strings"

	"github.com/kinsync/kinsync/pkg/dates"
	"github.com/kinsync/kinsync/pkg/names"
)

// PersonID identifies a person within its own graph.
type PersonID string

// String returns the id as a string.
func (id PersonID) String() string { return string(id) }

// FamilyID identifies a family unit within its own graph.
type FamilyID string

// String returns the id as a string.
func (id FamilyID) String() string { return string(id) }

// Gender is the recorded gender of a person.
type Gender int

const (
	// GenderUnknown means the record does not state a gender.
	GenderUnknown Gender = iota
	// GenderMale is a recorded male gender.
	GenderMale
	// GenderFemale is a recorded female gender.
	GenderFemale
)

// String returns the gender name.
func (g Gender) String() string {
	switch g {
	case GenderMale:
		return "male"
	case GenderFemale:
		return "female"
	default:
		return "unknown"
	}
}

// Conflicts reports whether both genders are known and differ.
func (g Gender) Conflicts(other Gender) bool {
	return g != GenderUnknown && other != GenderUnknown && g != other
}

// MarshalText encodes the gender as its name for JSON and YAML files.
func (g Gender) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText decodes a gender name. Unrecognized values are treated as
// unknown rather than rejected; records from foreign systems carry all kinds
// of gender markers.
func (g *Gender) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "male", "m":
		*g = GenderMale
	case "female", "f":
		*g = GenderFemale
	default:
		*g = GenderUnknown
	}
	return nil
}

// Person is one person record as known to one side of a reconciliation.
//
// Normalized name fields are derived from the raw names via names.Normalize
// and are not independently mutable; Normalize recomputes them.
type Person struct {
	ID PersonID `json:"id" yaml:"id"`

	GivenName  string `json:"given_name,omitempty" yaml:"given_name,omitempty"`
	Surname    string `json:"surname,omitempty" yaml:"surname,omitempty"`
	MaidenName string `json:"maiden_name,omitempty" yaml:"maiden_name,omitempty"`
	MiddleName string `json:"middle_name,omitempty" yaml:"middle_name,omitempty"`
	Nickname   string `json:"nickname,omitempty" yaml:"nickname,omitempty"`
	Suffix     string `json:"suffix,omitempty" yaml:"suffix,omitempty"`

	NormGiven   string `json:"-" yaml:"-"`
	NormSurname string `json:"-" yaml:"-"`
	NormMaiden  string `json:"-" yaml:"-"`
	NormMiddle  string `json:"-" yaml:"-"`

	Gender Gender `json:"gender,omitempty" yaml:"gender,omitempty"`

	Birth  *dates.Date `json:"birth,omitempty" yaml:"birth,omitempty"`
	Death  *dates.Date `json:"death,omitempty" yaml:"death,omitempty"`
	Burial *dates.Date `json:"burial,omitempty" yaml:"burial,omitempty"`

	BirthPlace  string `json:"birth_place,omitempty" yaml:"birth_place,omitempty"`
	DeathPlace  string `json:"death_place,omitempty" yaml:"death_place,omitempty"`
	BurialPlace string `json:"burial_place,omitempty" yaml:"burial_place,omitempty"`

	PhotoURLs []string `json:"photo_urls,omitempty" yaml:"photo_urls,omitempty"`

	// RFN is the optional external-system profile id used for exact-match
	// shortcuts when both sides carry it.
	RFN string `json:"rfn,omitempty" yaml:"rfn,omitempty"`

	FatherID   PersonID   `json:"father_id,omitempty" yaml:"father_id,omitempty"`
	MotherID   PersonID   `json:"mother_id,omitempty" yaml:"mother_id,omitempty"`
	SpouseIDs  []PersonID `json:"spouse_ids,omitempty" yaml:"spouse_ids,omitempty"`
	ChildIDs   []PersonID `json:"child_ids,omitempty" yaml:"child_ids,omitempty"`
	SiblingIDs []PersonID `json:"sibling_ids,omitempty" yaml:"sibling_ids,omitempty"`
}

// Normalize recomputes the derived normalized name fields from the raw names.
func (p *Person) Normalize() {
	p.NormGiven = names.Normalize(p.GivenName)
	p.NormSurname = names.Normalize(p.Surname)
	p.NormMaiden = names.Normalize(p.MaidenName)
	p.NormMiddle = names.Normalize(p.MiddleName)
}

// DisplayName renders "Given Surname" for logs and match reasons.
func (p *Person) DisplayName() string {
	switch {
	case p.GivenName != "" && p.Surname != "":
		return p.GivenName + " " + p.Surname
	case p.GivenName != "":
		return p.GivenName
	case p.Surname != "":
		return p.Surname
	default:
		return string(p.ID)
	}
}

// BirthYear returns the birth year, or 0 when unknown.
func (p *Person) BirthYear() int {
	if p.Birth == nil {
		return 0
	}
	return p.Birth.Year
}

// Family is one family unit: a partnership and its children. At least one of
// husband/wife is usually present, but a family may exist solely to group
// children and matching must tolerate that.
type Family struct {
	ID FamilyID `json:"id" yaml:"id"`

	HusbandID PersonID   `json:"husband_id,omitempty" yaml:"husband_id,omitempty"`
	WifeID    PersonID   `json:"wife_id,omitempty" yaml:"wife_id,omitempty"`
	ChildIDs  []PersonID `json:"child_ids,omitempty" yaml:"child_ids,omitempty"`

	Marriage      *dates.Date `json:"marriage,omitempty" yaml:"marriage,omitempty"`
	Divorce       *dates.Date `json:"divorce,omitempty" yaml:"divorce,omitempty"`
	MarriagePlace string      `json:"marriage_place,omitempty" yaml:"marriage_place,omitempty"`
}

// Parents returns the ids of the declared partners, skipping absent ones.
func (f *Family) Parents() []PersonID {
	parents := make([]PersonID, 0, 2)
	if f.HusbandID != "" {
		parents = append(parents, f.HusbandID)
	}
	if f.WifeID != "" {
		parents = append(parents, f.WifeID)
	}
	return parents
}

// HasMember reports whether the id is a partner or child of the family.
func (f *Family) HasMember(id PersonID) bool {
	if f.HusbandID == id || f.WifeID == id {
		return true
	}
	for _, c := range f.ChildIDs {
		if c == id {
			return true
		}
	}
	return false
}

// Graph is an immutable snapshot of one side's records.
type Graph struct {
	Persons  map[PersonID]*Person `json:"persons" yaml:"persons"`
	Families map[FamilyID]*Family `json:"families,omitempty" yaml:"families,omitempty"`
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Persons:  make(map[PersonID]*Person),
		Families: make(map[FamilyID]*Family),
	}
}

// Person returns the person with the given id, or nil.
func (g *Graph) Person(id PersonID) *Person {
	return g.Persons[id]
}

// Family returns the family with the given id, or nil.
func (g *Graph) Family(id FamilyID) *Family {
	return g.Families[id]
}

// PersonList returns all persons ordered by id for deterministic iteration.
func (g *Graph) PersonList() []*Person {
	out := make([]*Person, 0, len(g.Persons))
	for _, p := range g.Persons {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FamilyList returns all families ordered by id for deterministic iteration.
func (g *Graph) FamilyList() []*Family {
	out := make([]*Family, 0, len(g.Families))
	for _, f := range g.Families {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FamiliesWithParent returns the families in which the person is a declared
// partner, ordered by family id.
func (g *Graph) FamiliesWithParent(id PersonID) []*Family {
	var out []*Family
	for _, f := range g.FamilyList() {
		if f.HusbandID == id || f.WifeID == id {
			out = append(out, f)
		}
	}
	return out
}

// IsParent reports whether the person is a declared partner in any family.
func (g *Graph) IsParent(id PersonID) bool {
	for _, f := range g.Families {
		if f.HusbandID == id || f.WifeID == id {
			return true
		}
	}
	return false
}

// IsChild reports whether the person appears as a child in any family.
func (g *Graph) IsChild(id PersonID) bool {
	for _, f := range g.Families {
		for _, c := range f.ChildIDs {
			if c == id {
				return true
			}
		}
	}
	return false
}

// Normalize recomputes derived name fields for every person in the graph.
func (g *Graph) Normalize() {
	for _, p := range g.Persons {
		p.Normalize()
	}
}
