package compare

import (
	"github.com/kinsync/kinsync/pkg/diff"
	"github.com/kinsync/kinsync/pkg/mapping"
	"github.com/kinsync/kinsync/pkg/match"
	"github.com/kinsync/kinsync/pkg/tree"
)

// PersonMatch is one resolved source-to-destination person match.
type PersonMatch struct {
	SourceID tree.PersonID  `json:"source_id"`
	DestID   tree.PersonID  `json:"dest_id"`
	Score    float64        `json:"score"`
	Method   match.Method   `json:"method"`
	Reasons  []match.Reason `json:"reasons,omitempty"`
	// Iteration is the iteration that first produced the mapping, carried
	// through from the seed entry for pre-confirmed pairs.
	Iteration int `json:"iteration,omitempty"`

	// NeedsUpdate is set when the destination is missing fields the source
	// has; Diffs lists them.
	NeedsUpdate bool             `json:"needs_update"`
	Diffs       []diff.FieldDiff `json:"diffs,omitempty"`
}

// AmbiguousMatch is a source person with several equally-good destination
// candidates. The engine never guesses among them; the caller must resolve.
type AmbiguousMatch struct {
	SourceID   tree.PersonID   `json:"source_id"`
	Score      float64         `json:"score"`
	Candidates []tree.PersonID `json:"candidates"`
}

// IndividualResult is the outcome of one individual-comparison pass.
type IndividualResult struct {
	// Matched holds resolved matches, including those needing updates.
	Matched []PersonMatch `json:"matched,omitempty"`
	// ToAdd holds source persons with no destination counterpart.
	ToAdd []tree.PersonID `json:"to_add,omitempty"`
	// Ambiguous holds unresolved ties.
	Ambiguous []AmbiguousMatch `json:"ambiguous,omitempty"`
	// DeleteSuggestions holds destination persons never selected as a match
	// target. Advisory only.
	DeleteSuggestions []tree.PersonID `json:"delete_suggestions,omitempty"`

	// Mapping is the identity mapping implied by Matched.
	Mapping *mapping.Mapping `json:"-"`
}

// NeedsUpdateCount returns how many matches carry field diffs.
func (r *IndividualResult) NeedsUpdateCount() int {
	n := 0
	for _, m := range r.Matched {
		if m.NeedsUpdate {
			n++
		}
	}
	return n
}

// FamilyMatch is one structurally matched family pair.
type FamilyMatch struct {
	SourceID tree.FamilyID `json:"source_id"`
	DestID   tree.FamilyID `json:"dest_id"`
	// Loose marks a looser second-pass match where unmapped source partners
	// were left unconstrained.
	Loose bool `json:"loose,omitempty"`
	// NewMappings lists person mappings discovered from this family match.
	NewMappings []mapping.Pair `json:"new_mappings,omitempty"`
}

// FamilyResult is the outcome of one family-comparison pass.
type FamilyResult struct {
	Matched           []FamilyMatch   `json:"matched,omitempty"`
	ToAdd             []tree.FamilyID `json:"to_add,omitempty"`
	DeleteSuggestions []tree.FamilyID `json:"delete_suggestions,omitempty"`

	// NewMappings holds the person mappings newly discovered by this pass,
	// with provenance. This is the mechanism by which family structure feeds
	// back into identity resolution.
	NewMappings *mapping.Mapping `json:"-"`
}
