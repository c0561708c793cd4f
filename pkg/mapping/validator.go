package mapping

import (
	"fmt"
	"sort"

	"github.com/kinsync/kinsync/pkg/match"
	"github.com/kinsync/kinsync/pkg/tree"
)

// IssueType classifies one detected mapping contradiction.
type IssueType int

const (
	// DuplicateMapping means a destination id is claimed by several sources.
	DuplicateMapping IssueType = iota
	// GenderMismatch means both sides record differing genders.
	GenderMismatch
	// DateContradiction means the mapped pair's vital dates cannot both hold.
	DateContradiction
	// GenerationalInconsistency means one side is a parent where the other is
	// only ever a child, or the reverse.
	GenerationalInconsistency
)

// String returns the issue type name.
func (t IssueType) String() string {
	switch t {
	case DuplicateMapping:
		return "duplicate_mapping"
	case GenderMismatch:
		return "gender_mismatch"
	case DateContradiction:
		return "date_contradiction"
	case GenerationalInconsistency:
		return "generational_inconsistency"
	default:
		return "unknown"
	}
}

// Severity grades how damaging an issue is.
type Severity int

const (
	// Low severity issues are informational.
	Low Severity = iota
	// Medium severity issues deserve review but do not force rollback.
	Medium
	// High severity issues force the mapping out during rollback.
	High
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// Issue is one detected contradiction in a mapping.
type Issue struct {
	SourceID    tree.PersonID `json:"source_id"`
	DestID      tree.PersonID `json:"dest_id"`
	Type        IssueType     `json:"type"`
	Severity    Severity      `json:"severity"`
	Description string        `json:"description"`
}

// ValidationResult aggregates the issues found in one audit pass.
type ValidationResult struct {
	Issues []Issue `json:"issues,omitempty"`
}

// HasIssues reports whether any issue was found.
func (r ValidationResult) HasIssues() bool {
	return len(r.Issues) > 0
}

// HighSeverity returns the issues that force rollback.
func (r ValidationResult) HighSeverity() []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == High {
			out = append(out, issue)
		}
	}
	return out
}

// maxBirthYearGap is the birth-year disagreement beyond which a mapped pair
// is contradictory rather than imprecise.
const maxBirthYearGap = 5

// Validate audits a mapping for internal contradictions against both graphs.
// It is a pure audit: the mapping is never mutated. Checks are computed
// independently per mapped pair and then merged.
func Validate(m *Mapping, source, dest *tree.Graph) ValidationResult {
	var result ValidationResult

	// Duplicate destinations first: scan the whole forward map.
	claimants := make(map[tree.PersonID][]tree.PersonID)
	for _, pair := range m.Pairs() {
		claimants[pair.DestID] = append(claimants[pair.DestID], pair.SourceID)
	}
	duplicatedDests := make([]tree.PersonID, 0)
	for dst, srcs := range claimants {
		if len(srcs) > 1 {
			duplicatedDests = append(duplicatedDests, dst)
		}
	}
	sort.Slice(duplicatedDests, func(i, j int) bool { return duplicatedDests[i] < duplicatedDests[j] })
	for _, dst := range duplicatedDests {
		for _, src := range claimants[dst] {
			result.Issues = append(result.Issues, Issue{
				SourceID: src,
				DestID:   dst,
				Type:     DuplicateMapping,
				Severity: High,
				Description: fmt.Sprintf("destination %s claimed by %d source persons",
					dst, len(claimants[dst])),
			})
		}
	}

	for _, pair := range m.Pairs() {
		srcPerson := source.Person(pair.SourceID)
		dstPerson := dest.Person(pair.DestID)
		if srcPerson == nil || dstPerson == nil {
			result.Issues = append(result.Issues, Issue{
				SourceID:    pair.SourceID,
				DestID:      pair.DestID,
				Type:        DuplicateMapping,
				Severity:    High,
				Description: "mapped id not present in its graph",
			})
			continue
		}

		if srcPerson.Gender.Conflicts(dstPerson.Gender) {
			result.Issues = append(result.Issues, Issue{
				SourceID: pair.SourceID,
				DestID:   pair.DestID,
				Type:     GenderMismatch,
				Severity: High,
				Description: fmt.Sprintf("genders differ: %s vs %s",
					srcPerson.Gender, dstPerson.Gender),
			})
		}

		if desc := dateContradiction(srcPerson, dstPerson); desc != "" {
			result.Issues = append(result.Issues, Issue{
				SourceID:    pair.SourceID,
				DestID:      pair.DestID,
				Type:        DateContradiction,
				Severity:    Medium,
				Description: desc,
			})
		}

		if desc := generationalInconsistency(srcPerson.ID, dstPerson.ID, source, dest); desc != "" {
			result.Issues = append(result.Issues, Issue{
				SourceID:    pair.SourceID,
				DestID:      pair.DestID,
				Type:        GenerationalInconsistency,
				Severity:    High,
				Description: desc,
			})
		}
	}

	return result
}

// dateContradiction reports vital dates that cannot both describe one person.
func dateContradiction(src, dst *tree.Person) string {
	if src.Birth != nil && dst.Birth != nil && src.Birth.YearDiff(dst.Birth) > maxBirthYearGap {
		return fmt.Sprintf("birth years %d and %d differ by more than %d",
			src.Birth.Year, dst.Birth.Year, maxBirthYearGap)
	}
	if src.Death != nil && dst.Birth != nil && src.Death.Year < dst.Birth.Year {
		return fmt.Sprintf("source death %d precedes destination birth %d",
			src.Death.Year, dst.Birth.Year)
	}
	if dst.Death != nil && src.Birth != nil && dst.Death.Year < src.Birth.Year {
		return fmt.Sprintf("destination death %d precedes source birth %d",
			dst.Death.Year, src.Birth.Year)
	}
	return ""
}

// generationalInconsistency reports a parent mapped to someone only ever
// recorded as a child, or the reverse.
func generationalInconsistency(srcID, dstID tree.PersonID, source, dest *tree.Graph) string {
	srcParent := source.IsParent(srcID)
	dstParent := dest.IsParent(dstID)
	dstChildOnly := dest.IsChild(dstID) && !dstParent
	srcChildOnly := source.IsChild(srcID) && !srcParent

	if srcParent && dstChildOnly {
		return "source person is a parent but destination person is only ever a child"
	}
	if dstParent && srcChildOnly {
		return "destination person is a parent but source person is only ever a child"
	}
	return ""
}

// structural reports whether a mapping entry was inferred from family
// structure rather than independent evidence.
func structural(method match.Method) bool {
	switch method {
	case match.MethodFamilySingleChild, match.MethodFamilyFuzzyChild, match.MethodSiblingTransitive:
		return true
	default:
		return false
	}
}

// Rollback returns a copy of the mapping with every High-severity pair
// removed, cascading to structurally-dependent mappings: any other mapped
// member of a source family containing a flagged source id, whose own
// mapping was inferred from family structure, is removed too — a wrong
// parent match likely invalidates inferred matches for that family's other
// members.
func Rollback(m *Mapping, validation ValidationResult, source *tree.Graph) *Mapping {
	cleaned := m.Clone()

	flagged := make([]tree.PersonID, 0)
	seen := make(map[tree.PersonID]bool)
	for _, issue := range validation.HighSeverity() {
		if !seen[issue.SourceID] {
			seen[issue.SourceID] = true
			flagged = append(flagged, issue.SourceID)
		}
	}

	for _, srcID := range flagged {
		cleaned.Remove(srcID)

		// Cascade through every source family the suspect belongs to.
		for _, fam := range source.FamilyList() {
			if !fam.HasMember(srcID) {
				continue
			}
			members := append(fam.Parents(), fam.ChildIDs...)
			for _, member := range members {
				if member == srcID {
					continue
				}
				if entry, ok := cleaned.Entry(member); ok && structural(entry.Method) {
					cleaned.Remove(member)
				}
			}
		}
	}

	return cleaned
}

// CalculateConfidence maps a match method and score to an advisory
// confidence in [0,1] for downstream consumers.
func CalculateConfidence(score float64, matchedBy match.Method) float64 {
	return matchedBy.Confidence(score)
}
