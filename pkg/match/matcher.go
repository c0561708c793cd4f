// Package match implements the fuzzy person matcher: it scores how likely two
// person records denote the same individual, producing a 0-100 score and
// itemized reasons for every contributing field. Comparison is pure and
// deterministic given a fixed configuration.
package match

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/kinsync/kinsync/pkg/dates"
	"github.com/kinsync/kinsync/pkg/names"
	"github.com/kinsync/kinsync/pkg/tree"
)

// Reason records one field's contribution to a match score.
type Reason struct {
	Field  string  `json:"field"`
	Points float64 `json:"points"`
	Detail string  `json:"detail"`
}

// Result is the outcome of one pairwise comparison.
type Result struct {
	Score   float64  `json:"score"`
	Reasons []Reason `json:"reasons,omitempty"`
	Method  Method   `json:"method"`
}

// Candidate pairs a scored destination person with its comparison result.
type Candidate struct {
	Person  *tree.Person
	Score   float64
	Reasons []Reason
}

// Matcher scores person pairs using configured field weights and a name
// equivalence oracle.
type Matcher struct {
	oracle  names.Oracle
	weights Weights
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithOracle sets the name equivalence oracle. When the oracle is
// unavailable the matcher degrades to exact normalized-string equivalence.
func WithOracle(o names.Oracle) Option {
	return func(m *Matcher) {
		if o != nil {
			m.oracle = o
		}
	}
}

// WithWeights sets the field weight configuration.
func WithWeights(w Weights) Option {
	return func(m *Matcher) {
		m.weights = w
	}
}

// New creates a Matcher with default weights and an exact-string oracle.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		oracle:  names.ExactOracle{},
		weights: DefaultWeights(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Weights returns the matcher's weight configuration.
func (m *Matcher) Weights() Weights {
	return m.weights
}

// Compare scores how likely source and target denote the same individual.
// Every field that contributed a nonzero amount is recorded as a Reason.
// When neither side has any comparable field the score is 0 with no reasons.
func (m *Matcher) Compare(source, target *tree.Person) Result {
	scale := m.weights.scale()
	result := Result{Method: MethodFuzzy}

	add := func(field string, points float64, detail string) {
		if points == 0 {
			return
		}
		result.Score += points
		result.Reasons = append(result.Reasons, Reason{Field: field, Points: points, Detail: detail})
	}

	// Given name.
	if frac, detail := m.nameScore(source.GivenName, source.NormGiven, target.GivenName, target.NormGiven, names.Given); frac > 0 {
		add("given_name", frac*m.weights.GivenName*scale, detail)
	}

	// Surname, with the target's maiden name as an alternate target. A woman
	// recorded by birth surname on one side and married surname on the other
	// must still match.
	surFrac, surDetail := m.nameScore(source.Surname, source.NormSurname, target.Surname, target.NormSurname, names.Surname)
	if target.MaidenName != "" {
		if frac, detail := m.nameScore(source.Surname, source.NormSurname, target.MaidenName, target.NormMaiden, names.Surname); frac > surFrac {
			surFrac, surDetail = frac, detail+" (maiden name)"
		}
	}
	if surFrac > 0 {
		add("surname", surFrac*m.weights.Surname*scale, surDetail)
	}

	// Birth date at the coarser of the two precisions. A missing date on
	// either side contributes zero, never a penalty.
	if frac, detail := m.dateScore(source.Birth, target.Birth); frac > 0 {
		add("birth_date", frac*m.weights.BirthDate*scale, detail)
	}

	// Birth place by token overlap: historical administrative names change,
	// so "Moscow USSR" and "Moscow Russia" still overlap on "Moscow".
	if frac, detail := placeScore(source.BirthPlace, target.BirthPlace); frac > 0 {
		add("birth_place", frac*m.weights.BirthPlace*scale, detail)
	}

	// Death date, lower weight.
	if frac, detail := m.dateScore(source.Death, target.Death); frac > 0 {
		add("death_date", frac*m.weights.DeathDate*scale, detail)
	}

	// Gender only ever penalizes.
	if source.Gender.Conflicts(target.Gender) {
		add("gender", -m.weights.GenderPenalty*scale,
			fmt.Sprintf("recorded genders differ: %s vs %s", source.Gender, target.Gender))
	}

	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 100 {
		result.Score = 100
	}
	return result
}

// FindMatches scores source against each candidate, pre-filtering by gender
// compatibility and birth-year proximity, and returns candidates scoring at
// least minScore ordered by descending score (id order breaks ties).
func (m *Matcher) FindMatches(source *tree.Person, candidates []*tree.Person, minScore float64) []Candidate {
	matches := make([]Candidate, 0)
	for _, cand := range candidates {
		if cand == nil || !m.prefilter(source, cand) {
			continue
		}
		res := m.Compare(source, cand)
		if res.Score >= minScore {
			matches = append(matches, Candidate{Person: cand, Score: res.Score, Reasons: res.Reasons})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Person.ID < matches[j].Person.ID
	})
	return matches
}

// prefilter cheaply rejects candidates that cannot plausibly match: recorded
// gender conflicts and birth years too far apart. Absence of evidence is not
// evidence of absence, so candidates with an unknown birth date always pass.
func (m *Matcher) prefilter(source, cand *tree.Person) bool {
	if source.Gender.Conflicts(cand.Gender) {
		return false
	}
	if source.Birth != nil && cand.Birth != nil && m.weights.PrefilterYearWindow > 0 {
		if source.Birth.YearDiff(cand.Birth) > m.weights.PrefilterYearWindow {
			return false
		}
	}
	return true
}

// nameScore returns the fraction of full weight a name pair earns plus a
// human-readable explanation.
func (m *Matcher) nameScore(rawA, normA, rawB, normB string, role names.Role) (float64, string) {
	if normA == "" {
		normA = names.Normalize(rawA)
	}
	if normB == "" {
		normB = names.Normalize(rawB)
	}
	if normA == "" || normB == "" {
		return 0, ""
	}
	if normA == normB {
		return 1, fmt.Sprintf("%s names match exactly: %q", role, rawA)
	}
	if m.oracle.Equivalent(rawA, rawB, role) {
		return 1, fmt.Sprintf("%s names are known variants: %q ~ %q", role, rawA, rawB)
	}
	// Nickname-in-full-name containment ("alex" in "alexander").
	if len(normA) >= 3 && len(normB) >= 3 &&
		(strings.Contains(normA, normB) || strings.Contains(normB, normA)) {
		return m.weights.ContainmentFraction, fmt.Sprintf("%s name %q contained in %q", role, rawA, rawB)
	}
	ratio := similarityRatio(normA, normB)
	if ratio >= m.weights.SimilarityFloor {
		return ratio, fmt.Sprintf("%s names similar (%.0f%%): %q ~ %q", role, ratio*100, rawA, rawB)
	}
	return 0, ""
}

// dateScore compares two dates at the coarser of their precisions, awarding
// the full fraction on agreement and a linear decay by year difference up to
// MaxBirthYearDifference. A missing date on either side scores zero.
func (m *Matcher) dateScore(a, b *dates.Date) (float64, string) {
	if a == nil || b == nil {
		return 0, ""
	}
	if a.Same(b) {
		return 1, fmt.Sprintf("dates match at %s precision: %s", dates.Coarser(a.Precision, b.Precision), a)
	}
	diff := a.YearDiff(b)
	maxDiff := m.weights.MaxBirthYearDifference
	if maxDiff <= 0 || diff > maxDiff {
		return 0, ""
	}
	// Disagreement within the same year (finer components differ) still
	// decays by one step.
	if diff < 1 {
		diff = 1
	}
	frac := 1 - float64(diff)/float64(maxDiff+1)
	return frac, fmt.Sprintf("dates %d year(s) apart: %s vs %s", a.YearDiff(b), a, b)
}

// placeScore measures token-set overlap (Jaccard) between two place strings
// after normalization.
func placeScore(a, b string) (float64, string) {
	tokensA := placeTokens(a)
	tokensB := placeTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0, ""
	}
	shared := 0
	union := len(tokensB)
	for tok := range tokensA {
		if _, ok := tokensB[tok]; ok {
			shared++
		} else {
			union++
		}
	}
	if shared == 0 {
		return 0, ""
	}
	frac := float64(shared) / float64(union)
	return frac, fmt.Sprintf("places share %d token(s): %q ~ %q", shared, a, b)
}

// placeTokens splits a place string into normalized tokens.
func placeTokens(place string) map[string]struct{} {
	norm := names.Normalize(place)
	if norm == "" {
		return nil
	}
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(norm) {
		tokens[tok] = struct{}{}
	}
	return tokens
}

// similarityRatio derives a 0-1 similarity from edit distance.
func similarityRatio(a, b string) float64 {
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
