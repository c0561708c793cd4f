// Package compare implements the individual and family comparators: for every
// source person it decides whether a destination counterpart exists (and
// which fields that counterpart is missing), and it matches family units
// through the identity mapping to discover mappings the per-person pass could
// not see. Records are never mutated; both graphs are read-only snapshots.
package compare

import (
	"sort"

	"github.com/kinsync/kinsync/pkg/diff"
	"github.com/kinsync/kinsync/pkg/logging"
	"github.com/kinsync/kinsync/pkg/mapping"
	"github.com/kinsync/kinsync/pkg/match"
	"github.com/kinsync/kinsync/pkg/names"
	"github.com/kinsync/kinsync/pkg/tree"
)

// Comparator runs individual and family comparison passes.
type Comparator struct {
	matcher *match.Matcher
	differ  *diff.Differ
	opts    Options
}

// NewComparator creates a Comparator. A nil matcher or differ falls back to
// defaults.
func NewComparator(matcher *match.Matcher, differ *diff.Differ, opts Options) *Comparator {
	if matcher == nil {
		matcher = match.New()
	}
	if differ == nil {
		differ = diff.New()
	}
	return &Comparator{matcher: matcher, differ: differ, opts: opts}
}

// pendingFuzzy is one source person awaiting global candidate resolution.
type pendingFuzzy struct {
	source     *tree.Person
	candidates []match.Candidate
}

// CompareIndividuals decides, for every source person, whether it already
// exists in the destination graph. Pre-confirmed mappings in existing
// short-circuit matching exactly as an exact-id match would; existing is
// read-only seed data and is never mutated.
func (c *Comparator) CompareIndividuals(source, dest *tree.Graph, existing *mapping.Mapping) *IndividualResult {
	result := &IndividualResult{Mapping: mapping.New()}
	if existing == nil {
		existing = mapping.New()
	}

	destList := dest.PersonList()
	rfnIndex := buildRFNIndex(destList)

	claimed := make(map[tree.PersonID]tree.PersonID) // dest -> source
	var pending []pendingFuzzy

	for _, src := range source.PersonList() {
		// A carried mapping wins outright and keeps its original provenance:
		// a structurally derived pair must not come out of a later pass
		// looking like independent evidence.
		if destID, ok := existing.Get(src.ID); ok {
			if dst := dest.Person(destID); dst != nil {
				entry, _ := existing.Entry(src.ID)
				claimed[destID] = src.ID
				pm := c.resolvedMatch(src, dst, entry.Score, entry.Method, nil)
				pm.Iteration = entry.Iteration
				result.Matched = append(result.Matched, pm)
				continue
			}
			logging.Warn().
				Str("source_id", string(src.ID)).
				Str("dest_id", string(destID)).
				Msg("seed mapping points at missing destination person")
		}

		// Exact external-id match precedes fuzzy matching entirely.
		if id := names.NormalizeID(src.RFN); id != "" {
			if dst, ok := rfnIndex[id]; ok {
				if _, taken := claimed[dst.ID]; !taken {
					claimed[dst.ID] = src.ID
					result.Matched = append(result.Matched, c.resolvedMatch(src, dst, 100, match.MethodRFN, nil))
					continue
				}
			}
		}

		candidates := c.matcher.FindMatches(src, destList, c.opts.MatchThreshold)
		pending = append(pending, pendingFuzzy{source: src, candidates: candidates})
	}

	// Resolve fuzzy candidates globally, best top score first, so that when
	// two source persons want the same destination the higher scorer wins.
	sort.SliceStable(pending, func(i, j int) bool {
		si, sj := topScore(pending[i]), topScore(pending[j])
		if si != sj {
			return si > sj
		}
		return pending[i].source.ID < pending[j].source.ID
	})

	for _, p := range pending {
		c.resolvePending(p, dest, claimed, result)
	}

	sortMatched(result.Matched)

	// Destination persons never selected as a match target are advisory
	// deletion candidates.
	if c.opts.IncludeDeleteSuggestions {
		for _, dst := range destList {
			if _, ok := claimed[dst.ID]; !ok {
				result.DeleteSuggestions = append(result.DeleteSuggestions, dst.ID)
			}
		}
	}

	for _, pm := range result.Matched {
		if err := result.Mapping.Add(pm.SourceID, pm.DestID, mapping.Entry{
			Method:    pm.Method,
			Score:     pm.Score,
			Iteration: pm.Iteration,
		}); err != nil {
			// Cannot happen while claims are enforced above; log and move on.
			logging.Error().Err(err).Msg("individual pass produced a conflicting mapping")
		}
	}

	return result
}

// resolvePending decides the outcome for one source person from its scored
// candidate list.
func (c *Comparator) resolvePending(p pendingFuzzy, dest *tree.Graph, claimed map[tree.PersonID]tree.PersonID, result *IndividualResult) {
	if len(p.candidates) == 0 {
		result.ToAdd = append(result.ToAdd, p.source.ID)
		return
	}

	// Ambiguity is judged on the full candidate set before claiming: the
	// engine never guesses among equally-good options.
	if c.opts.RequireUniqueMatch && len(p.candidates) > 1 && p.candidates[0].Score == p.candidates[1].Score {
		tied := []tree.PersonID{}
		for _, cand := range p.candidates {
			if cand.Score == p.candidates[0].Score {
				tied = append(tied, cand.Person.ID)
			}
		}
		result.Ambiguous = append(result.Ambiguous, AmbiguousMatch{
			SourceID:   p.source.ID,
			Score:      p.candidates[0].Score,
			Candidates: tied,
		})
		return
	}

	// Highest unclaimed candidate wins; a loser whose candidates are all
	// taken is emitted as "to add", never forced into an occupied slot.
	for _, cand := range p.candidates {
		if _, taken := claimed[cand.Person.ID]; taken {
			continue
		}
		claimed[cand.Person.ID] = p.source.ID
		result.Matched = append(result.Matched, c.resolvedMatch(p.source, cand.Person, cand.Score, match.MethodFuzzy, cand.Reasons))
		return
	}
	result.ToAdd = append(result.ToAdd, p.source.ID)
}

// resolvedMatch runs the field differ over a decided pair.
func (c *Comparator) resolvedMatch(src, dst *tree.Person, score float64, method match.Method, reasons []match.Reason) PersonMatch {
	diffs := c.differ.CompareFields(src, dst)
	return PersonMatch{
		SourceID:    src.ID,
		DestID:      dst.ID,
		Score:       score,
		Method:      method,
		Reasons:     reasons,
		NeedsUpdate: len(diffs) > 0,
		Diffs:       diffs,
	}
}

// buildRFNIndex indexes destination persons by normalized external id.
func buildRFNIndex(persons []*tree.Person) map[string]*tree.Person {
	index := make(map[string]*tree.Person)
	for _, p := range persons {
		if id := names.NormalizeID(p.RFN); id != "" {
			index[id] = p
		}
	}
	return index
}

// topScore returns the best candidate score, or -1 with no candidates.
func topScore(p pendingFuzzy) float64 {
	if len(p.candidates) == 0 {
		return -1
	}
	return p.candidates[0].Score
}

// sortMatched orders matches by source id for deterministic output.
func sortMatched(matched []PersonMatch) {
	sort.Slice(matched, func(i, j int) bool { return matched[i].SourceID < matched[j].SourceID })
}
