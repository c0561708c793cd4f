package compare

import (
	"sort"

	"github.com/kinsync/kinsync/pkg/logging"
	"github.com/kinsync/kinsync/pkg/mapping"
	"github.com/kinsync/kinsync/pkg/match"
	"github.com/kinsync/kinsync/pkg/tree"
)

// Child assignment thresholds. Matching within a family carries strong
// structural context, so the bar sits higher than the per-person threshold;
// it rises further when the child counts disagree and an unmatched leftover
// is expected.
const (
	childThresholdEqualCounts   = 70
	childThresholdUnequalCounts = 85
)

// CompareFamilies matches family units through the person mapping and
// derives new person mappings from matched families: partners filling the
// same family slot and children resolved within the matched pair. The input
// mapping is read-only; discoveries are returned in FamilyResult.NewMappings.
func (c *Comparator) CompareFamilies(source, dest *tree.Graph, m *mapping.Mapping) *FamilyResult {
	result := &FamilyResult{NewMappings: mapping.New()}
	if m == nil {
		m = mapping.New()
	}

	// working accumulates input mappings plus this pass's discoveries so
	// that later families see the pairs found by earlier ones.
	working := m.Clone()

	claimedDest := make(map[tree.FamilyID]tree.FamilyID) // dest -> source
	matchedSrc := make(map[tree.FamilyID]bool)

	srcFamilies := source.FamilyList()
	destFamilies := dest.FamilyList()

	// Families are processed best-anchored first, re-scoring each round:
	// every matched family can add person mappings that raise the priority
	// of its neighbors, so a fixed upfront order would miss chains.
	for {
		src := nextFamily(srcFamilies, matchedSrc, working)
		if src == nil {
			break
		}
		matchedSrc[src.ID] = true

		dst, loose := c.findFamilyMatch(src, destFamilies, claimedDest, working)
		if dst == nil {
			continue
		}
		claimedDest[dst.ID] = src.ID

		fm := FamilyMatch{SourceID: src.ID, DestID: dst.ID, Loose: loose}
		c.matchPartners(src, dst, source, dest, working, result, &fm)
		c.matchChildren(src, dst, source, dest, working, result, &fm)
		result.Matched = append(result.Matched, fm)
	}

	c.inferSiblings(source, dest, working, result)

	for _, f := range srcFamilies {
		if _, ok := claimedBySource(result.Matched, f.ID); !ok {
			result.ToAdd = append(result.ToAdd, f.ID)
		}
	}
	if c.opts.IncludeDeleteSuggestions {
		for _, f := range destFamilies {
			if _, ok := claimedDest[f.ID]; !ok {
				result.DeleteSuggestions = append(result.DeleteSuggestions, f.ID)
			}
		}
	}

	sort.Slice(result.Matched, func(i, j int) bool { return result.Matched[i].SourceID < result.Matched[j].SourceID })
	return result
}

// nextFamily picks the unprocessed source family with the highest priority:
// number of already-mapped members, plus a bonus when both declared partners
// are mapped. Returns nil when no remaining family has a mapped member.
func nextFamily(families []*tree.Family, done map[tree.FamilyID]bool, m *mapping.Mapping) *tree.Family {
	var best *tree.Family
	bestPriority := 0
	for _, f := range families {
		if done[f.ID] {
			continue
		}
		p := familyPriority(f, m)
		if p > bestPriority || (p == bestPriority && p > 0 && best != nil && f.ID < best.ID) {
			best = f
			bestPriority = p
		}
	}
	if bestPriority == 0 {
		return nil
	}
	return best
}

func familyPriority(f *tree.Family, m *mapping.Mapping) int {
	p := 0
	partnersMapped := 0
	for _, id := range f.Parents() {
		if m.Has(id) {
			p++
			partnersMapped++
		}
	}
	for _, id := range f.ChildIDs {
		if m.Has(id) {
			p++
		}
	}
	if partnersMapped == 2 {
		p += 2
	}
	return p
}

// findFamilyMatch locates the destination family corresponding to a source
// family. The exact pass requires every declared source partner to be mapped
// into the destination family's partner slots; the loose pass instead
// requires all source children to be mapped into the destination family,
// leaving unmapped partners unconstrained.
func (c *Comparator) findFamilyMatch(src *tree.Family, destFamilies []*tree.Family, claimed map[tree.FamilyID]tree.FamilyID, m *mapping.Mapping) (*tree.Family, bool) {
	for _, dst := range destFamilies {
		if _, taken := claimed[dst.ID]; taken {
			continue
		}
		if familiesMatchExact(src, dst, m) {
			return dst, false
		}
	}
	for _, dst := range destFamilies {
		if _, taken := claimed[dst.ID]; taken {
			continue
		}
		if familiesMatchLoose(src, dst, m) {
			return dst, true
		}
	}
	return nil, false
}

func familiesMatchExact(src, dst *tree.Family, m *mapping.Mapping) bool {
	mapped := 0
	for _, id := range src.Parents() {
		destID, ok := m.Get(id)
		if !ok {
			return false
		}
		if destID != dst.HusbandID && destID != dst.WifeID {
			return false
		}
		mapped++
	}
	for _, id := range src.ChildIDs {
		destID, ok := m.Get(id)
		if !ok {
			continue
		}
		if !containsID(dst.ChildIDs, destID) {
			return false
		}
		mapped++
	}
	return mapped > 0
}

func familiesMatchLoose(src, dst *tree.Family, m *mapping.Mapping) bool {
	if len(src.ChildIDs) == 0 {
		return false
	}
	for _, id := range src.ChildIDs {
		destID, ok := m.Get(id)
		if !ok {
			return false
		}
		if !containsID(dst.ChildIDs, destID) {
			return false
		}
	}
	// Mapped partners must still agree; unmapped ones are unconstrained.
	for _, id := range src.Parents() {
		if destID, ok := m.Get(id); ok {
			if destID != dst.HusbandID && destID != dst.WifeID {
				return false
			}
		}
	}
	return true
}

// matchPartners maps an unmapped source partner onto the destination partner
// filling the same slot, when that slot holds an unclaimed person.
func (c *Comparator) matchPartners(src, dst *tree.Family, source, dest *tree.Graph, working *mapping.Mapping, result *FamilyResult, fm *FamilyMatch) {
	pairs := [][2]tree.PersonID{
		{src.HusbandID, dst.HusbandID},
		{src.WifeID, dst.WifeID},
	}
	for _, pair := range pairs {
		srcID, dstID := pair[0], pair[1]
		if srcID == "" || dstID == "" {
			continue
		}
		if working.Has(srcID) || working.DestClaimed(dstID) {
			continue
		}
		sp, dp := source.Person(srcID), dest.Person(dstID)
		if sp == nil || dp == nil {
			continue
		}
		if sp.Gender.Conflicts(dp.Gender) {
			continue
		}
		c.record(srcID, dstID, match.MethodFamilySingleChild, 0, working, result, fm)
	}
}

// matchChildren resolves the unmapped children of a matched family pair.
// A single unmapped child on each side maps directly; otherwise children are
// fuzzy-scored and assigned greedily, highest score first.
func (c *Comparator) matchChildren(src, dst *tree.Family, source, dest *tree.Graph, working *mapping.Mapping, result *FamilyResult, fm *FamilyMatch) {
	srcChildren := unmappedSourceChildren(src, source, working)
	dstChildren := unmappedDestChildren(dst, dest, working)
	if len(srcChildren) == 0 || len(dstChildren) == 0 {
		return
	}

	if len(srcChildren) == 1 && len(dstChildren) == 1 {
		sp, dp := srcChildren[0], dstChildren[0]
		if !sp.Gender.Conflicts(dp.Gender) {
			c.record(sp.ID, dp.ID, match.MethodFamilySingleChild, 0, working, result, fm)
		}
		return
	}

	threshold := float64(childThresholdEqualCounts)
	if len(srcChildren) != len(dstChildren) {
		threshold = childThresholdUnequalCounts
	}

	type scored struct {
		src   *tree.Person
		dst   *tree.Person
		score float64
	}
	var candidates []scored
	for _, sp := range srcChildren {
		for _, dp := range dstChildren {
			r := c.matcher.Compare(sp, dp)
			if r.Score >= threshold {
				candidates = append(candidates, scored{src: sp, dst: dp, score: r.Score})
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].src.ID != candidates[j].src.ID {
			return candidates[i].src.ID < candidates[j].src.ID
		}
		return candidates[i].dst.ID < candidates[j].dst.ID
	})

	usedSrc := make(map[tree.PersonID]bool)
	usedDst := make(map[tree.PersonID]bool)
	for _, cand := range candidates {
		if usedSrc[cand.src.ID] || usedDst[cand.dst.ID] {
			continue
		}
		usedSrc[cand.src.ID] = true
		usedDst[cand.dst.ID] = true
		c.record(cand.src.ID, cand.dst.ID, match.MethodFamilyFuzzyChild, cand.score, working, result, fm)
	}
}

// inferSiblings maps the last unmapped sibling on each side of an
// already-mapped person. The inference only fires when exactly one sibling
// remains unmapped on both sides, so it cannot guess.
func (c *Comparator) inferSiblings(source, dest *tree.Graph, working *mapping.Mapping, result *FamilyResult) {
	for _, sp := range source.PersonList() {
		destID, ok := working.Get(sp.ID)
		if !ok || len(sp.SiblingIDs) == 0 {
			continue
		}
		dp := dest.Person(destID)
		if dp == nil {
			continue
		}

		srcOpen := unmappedSiblings(sp.SiblingIDs, source, working.Has)
		dstOpen := unmappedSiblings(dp.SiblingIDs, dest, working.DestClaimed)
		if len(srcOpen) != 1 || len(dstOpen) != 1 {
			continue
		}
		if srcOpen[0].Gender.Conflicts(dstOpen[0].Gender) {
			continue
		}
		c.record(srcOpen[0].ID, dstOpen[0].ID, match.MethodSiblingTransitive, 0, working, result, nil)
	}
}

// record commits a discovered mapping to the working set and the result.
// Collisions with earlier discoveries are dropped, never forced.
func (c *Comparator) record(srcID, dstID tree.PersonID, method match.Method, score float64, working *mapping.Mapping, result *FamilyResult, fm *FamilyMatch) {
	entry := mapping.Entry{Method: method, Score: score}
	if err := working.Add(srcID, dstID, entry); err != nil {
		logging.Debug().
			Str("source_id", string(srcID)).
			Str("dest_id", string(dstID)).
			Str("method", method.String()).
			Msg("dropping conflicting family-derived mapping")
		return
	}
	if err := result.NewMappings.Add(srcID, dstID, entry); err != nil {
		return
	}
	if fm != nil {
		fm.NewMappings = append(fm.NewMappings, mapping.Pair{SourceID: srcID, DestID: dstID})
	}
}

func unmappedSourceChildren(f *tree.Family, g *tree.Graph, m *mapping.Mapping) []*tree.Person {
	var out []*tree.Person
	for _, id := range f.ChildIDs {
		if m.Has(id) {
			continue
		}
		if p := g.Person(id); p != nil {
			out = append(out, p)
		}
	}
	return out
}

func unmappedDestChildren(f *tree.Family, g *tree.Graph, m *mapping.Mapping) []*tree.Person {
	var out []*tree.Person
	for _, id := range f.ChildIDs {
		if m.DestClaimed(id) {
			continue
		}
		if p := g.Person(id); p != nil {
			out = append(out, p)
		}
	}
	return out
}

func unmappedSiblings(ids []tree.PersonID, g *tree.Graph, taken func(tree.PersonID) bool) []*tree.Person {
	var out []*tree.Person
	for _, id := range ids {
		if taken(id) {
			continue
		}
		if p := g.Person(id); p != nil {
			out = append(out, p)
		}
	}
	return out
}

func containsID(ids []tree.PersonID, id tree.PersonID) bool {
	for _, c := range ids {
		if c == id {
			return true
		}
	}
	return false
}

func claimedBySource(matched []FamilyMatch, id tree.FamilyID) (tree.FamilyID, bool) {
	for _, m := range matched {
		if m.SourceID == id {
			return m.DestID, true
		}
	}
	return "", false
}
