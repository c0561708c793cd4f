// Package mapping holds the person mapping being built by a reconciliation
// run — a partial injective function from source person ids to destination
// person ids with provenance — plus the validator that audits a mapping for
// internal contradictions and rolls back the unsafe ones.
package mapping

import (
	"sort"

	"github.com/kinsync/kinsync/pkg/errors"
	"github.com/kinsync/kinsync/pkg/match"
	"github.com/kinsync/kinsync/pkg/tree"
)

// Pair is one source-to-destination identity decision.
type Pair struct {
	SourceID tree.PersonID `json:"source_id"`
	DestID   tree.PersonID `json:"dest_id"`
}

// Entry is the provenance of one mapping: how and when it was decided.
type Entry struct {
	DestID    tree.PersonID `json:"dest_id"`
	Method    match.Method  `json:"method"`
	Score     float64       `json:"score"`
	Iteration int           `json:"iteration"`
}

// Confidence returns the advisory confidence of this entry in [0,1].
func (e Entry) Confidence() float64 {
	return e.Method.Confidence(e.Score)
}

// Mapping is a partial injective function from source person id to
// destination person id. Injectivity is enforced by Add and is an end-state
// guarantee; Set can introduce violations deliberately (e.g. replaying an
// externally-built mapping for validation), which Validate detects.
type Mapping struct {
	forward map[tree.PersonID]Entry
	claimed map[tree.PersonID]tree.PersonID // dest -> source
}

// New returns an empty mapping.
func New() *Mapping {
	return &Mapping{
		forward: make(map[tree.PersonID]Entry),
		claimed: make(map[tree.PersonID]tree.PersonID),
	}
}

// Add inserts a mapping, rejecting any that would collide with an existing
// source key or destination value.
func (m *Mapping) Add(sourceID, destID tree.PersonID, entry Entry) error {
	if existing, ok := m.forward[sourceID]; ok {
		if existing.DestID == destID {
			return nil
		}
		return errors.NewMappingConflictError(string(sourceID), string(destID), string(existing.DestID))
	}
	if claimedBy, ok := m.claimed[destID]; ok {
		return errors.NewMappingConflictError(string(sourceID), string(destID), string(claimedBy))
	}
	entry.DestID = destID
	m.forward[sourceID] = entry
	m.claimed[destID] = sourceID
	return nil
}

// Set inserts or overwrites a mapping without injectivity checks.
func (m *Mapping) Set(sourceID, destID tree.PersonID, entry Entry) {
	entry.DestID = destID
	m.forward[sourceID] = entry
	if _, ok := m.claimed[destID]; !ok {
		m.claimed[destID] = sourceID
	}
}

// Remove deletes the mapping for a source id.
func (m *Mapping) Remove(sourceID tree.PersonID) {
	entry, ok := m.forward[sourceID]
	if !ok {
		return
	}
	delete(m.forward, sourceID)
	if m.claimed[entry.DestID] == sourceID {
		delete(m.claimed, entry.DestID)
	}
}

// Get returns the destination id mapped to a source id.
func (m *Mapping) Get(sourceID tree.PersonID) (tree.PersonID, bool) {
	entry, ok := m.forward[sourceID]
	return entry.DestID, ok
}

// Entry returns the full provenance entry for a source id.
func (m *Mapping) Entry(sourceID tree.PersonID) (Entry, bool) {
	entry, ok := m.forward[sourceID]
	return entry, ok
}

// Has reports whether the source id is mapped.
func (m *Mapping) Has(sourceID tree.PersonID) bool {
	_, ok := m.forward[sourceID]
	return ok
}

// DestClaimed reports whether any source id maps to the destination id.
func (m *Mapping) DestClaimed(destID tree.PersonID) bool {
	_, ok := m.claimed[destID]
	return ok
}

// SourceOf returns the source id claiming a destination id.
func (m *Mapping) SourceOf(destID tree.PersonID) (tree.PersonID, bool) {
	src, ok := m.claimed[destID]
	return src, ok
}

// Len returns the number of mapped pairs.
func (m *Mapping) Len() int {
	return len(m.forward)
}

// Pairs returns all mappings ordered by source id for deterministic output.
func (m *Mapping) Pairs() []Pair {
	pairs := make([]Pair, 0, len(m.forward))
	for src, entry := range m.forward {
		pairs = append(pairs, Pair{SourceID: src, DestID: entry.DestID})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].SourceID < pairs[j].SourceID })
	return pairs
}

// Clone returns an independent copy of the mapping.
func (m *Mapping) Clone() *Mapping {
	clone := New()
	for src, entry := range m.forward {
		clone.forward[src] = entry
	}
	for dst, src := range m.claimed {
		clone.claimed[dst] = src
	}
	return clone
}
