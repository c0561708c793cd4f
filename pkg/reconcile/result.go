package reconcile

import (
	"fmt"
	"time"

	"github.com/kinsync/kinsync/pkg/compare"
	"github.com/kinsync/kinsync/pkg/mapping"
	"github.com/kinsync/kinsync/pkg/tree"
)

// Result is the outcome of one reconciliation run.
type Result struct {
	// RunID uniquely identifies this run in logs and stored results.
	RunID string `json:"run_id"`

	// Converged reports whether the run reached a fixed point before the
	// iteration cap.
	Converged bool `json:"converged"`

	// Individuals and Families hold the final iteration's comparison
	// outcomes.
	Individuals *compare.IndividualResult `json:"individuals,omitempty"`
	Families    *compare.FamilyResult     `json:"families,omitempty"`

	// Mapping is the final person mapping, after validation rollback when
	// validation is enabled.
	Mapping *mapping.Mapping `json:"-"`

	// Validation holds the audit outcome when validation is enabled.
	Validation *mapping.ValidationResult `json:"validation,omitempty"`

	// Warnings contains non-fatal issues such as hitting the iteration cap.
	Warnings []string `json:"warnings,omitempty"`

	// Iterations records each pass of the matching loop.
	Iterations []IterationRecord `json:"iterations"`

	Metadata ResultMetadata `json:"metadata"`
}

// IterationRecord summarizes one pass of the matching loop. The full pass
// outcomes are retained for diagnostics but excluded from serialized
// reports, which carry the final outcomes only.
type IterationRecord struct {
	Number          int `json:"number"`
	PersonsMatched  int `json:"persons_matched"`
	PersonsToAdd    int `json:"persons_to_add"`
	Ambiguous       int `json:"ambiguous"`
	FamiliesMatched int `json:"families_matched"`
	// NewMappings is how many person mappings the family pass discovered;
	// zero means the run converged.
	NewMappings int `json:"new_mappings"`

	Individuals *compare.IndividualResult `json:"-"`
	Families    *compare.FamilyResult     `json:"-"`
}

// ResultMetadata describes when and against what the run executed.
type ResultMetadata struct {
	SourceAnchorID tree.PersonID `json:"source_anchor_id"`
	DestAnchorID   tree.PersonID `json:"dest_anchor_id"`

	// Options is the comparison configuration the run executed with.
	Options compare.Options `json:"options"`

	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	Stats Statistics `json:"stats"`
}

// Statistics aggregates counts over the final state of a run.
type Statistics struct {
	SourcePersons   int `json:"source_persons"`
	DestPersons     int `json:"dest_persons"`
	PersonsMapped   int `json:"persons_mapped"`
	PersonsToAdd    int `json:"persons_to_add"`
	Ambiguous       int `json:"ambiguous"`
	NeedsUpdate     int `json:"needs_update"`
	FamiliesMatched int `json:"families_matched"`
	FamiliesToAdd   int `json:"families_to_add"`
	RolledBack      int `json:"rolled_back"`
	Iterations      int `json:"iterations"`
}

// HasWarnings reports whether the run produced warnings.
func (r *Result) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Summary returns a one-line human-readable summary of the run.
func (r *Result) Summary() string {
	s := r.Metadata.Stats
	return fmt.Sprintf("mapped %d of %d persons in %d iterations (%d to add, %d ambiguous, %d needing update)",
		s.PersonsMapped, s.SourcePersons, s.Iterations, s.PersonsToAdd, s.Ambiguous, s.NeedsUpdate)
}

// resultBuilder accumulates a Result during a run.
type resultBuilder struct {
	result *Result
}

func newResultBuilder(runID string, sourceAnchor, destAnchor tree.PersonID) *resultBuilder {
	return &resultBuilder{
		result: &Result{
			RunID: runID,
			Metadata: ResultMetadata{
				SourceAnchorID: sourceAnchor,
				DestAnchorID:   destAnchor,
				StartTime:      time.Now(),
			},
		},
	}
}

func (b *resultBuilder) iteration(rec IterationRecord) {
	b.result.Iterations = append(b.result.Iterations, rec)
}

func (b *resultBuilder) warning(format string, args ...any) {
	b.result.Warnings = append(b.result.Warnings, fmt.Sprintf(format, args...))
}

func (b *resultBuilder) build() *Result {
	b.result.Metadata.EndTime = time.Now()
	b.result.Metadata.Duration = b.result.Metadata.EndTime.Sub(b.result.Metadata.StartTime)
	b.result.Metadata.Stats.Iterations = len(b.result.Iterations)
	return b.result
}
