package compare

import (
	"github.com/kinsync/kinsync/pkg/errors"
	"github.com/kinsync/kinsync/pkg/tree"
)

// Options configures a comparison run.
type Options struct {
	// SourceAnchorID and DestAnchorID are the pre-confirmed person pair that
	// seeds and grounds the run.
	SourceAnchorID tree.PersonID `json:"source_anchor_id" yaml:"source_anchor_id"`
	DestAnchorID   tree.PersonID `json:"dest_anchor_id" yaml:"dest_anchor_id"`

	// MatchThreshold is the minimum fuzzy score (0-100) for a candidate to
	// count as a match.
	MatchThreshold float64 `json:"match_threshold" yaml:"match_threshold"`

	// MaxNewNodeDepth bounds how deep external profile-creation logic may
	// walk when creating missing persons. The comparison engine itself does
	// not consume it; it is carried through for the caller.
	MaxNewNodeDepth int `json:"max_new_node_depth" yaml:"max_new_node_depth"`

	// IncludeDeleteSuggestions emits destination records never selected as a
	// match target as advisory delete suggestions.
	IncludeDeleteSuggestions bool `json:"include_delete_suggestions" yaml:"include_delete_suggestions"`

	// RequireUniqueMatch refuses to guess among candidates tied at the top
	// score, emitting them as ambiguous for manual resolution instead.
	RequireUniqueMatch bool `json:"require_unique_match" yaml:"require_unique_match"`
}

// DefaultOptions returns the standard comparison configuration.
func DefaultOptions() Options {
	return Options{
		MatchThreshold:     60,
		MaxNewNodeDepth:    3,
		RequireUniqueMatch: true,
	}
}

// Validate checks option values.
func (o Options) Validate() error {
	if o.MatchThreshold < 0 || o.MatchThreshold > 100 {
		return errors.NewValidationError("match_threshold", o.MatchThreshold, "must be between 0 and 100")
	}
	if o.MaxNewNodeDepth < 0 {
		return errors.NewValidationError("max_new_node_depth", o.MaxNewNodeDepth, "must not be negative")
	}
	return nil
}
