package kinsync

import (
	"runtime"

	"github.com/kinsync/kinsync/pkg/compare"
	"github.com/kinsync/kinsync/pkg/errors"
	"github.com/kinsync/kinsync/pkg/mapping"
	"github.com/kinsync/kinsync/pkg/match"
	"github.com/kinsync/kinsync/pkg/names"
	"github.com/kinsync/kinsync/pkg/photos"
	"github.com/kinsync/kinsync/pkg/tree"
)

// Option configures a sync run.
type Option func(*config) error

// config collects the settings a sync run is built from.
type config struct {
	compareOpts   compare.Options
	weights       *match.Weights
	oracle        names.Oracle
	seeds         []mapping.Pair
	validation    bool
	photoComparer photos.Comparer
	photoCache    *photos.Cache
	concurrency   int
}

func defaultConfig() *config {
	return &config{
		compareOpts: compare.DefaultOptions(),
		validation:  true,
		concurrency: runtime.NumCPU(),
	}
}

func (c *config) options(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// WithAnchors sets the anchor persons the run starts from. The anchors are
// the same person in both graphs, confirmed by the caller.
func WithAnchors(sourceID, destID tree.PersonID) Option {
	return func(c *config) error {
		if sourceID == "" || destID == "" {
			return errors.NewValidationError("anchors", nil, "both anchor ids are required")
		}
		c.compareOpts.SourceAnchorID = sourceID
		c.compareOpts.DestAnchorID = destID
		return nil
	}
}

// WithMatchThreshold sets the minimum fuzzy score treated as a match.
func WithMatchThreshold(threshold float64) Option {
	return func(c *config) error {
		c.compareOpts.MatchThreshold = threshold
		return c.compareOpts.Validate()
	}
}

// WithCompareOptions replaces the comparison options wholesale.
func WithCompareOptions(opts compare.Options) Option {
	return func(c *config) error {
		if err := opts.Validate(); err != nil {
			return err
		}
		c.compareOpts = opts
		return nil
	}
}

// WithDeleteSuggestions enables advisory suggestions for destination records
// with no source counterpart.
func WithDeleteSuggestions(enabled bool) Option {
	return func(c *config) error {
		c.compareOpts.IncludeDeleteSuggestions = enabled
		return nil
	}
}

// WithWeights sets the fuzzy matcher weights.
func WithWeights(w match.Weights) Option {
	return func(c *config) error {
		c.weights = &w
		return nil
	}
}

// WithOracle sets the name-equivalence oracle consulted during fuzzy
// matching, e.g. one loaded from name variant tables.
func WithOracle(o names.Oracle) Option {
	return func(c *config) error {
		if o == nil {
			return errors.NewValidationError("oracle", nil, "must not be nil")
		}
		c.oracle = o
		return nil
	}
}

// WithSeeds supplies pre-confirmed person mappings from an earlier run.
func WithSeeds(seeds []mapping.Pair) Option {
	return func(c *config) error {
		c.seeds = seeds
		return nil
	}
}

// WithValidation toggles the post-run mapping audit. Enabled by default.
func WithValidation(enabled bool) Option {
	return func(c *config) error {
		c.validation = enabled
		return nil
	}
}

// WithPhotoComparer sets the comparer used to decide whether photos on both
// sides are the same image.
func WithPhotoComparer(pc photos.Comparer) Option {
	return func(c *config) error {
		c.photoComparer = pc
		return nil
	}
}

// WithPhotoCache attaches a cache of photo comparison outcomes reused
// across runs.
func WithPhotoCache(cache *photos.Cache) Option {
	return func(c *config) error {
		c.photoCache = cache
		return nil
	}
}

// WithConcurrency bounds how many anchored runs SyncAll executes at once.
func WithConcurrency(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return errors.NewValidationError("concurrency", n, "must be at least 1")
		}
		c.concurrency = n
		return nil
	}
}
