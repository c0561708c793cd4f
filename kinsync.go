// Package kinsync reconciles two genealogical person graphs: given a source
// tree, a destination tree, and one confirmed anchor person present in both,
// it discovers which persons are the same individual and reports what the
// destination is missing. Beyond recomputing derived normalized-name fields
// up front, it never mutates either graph; the output is a mapping plus
// suggested additions and field updates for the caller to apply.
package kinsync

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kinsync/kinsync/pkg/diff"
	"github.com/kinsync/kinsync/pkg/match"
	"github.com/kinsync/kinsync/pkg/reconcile"
	"github.com/kinsync/kinsync/pkg/tree"
)

// AnchorPair names the starting persons of one anchored run in a batch.
type AnchorPair struct {
	SourceID tree.PersonID `json:"source_id"`
	DestID   tree.PersonID `json:"dest_id"`
}

// Sync runs one reconciliation between source and dest. Anchors must be set
// via WithAnchors (or WithCompareOptions).
func Sync(ctx context.Context, source, dest *tree.Graph, opts ...Option) (*reconcile.Result, error) {
	c := defaultConfig()
	if err := c.options(opts...); err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}
	r, err := c.reconciler()
	if err != nil {
		return nil, err
	}
	if source != nil {
		source.Normalize()
	}
	if dest != nil {
		dest.Normalize()
	}
	return r.Run(ctx, source, dest)
}

// SyncAll runs one reconciliation per anchor pair against the same two
// graphs, bounded-concurrently. Results are returned in pair order; the
// first failing run cancels the rest.
func SyncAll(ctx context.Context, source, dest *tree.Graph, pairs []AnchorPair, opts ...Option) ([]*reconcile.Result, error) {
	base := defaultConfig()
	if err := base.options(opts...); err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}

	// Normalize once before any run starts: runs treat the graphs as
	// read-only and share them across goroutines.
	if source != nil {
		source.Normalize()
	}
	if dest != nil {
		dest.Normalize()
	}

	results := make([]*reconcile.Result, len(pairs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(base.concurrency)

	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			c := *base
			c.compareOpts.SourceAnchorID = pair.SourceID
			c.compareOpts.DestAnchorID = pair.DestID
			r, err := c.reconciler()
			if err != nil {
				return err
			}
			result, err := r.Run(ctx, source, dest)
			if err != nil {
				return fmt.Errorf("anchor %s/%s: %w", pair.SourceID, pair.DestID, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// reconciler assembles the run engine from the collected configuration.
func (c *config) reconciler() (*reconcile.Reconciler, error) {
	var matchOpts []match.Option
	if c.oracle != nil {
		matchOpts = append(matchOpts, match.WithOracle(c.oracle))
	}
	if c.weights != nil {
		matchOpts = append(matchOpts, match.WithWeights(*c.weights))
	}

	var diffOpts []diff.Option
	if c.photoComparer != nil {
		diffOpts = append(diffOpts, diff.WithPhotoComparer(c.photoComparer))
	}
	if c.photoCache != nil {
		diffOpts = append(diffOpts, diff.WithPhotoCache(c.photoCache))
	}

	return reconcile.New(
		reconcile.WithMatcher(match.New(matchOpts...)),
		reconcile.WithDiffer(diff.New(diffOpts...)),
		reconcile.WithOptions(c.compareOpts),
		reconcile.WithSeeds(c.seeds),
		reconcile.WithValidation(c.validation),
	)
}
