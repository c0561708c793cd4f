// Package reconcile orchestrates a full reconciliation run between two
// person graphs: seeded from an anchor pair, it alternates individual and
// family comparison passes until the person mapping stops growing, then
// optionally audits the mapping and rolls back contradictory decisions.
package reconcile

import (
	"context"

	"github.com/google/uuid"

	"github.com/kinsync/kinsync/pkg/compare"
	"github.com/kinsync/kinsync/pkg/diff"
	"github.com/kinsync/kinsync/pkg/errors"
	"github.com/kinsync/kinsync/pkg/logging"
	"github.com/kinsync/kinsync/pkg/mapping"
	"github.com/kinsync/kinsync/pkg/match"
	"github.com/kinsync/kinsync/pkg/names"
	"github.com/kinsync/kinsync/pkg/tree"
)

// defaultMaxIterations caps the matching loop. Each iteration can only add
// mappings, so the loop terminates regardless; the cap bounds pathological
// inputs. Hitting it is a warning, not an error.
const defaultMaxIterations = 5

// Reconciler runs reconciliation between a source and a destination graph.
type Reconciler struct {
	matcher  *match.Matcher
	differ   *diff.Differ
	opts     compare.Options
	seeds    []mapping.Pair
	validate bool

	maxIterations int

	// matcherOpts defers matcher construction so WithOracle and WithWeights
	// compose with an explicitly supplied matcher being absent.
	matcherOpts []match.Option
}

// Option configures a Reconciler.
type Option func(*Reconciler) error

// WithMatcher supplies a fully built matcher, overriding WithOracle and
// WithWeights.
func WithMatcher(m *match.Matcher) Option {
	return func(r *Reconciler) error {
		if m == nil {
			return errors.NewValidationError("matcher", nil, "must not be nil")
		}
		r.matcher = m
		return nil
	}
}

// WithOracle sets the name-equivalence oracle used for fuzzy matching.
func WithOracle(o names.Oracle) Option {
	return func(r *Reconciler) error {
		if o == nil {
			return errors.NewValidationError("oracle", nil, "must not be nil")
		}
		r.matcherOpts = append(r.matcherOpts, match.WithOracle(o))
		return nil
	}
}

// WithWeights sets the fuzzy matcher weights.
func WithWeights(w match.Weights) Option {
	return func(r *Reconciler) error {
		r.matcherOpts = append(r.matcherOpts, match.WithWeights(w))
		return nil
	}
}

// WithDiffer supplies the field differ, e.g. one configured with a photo
// comparer and cache.
func WithDiffer(d *diff.Differ) Option {
	return func(r *Reconciler) error {
		if d == nil {
			return errors.NewValidationError("differ", nil, "must not be nil")
		}
		r.differ = d
		return nil
	}
}

// WithOptions sets the comparison options, including the anchor ids.
func WithOptions(opts compare.Options) Option {
	return func(r *Reconciler) error {
		if err := opts.Validate(); err != nil {
			return err
		}
		r.opts = opts
		return nil
	}
}

// WithSeeds supplies pre-confirmed person mappings carried into the first
// iteration alongside the anchor pair.
func WithSeeds(seeds []mapping.Pair) Option {
	return func(r *Reconciler) error {
		r.seeds = seeds
		return nil
	}
}

// WithValidation enables the post-run mapping audit and rollback.
func WithValidation(enabled bool) Option {
	return func(r *Reconciler) error {
		r.validate = enabled
		return nil
	}
}

// New creates a Reconciler.
func New(opts ...Option) (*Reconciler, error) {
	r := &Reconciler{
		opts:          compare.DefaultOptions(),
		validate:      true,
		maxIterations: defaultMaxIterations,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.matcher == nil {
		r.matcher = match.New(r.matcherOpts...)
	}
	if r.differ == nil {
		r.differ = diff.New()
	}
	return r, nil
}

// Run executes a reconciliation between source and dest. Both graphs must
// already carry their derived normalized-name fields (graphio.Load and
// tree.Graph.Normalize produce them); Run treats the graphs as read-only, so
// concurrent runs may share them. The returned Result carries the discovered
// mapping and the suggested additions, updates, and deletions. Run fails only
// on invalid input or context cancellation; an unconverged run returns a
// warning.
func (r *Reconciler) Run(ctx context.Context, source, dest *tree.Graph) (*Result, error) {
	if source == nil || dest == nil {
		return nil, errors.NewValidationError("graph", nil, "source and destination graphs are required")
	}
	if source.Person(r.opts.SourceAnchorID) == nil {
		return nil, errors.NewAnchorError("source", string(r.opts.SourceAnchorID))
	}
	if dest.Person(r.opts.DestAnchorID) == nil {
		return nil, errors.NewAnchorError("destination", string(r.opts.DestAnchorID))
	}

	runID := uuid.New().String()
	ctx = logging.WithRunID(ctx, runID)
	log := logging.Ctx(ctx)
	builder := newResultBuilder(runID, r.opts.SourceAnchorID, r.opts.DestAnchorID)
	builder.result.Metadata.Options = r.opts

	carry := mapping.New()
	anchorEntry := mapping.Entry{Method: match.MethodExistingMapping, Score: 100}
	if err := carry.Add(r.opts.SourceAnchorID, r.opts.DestAnchorID, anchorEntry); err != nil {
		return nil, err
	}
	for _, seed := range r.seeds {
		if err := carry.Add(seed.SourceID, seed.DestID, anchorEntry); err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("source_anchor", string(r.opts.SourceAnchorID)).
		Str("dest_anchor", string(r.opts.DestAnchorID)).
		Int("seeds", len(r.seeds)).
		Int("source_persons", len(source.Persons)).
		Int("dest_persons", len(dest.Persons)).
		Msg("starting reconciliation")

	comparator := compare.NewComparator(r.matcher, r.differ, r.opts)

	var (
		individuals *compare.IndividualResult
		families    *compare.FamilyResult
		converged   bool
	)
	for i := 1; i <= r.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		individuals = comparator.CompareIndividuals(source, dest, carry)
		families = comparator.CompareFamilies(source, dest, individuals.Mapping)

		discovered := families.NewMappings.Len()
		builder.iteration(IterationRecord{
			Number:          i,
			PersonsMatched:  len(individuals.Matched),
			PersonsToAdd:    len(individuals.ToAdd),
			Ambiguous:       len(individuals.Ambiguous),
			FamiliesMatched: len(families.Matched),
			NewMappings:     discovered,
			Individuals:     individuals,
			Families:        families,
		})
		log.Debug().
			Int("iteration", i).
			Int("persons_matched", len(individuals.Matched)).
			Int("families_matched", len(families.Matched)).
			Int("new_mappings", discovered).
			Msg("iteration complete")

		if discovered == 0 {
			converged = true
			break
		}
		for _, pair := range families.NewMappings.Pairs() {
			entry, _ := families.NewMappings.Entry(pair.SourceID)
			entry.Iteration = i
			if err := carry.Add(pair.SourceID, pair.DestID, entry); err != nil {
				log.Warn().Err(err).
					Str("source_id", string(pair.SourceID)).
					Msg("discarding family-derived mapping that conflicts with the carried set")
			}
		}
	}
	if !converged {
		builder.warning("matching did not converge within %d iterations; results may be incomplete", r.maxIterations)
		log.Warn().Int("max_iterations", r.maxIterations).Msg("iteration cap reached before convergence")
	}

	final := individuals.Mapping.Clone()
	for _, pair := range families.NewMappings.Pairs() {
		entry, _ := families.NewMappings.Entry(pair.SourceID)
		if err := final.Add(pair.SourceID, pair.DestID, entry); err != nil {
			log.Warn().Err(err).Str("source_id", string(pair.SourceID)).Msg("discarding conflicting mapping")
		}
	}

	rolledBack := 0
	if r.validate {
		validation := mapping.Validate(final, source, dest)
		builder.result.Validation = &validation
		if high := validation.HighSeverity(); len(high) > 0 {
			before := final.Len()
			final = mapping.Rollback(final, validation, source)
			rolledBack = before - final.Len()
			builder.warning("validation rolled back %d mappings across %d high-severity issues", rolledBack, len(high))
			log.Warn().
				Int("rolled_back", rolledBack).
				Int("high_severity", len(high)).
				Msg("validation rollback applied")
		}
	}

	builder.result.Converged = converged
	builder.result.Individuals = individuals
	builder.result.Families = families
	builder.result.Mapping = final
	builder.result.Metadata.Stats = Statistics{
		SourcePersons:   len(source.Persons),
		DestPersons:     len(dest.Persons),
		PersonsMapped:   final.Len(),
		PersonsToAdd:    len(individuals.ToAdd),
		Ambiguous:       len(individuals.Ambiguous),
		NeedsUpdate:     individuals.NeedsUpdateCount(),
		FamiliesMatched: len(families.Matched),
		FamiliesToAdd:   len(families.ToAdd),
		RolledBack:      rolledBack,
	}

	result := builder.build()
	log.Info().
		Int("persons_mapped", result.Metadata.Stats.PersonsMapped).
		Int("iterations", result.Metadata.Stats.Iterations).
		Bool("converged", converged).
		Dur("duration", result.Metadata.Duration).
		Msg("reconciliation complete")
	return result, nil
}
