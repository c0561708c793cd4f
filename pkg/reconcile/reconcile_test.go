package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinsync/kinsync/pkg/compare"
	"github.com/kinsync/kinsync/pkg/dates"
	"github.com/kinsync/kinsync/pkg/errors"
	"github.com/kinsync/kinsync/pkg/mapping"
	"github.com/kinsync/kinsync/pkg/match"
	"github.com/kinsync/kinsync/pkg/tree"
)

func person(id tree.PersonID, given, surname string, gender tree.Gender, birthYear int) *tree.Person {
	p := &tree.Person{ID: id, GivenName: given, Surname: surname, Gender: gender}
	if birthYear != 0 {
		p.Birth = dates.NewYear(birthYear)
	}
	return p
}

// twoGenerationGraphs builds a source and destination graph describing the
// same three-generation line with diverging spelling in the younger
// generations, so that only family structure can map them.
func twoGenerationGraphs() (*tree.Graph, *tree.Graph) {
	source := tree.NewGraph()
	for _, p := range []*tree.Person{
		person("s-gf", "Johan", "Berg", tree.GenderMale, 1830),
		person("s-gm", "Anna", "Berg", tree.GenderFemale, 1832),
		person("s-f", "Erik", "Berg", tree.GenderMale, 1860),
		person("s-c", "Lova", "Berg", tree.GenderFemale, 1885),
	} {
		source.Persons[p.ID] = p
	}
	source.Families["s-fam1"] = &tree.Family{ID: "s-fam1", HusbandID: "s-gf", WifeID: "s-gm", ChildIDs: []tree.PersonID{"s-f"}}
	source.Families["s-fam2"] = &tree.Family{ID: "s-fam2", HusbandID: "s-f", ChildIDs: []tree.PersonID{"s-c"}}

	dest := tree.NewGraph()
	for _, p := range []*tree.Person{
		person("d-gf", "Johan", "Berg", tree.GenderMale, 1830),
		person("d-gm", "Anna", "Berg", tree.GenderFemale, 1832),
		person("d-f", "Erik Albin", "Bergman", tree.GenderMale, 0),
		person("d-c", "Lovisa", "Dahl", tree.GenderFemale, 0),
	} {
		dest.Persons[p.ID] = p
	}
	dest.Families["d-fam1"] = &tree.Family{ID: "d-fam1", HusbandID: "d-gf", WifeID: "d-gm", ChildIDs: []tree.PersonID{"d-f"}}
	dest.Families["d-fam2"] = &tree.Family{ID: "d-fam2", HusbandID: "d-f", ChildIDs: []tree.PersonID{"d-c"}}

	source.Normalize()
	dest.Normalize()
	return source, dest
}

func anchoredOptions() compare.Options {
	opts := compare.DefaultOptions()
	opts.SourceAnchorID = "s-gf"
	opts.DestAnchorID = "d-gf"
	return opts
}

func TestRunConverges(t *testing.T) {
	source, dest := twoGenerationGraphs()
	r, err := New(WithOptions(anchoredOptions()))
	require.NoError(t, err)

	result, err := r.Run(context.Background(), source, dest)
	require.NoError(t, err)

	assert.True(t, result.Converged)
	assert.NotEmpty(t, result.RunID)
	assert.Empty(t, result.Warnings)

	// Anchor, grandmother, father, and child must all end up mapped: the
	// father and child only through family structure.
	assert.Equal(t, 4, result.Mapping.Len())
	for src, dst := range map[tree.PersonID]tree.PersonID{
		"s-gf": "d-gf",
		"s-gm": "d-gm",
		"s-f":  "d-f",
		"s-c":  "d-c",
	} {
		got, ok := result.Mapping.Get(src)
		require.True(t, ok, "missing mapping for %s", src)
		assert.Equal(t, dst, got)
	}

	// The final iteration is a clean pass discovering nothing new.
	require.NotEmpty(t, result.Iterations)
	last := result.Iterations[len(result.Iterations)-1]
	assert.Zero(t, last.NewMappings)
	assert.LessOrEqual(t, len(result.Iterations), defaultMaxIterations)

	entry, ok := result.Mapping.Entry("s-gf")
	require.True(t, ok)
	assert.Equal(t, match.MethodExistingMapping, entry.Method)
}

func TestRunStatistics(t *testing.T) {
	source, dest := twoGenerationGraphs()
	r, err := New(WithOptions(anchoredOptions()))
	require.NoError(t, err)

	result, err := r.Run(context.Background(), source, dest)
	require.NoError(t, err)

	s := result.Metadata.Stats
	assert.Equal(t, 4, s.SourcePersons)
	assert.Equal(t, 4, s.DestPersons)
	assert.Equal(t, 4, s.PersonsMapped)
	assert.Equal(t, 2, s.FamiliesMatched)
	assert.Equal(t, len(result.Iterations), s.Iterations)
	assert.False(t, result.Metadata.EndTime.Before(result.Metadata.StartTime))
	assert.NotEmpty(t, result.Summary())
}

func TestRunAnchorMissing(t *testing.T) {
	source, dest := twoGenerationGraphs()

	opts := anchoredOptions()
	opts.SourceAnchorID = "nope"
	r, err := New(WithOptions(opts))
	require.NoError(t, err)

	_, err = r.Run(context.Background(), source, dest)
	require.Error(t, err)
	assert.True(t, errors.IsAnchorNotFound(err))

	opts = anchoredOptions()
	opts.DestAnchorID = "nope"
	r, err = New(WithOptions(opts))
	require.NoError(t, err)

	_, err = r.Run(context.Background(), source, dest)
	require.Error(t, err)
	assert.True(t, errors.IsAnchorNotFound(err))
}

func TestRunNilGraph(t *testing.T) {
	r, err := New(WithOptions(anchoredOptions()))
	require.NoError(t, err)

	_, err = r.Run(context.Background(), nil, nil)
	assert.True(t, errors.IsValidationError(err))
}

func TestRunCancelledContext(t *testing.T) {
	source, dest := twoGenerationGraphs()
	r, err := New(WithOptions(anchoredOptions()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Run(ctx, source, dest)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunSeedsAreCarried(t *testing.T) {
	source, dest := twoGenerationGraphs()

	r, err := New(
		WithOptions(anchoredOptions()),
		WithSeeds([]mapping.Pair{{SourceID: "s-c", DestID: "d-c"}}),
	)
	require.NoError(t, err)

	result, err := r.Run(context.Background(), source, dest)
	require.NoError(t, err)

	entry, ok := result.Mapping.Entry("s-c")
	require.True(t, ok)
	assert.Equal(t, match.MethodExistingMapping, entry.Method)
}

func TestRunConflictingSeedRejected(t *testing.T) {
	source, dest := twoGenerationGraphs()

	r, err := New(
		WithOptions(anchoredOptions()),
		WithSeeds([]mapping.Pair{{SourceID: "s-gf", DestID: "d-c"}}),
	)
	require.NoError(t, err)

	_, err = r.Run(context.Background(), source, dest)
	assert.True(t, errors.IsMappingConflict(err))
}

func TestRunValidationRollsBackBadSeed(t *testing.T) {
	source, dest := twoGenerationGraphs()

	// Pair the source child (female) with the destination father (male).
	// Validation must flag the contradiction and drop the mapping.
	r, err := New(
		WithOptions(anchoredOptions()),
		WithSeeds([]mapping.Pair{{SourceID: "s-c", DestID: "d-f"}}),
		WithValidation(true),
	)
	require.NoError(t, err)

	result, err := r.Run(context.Background(), source, dest)
	require.NoError(t, err)

	require.NotNil(t, result.Validation)
	assert.NotEmpty(t, result.Validation.HighSeverity())
	assert.False(t, result.Mapping.Has("s-c"))
	assert.Positive(t, result.Metadata.Stats.RolledBack)
	assert.True(t, result.HasWarnings())
}

func TestRunKeepsStructuralProvenance(t *testing.T) {
	source, dest := twoGenerationGraphs()
	r, err := New(WithOptions(anchoredOptions()))
	require.NoError(t, err)

	result, err := r.Run(context.Background(), source, dest)
	require.NoError(t, err)

	// The younger generations are only reachable through family structure;
	// their entries must keep the structural method and its lower confidence
	// even after later passes re-absorb the carried mapping.
	for _, src := range []tree.PersonID{"s-f", "s-c"} {
		entry, ok := result.Mapping.Entry(src)
		require.True(t, ok, "missing mapping for %s", src)
		assert.Equal(t, match.MethodFamilySingleChild, entry.Method, "method for %s", src)
		assert.InDelta(t, 0.85, entry.Method.Confidence(entry.Score), 1e-9, "confidence for %s", src)
	}
}

func TestRunLeavesGraphsUnchanged(t *testing.T) {
	source, dest := twoGenerationGraphs()

	before := make(map[tree.PersonID]tree.Person)
	for id, p := range source.Persons {
		before[id] = *p
	}
	for id, p := range dest.Persons {
		before[id] = *p
	}

	r, err := New(WithOptions(anchoredOptions()))
	require.NoError(t, err)
	_, err = r.Run(context.Background(), source, dest)
	require.NoError(t, err)

	for id, p := range source.Persons {
		assert.Equal(t, before[id], *p, "source person %s changed", id)
	}
	for id, p := range dest.Persons {
		assert.Equal(t, before[id], *p, "destination person %s changed", id)
	}
}

func TestRunIterationCapWarns(t *testing.T) {
	source, dest := twoGenerationGraphs()
	r, err := New(WithOptions(anchoredOptions()))
	require.NoError(t, err)
	r.maxIterations = 1

	result, err := r.Run(context.Background(), source, dest)
	require.NoError(t, err)

	assert.False(t, result.Converged)
	require.Len(t, result.Iterations, 1)
	assert.Positive(t, result.Iterations[0].NewMappings)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "did not converge")

	// Mappings discovered in the capped final iteration still reach the
	// result.
	assert.True(t, result.Mapping.Has("s-c"))
}

func TestRunValidationDisabled(t *testing.T) {
	source, dest := twoGenerationGraphs()

	r, err := New(
		WithOptions(anchoredOptions()),
		WithValidation(false),
	)
	require.NoError(t, err)

	result, err := r.Run(context.Background(), source, dest)
	require.NoError(t, err)
	assert.Nil(t, result.Validation)
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	opts := compare.DefaultOptions()
	opts.MatchThreshold = -1
	_, err := New(WithOptions(opts))
	assert.Error(t, err)

	_, err = New(WithMatcher(nil))
	assert.Error(t, err)

	_, err = New(WithOracle(nil))
	assert.Error(t, err)
}
