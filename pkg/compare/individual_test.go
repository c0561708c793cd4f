package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinsync/kinsync/pkg/dates"
	"github.com/kinsync/kinsync/pkg/mapping"
	"github.com/kinsync/kinsync/pkg/match"
	"github.com/kinsync/kinsync/pkg/tree"
)

func testPerson(id tree.PersonID, given, surname string, gender tree.Gender, birthYear int) *tree.Person {
	p := &tree.Person{
		ID:        id,
		GivenName: given,
		Surname:   surname,
		Gender:    gender,
	}
	if birthYear != 0 {
		p.Birth = dates.NewYear(birthYear)
	}
	p.Normalize()
	return p
}

func graphOf(persons ...*tree.Person) *tree.Graph {
	g := tree.NewGraph()
	for _, p := range persons {
		g.Persons[p.ID] = p
	}
	return g
}

func findMatch(t *testing.T, r *IndividualResult, src tree.PersonID) PersonMatch {
	t.Helper()
	for _, m := range r.Matched {
		if m.SourceID == src {
			return m
		}
	}
	t.Fatalf("no match for %s", src)
	return PersonMatch{}
}

func TestCompareIndividualsExistingMapping(t *testing.T) {
	src := testPerson("s1", "Anna", "Lind", tree.GenderFemale, 1900)
	// Intentionally dissimilar: the seed must win without any scoring.
	dst := testPerson("d1", "Greta", "Holm", tree.GenderFemale, 1950)

	seeds := mapping.New()
	require.NoError(t, seeds.Add("s1", "d1", mapping.Entry{Method: match.MethodExistingMapping, Score: 100}))

	c := NewComparator(nil, nil, DefaultOptions())
	result := c.CompareIndividuals(graphOf(src), graphOf(dst), seeds)

	require.Len(t, result.Matched, 1)
	m := result.Matched[0]
	assert.Equal(t, tree.PersonID("d1"), m.DestID)
	assert.Equal(t, match.MethodExistingMapping, m.Method)
	assert.Equal(t, float64(100), m.Score)
	assert.Empty(t, result.ToAdd)
}

func TestCompareIndividualsCarriedEntryKeepsProvenance(t *testing.T) {
	src := testPerson("s1", "Lova", "Berg", tree.GenderFemale, 1885)
	dst := testPerson("d1", "Lovisa", "Dahl", tree.GenderFemale, 1885)

	carried := mapping.New()
	require.NoError(t, carried.Add("s1", "d1", mapping.Entry{
		Method:    match.MethodFamilySingleChild,
		Iteration: 2,
	}))

	c := NewComparator(nil, nil, DefaultOptions())
	result := c.CompareIndividuals(graphOf(src), graphOf(dst), carried)

	require.Len(t, result.Matched, 1)
	m := result.Matched[0]
	assert.Equal(t, match.MethodFamilySingleChild, m.Method)
	assert.Equal(t, 2, m.Iteration)

	entry, ok := result.Mapping.Entry("s1")
	require.True(t, ok)
	assert.Equal(t, match.MethodFamilySingleChild, entry.Method)
	assert.Equal(t, 2, entry.Iteration)
	assert.InDelta(t, 0.85, entry.Method.Confidence(entry.Score), 1e-9)
}

func TestCompareIndividualsRFNBeatsFuzzy(t *testing.T) {
	src := testPerson("s1", "Johan", "Berg", tree.GenderMale, 1880)
	src.RFN = "RFN-0042"

	// d1 is the better fuzzy candidate, d2 carries the matching profile id.
	d1 := testPerson("d1", "Johan", "Berg", tree.GenderMale, 1880)
	d2 := testPerson("d2", "John", "Mountain", tree.GenderMale, 1881)
	d2.RFN = "rfn42"

	c := NewComparator(nil, nil, DefaultOptions())
	result := c.CompareIndividuals(graphOf(src), graphOf(d1, d2), nil)

	m := findMatch(t, result, "s1")
	assert.Equal(t, tree.PersonID("d2"), m.DestID)
	assert.Equal(t, match.MethodRFN, m.Method)
	assert.Equal(t, float64(100), m.Score)
}

func TestCompareIndividualsFuzzyMatch(t *testing.T) {
	src := testPerson("s1", "Maria", "Ek", tree.GenderFemale, 1902)
	dst := testPerson("d1", "Maria", "Ek", tree.GenderFemale, 1902)
	other := testPerson("d2", "Karl", "Ask", tree.GenderMale, 1870)

	c := NewComparator(nil, nil, DefaultOptions())
	result := c.CompareIndividuals(graphOf(src), graphOf(dst, other), nil)

	m := findMatch(t, result, "s1")
	assert.Equal(t, tree.PersonID("d1"), m.DestID)
	assert.Equal(t, match.MethodFuzzy, m.Method)
	assert.GreaterOrEqual(t, m.Score, float64(60))
	assert.NotEmpty(t, m.Reasons)

	got, ok := result.Mapping.Get("s1")
	require.True(t, ok)
	assert.Equal(t, tree.PersonID("d1"), got)
}

func TestCompareIndividualsAmbiguityIsNotGuessed(t *testing.T) {
	src := testPerson("s1", "Erik", "Sten", tree.GenderMale, 1895)
	d1 := testPerson("d1", "Erik", "Sten", tree.GenderMale, 1895)
	d2 := testPerson("d2", "Erik", "Sten", tree.GenderMale, 1895)

	c := NewComparator(nil, nil, DefaultOptions())
	result := c.CompareIndividuals(graphOf(src), graphOf(d1, d2), nil)

	assert.Empty(t, result.Matched)
	require.Len(t, result.Ambiguous, 1)
	amb := result.Ambiguous[0]
	assert.Equal(t, tree.PersonID("s1"), amb.SourceID)
	assert.ElementsMatch(t, []tree.PersonID{"d1", "d2"}, amb.Candidates)
}

func TestCompareIndividualsAmbiguityDisabled(t *testing.T) {
	src := testPerson("s1", "Erik", "Sten", tree.GenderMale, 1895)
	d1 := testPerson("d1", "Erik", "Sten", tree.GenderMale, 1895)
	d2 := testPerson("d2", "Erik", "Sten", tree.GenderMale, 1895)

	opts := DefaultOptions()
	opts.RequireUniqueMatch = false
	c := NewComparator(nil, nil, opts)
	result := c.CompareIndividuals(graphOf(src), graphOf(d1, d2), nil)

	require.Len(t, result.Matched, 1)
	assert.Empty(t, result.Ambiguous)
}

func TestCompareIndividualsClaimContention(t *testing.T) {
	// Both sources resemble d1; s1 is the stronger claim via matching birth
	// year. s2 must fall through to its next candidate rather than steal d1
	// or be forced out.
	s1 := testPerson("s1", "Nils", "Falk", tree.GenderMale, 1888)
	s2 := testPerson("s2", "Nils", "Falk", tree.GenderMale, 1890)
	d1 := testPerson("d1", "Nils", "Falk", tree.GenderMale, 1888)
	d2 := testPerson("d2", "Nils", "Falk", tree.GenderMale, 1890)

	c := NewComparator(nil, nil, DefaultOptions())
	result := c.CompareIndividuals(graphOf(s1, s2), graphOf(d1, d2), nil)

	require.Len(t, result.Matched, 2)
	assert.Equal(t, tree.PersonID("d1"), findMatch(t, result, "s1").DestID)
	assert.Equal(t, tree.PersonID("d2"), findMatch(t, result, "s2").DestID)
	assert.Empty(t, result.ToAdd)
}

func TestCompareIndividualsAllCandidatesClaimed(t *testing.T) {
	s1 := testPerson("s1", "Per", "Dal", tree.GenderMale, 1900)
	s2 := testPerson("s2", "Per", "Dal", tree.GenderMale, 1901)
	d1 := testPerson("d1", "Per", "Dal", tree.GenderMale, 1900)

	c := NewComparator(nil, nil, DefaultOptions())
	result := c.CompareIndividuals(graphOf(s1, s2), graphOf(d1), nil)

	require.Len(t, result.Matched, 1)
	assert.Equal(t, tree.PersonID("s1"), result.Matched[0].SourceID)
	assert.Equal(t, []tree.PersonID{"s2"}, result.ToAdd)
}

func TestCompareIndividualsNoCandidates(t *testing.T) {
	src := testPerson("s1", "Olof", "Vik", tree.GenderMale, 1850)
	dst := testPerson("d1", "Britta", "Norr", tree.GenderFemale, 1950)

	c := NewComparator(nil, nil, DefaultOptions())
	result := c.CompareIndividuals(graphOf(src), graphOf(dst), nil)

	assert.Empty(t, result.Matched)
	assert.Equal(t, []tree.PersonID{"s1"}, result.ToAdd)
}

func TestCompareIndividualsDeleteSuggestions(t *testing.T) {
	src := testPerson("s1", "Hanna", "Ros", tree.GenderFemale, 1910)
	d1 := testPerson("d1", "Hanna", "Ros", tree.GenderFemale, 1910)
	d2 := testPerson("d2", "Sven", "Gran", tree.GenderMale, 1800)

	opts := DefaultOptions()
	opts.IncludeDeleteSuggestions = true
	c := NewComparator(nil, nil, opts)
	result := c.CompareIndividuals(graphOf(src), graphOf(d1, d2), nil)

	assert.Equal(t, []tree.PersonID{"d2"}, result.DeleteSuggestions)
}

func TestCompareIndividualsNeedsUpdate(t *testing.T) {
	src := testPerson("s1", "Ida", "Alm", tree.GenderFemale, 1905)
	src.BirthPlace = "Uppsala"
	dst := testPerson("d1", "Ida", "Alm", tree.GenderFemale, 1905)

	c := NewComparator(nil, nil, DefaultOptions())
	result := c.CompareIndividuals(graphOf(src), graphOf(dst), nil)

	m := findMatch(t, result, "s1")
	assert.True(t, m.NeedsUpdate)
	require.NotEmpty(t, m.Diffs)
	assert.Equal(t, "birth_place", m.Diffs[0].Field)
}

func TestOptionsValidate(t *testing.T) {
	opts := DefaultOptions()
	assert.NoError(t, opts.Validate())

	opts.MatchThreshold = 150
	assert.Error(t, opts.Validate())

	opts = DefaultOptions()
	opts.MaxNewNodeDepth = -1
	assert.Error(t, opts.Validate())
}
