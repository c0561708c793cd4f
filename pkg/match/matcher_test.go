package match_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinsync/kinsync/pkg/dates"
	"github.com/kinsync/kinsync/pkg/match"
	"github.com/kinsync/kinsync/pkg/names"
	"github.com/kinsync/kinsync/pkg/tree"
)

func person(id tree.PersonID, given, surname string, birthYear int) *tree.Person {
	p := &tree.Person{ID: id, GivenName: given, Surname: surname}
	if birthYear != 0 {
		p.Birth = dates.NewYear(birthYear)
	}
	p.Normalize()
	return p
}

func oracleWithIvan(t *testing.T) *names.VariantOracle {
	t.Helper()
	o := names.NewVariantOracle()
	o.AddGroup(names.Given, "Иван", "Ivan", "Vanya")
	return o
}

func TestCompareTransliteratedNames(t *testing.T) {
	// Source {Иван Петров, b.1885} vs destination {Ivan Petrov, b.1885}
	// with default weights: given 30 + surname 25 + birth 20 = 75.
	m := match.New(match.WithOracle(oracleWithIvan(t)))
	src := person("s1", "Иван", "Петров", 1885)
	dst := person("d1", "Ivan", "Petrov", 1885)

	res := m.Compare(src, dst)

	assert.InDelta(t, 75, res.Score, 0.01)
	assert.Equal(t, match.MethodFuzzy, res.Method)
	require.Len(t, res.Reasons, 3)

	fields := make(map[string]float64)
	for _, r := range res.Reasons {
		fields[r.Field] = r.Points
	}
	assert.InDelta(t, 30, fields["given_name"], 0.01)
	assert.InDelta(t, 25, fields["surname"], 0.01)
	assert.InDelta(t, 20, fields["birth_date"], 0.01)
}

func TestCompareGenderPenaltyDropsBelowThreshold(t *testing.T) {
	m := match.New(match.WithOracle(oracleWithIvan(t)))
	src := person("s1", "Иван", "Петров", 1885)
	src.Gender = tree.GenderMale
	dst := person("d1", "Ivan", "Petrov", 1885)
	dst.Gender = tree.GenderFemale

	res := m.Compare(src, dst)

	assert.InDelta(t, 55, res.Score, 0.01) // 75 - 20 penalty
	assert.Less(t, res.Score, 60.0)

	var sawGender bool
	for _, r := range res.Reasons {
		if r.Field == "gender" {
			sawGender = true
			assert.Negative(t, r.Points)
		}
	}
	assert.True(t, sawGender, "gender penalty must be itemized")
}

func TestCompareGenderAgreementAddsNothing(t *testing.T) {
	m := match.New()
	src := person("s1", "Ivan", "Petrov", 1885)
	dst := person("d1", "Ivan", "Petrov", 1885)
	base := m.Compare(src, dst).Score

	src.Gender = tree.GenderMale
	dst.Gender = tree.GenderMale
	assert.Equal(t, base, m.Compare(src, dst).Score)
}

func TestCompareIsDeterministic(t *testing.T) {
	m := match.New(match.WithOracle(oracleWithIvan(t)))
	src := person("s1", "Иван", "Петров", 1885)
	src.BirthPlace = "Moscow USSR"
	dst := person("d1", "Ivan", "Petrov", 1886)
	dst.BirthPlace = "Moscow Russia"

	first := m.Compare(src, dst)
	second := m.Compare(src, dst)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Reasons, second.Reasons)
}

func TestCompareEmptyRecords(t *testing.T) {
	m := match.New()
	res := m.Compare(&tree.Person{ID: "s"}, &tree.Person{ID: "d"})

	assert.Zero(t, res.Score)
	assert.Empty(t, res.Reasons)
}

func TestCompareWeightNormalization(t *testing.T) {
	// Weights summing to 200 must still cap the score at 100.
	w := match.DefaultWeights()
	w.GivenName, w.Surname, w.BirthDate, w.BirthPlace, w.DeathDate = 60, 50, 40, 30, 20
	m := match.New(match.WithWeights(w))

	src := person("s1", "Ivan", "Petrov", 1885)
	src.BirthPlace = "Moscow"
	src.Death = dates.NewYear(1950)
	dst := person("d1", "Ivan", "Petrov", 1885)
	dst.BirthPlace = "Moscow"
	dst.Death = dates.NewYear(1950)

	res := m.Compare(src, dst)
	assert.InDelta(t, 100, res.Score, 0.01)
}

func TestCompareMaidenNameAlternateTarget(t *testing.T) {
	m := match.New()
	src := person("s1", "Anna", "Sokolova", 1890) // recorded by birth surname
	dst := person("d1", "Anna", "Petrova", 1890)  // recorded by married surname
	dst.MaidenName = "Sokolova"
	dst.Normalize()

	res := m.Compare(src, dst)

	var surnamePoints float64
	for _, r := range res.Reasons {
		if r.Field == "surname" {
			surnamePoints = r.Points
			assert.Contains(t, r.Detail, "maiden")
		}
	}
	assert.InDelta(t, 25, surnamePoints, 0.01)
}

func TestCompareNicknameContainment(t *testing.T) {
	m := match.New()
	src := person("s1", "Alex", "Petrov", 1885)
	dst := person("d1", "Alexander", "Petrov", 1885)

	res := m.Compare(src, dst)

	var givenPoints float64
	for _, r := range res.Reasons {
		if r.Field == "given_name" {
			givenPoints = r.Points
		}
	}
	// Containment earns a reduced-but-still-high fraction of the full 30.
	assert.InDelta(t, 24, givenPoints, 0.01)
}

func TestCompareBirthYearDecay(t *testing.T) {
	m := match.New()
	src := person("s1", "Ivan", "Petrov", 1885)

	exact := m.Compare(src, person("d1", "Ivan", "Petrov", 1885)).Score
	close := m.Compare(src, person("d2", "Ivan", "Petrov", 1886)).Score
	far := m.Compare(src, person("d3", "Ivan", "Petrov", 1895)).Score

	assert.Greater(t, exact, close)
	assert.Greater(t, close, far)
	// Beyond MaxBirthYearDifference the date contributes nothing: only the
	// name points (30+25) remain.
	assert.InDelta(t, 55, far, 0.01)
}

func TestFindMatchesPrefilter(t *testing.T) {
	m := match.New()
	src := person("s1", "Ivan", "Petrov", 1885)
	src.Gender = tree.GenderMale

	wrongGender := person("d1", "Ivan", "Petrov", 1885)
	wrongGender.Gender = tree.GenderFemale
	farBirth := person("d2", "Ivan", "Petrov", 1920)
	unknownBirth := person("d3", "Ivan", "Petrov", 0)
	good := person("d4", "Ivan", "Petrov", 1885)

	matches := m.FindMatches(src, []*tree.Person{wrongGender, farBirth, unknownBirth, good}, 50)

	ids := make([]tree.PersonID, 0, len(matches))
	for _, c := range matches {
		ids = append(ids, c.Person.ID)
	}
	// Unknown birth dates are never excluded by the prefilter.
	assert.Equal(t, []tree.PersonID{"d4", "d3"}, ids)
}

func TestFindMatchesOrderedAndThresholded(t *testing.T) {
	m := match.New()
	src := person("s1", "Ivan", "Petrov", 1885)

	best := person("d1", "Ivan", "Petrov", 1885)
	good := person("d2", "Ivan", "Petrov", 1887)
	weak := person("d3", "Pyotr", "Sidorov", 1885)

	matches := m.FindMatches(src, []*tree.Person{weak, good, best}, 60)

	require.Len(t, matches, 2)
	assert.Equal(t, tree.PersonID("d1"), matches[0].Person.ID)
	assert.Equal(t, tree.PersonID("d2"), matches[1].Person.ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestMethodConfidence(t *testing.T) {
	tests := []struct {
		method match.Method
		score  float64
		want   float64
	}{
		{match.MethodRFN, 0, 1.0},
		{match.MethodExistingMapping, 12, 1.0},
		{match.MethodFuzzy, 82, 0.82},
		{match.MethodFuzzy, 150, 1.0},
		{match.MethodFamilySingleChild, 0, 0.85},
		{match.MethodFamilyFuzzyChild, 0, 0.70},
		{match.MethodSiblingTransitive, 0, 0.65},
		{match.MethodUnknown, 0, 0.50},
	}
	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.method.Confidence(tt.score), 0.001)
		})
	}
}
