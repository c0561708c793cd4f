package match

// Weights configures the field contributions of the fuzzy matcher. Positive
// field weights normally sum to 100; when they do not, every contribution is
// scaled by 100/sum so the maximum achievable score is still 100.
type Weights struct {
	// GivenName is the weight of a first-name match.
	GivenName float64 `json:"given_name" yaml:"given_name"`

	// Surname is the weight of a last-name match. The target's maiden name is
	// considered as an alternate match target.
	Surname float64 `json:"surname" yaml:"surname"`

	// BirthDate is the weight of a birth date match at the coarser of the two
	// precisions.
	BirthDate float64 `json:"birth_date" yaml:"birth_date"`

	// BirthPlace is the weight of token-set birth place similarity.
	BirthPlace float64 `json:"birth_place" yaml:"birth_place"`

	// DeathDate is the weight of a death date match.
	DeathDate float64 `json:"death_date" yaml:"death_date"`

	// GenderPenalty is subtracted when both sides record differing genders.
	// Gender agreement never adds points: agreement is the expectation, not
	// distinguishing evidence.
	GenderPenalty float64 `json:"gender_penalty" yaml:"gender_penalty"`

	// MaxBirthYearDifference bounds the decaying date award: a year
	// difference beyond this scores zero.
	MaxBirthYearDifference int `json:"max_birth_year_difference" yaml:"max_birth_year_difference"`

	// PrefilterYearWindow is the birth-year proximity window used by
	// FindMatches to skip candidates before scoring. Candidates with an
	// unknown birth date are never excluded.
	PrefilterYearWindow int `json:"prefilter_year_window" yaml:"prefilter_year_window"`

	// ContainmentFraction is the fraction of full weight awarded when one
	// normalized name contains the other ("alex" in "alexander").
	ContainmentFraction float64 `json:"containment_fraction" yaml:"containment_fraction"`

	// SimilarityFloor is the minimum edit-distance ratio below which a name
	// comparison contributes nothing.
	SimilarityFloor float64 `json:"similarity_floor" yaml:"similarity_floor"`
}

// DefaultWeights returns the standard matcher configuration.
func DefaultWeights() Weights {
	return Weights{
		GivenName:              30,
		Surname:                25,
		BirthDate:              20,
		BirthPlace:             15,
		DeathDate:              10,
		GenderPenalty:          20,
		MaxBirthYearDifference: 5,
		PrefilterYearWindow:    10,
		ContainmentFraction:    0.8,
		SimilarityFloor:        0.6,
	}
}

// positiveSum returns the sum of the positive field weights.
func (w Weights) positiveSum() float64 {
	return w.GivenName + w.Surname + w.BirthDate + w.BirthPlace + w.DeathDate
}

// scale returns the factor applied to every contribution so the maximum
// achievable score is 100.
func (w Weights) scale() float64 {
	sum := w.positiveSum()
	if sum <= 0 {
		return 0
	}
	return 100 / sum
}
