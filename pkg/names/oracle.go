package names

// Role tells the oracle which kind of name is being compared, since variant
// dictionaries differ between given names and surnames.
type Role int

const (
	// Given is a given (first or middle) name.
	Given Role = iota
	// Surname is a family name (last or maiden).
	Surname
)

// String returns the role name.
func (r Role) String() string {
	if r == Surname {
		return "surname"
	}
	return "given"
}

// Oracle decides whether two name strings denote the same name. The matcher
// consumes this as a black box; implementations account for transliteration
// and known nickname/diminutive variants.
type Oracle interface {
	Equivalent(a, b string, role Role) bool
}

// ExactOracle is the degraded fallback when no variant dictionaries are
// available: names are equivalent only when their normalized forms are equal.
type ExactOracle struct{}

// Equivalent reports normalized-string equality.
func (ExactOracle) Equivalent(a, b string, _ Role) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}
