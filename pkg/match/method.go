package match

// Method identifies how a person mapping decision was produced. It is a
// closed enumeration so that confidence lookup stays exhaustive.
type Method int

const (
	// MethodUnknown is the zero value for an unset method.
	MethodUnknown Method = iota
	// MethodRFN is an exact external-profile-id match.
	MethodRFN
	// MethodFuzzy is a weighted field-score match.
	MethodFuzzy
	// MethodFamilySingleChild is a structural match: the only unmapped child
	// (or a partner) of a matched family pair.
	MethodFamilySingleChild
	// MethodFamilyFuzzyChild is a fuzzy child-to-child assignment within a
	// matched family pair.
	MethodFamilyFuzzyChild
	// MethodSiblingTransitive is an inference through a mapped sibling.
	MethodSiblingTransitive
	// MethodExistingMapping is a pre-confirmed mapping supplied to the run.
	MethodExistingMapping
)

// String returns the method name.
func (m Method) String() string {
	switch m {
	case MethodRFN:
		return "rfn"
	case MethodFuzzy:
		return "fuzzy"
	case MethodFamilySingleChild:
		return "family_single_child"
	case MethodFamilyFuzzyChild:
		return "family_fuzzy_child"
	case MethodSiblingTransitive:
		return "sibling_transitive"
	case MethodExistingMapping:
		return "existing_mapping"
	default:
		return "unknown"
	}
}

// Confidence maps the method and match score to a confidence in [0,1] for
// downstream consumers deciding how much to trust an automatic merge.
// Identifier-based methods are authoritative; fuzzy confidence is
// proportional to the score; structural inferences carry fixed discounts.
func (m Method) Confidence(score float64) float64 {
	switch m {
	case MethodRFN, MethodExistingMapping:
		return 1.0
	case MethodFuzzy:
		c := score / 100
		if c < 0 {
			return 0
		}
		if c > 1 {
			return 1
		}
		return c
	case MethodFamilySingleChild:
		return 0.85
	case MethodFamilyFuzzyChild:
		return 0.70
	case MethodSiblingTransitive:
		return 0.65
	default:
		return 0.50
	}
}
