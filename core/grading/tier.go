package grading

// Tier is a coarse performance label derived from a GPA.
type Tier string

const (
	TierExcellent        Tier = "Excellent"
	TierGood             Tier = "Good"
	TierNeedsImprovement Tier = "Needs Improvement"

	ExcellentThreshold = 3.5
	GoodThreshold      = 2.5
)

var Tiers = []Tier{TierExcellent, TierGood, TierNeedsImprovement}

func TierFor(gpa float64) Tier {
	switch {
	case gpa >= ExcellentThreshold:
		return TierExcellent
	case gpa >= GoodThreshold:
		return TierGood
	default:
		return TierNeedsImprovement
	}
}

// IsStrongGrade reports whether letter counts as a strong subject result (A, B+, B).
func IsStrongGrade(letter string) bool {
	switch letter {
	case GradeA, GradeBPlus, GradeB:
		return true
	}
	return false
}

// IsWeakGrade reports whether letter counts as a weak subject result (D, E, E–, F).
func IsWeakGrade(letter string) bool {
	switch letter {
	case GradeD, GradeE, GradeEMinus, GradeF:
		return true
	}
	return false
}
