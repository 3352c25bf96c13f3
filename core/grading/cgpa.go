package grading

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// CGPAStrategy selects how a cumulative GPA is derived.
type CGPAStrategy string

const (
	// HistoricalMean is the simple mean of every semester GPA of a student.
	HistoricalMean CGPAStrategy = "historical"
	// SingleSubmission copies the GPA of the latest submission through as the CGPA.
	// Kept for the manual-entry flow of the legacy portal, which had no history to average.
	SingleSubmission CGPAStrategy = "single"
)

var ErrUnknownStrategy = errors.New("unknown CGPA strategy")

func ParseCGPAStrategy(s string) (CGPAStrategy, error) {
	switch CGPAStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", HistoricalMean:
		return HistoricalMean, nil
	case SingleSubmission:
		return SingleSubmission, nil
	default:
		return "", errors.Wrapf(ErrUnknownStrategy, "%q", s)
	}
}

// MeanGPA is the simple (unweighted) mean of gpas, rounded to 2 decimals.
// NaN and infinite values are ignored; nothing valid gives 0.
func MeanGPA(gpas []float64) float64 {
	var sum float64
	var n int
	for _, g := range gpas {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			continue
		}
		sum += g
		n++
	}
	if n == 0 {
		return 0
	}
	return Round2(sum / float64(n))
}

// CGPA aggregates semester results following strategy.
func CGPA(strategy CGPAStrategy, semesters []Semester) float64 {
	if len(semesters) == 0 {
		return 0
	}
	if strategy == SingleSubmission {
		return semesters[len(semesters)-1].GPA()
	}
	gpas := make([]float64, 0, len(semesters))
	for _, s := range semesters {
		gpas = append(gpas, s.GPA())
	}
	return MeanGPA(gpas)
}

// CGPAFromGPAs aggregates already computed semester GPAs, the last one being the latest submission.
func CGPAFromGPAs(strategy CGPAStrategy, gpas []float64) float64 {
	if len(gpas) == 0 {
		return 0
	}
	if strategy == SingleSubmission {
		return Round2(gpas[len(gpas)-1])
	}
	return MeanGPA(gpas)
}
