package report

import (
	"sort"

	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/grading"
)

// TopPerformers returns the n records with the highest GPA. Ties keep their input order.
// Records without a valid GPA are not ranked.
func TopPerformers(records []academic.Record, n int) []RankedStudent {
	return rank(records, n, func(a, b float64) bool { return a > b })
}

// StrugglingStudents returns the n records with the lowest GPA. Ties keep their input order.
func StrugglingStudents(records []academic.Record, n int) []RankedStudent {
	return rank(records, n, func(a, b float64) bool { return a < b })
}

func rank(records []academic.Record, n int, before func(a, b float64) bool) []RankedStudent {
	ranked := make([]academic.Record, 0, len(records))
	for _, r := range records {
		if r.HasValidGPA() {
			ranked = append(ranked, r)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return before(ranked[i].GPA.Float64, ranked[j].GPA.Float64)
	})
	if n < 0 {
		n = 0
	}
	if n < len(ranked) {
		ranked = ranked[:n]
	}

	res := make([]RankedStudent, 0, len(ranked))
	for i, r := range ranked {
		res = append(res, RankedStudent{
			Rank:        i + 1,
			RecordID:    r.ID,
			StudentID:   r.StudentID,
			Name:        r.DisplayName(),
			Semester:    r.Semester,
			GPA:         grading.Round2(r.GPA.Float64),
			CourseCount: len(r.Courses),
		})
	}
	return res
}
