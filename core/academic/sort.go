package academic

import (
	"sort"
	"strings"

	"github.com/trezcool/alama/core"
)

// SortRecords orders records in place, newest first when no ordering is given.
// Ties are broken by id so the result never depends on the input order.
// Used by the repositories that cannot order server-side.
func SortRecords(records []Record, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	sort.SliceStable(records, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareRecords(records[i], records[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compareRecords(a, b Record, field string) int {
	switch field {
	case "student_id":
		return strings.Compare(a.StudentID, b.StudentID)
	case "student_name":
		return strings.Compare(strings.ToLower(a.StudentName), strings.ToLower(b.StudentName))
	case "semester":
		return strings.Compare(a.Semester, b.Semester)
	case "gpa":
		return compareFloats(a.GPA.Float64, b.GPA.Float64)
	case "cgpa":
		return compareFloats(a.CGPA.Float64, b.CGPA.Float64)
	case "created_at":
		return compareInts(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	case "updated_at":
		return compareInts(a.UpdatedAt.UnixNano(), b.UpdatedAt.UnixNano())
	}
	return 0
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
