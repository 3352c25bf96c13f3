package academic

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	IssueMissingName = "Missing or invalid student name"
	IssueInvalidGPA  = "Invalid or missing GPA"
	IssueNoCourses   = "No course data available"

	unknownCourse = "unknown course"

	// course names at least this similar within one record are flagged as possible duplicates
	duplicateCourseRatio = 0.9
)

// ValidationResult is the per-record outcome of the Validating stage. It is derived, never stored.
type ValidationResult struct {
	RecordID        string   `json:"record_id"`
	StudentID       string   `json:"student_id"`
	Name            string   `json:"name"`
	Semester        string   `json:"semester"`
	IsValid         bool     `json:"is_valid"`
	Issues          []string `json:"issues"`
	ValidationScore int      `json:"validation_score"`
	CoursesCount    int      `json:"courses_count"`
}

// IsValid reports whether rec can be trusted for analysis: it has a name, a GPA and a semester.
func IsValid(rec Record) bool {
	return rec.StudentName != "" && rec.GPA.Valid && rec.Semester != ""
}

// Issues lists the data problems found in rec.
func Issues(rec Record) []string {
	issues := make([]string, 0)
	if rec.StudentName == "" {
		issues = append(issues, IssueMissingName)
	}
	if !rec.GPA.Valid {
		issues = append(issues, IssueInvalidGPA)
	}
	if len(rec.Courses) == 0 {
		issues = append(issues, IssueNoCourses)
	}
	for _, c := range rec.Courses {
		if c.Name == "" || c.Grade == "" {
			name := c.Name
			if name == "" {
				name = unknownCourse
			}
			issues = append(issues, "Incomplete course data for "+name)
		}
	}
	return append(issues, duplicateCourses(rec)...)
}

// duplicateCourses flags course names that look like the same course entered twice, e.g: "Mathematics" & "Mathematic".
func duplicateCourses(rec Record) []string {
	var issues []string
	names := make([]string, 0, len(rec.Courses))
	for _, c := range rec.Courses {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if courseSimilarity(names[i], names[j]) >= duplicateCourseRatio {
				issues = append(issues, fmt.Sprintf("Possible duplicate course entry: %s / %s", names[i], names[j]))
			}
		}
	}
	return issues
}

var seriesRegex = regexp.MustCompile(`^([0-9]+|[ivx]+)$`)

// seriesSuffix returns the trailing number of a course in a series ("Calculus II" -> "ii").
func seriesSuffix(name string) string {
	fields := strings.Fields(name)
	if len(fields) < 2 {
		return ""
	}
	if last := fields[len(fields)-1]; seriesRegex.MatchString(last) {
		return last
	}
	return ""
}

func courseSimilarity(a, b string) float64 {
	a, b = strings.Join(strings.Fields(strings.ToLower(a)), " "), strings.Join(strings.Fields(strings.ToLower(b)), " ")
	if a == b {
		return 1
	}
	if seriesSuffix(a) != seriesSuffix(b) {
		return 0 // different parts of a series
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

// ValidationScore starts at 100 and loses 30 for a missing name, 30 for a missing GPA,
// 20 for no courses and 20 for a missing semester. It never goes below 0.
func ValidationScore(rec Record) int {
	score := 100
	if rec.StudentName == "" {
		score -= 30
	}
	if !rec.GPA.Valid {
		score -= 30
	}
	if len(rec.Courses) == 0 {
		score -= 20
	}
	if rec.Semester == "" {
		score -= 20
	}
	if score < 0 {
		return 0
	}
	return score
}

// Validate runs every check on rec.
func Validate(rec Record) ValidationResult {
	return ValidationResult{
		RecordID:        rec.ID,
		StudentID:       rec.StudentID,
		Name:            rec.DisplayName(),
		Semester:        rec.Semester,
		IsValid:         IsValid(rec),
		Issues:          Issues(rec),
		ValidationScore: ValidationScore(rec),
		CoursesCount:    len(rec.Courses),
	}
}

// ValidateAll validates records, preserving their order.
func ValidateAll(records []Record) []ValidationResult {
	results := make([]ValidationResult, 0, len(records))
	for _, r := range records {
		results = append(results, Validate(r))
	}
	return results
}
