package academic

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/grading"
)

// AllSemesters is the semester filter value meaning "no filter".
const AllSemesters = "all"

type (
	// Record is the normalized academic record of one student for one semester.
	// An unknown or unparseable GPA is a null GPA, never a 0.
	Record struct {
		ID          string           `json:"id"`
		StudentID   string           `json:"student_id"`
		StudentName string           `json:"student_name"`
		Semester    string           `json:"semester"`
		GPA         null.Float64     `json:"gpa"`
		CGPA        null.Float64     `json:"cgpa"`
		Courses     []grading.Course `json:"courses"`
		CreatedAt   time.Time        `json:"created_at"`
		UpdatedAt   time.Time        `json:"updated_at"`
	}

	NewCourse struct {
		Name    string  `json:"name" validate:"required,label,max=255"`
		Marks   float64 `json:"marks" validate:"gte=0,lte=100"`
		Credits float64 `json:"credits" validate:"gt=0,lte=30"`
	}

	// NewRecord is the payload of a GPA calculator submission.
	// GPA and CGPA are always computed, never accepted from the client.
	NewRecord struct {
		StudentID   string      `json:"student" validate:"required,max=64"`
		StudentName string      `json:"student_name" validate:"max=255"`
		Semester    string      `json:"semester" validate:"required,label,max=128"`
		Subjects    []NewCourse `json:"subjects" validate:"required,min=1,dive"`
	}

	QueryFilter struct {
		Semester  string `query:"semester"`
		StudentID string `query:"student_id"`
		Search    string `query:"search"` // matches student id or name
	}
)

// Clean trims the filter values; the "all" semester is dropped.
func (f *QueryFilter) Clean() {
	f.Semester = core.CleanString(f.Semester)
	if strings.EqualFold(f.Semester, AllSemesters) {
		f.Semester = ""
	}
	f.StudentID = core.CleanString(f.StudentID)
	f.Search = core.CleanString(f.Search)
}

// Match reports whether rec satisfies the filter. Used by non-SQL repositories.
func (f *QueryFilter) Match(rec Record) bool {
	if f == nil {
		return true
	}
	if f.Semester != "" && !strings.EqualFold(f.Semester, AllSemesters) && rec.Semester != f.Semester {
		return false
	}
	if f.StudentID != "" && rec.StudentID != f.StudentID {
		return false
	}
	if f.Search != "" {
		s := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(rec.StudentID), s) && !strings.Contains(strings.ToLower(rec.StudentName), s) {
			return false
		}
	}
	return true
}

// Courses returns the submitted subjects as courses, graded from their marks.
func (nr NewRecord) Courses() []grading.Course {
	courses := make([]grading.Course, 0, len(nr.Subjects))
	for _, s := range nr.Subjects {
		courses = append(courses, grading.Course{Name: s.Name, Marks: s.Marks, Credits: s.Credits})
	}
	return grading.GradeCourses(courses)
}

// AsSemester returns the record's courses as a grading.Semester.
func (r Record) AsSemester() grading.Semester {
	return grading.Semester{Name: r.Semester, Courses: r.Courses}
}

// HasValidGPA reports whether the record carries a usable GPA.
func (r Record) HasValidGPA() bool {
	return r.GPA.Valid
}

// DisplayName returns the student's name, falling back to their id.
func (r Record) DisplayName() string {
	if r.StudentName != "" {
		return r.StudentName
	}
	return r.StudentID
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r.Courses != nil {
		courses := make([]grading.Course, len(r.Courses))
		copy(courses, r.Courses)
		r.Courses = courses
	}
	return r
}

// CloneRecords deep-copies records.
func CloneRecords(records []Record) []Record {
	if records == nil {
		return nil
	}
	cloned := make([]Record, 0, len(records))
	for _, r := range records {
		cloned = append(cloned, r.Clone())
	}
	return cloned
}

// Semesters returns the distinct semester labels of records, in first-seen order.
func Semesters(records []Record) []string {
	seen := make(map[string]bool)
	semesters := make([]string, 0)
	for _, r := range records {
		if r.Semester == "" || seen[r.Semester] {
			continue
		}
		seen[r.Semester] = true
		semesters = append(semesters, r.Semester)
	}
	return semesters
}
