package report

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/grading"
	"github.com/trezcool/alama/core/stats"
)

// Data sources
const (
	SourceAPI    = "Real API Data"
	SourceCached = "Cached Data"
	SourceDemo   = "Demo Data"

	dataIntegrity = "Verified - All calculations based on actual student records"
)

type (
	// DataCollection is the output of the Validating stage.
	DataCollection struct {
		TotalRecords           int                         `json:"total_records"`
		ValidRecords           int                         `json:"valid_records"`
		AverageValidationScore float64                     `json:"average_validation_score"`
		DataIssues             []string                    `json:"data_issues"`
		Validations            []academic.ValidationResult `json:"validations"`
	}

	SubjectResult struct {
		Name  string  `json:"name"`
		Grade string  `json:"grade"`
		Marks float64 `json:"marks"`
	}

	StudentPerformance struct {
		RecordID       string          `json:"record_id"`
		StudentID      string          `json:"student_id"`
		Name           string          `json:"name"`
		Semester       string          `json:"semester"`
		GPA            null.Float64    `json:"gpa"`
		Tier           grading.Tier    `json:"performance_tier,omitempty"` // empty when the GPA is unknown
		CourseCount    int             `json:"course_count"`
		StrongSubjects []SubjectResult `json:"strong_subjects"`
		WeakSubjects   []SubjectResult `json:"weak_subjects"`
		StrongCount    int             `json:"strong_subjects_count"`
		WeakCount      int             `json:"weak_subjects_count"`
	}

	RankedStudent struct {
		Rank        int     `json:"rank"`
		RecordID    string  `json:"record_id"`
		StudentID   string  `json:"student_id"`
		Name        string  `json:"name"`
		Semester    string  `json:"semester"`
		GPA         float64 `json:"gpa"`
		CourseCount int     `json:"courses"`
	}

	SemesterPerformance struct {
		Semester     string             `json:"semester"`
		AverageGPA   float64            `json:"average_gpa"`
		StudentCount int                `json:"student_count"`
		Distribution stats.Distribution `json:"performance_distribution"`
	}

	// PerformanceAnalysis is the output of the Analyzing stage.
	PerformanceAnalysis struct {
		Students                 []StudentPerformance  `json:"students"`
		Distribution             stats.Distribution    `json:"performance_distribution"`
		TopPerformers            []RankedStudent       `json:"top_performers"`
		StrugglingStudents       []RankedStudent       `json:"struggling_students"`
		SemesterComparison       []SemesterPerformance `json:"semester_comparison"`
		AverageCoursesPerStudent float64               `json:"average_courses_per_student"`
	}

	ExecutiveSummary struct {
		OverallPerformance string `json:"overall_performance"`
		KeyHighlight       string `json:"key_highlight"`
		MainConcern        string `json:"main_concern"`
		DataQuality        string `json:"data_quality"`
		ReportScope        string `json:"report_scope"`
	}

	Trend struct {
		Direction   string    `json:"trend"` // Improving | Declining | Stable
		Semesters   []string  `json:"semesters"`
		AverageGPAs []float64 `json:"average_gpas"`
		Analysis    string    `json:"analysis"`
	}

	CourseAnalysis struct {
		Course            string         `json:"course"`
		EnrolledStudents  int            `json:"enrolled_students"` // course entries, repeats included
		TotalPossible     int            `json:"total_possible"`    // records listing the course
		EnrollmentRate    float64        `json:"enrollment_rate"`
		AverageMarks      float64        `json:"average_marks"`
		GradeDistribution map[string]int `json:"grade_distribution"`
	}

	Progression struct {
		TotalUniqueStudents    int    `json:"total_unique_students"`
		MultiSemesterStudents  int    `json:"multi_semester_students"`
		SingleSemesterStudents int    `json:"single_semester_students"`
		Analysis               string `json:"analysis"`
	}

	DetailedAnalysis struct {
		SemesterBreakdown     []SemesterPerformance `json:"semester_breakdown"`
		PerformanceTrends     Trend                 `json:"performance_trends"`
		CourseAnalysis        []CourseAnalysis      `json:"course_analysis"`
		StudentProgression    Progression           `json:"student_progression"`
		DataQualityAssessment stats.DataQuality     `json:"data_quality_assessment"`
	}

	// CompiledReport is the output of the Compiling stage.
	CompiledReport struct {
		ExecutiveSummary ExecutiveSummary `json:"executive_summary"`
		KeyFindings      []string         `json:"key_findings"`
		Recommendations  []string         `json:"recommendations"`
		DetailedAnalysis DetailedAnalysis `json:"detailed_analysis"`
		DataIntegrity    string           `json:"data_integrity"`
	}

	Summary struct {
		TotalStudents int                 `json:"total_students"`
		Semesters     []string            `json:"semesters"`
		DataQuality   stats.QualityStatus `json:"data_quality"`
		ReportScope   string              `json:"report_scope"`
	}

	// GeneratedReport is the immutable result of a successful pipeline run.
	GeneratedReport struct {
		ID                  string              `json:"report_id"`
		GeneratedAt         time.Time           `json:"generated_at"`
		DataSource          string              `json:"data_source"`
		Semester            string              `json:"semester"`
		DataCollection      DataCollection      `json:"data_collection"`
		PerformanceAnalysis PerformanceAnalysis `json:"performance_analysis"`
		Statistics          stats.Summary       `json:"statistics"`
		CompiledReport      CompiledReport      `json:"compiled_report"`
		Summary             Summary             `json:"summary"`
	}

	// Archive is a generated report stored along with the records it was computed from.
	Archive struct {
		Report  GeneratedReport   `json:"report"`
		Records []academic.Record `json:"records"`
	}

	// ArchiveHeader describes an archived report without its payload.
	ArchiveHeader struct {
		ID            string    `json:"report_id"`
		GeneratedAt   time.Time `json:"generated_at"`
		DataSource    string    `json:"data_source"`
		Semester      string    `json:"semester"`
		TotalStudents int       `json:"total_students"`
		AverageGPA    float64   `json:"average_gpa"`
	}
)

func (a Archive) Header() ArchiveHeader {
	return ArchiveHeader{
		ID:            a.Report.ID,
		GeneratedAt:   a.Report.GeneratedAt,
		DataSource:    a.Report.DataSource,
		Semester:      a.Report.Semester,
		TotalStudents: a.Report.Summary.TotalStudents,
		AverageGPA:    a.Report.Statistics.Average,
	}
}
