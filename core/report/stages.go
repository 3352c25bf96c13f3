package report

import (
	"fmt"
	"sort"

	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/grading"
	"github.com/trezcool/alama/core/stats"
)

const (
	rankingSize  = 5
	findingsSize = 3
	notAvailable = "N/A"
)

// stages are the pure computations of a pipeline run.
// Tests replace them to exercise failures.
type stages struct {
	collect    func(records []academic.Record) DataCollection
	analyze    func(records []academic.Record) PerformanceAnalysis
	statistics func(records []academic.Record) stats.Summary
	compile    func(records []academic.Record, dc DataCollection, pa PerformanceAnalysis, st stats.Summary) CompiledReport
}

func defaultStages() stages {
	return stages{
		collect:    Collect,
		analyze:    Analyze,
		statistics: stats.Compute,
		compile:    Compile,
	}
}

// Collect validates every record.
func Collect(records []academic.Record) DataCollection {
	results := academic.ValidateAll(records)
	dc := DataCollection{
		TotalRecords: len(records),
		DataIssues:   make([]string, 0),
		Validations:  results,
	}
	if len(results) == 0 {
		return dc
	}

	var score int
	for _, r := range results {
		if r.IsValid {
			dc.ValidRecords++
		}
		score += r.ValidationScore
		dc.DataIssues = append(dc.DataIssues, r.Issues...)
	}
	dc.AverageValidationScore = grading.Round1(float64(score) / float64(len(results)))
	return dc
}

func subjects(courses []grading.Course, keep func(letter string) bool) []SubjectResult {
	res := make([]SubjectResult, 0)
	for _, c := range courses {
		if keep(c.Grade) {
			res = append(res, SubjectResult{Name: c.Name, Grade: c.Grade, Marks: c.Marks})
		}
	}
	return res
}

func studentPerformance(rec academic.Record) StudentPerformance {
	sp := StudentPerformance{
		RecordID:       rec.ID,
		StudentID:      rec.StudentID,
		Name:           rec.DisplayName(),
		Semester:       rec.Semester,
		GPA:            rec.GPA,
		CourseCount:    len(rec.Courses),
		StrongSubjects: subjects(rec.Courses, grading.IsStrongGrade),
		WeakSubjects:   subjects(rec.Courses, grading.IsWeakGrade),
	}
	if rec.HasValidGPA() {
		sp.Tier = grading.TierFor(rec.GPA.Float64)
	}
	sp.StrongCount, sp.WeakCount = len(sp.StrongSubjects), len(sp.WeakSubjects)
	return sp
}

// CompareSemesters summarizes each semester, in first-seen order.
func CompareSemesters(records []academic.Record) []SemesterPerformance {
	bySemester := make(map[string][]academic.Record)
	for _, r := range records {
		bySemester[r.Semester] = append(bySemester[r.Semester], r)
	}

	semesters := academic.Semesters(records)
	comparison := make([]SemesterPerformance, 0, len(semesters))
	for _, sem := range semesters {
		recs := bySemester[sem]
		gpas := stats.ValidGPAs(recs)
		comparison = append(comparison, SemesterPerformance{
			Semester:     sem,
			AverageGPA:   grading.MeanGPA(gpas),
			StudentCount: len(recs),
			Distribution: stats.Distribute(gpas),
		})
	}
	return comparison
}

// Analyze rates every student and compares the semesters.
func Analyze(records []academic.Record) PerformanceAnalysis {
	pa := PerformanceAnalysis{
		Students:           make([]StudentPerformance, 0, len(records)),
		Distribution:       stats.Distribute(stats.ValidGPAs(records)),
		TopPerformers:      TopPerformers(records, rankingSize),
		StrugglingStudents: StrugglingStudents(records, rankingSize),
		SemesterComparison: CompareSemesters(records),
	}

	var courses int
	for _, r := range records {
		pa.Students = append(pa.Students, studentPerformance(r))
		courses += len(r.Courses)
	}
	if len(records) > 0 {
		pa.AverageCoursesPerStudent = grading.Round1(float64(courses) / float64(len(records)))
	}
	return pa
}

// AnalyzeTrend compares the semesters' average GPAs, sorted by semester label.
func AnalyzeTrend(comparison []SemesterPerformance) Trend {
	if len(comparison) < 2 {
		return Trend{
			Direction:   "Stable",
			Semesters:   make([]string, 0),
			AverageGPAs: make([]float64, 0),
			Analysis:    "Single semester data - trend analysis requires multiple semesters",
		}
	}

	sorted := make([]SemesterPerformance, len(comparison))
	copy(sorted, comparison)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Semester < sorted[j].Semester })

	t := Trend{
		Semesters:   make([]string, 0, len(sorted)),
		AverageGPAs: make([]float64, 0, len(sorted)),
	}
	for _, s := range sorted {
		t.Semesters = append(t.Semesters, s.Semester)
		t.AverageGPAs = append(t.AverageGPAs, s.AverageGPA)
	}

	word := "decline"
	t.Direction = "Declining"
	if t.AverageGPAs[len(t.AverageGPAs)-1] > t.AverageGPAs[0] {
		word = "improvement"
		t.Direction = "Improving"
	}
	t.Analysis = fmt.Sprintf("Performance across %d semesters shows %s trends", len(sorted), word)
	return t
}

// AnalyzeCourses aggregates the results of each course, in first-seen order.
func AnalyzeCourses(records []academic.Record) []CourseAnalysis {
	type acc struct {
		entries, graded, records int
		marks                    float64
		grades                   map[string]int
	}
	byCourse := make(map[string]*acc)
	names := make([]string, 0)

	for _, r := range records {
		listed := make(map[string]bool)
		for _, c := range r.Courses {
			a, ok := byCourse[c.Name]
			if !ok {
				a = &acc{grades: make(map[string]int)}
				byCourse[c.Name] = a
				names = append(names, c.Name)
			}
			a.entries++
			grade := c.Grade
			if grade == "" {
				grade = notAvailable
			} else {
				a.graded++
				a.marks += c.Marks
			}
			a.grades[grade]++
			if !listed[c.Name] {
				listed[c.Name] = true
				a.records++
			}
		}
	}

	analysis := make([]CourseAnalysis, 0, len(names))
	for _, name := range names {
		a := byCourse[name]
		ca := CourseAnalysis{
			Course:            name,
			EnrolledStudents:  a.entries,
			TotalPossible:     a.records,
			EnrollmentRate:    grading.Round1(float64(a.entries) / float64(a.records) * 100),
			GradeDistribution: a.grades,
		}
		if a.graded > 0 {
			ca.AverageMarks = grading.Round2(a.marks / float64(a.graded))
		}
		analysis = append(analysis, ca)
	}
	return analysis
}

// AnalyzeProgression counts the students with records in more than one semester.
// Students are identified by their display name.
func AnalyzeProgression(records []academic.Record) Progression {
	semesters := make(map[string]map[string]bool)
	for _, r := range records {
		name := r.DisplayName()
		if semesters[name] == nil {
			semesters[name] = make(map[string]bool)
		}
		semesters[name][r.Semester] = true
	}

	p := Progression{TotalUniqueStudents: len(semesters)}
	for _, sems := range semesters {
		if len(sems) > 1 {
			p.MultiSemesterStudents++
		}
	}
	p.SingleSemesterStudents = p.TotalUniqueStudents - p.MultiSemesterStudents
	p.Analysis = fmt.Sprintf("%d students have records across multiple semesters", p.MultiSemesterStudents)
	return p
}

func executiveSummary(records []academic.Record, st stats.Summary) ExecutiveSummary {
	return ExecutiveSummary{
		OverallPerformance: fmt.Sprintf("Average GPA: %.2f (Range: %.2f - %.2f)", st.Average, st.Min, st.Max),
		KeyHighlight:       fmt.Sprintf("%.1f%% of students achieved excellent performance (GPA ≥ 3.5)", st.ExcellenceRate),
		MainConcern:        fmt.Sprintf("%.1f%% of students need academic improvement (GPA < 2.5)", st.ImprovementRate),
		DataQuality:        fmt.Sprintf("Data quality: %s (%.1f%%)", st.DataQuality.Status, st.DataQuality.Score),
		ReportScope: fmt.Sprintf("Analysis covers %d students across %d semesters",
			len(records), len(academic.Semesters(records))),
	}
}

func keyFindings(records []academic.Record, st stats.Summary) []string {
	top := "Top performer: " + notAvailable
	if ranked := TopPerformers(records, findingsSize); len(ranked) > 0 {
		top = fmt.Sprintf("Top performer: %s with GPA %.2f", ranked[0].Name, ranked[0].GPA)
	}
	dist := st.PerformanceDistribution
	return []string{
		top,
		fmt.Sprintf("%d students (%.1f%%) achieved excellent performance", dist.Excellent, dist.ExcellentPercentage),
		fmt.Sprintf("%d students (%.1f%%) need academic support", dist.NeedsImprovement, dist.NeedsImprovementPercentage),
		fmt.Sprintf("GPA distribution: Average %.2f ± %.2f", st.Average, st.StdDev),
		fmt.Sprintf("Data covers %d semesters with %d total records", len(academic.Semesters(records)), len(records)),
	}
}

func recommendations(records []academic.Record, st stats.Summary) []string {
	recs := make([]string, 0)
	if n := st.PerformanceDistribution.NeedsImprovement; n > 0 {
		recs = append(recs,
			fmt.Sprintf("Implement targeted academic support for %d struggling students", n),
			"Review and enhance teaching methods for consistently low-performing subjects",
		)
	}
	if q := st.DataQuality; q.Status != stats.QualityExcellent {
		recs = append(recs, fmt.Sprintf("Improve data quality (currently %.1f%% - %s)", q.Score, q.Status))
	}
	if ranked := TopPerformers(records, findingsSize); len(ranked) > 0 {
		recs = append(recs, "Provide advanced opportunities for top performers like "+ranked[0].Name)
	}
	return append(recs,
		"Consider implementing peer tutoring programs",
		"Review curriculum alignment with learning outcomes",
	)
}

// Compile derives the narrative of the report from the records and the other stages' outputs.
func Compile(records []academic.Record, dc DataCollection, pa PerformanceAnalysis, st stats.Summary) CompiledReport {
	return CompiledReport{
		ExecutiveSummary: executiveSummary(records, st),
		KeyFindings:      keyFindings(records, st),
		Recommendations:  recommendations(records, st),
		DetailedAnalysis: DetailedAnalysis{
			SemesterBreakdown:     pa.SemesterComparison,
			PerformanceTrends:     AnalyzeTrend(pa.SemesterComparison),
			CourseAnalysis:        AnalyzeCourses(records),
			StudentProgression:    AnalyzeProgression(records),
			DataQualityAssessment: stats.Quality(dc.Validations),
		},
		DataIntegrity: dataIntegrity,
	}
}
