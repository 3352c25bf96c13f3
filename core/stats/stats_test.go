package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/grading"
)

func record(name string, gpa null.Float64, courses int) academic.Record {
	rec := academic.Record{StudentID: name, StudentName: name, Semester: "S1", GPA: gpa, CGPA: gpa}
	for i := 0; i < courses; i++ {
		rec.Courses = append(rec.Courses, grading.Course{Name: string(rune('A' + i)), Marks: 70, Credits: 3, Grade: grading.GradeB})
	}
	return rec
}

func TestCompute(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, Summary{}, Compute(nil))
		assert.Equal(t, Summary{}, Compute([]academic.Record{}))
	})

	t.Run("three students", func(t *testing.T) {
		records := []academic.Record{
			record("a", null.Float64From(3.0), 2),
			record("b", null.Float64From(3.5), 1),
			record("c", null.Float64From(4.0), 3),
		}
		got := Compute(records)

		assert.Equal(t, Basic{Average: 3.5, Max: 4.0, Min: 3.0, StdDev: 0.41, Range: 1.0, Count: 3}, got.Basic)
		assert.Equal(t, Distribution{
			Excellent: 2, Good: 1, Total: 3,
			ExcellentPercentage: 66.7, GoodPercentage: 33.3,
		}, got.PerformanceDistribution)
		assert.Equal(t, 66.7, got.ExcellenceRate)
		assert.Equal(t, 0.0, got.ImprovementRate)
		assert.Equal(t, DataQuality{Score: 100, ValidRecords: 3, TotalRecords: 3, Status: QualityExcellent}, got.DataQuality)
		assert.Equal(t, 6, got.TotalCourseRecords)
	})

	t.Run("invalid GPAs are excluded, not zero-filled", func(t *testing.T) {
		records := []academic.Record{
			record("a", null.Float64From(2.0), 1),
			record("b", null.Float64{}, 1),
			record("c", null.Float64From(3.0), 1),
			record("d", null.Float64From(4.0), 1),
		}
		got := Compute(records)

		assert.Equal(t, 3.0, got.Average)
		assert.Equal(t, 2.0, got.Min)
		assert.Equal(t, 3, got.Count)
		assert.Equal(t, 3, got.PerformanceDistribution.Total)
		assert.Equal(t, 33.3, got.ImprovementRate)
		assert.Equal(t, DataQuality{Score: 75, ValidRecords: 3, TotalRecords: 4, Status: QualityGood, Issues: 1}, got.DataQuality)
	})

	t.Run("no valid GPA at all", func(t *testing.T) {
		got := Compute([]academic.Record{record("a", null.Float64{}, 0)})
		assert.Equal(t, Basic{}, got.Basic)
		assert.Equal(t, Distribution{}, got.PerformanceDistribution)
		assert.Equal(t, QualityNeedsAttention, got.DataQuality.Status)
		assert.Equal(t, 2, got.DataQuality.Issues)
	})

	t.Run("single student has no spread", func(t *testing.T) {
		got := Compute([]academic.Record{record("a", null.Float64From(3.33), 1)})
		assert.Equal(t, Basic{Average: 3.33, Max: 3.33, Min: 3.33, Count: 1}, got.Basic)
	})
}

func TestQualityStatusFor(t *testing.T) {
	tests := []struct {
		score float64
		want  QualityStatus
	}{
		{score: 100, want: QualityExcellent},
		{score: 90, want: QualityExcellent},
		{score: 89.9, want: QualityGood},
		{score: 75, want: QualityGood},
		{score: 74.9, want: QualityNeedsAttention},
		{score: 0, want: QualityNeedsAttention},
	}
	for _, tt := range tests {
		if got := QualityStatusFor(tt.score); got != tt.want {
			t.Errorf("QualityStatusFor(%v) = %v; want %v", tt.score, got, tt.want)
		}
	}
}

func TestDistribute_percentagesAddUp(t *testing.T) {
	d := Distribute([]float64{1, 2, 3, 4, 5, 2.5, 3.5})
	assert.Equal(t, 7, d.Excellent+d.Good+d.NeedsImprovement)
	assert.InDelta(t, 100, d.ExcellentPercentage+d.GoodPercentage+d.NeedsImprovementPercentage, 0.2)
}
