package grading

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestMeanGPA(t *testing.T) {
	tests := []struct {
		name string
		gpas []float64
		want float64
	}{
		{name: "empty", want: 0},
		{name: "three semesters", gpas: []float64{3.2, 3.8, 4.1}, want: 3.7},
		{name: "NaN skipped", gpas: []float64{4.0, math.NaN(), 3.0}, want: 3.5},
		{name: "only invalid", gpas: []float64{math.NaN(), math.Inf(1)}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MeanGPA(tt.gpas))
		})
	}
}

func TestCGPA(t *testing.T) {
	sem1 := Semester{Name: "S1", Courses: []Course{{Name: "Math", Marks: 85, Credits: 3}}}                                 // 5.0
	sem2 := Semester{Name: "S2", Courses: []Course{{Name: "Math", Marks: 60, Credits: 3}, {Name: "Art", Marks: 60, Credits: 1}}} // 3.0

	assert.Equal(t, 0.0, CGPA(HistoricalMean, nil))
	assert.Equal(t, 4.0, CGPA(HistoricalMean, []Semester{sem1, sem2}))
	assert.Equal(t, 3.0, CGPA(SingleSubmission, []Semester{sem1, sem2}))

	assert.Equal(t, 3.7, CGPAFromGPAs(HistoricalMean, []float64{3.2, 3.8, 4.1}))
	assert.Equal(t, 4.1, CGPAFromGPAs(SingleSubmission, []float64{3.2, 3.8, 4.1}))
	assert.Equal(t, 0.0, CGPAFromGPAs(SingleSubmission, nil))
}

func TestParseCGPAStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    CGPAStrategy
		wantErr bool
	}{
		{in: "", want: HistoricalMean},
		{in: "historical", want: HistoricalMean},
		{in: " Single ", want: SingleSubmission},
		{in: "weighted", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCGPAStrategy(tt.in)
			if tt.wantErr {
				assert.Equal(t, ErrUnknownStrategy, errors.Cause(err))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		gpa  float64
		want Tier
	}{
		{gpa: 5, want: TierExcellent},
		{gpa: 3.5, want: TierExcellent},
		{gpa: 3.49, want: TierGood},
		{gpa: 2.5, want: TierGood},
		{gpa: 2.49, want: TierNeedsImprovement},
		{gpa: 0, want: TierNeedsImprovement},
	}
	for _, tt := range tests {
		if got := TierFor(tt.gpa); got != tt.want {
			t.Errorf("TierFor(%v) = %v; want %v", tt.gpa, got, tt.want)
		}
	}

	assert.True(t, IsStrongGrade(GradeB))
	assert.False(t, IsStrongGrade(GradeCPlus))
	assert.True(t, IsWeakGrade(GradeEMinus))
	assert.False(t, IsWeakGrade(GradeDPlus))
}
