// Package grading holds the Makerere grade scale and the GPA / CGPA arithmetic built on it.
package grading

import "math"

// Letter grades
const (
	GradeA      = "A"
	GradeBPlus  = "B+"
	GradeB      = "B"
	GradeCPlus  = "C+"
	GradeC      = "C"
	GradeDPlus  = "D+"
	GradeD      = "D"
	GradeE      = "E"
	GradeEMinus = "E–"
	GradeF      = "F"

	MinMarks = 0.0
	MaxMarks = 100.0
)

// Band maps a marks range to a letter grade and its grade points.
type Band struct {
	MinMark float64 `json:"min_mark"`
	MaxMark float64 `json:"max_mark"`
	Letter  string  `json:"grade"`
	Points  float64 `json:"points"`
}

// scale is ordered by descending MinMark. Never mutate it: hand out copies via Bands.
var scale = []Band{
	{MinMark: 80, MaxMark: 100, Letter: GradeA, Points: 5.0},
	{MinMark: 75, MaxMark: 79, Letter: GradeBPlus, Points: 4.5},
	{MinMark: 70, MaxMark: 74, Letter: GradeB, Points: 4.0},
	{MinMark: 65, MaxMark: 69, Letter: GradeCPlus, Points: 3.5},
	{MinMark: 60, MaxMark: 64, Letter: GradeC, Points: 3.0},
	{MinMark: 55, MaxMark: 59, Letter: GradeDPlus, Points: 2.5},
	{MinMark: 50, MaxMark: 54, Letter: GradeD, Points: 2.0},
	{MinMark: 45, MaxMark: 49, Letter: GradeE, Points: 1.5},
	{MinMark: 40, MaxMark: 44, Letter: GradeEMinus, Points: 1.0},
	{MinMark: 0, MaxMark: 39, Letter: GradeF, Points: 0.0},
}

var failBand = scale[len(scale)-1]

// Bands returns a copy of the grade scale, best band first.
func Bands() []Band {
	bands := make([]Band, len(scale))
	copy(bands, scale)
	return bands
}

// BandForMark looks up the band `marks` falls in.
// Fractional marks between two integer ranges belong to the lower band (79.5 is a B+).
// Marks outside [0, 100] and NaN get an F.
func BandForMark(marks float64) Band {
	if math.IsNaN(marks) || marks < MinMarks || marks > MaxMarks {
		return failBand
	}
	for _, b := range scale {
		if marks >= b.MinMark {
			return b
		}
	}
	return failBand
}

func PointsForMark(marks float64) float64 { return BandForMark(marks).Points }
func LetterForMark(marks float64) string  { return BandForMark(marks).Letter }

// PointsForLetter returns the grade points of a letter grade, false if the letter is unknown.
func PointsForLetter(letter string) (float64, bool) {
	for _, b := range scale {
		if b.Letter == letter {
			return b.Points, true
		}
	}
	return 0, false
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Round1 rounds half away from zero to 1 decimal place.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
