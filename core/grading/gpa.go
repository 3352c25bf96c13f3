package grading

import "strings"

// Course is one graded course of a semester.
// Grade is always derived from Marks, never trusted from input.
type Course struct {
	Name    string  `json:"name"`
	Marks   float64 `json:"marks"`
	Credits float64 `json:"credits"`
	Grade   string  `json:"grade"`
}

// Points returns the grade points earned by the course marks.
func (c Course) Points() float64 {
	return PointsForMark(c.Marks)
}

// Semester is a batch of courses taken in the same academic period.
type Semester struct {
	Name    string   `json:"name"`
	Courses []Course `json:"courses"`
}

func (s Semester) GPA() float64 {
	return ComputeGPA(s.Courses)
}

// ComputeGPA returns the credit-weighted average of the courses' grade points, rounded to 2 decimals.
// Courses with no (or negative) credits carry no weight. No credits at all gives 0.
func ComputeGPA(courses []Course) float64 {
	var totalPoints, totalCredits float64
	for _, c := range courses {
		if !(c.Credits > 0) {
			continue
		}
		totalPoints += c.Points() * c.Credits
		totalCredits += c.Credits
	}
	if totalCredits == 0 {
		return 0
	}
	return Round2(totalPoints / totalCredits)
}

// GradeCourses returns a copy of courses with names cleaned and grades recomputed from marks.
func GradeCourses(courses []Course) []Course {
	graded := make([]Course, 0, len(courses))
	for _, c := range courses {
		c.Name = strings.TrimSpace(c.Name)
		c.Grade = LetterForMark(c.Marks)
		graded = append(graded, c)
	}
	return graded
}

// TotalCredits sums the positive credits of courses.
func TotalCredits(courses []Course) float64 {
	var total float64
	for _, c := range courses {
		if c.Credits > 0 {
			total += c.Credits
		}
	}
	return total
}
