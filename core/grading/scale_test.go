package grading

import (
	"math"
	"testing"
)

func TestBandForMark(t *testing.T) {
	tests := []struct {
		name       string
		marks      float64
		wantLetter string
		wantPoints float64
	}{
		{name: "top", marks: 100, wantLetter: GradeA, wantPoints: 5.0},
		{name: "A lower bound", marks: 80, wantLetter: GradeA, wantPoints: 5.0},
		{name: "between B+ and A", marks: 79.5, wantLetter: GradeBPlus, wantPoints: 4.5},
		{name: "B+ upper bound", marks: 79, wantLetter: GradeBPlus, wantPoints: 4.5},
		{name: "B+ lower bound", marks: 75, wantLetter: GradeBPlus, wantPoints: 4.5},
		{name: "B", marks: 72, wantLetter: GradeB, wantPoints: 4.0},
		{name: "C+", marks: 65, wantLetter: GradeCPlus, wantPoints: 3.5},
		{name: "C", marks: 64, wantLetter: GradeC, wantPoints: 3.0},
		{name: "D+", marks: 55, wantLetter: GradeDPlus, wantPoints: 2.5},
		{name: "D", marks: 54.9, wantLetter: GradeD, wantPoints: 2.0},
		{name: "E", marks: 45, wantLetter: GradeE, wantPoints: 1.5},
		{name: "E-", marks: 40, wantLetter: GradeEMinus, wantPoints: 1.0},
		{name: "just under E-", marks: 39.99, wantLetter: GradeF, wantPoints: 0},
		{name: "zero", marks: 0, wantLetter: GradeF, wantPoints: 0},
		{name: "negative", marks: -5, wantLetter: GradeF, wantPoints: 0},
		{name: "over 100", marks: 150, wantLetter: GradeF, wantPoints: 0},
		{name: "NaN", marks: math.NaN(), wantLetter: GradeF, wantPoints: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := BandForMark(tt.marks)
			if b.Letter != tt.wantLetter || b.Points != tt.wantPoints {
				t.Errorf("BandForMark(%v) = %s/%v; want %s/%v", tt.marks, b.Letter, b.Points, tt.wantLetter, tt.wantPoints)
			}
			if got := LetterForMark(tt.marks); got != tt.wantLetter {
				t.Errorf("LetterForMark(%v) = %s; want %s", tt.marks, got, tt.wantLetter)
			}
			if got := PointsForMark(tt.marks); got != tt.wantPoints {
				t.Errorf("PointsForMark(%v) = %v; want %v", tt.marks, got, tt.wantPoints)
			}
		})
	}
}

func TestBands_isACopy(t *testing.T) {
	bands := Bands()
	if len(bands) != 10 {
		t.Fatalf("len(Bands()) = %d; want 10", len(bands))
	}
	bands[0].Points = 42
	if PointsForMark(90) != 5.0 {
		t.Error("mutating Bands() leaked into the scale")
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].MinMark >= bands[i-1].MinMark {
			t.Errorf("bands not in descending order at %d", i)
		}
	}
}

func TestPointsForLetter(t *testing.T) {
	if p, ok := PointsForLetter(GradeCPlus); !ok || p != 3.5 {
		t.Errorf("PointsForLetter(C+) = %v, %v", p, ok)
	}
	if _, ok := PointsForLetter("Z"); ok {
		t.Error("PointsForLetter(Z) should not be found")
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		in, want2, want1 float64
	}{
		{in: 31.0 / 7.0, want2: 4.43, want1: 4.4},
		{in: 3.125, want2: 3.13, want1: 3.1},
		{in: 0, want2: 0, want1: 0},
		{in: 2.25, want2: 2.25, want1: 2.3},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want2 {
			t.Errorf("Round2(%v) = %v; want %v", tt.in, got, tt.want2)
		}
		if got := Round1(tt.in); got != tt.want1 {
			t.Errorf("Round1(%v) = %v; want %v", tt.in, got, tt.want1)
		}
	}
}
