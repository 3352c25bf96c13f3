// Package stats computes the descriptive statistics of a set of academic records.
package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/grading"
)

// QualityStatus rates the share of valid records in a data set.
type QualityStatus string

const (
	QualityExcellent      QualityStatus = "Excellent"
	QualityGood           QualityStatus = "Good"
	QualityNeedsAttention QualityStatus = "Needs Attention"

	excellentQualityScore = 90.0
	goodQualityScore      = 75.0
)

type (
	// Distribution counts the records of each performance tier.
	// Percentages are relative to Total (the records with a valid GPA) and rounded to 1 decimal.
	Distribution struct {
		Excellent                  int     `json:"excellent"`
		Good                       int     `json:"good"`
		NeedsImprovement           int     `json:"needs_improvement"`
		Total                      int     `json:"total"`
		ExcellentPercentage        float64 `json:"excellent_percentage"`
		GoodPercentage             float64 `json:"good_percentage"`
		NeedsImprovementPercentage float64 `json:"needs_improvement_percentage"`
	}

	DataQuality struct {
		Score        float64       `json:"score"` // % of valid records
		ValidRecords int           `json:"valid_records"`
		TotalRecords int           `json:"total_records"`
		Status       QualityStatus `json:"status"`
		Issues       int           `json:"issues"`
	}

	// Basic holds the GPA descriptive statistics over the records with a valid GPA.
	Basic struct {
		Average float64 `json:"average"`
		Max     float64 `json:"max"`
		Min     float64 `json:"min"`
		StdDev  float64 `json:"std_dev"` // population standard deviation
		Range   float64 `json:"range"`
		Count   int     `json:"count"`
	}

	Summary struct {
		Basic
		PerformanceDistribution Distribution `json:"performance_distribution"`
		ExcellenceRate          float64      `json:"excellence_rate"`  // % of GPAs >= 3.5
		ImprovementRate         float64      `json:"improvement_rate"` // % of GPAs < 2.5
		DataQuality             DataQuality  `json:"data_quality"`
		TotalCourseRecords      int          `json:"total_course_records"`
	}
)

// ValidGPAs returns the GPAs of records that have one, in input order.
func ValidGPAs(records []academic.Record) []float64 {
	gpas := make([]float64, 0, len(records))
	for _, r := range records {
		if r.HasValidGPA() {
			gpas = append(gpas, r.GPA.Float64)
		}
	}
	return gpas
}

// Describe computes the basic statistics of gpas. No GPA gives a zero Basic.
func Describe(gpas []float64) Basic {
	if len(gpas) == 0 {
		return Basic{}
	}
	mean, std := stat.PopMeanStdDev(gpas, nil)
	max, min := floats.Max(gpas), floats.Min(gpas)
	return Basic{
		Average: grading.Round2(mean),
		Max:     grading.Round2(max),
		Min:     grading.Round2(min),
		StdDev:  grading.Round2(std),
		Range:   grading.Round2(max - min),
		Count:   len(gpas),
	}
}

func percentage(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return grading.Round1(float64(n) / float64(total) * 100)
}

// Distribute counts gpas per performance tier.
func Distribute(gpas []float64) Distribution {
	d := Distribution{Total: len(gpas)}
	for _, g := range gpas {
		switch grading.TierFor(g) {
		case grading.TierExcellent:
			d.Excellent++
		case grading.TierGood:
			d.Good++
		default:
			d.NeedsImprovement++
		}
	}
	d.ExcellentPercentage = percentage(d.Excellent, d.Total)
	d.GoodPercentage = percentage(d.Good, d.Total)
	d.NeedsImprovementPercentage = percentage(d.NeedsImprovement, d.Total)
	return d
}

// QualityStatusFor rates a data quality score (percentage of valid records).
func QualityStatusFor(score float64) QualityStatus {
	switch {
	case score >= excellentQualityScore:
		return QualityExcellent
	case score >= goodQualityScore:
		return QualityGood
	default:
		return QualityNeedsAttention
	}
}

// Quality rates the share of valid records among validation results.
func Quality(results []academic.ValidationResult) DataQuality {
	if len(results) == 0 {
		return DataQuality{}
	}
	q := DataQuality{TotalRecords: len(results)}
	for _, r := range results {
		if r.IsValid {
			q.ValidRecords++
		}
		q.Issues += len(r.Issues)
	}
	q.Score = percentage(q.ValidRecords, q.TotalRecords)
	q.Status = QualityStatusFor(q.Score)
	return q
}

// Compute returns the statistics summary of records. Empty input gives a zero Summary.
func Compute(records []academic.Record) Summary {
	if len(records) == 0 {
		return Summary{}
	}

	gpas := ValidGPAs(records)
	dist := Distribute(gpas)

	var courses int
	for _, r := range records {
		courses += len(r.Courses)
	}

	return Summary{
		Basic:                   Describe(gpas),
		PerformanceDistribution: dist,
		ExcellenceRate:          dist.ExcellentPercentage,
		ImprovementRate:         dist.NeedsImprovementPercentage,
		DataQuality:             Quality(academic.ValidateAll(records)),
		TotalCourseRecords:      courses,
	}
}
