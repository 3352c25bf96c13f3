package sqlxrepos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/report"
	"github.com/trezcool/alama/core/stats"
)

func TestReportRow(t *testing.T) {
	generated := time.Date(2024, 6, 30, 8, 15, 0, 0, time.UTC)
	a := report.Archive{
		Report: report.GeneratedReport{
			ID:          "REP-1719735300000-1a2b3c4d",
			GeneratedAt: generated,
			DataSource:  report.SourceAPI,
			Semester:    "S1",
			Statistics:  stats.Summary{},
			Summary:     report.Summary{TotalStudents: 2, Semesters: []string{"S1"}},
		},
		Records: []academic.Record{
			{ID: "r1", StudentID: "s1", StudentName: "Alice", Semester: "S1", GPA: null.Float64From(3.9), CGPA: null.Float64From(3.9)},
			{ID: "r2", StudentID: "s2", Semester: "S1"},
		},
	}
	a.Report.Statistics.Average = 3.9

	row, err := toRow(a)
	require.NoError(t, err)
	assert.Equal(t, a.Header(), row.header())

	back, err := row.archive()
	require.NoError(t, err)
	assert.Equal(t, a.Report.ID, back.Report.ID)
	assert.True(t, generated.Equal(back.Report.GeneratedAt))
	assert.Equal(t, a.Report.Summary, back.Report.Summary)
	require.Len(t, back.Records, 2)
	assert.Equal(t, null.Float64From(3.9), back.Records[0].GPA)
	assert.False(t, back.Records[1].GPA.Valid)

	t.Run("no records", func(t *testing.T) {
		row, err := toRow(report.Archive{Report: report.GeneratedReport{ID: "REP-2"}})
		require.NoError(t, err)
		assert.Equal(t, "[]", string(row.Records))
	})
}
