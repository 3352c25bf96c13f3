package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/academic"
)

// Format is an export rendering.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatText Format = "txt"
	FormatJSON Format = "json"

	fileNamePrefix = "student_performance_report"
	csvHeader      = "Student ID,Student Name,Semester,GPA,CGPA,Courses\n"
)

var (
	ErrUnknownFormat = errors.New("unknown export format")

	Formats = []Format{FormatCSV, FormatText, FormatJSON}
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatText, FormatJSON:
		return f, nil
	case "text":
		return FormatText, nil
	case "":
		return FormatCSV, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%q", s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// FileName returns the dated download name of a rendering, e.g: student_performance_report_2025-10-01.csv
func (f Format) FileName(t time.Time) string {
	return fmt.Sprintf("%s_%s.%s", fileNamePrefix, t.Format("2006-01-02"), f)
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

func gpaString(valid bool, f float64) string {
	if !valid {
		return notAvailable
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// csvField quotes s when it holds a separator, a quote or a line break.
func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return quote(s)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func coursesField(rec academic.Record) string {
	if len(rec.Courses) == 0 {
		return notAvailable
	}
	parts := make([]string, 0, len(rec.Courses))
	for _, c := range rec.Courses {
		parts = append(parts, fmt.Sprintf("%s(%s)", c.Name, orNA(c.Grade)))
	}
	return strings.Join(parts, "; ")
}

// WriteCSV writes one line per record. The courses field is always quoted.
func WriteCSV(w io.Writer, records []academic.Record) error {
	var buf bytes.Buffer
	buf.WriteString(csvHeader)
	for _, r := range records {
		buf.WriteString(strings.Join([]string{
			csvField(orNA(r.StudentID)),
			csvField(r.StudentName),
			csvField(r.Semester),
			gpaString(r.GPA.Valid, r.GPA.Float64),
			gpaString(r.CGPA.Valid, r.CGPA.Float64),
			quote(coursesField(r)),
		}, ","))
		buf.WriteByte('\n')
	}
	_, err := w.Write(buf.Bytes())
	return errors.Wrap(err, "writing csv")
}

func formatCredits(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}

// WriteText writes a human readable listing of records.
func WriteText(w io.Writer, records []academic.Record, generatedAt time.Time) error {
	var buf bytes.Buffer
	buf.WriteString("STUDENT PERFORMANCE REPORT\n")
	fmt.Fprintf(&buf, "Generated: %s\n", generatedAt.Format("2006-01-02 15:04:05 MST"))
	buf.WriteString(strings.Repeat("=", 80) + "\n\n")

	for i, r := range records {
		fmt.Fprintf(&buf, "%d. %s (%s)\n", i+1, orNA(r.StudentName), orNA(r.StudentID))
		fmt.Fprintf(&buf, "   Semester: %s\n", orNA(r.Semester))
		fmt.Fprintf(&buf, "   GPA: %s | CGPA: %s\n", gpaString(r.GPA.Valid, r.GPA.Float64), gpaString(r.CGPA.Valid, r.CGPA.Float64))
		if len(r.Courses) > 0 {
			buf.WriteString("   Courses:\n")
			for _, c := range r.Courses {
				fmt.Fprintf(&buf, "      - %s: %s (%s credits)\n", c.Name, orNA(c.Grade), formatCredits(c.Credits))
			}
		}
		buf.WriteByte('\n')
	}
	_, err := w.Write(buf.Bytes())
	return errors.Wrap(err, "writing text")
}

// WriteJSON writes the whole report, indented with 2 spaces.
func WriteJSON(w io.Writer, rep *GeneratedReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(rep), "encoding report")
}

// Rendering is an exported report ready to be downloaded or delivered.
type Rendering struct {
	Format      Format
	FileName    string
	ContentType string
	Content     []byte
}

// Render exports an archived report in format.
// CSV and text render the records the report was computed from; JSON renders the report itself.
func Render(a *Archive, format Format) (*Rendering, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatCSV:
		err = WriteCSV(&buf, a.Records)
	case FormatText:
		err = WriteText(&buf, a.Records, a.Report.GeneratedAt)
	case FormatJSON:
		err = WriteJSON(&buf, &a.Report)
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
	}
	if err != nil {
		return nil, err
	}
	return &Rendering{
		Format:      format,
		FileName:    format.FileName(a.Report.GeneratedAt),
		ContentType: format.ContentType(),
		Content:     buf.Bytes(),
	}, nil
}
