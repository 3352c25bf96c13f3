package academic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core/grading"
)

// RawRecord is the loosely typed shape of a record as served by the Record Store.
// Numbers may come as JSON numbers or numeric strings; `student` may be an id or an object.
type RawRecord struct {
	ID          json.RawMessage `json:"id"`
	MongoID     json.RawMessage `json:"_id"`
	Student     json.RawMessage `json:"student"`
	StudentID   json.RawMessage `json:"student_id"`
	StudentName json.RawMessage `json:"student_name"`
	Semester    json.RawMessage `json:"semester"`
	GPA         json.RawMessage `json:"gpa"`
	CGPA        json.RawMessage `json:"cgpa"`
	Subjects    json.RawMessage `json:"subjects"`
	Courses     json.RawMessage `json:"courses"`
	CreatedAt   json.RawMessage `json:"created_at"`
	UpdatedAt   json.RawMessage `json:"updated_at"`
	Timestamp   json.RawMessage `json:"timestamp"`
}

type rawCourse struct {
	Name    json.RawMessage `json:"name"`
	Marks   json.RawMessage `json:"marks"`
	Credits json.RawMessage `json:"credits"`
}

type rawStudent struct {
	ID       json.RawMessage `json:"id"`
	Username json.RawMessage `json:"username"`
	Name     json.RawMessage `json:"name"`
}

// NormalizeError reports a record the Record Store served in a shape we refuse to guess about.
type NormalizeError struct {
	Index int // position in the batch, -1 when normalizing a single record
	Field string
	Err   error
}

func (e *NormalizeError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("record #%d: field %q: %v", e.Index, e.Field, e.Err)
	}
	return fmt.Sprintf("record: field %q: %v", e.Field, e.Err)
}

func (e *NormalizeError) Unwrap() error { return e.Err }

var nullBytes = []byte("null")

func isEmpty(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, nullBytes)
}

// parseNumber accepts a JSON number or a numeric string.
// Absent, null, blank, NaN and non-numeric strings ("N/A") are reported as not valid.
// Any other JSON type is an error.
func parseNumber(raw json.RawMessage) (float64, bool, error) {
	if isEmpty(raw) {
		return 0, false, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false, fmt.Errorf("expected a number, got %s", raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, nil
	}
	return f, true, nil
}

// parseString accepts a JSON string or number (ids are often numeric).
func parseString(raw json.RawMessage) (string, error) {
	if isEmpty(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("expected a string, got %s", raw)
}

func parseTime(raw json.RawMessage) (time.Time, error) {
	s, err := parseString(raw)
	if err != nil || s == "" {
		return time.Time{}, err
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("expected a timestamp, got %q", s)
}

func normalizeStudent(raw RawRecord) (id, name string, fld string, err error) {
	if id, err = parseString(raw.StudentID); err != nil {
		return "", "", "student_id", err
	}
	if name, err = parseString(raw.StudentName); err != nil {
		return "", "", "student_name", err
	}

	student := bytes.TrimSpace(raw.Student)
	if len(student) > 0 && student[0] == '{' {
		var obj rawStudent
		if err = json.Unmarshal(student, &obj); err != nil {
			return "", "", "student", err
		}
		objID, err := parseString(obj.ID)
		if err != nil {
			return "", "", "student.id", err
		}
		uname, err := parseString(obj.Username)
		if err != nil {
			return "", "", "student.username", err
		}
		if id == "" {
			id = objID
		}
		if name == "" {
			name = uname
		}
		if name == "" {
			if name, err = parseString(obj.Name); err != nil {
				return "", "", "student.name", err
			}
		}
	} else {
		sid, err := parseString(student)
		if err != nil {
			return "", "", "student", err
		}
		if sid != "" {
			id = sid
		}
	}
	return id, name, "", nil
}

func normalizeCourses(raw RawRecord) ([]grading.Course, string, error) {
	fld, data := "subjects", raw.Subjects
	if isEmpty(data) {
		fld, data = "courses", raw.Courses
	}
	if isEmpty(data) {
		return []grading.Course{}, "", nil
	}

	var items []rawCourse
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fld, fmt.Errorf("expected an array of courses: %v", err)
	}

	courses := make([]grading.Course, 0, len(items))
	for i, item := range items {
		name, err := parseString(item.Name)
		if err != nil {
			return nil, fmt.Sprintf("%s[%d].name", fld, i), err
		}
		marks, hasMarks, err := parseNumber(item.Marks)
		if err != nil {
			return nil, fmt.Sprintf("%s[%d].marks", fld, i), err
		}
		credits, _, err := parseNumber(item.Credits)
		if err != nil {
			return nil, fmt.Sprintf("%s[%d].credits", fld, i), err
		}
		c := grading.Course{Name: name, Marks: marks, Credits: credits}
		if hasMarks {
			c.Grade = grading.LetterForMark(marks)
		}
		courses = append(courses, c)
	}
	return courses, "", nil
}

// Normalize turns a Record Store record into a Record.
// Missing or unreadable values become explicit empties (empty name, null GPA) which Validate reports on;
// values of the wrong JSON type make it fail.
// The CGPA falls back to the GPA when absent and course grades are recomputed from marks.
func Normalize(raw RawRecord) (Record, error) {
	return normalize(-1, raw)
}

// NormalizeAll normalizes a batch, stopping at the first malformed record.
func NormalizeAll(raws []RawRecord) ([]Record, error) {
	records := make([]Record, 0, len(raws))
	for i, raw := range raws {
		rec, err := normalize(i, raw)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func normalize(idx int, raw RawRecord) (Record, error) {
	fail := func(fld string, err error) (Record, error) {
		return Record{}, &NormalizeError{Index: idx, Field: fld, Err: err}
	}

	var rec Record
	var err error

	idRaw := raw.ID
	if isEmpty(idRaw) {
		idRaw = raw.MongoID
	}
	if rec.ID, err = parseString(idRaw); err != nil {
		return fail("id", err)
	}

	var fld string
	if rec.StudentID, rec.StudentName, fld, err = normalizeStudent(raw); err != nil {
		return fail(fld, err)
	}
	if rec.Semester, err = parseString(raw.Semester); err != nil {
		return fail("semester", err)
	}

	gpa, ok, err := parseNumber(raw.GPA)
	if err != nil {
		return fail("gpa", err)
	}
	rec.GPA = null.NewFloat64(gpa, ok)

	cgpa, ok, err := parseNumber(raw.CGPA)
	if err != nil {
		return fail("cgpa", err)
	}
	rec.CGPA = null.NewFloat64(cgpa, ok)
	if isEmpty(raw.CGPA) {
		rec.CGPA = rec.GPA
	}

	if rec.Courses, fld, err = normalizeCourses(raw); err != nil {
		return fail(fld, err)
	}

	if rec.CreatedAt, err = parseTime(raw.CreatedAt); err != nil {
		return fail("created_at", err)
	}
	if rec.CreatedAt.IsZero() {
		if rec.CreatedAt, err = parseTime(raw.Timestamp); err != nil {
			return fail("timestamp", err)
		}
	}
	if rec.UpdatedAt, err = parseTime(raw.UpdatedAt); err != nil {
		return fail("updated_at", err)
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	return rec, nil
}
