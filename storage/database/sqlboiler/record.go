// Package boiledrepos implements the record repository on top of sqlboiler's query binding.
package boiledrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/grading"
)

const (
	recordTable   = "gpa_record"
	recordColumns = "id, student_id, student_name, semester, gpa, cgpa, courses, created_at, updated_at"
)

// recordRow is a gpa_record row.
type recordRow struct {
	ID          string       `boil:"id"`
	StudentID   string       `boil:"student_id"`
	StudentName null.String  `boil:"student_name"`
	Semester    string       `boil:"semester"`
	GPA         null.Float64 `boil:"gpa"`
	CGPA        null.Float64 `boil:"cgpa"`
	Courses     types.JSON   `boil:"courses"`
	CreatedAt   time.Time    `boil:"created_at"`
	UpdatedAt   time.Time    `boil:"updated_at"`
}

type recordRepository struct {
	exec core.DBExecutor
}

var _ academic.Repository = (*recordRepository)(nil) // interface compliance check

func NewRecordRepository(exec core.DBExecutor) *recordRepository {
	return &recordRepository{exec: exec}
}

func (repo recordRepository) boil(rec academic.Record) (recordRow, error) {
	courses := rec.Courses
	if courses == nil {
		courses = []grading.Course{}
	}
	raw, err := json.Marshal(courses)
	if err != nil {
		return recordRow{}, errors.Wrap(err, "encoding courses")
	}
	return recordRow{
		ID:          rec.ID,
		StudentID:   rec.StudentID,
		StudentName: null.NewString(rec.StudentName, rec.StudentName != ""),
		Semester:    rec.Semester,
		GPA:         rec.GPA,
		CGPA:        rec.CGPA,
		Courses:     types.JSON(raw),
		CreatedAt:   rec.CreatedAt.UTC(),
		UpdatedAt:   rec.UpdatedAt.UTC(),
	}, nil
}

func (repo recordRepository) unboil(row recordRow) (academic.Record, error) {
	rec := academic.Record{
		ID:          row.ID,
		StudentID:   row.StudentID,
		StudentName: row.StudentName.String,
		Semester:    row.Semester,
		GPA:         row.GPA,
		CGPA:        row.CGPA,
		Courses:     []grading.Course{},
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
	if len(row.Courses) > 0 {
		if err := row.Courses.Unmarshal(&rec.Courses); err != nil {
			return academic.Record{}, errors.Wrapf(err, "decoding courses of record %s", row.ID)
		}
	}
	return rec, nil
}

// trapNoRowsErr maps psql "no rows" err to academic.ErrNotFound
func (repo recordRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return academic.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// queryArgs collects positional query arguments and hands out their placeholders.
type queryArgs []interface{}

func (a *queryArgs) add(v interface{}) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

// buildQuery returns the SELECT statement matching filter and ordering.
func buildQuery(filter *academic.QueryFilter, ordering []core.DBOrdering) (string, []interface{}) {
	var args queryArgs
	var where []string

	if filter != nil {
		if filter.Semester != "" && !strings.EqualFold(filter.Semester, academic.AllSemesters) {
			where = append(where, "semester = "+args.add(filter.Semester))
		}
		if filter.StudentID != "" {
			where = append(where, "student_id = "+args.add(filter.StudentID))
		}
		// records with StudentID or StudentName matching the search keyword
		if filter.Search != "" {
			p := args.add("%" + filter.Search + "%")
			where = append(where, fmt.Sprintf("(student_id ILIKE %s OR student_name ILIKE %s)", p, p))
		}
	}

	q := "SELECT " + recordColumns + " FROM " + recordTable
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}

	ordering = core.AllowedOrderings(ordering, academic.OrderingFields...)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	orderBy := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		orderBy = append(orderBy, ord.String())
	}
	orderBy = append(orderBy, "id ASC")
	return q + " ORDER BY " + strings.Join(orderBy, ", "), args
}

func (repo recordRepository) QueryRecords(ctx context.Context, filter *academic.QueryFilter, ordering []core.DBOrdering) ([]academic.Record, error) {
	q, args := buildQuery(filter, ordering)

	var rows []recordRow
	if err := queries.Raw(q, args...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "selecting records")
	}
	records := make([]academic.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := repo.unboil(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (repo recordRepository) GetRecord(ctx context.Context, id string) (academic.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return academic.Record{}, academic.ErrNotFound
	}
	var row recordRow
	q := "SELECT " + recordColumns + " FROM " + recordTable + " WHERE id = $1"
	if err := queries.Raw(q, id).Bind(ctx, repo.exec, &row); err != nil {
		return academic.Record{}, repo.trapNoRowsErr(err, "selecting record")
	}
	return repo.unboil(row)
}

func (repo recordRepository) CreateRecord(ctx context.Context, rec academic.Record) (academic.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	row, err := repo.boil(rec)
	if err != nil {
		return academic.Record{}, err
	}

	q := "INSERT INTO " + recordTable + " (" + recordColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)"
	_, err = queries.Raw(q, row.ID, row.StudentID, row.StudentName, row.Semester, row.GPA, row.CGPA, row.Courses, row.CreatedAt, row.UpdatedAt).
		ExecContext(ctx, repo.exec)
	if err != nil {
		return academic.Record{}, errors.Wrap(err, "inserting record")
	}
	return rec, nil
}

func (repo recordRepository) UpdateRecord(ctx context.Context, rec academic.Record) (academic.Record, error) {
	row, err := repo.boil(rec)
	if err != nil {
		return academic.Record{}, err
	}

	q := "UPDATE " + recordTable + " SET student_id = $2, student_name = $3, semester = $4, gpa = $5, cgpa = $6, courses = $7, updated_at = $8 WHERE id = $1"
	res, err := queries.Raw(q, row.ID, row.StudentID, row.StudentName, row.Semester, row.GPA, row.CGPA, row.Courses, row.UpdatedAt).
		ExecContext(ctx, repo.exec)
	if err != nil {
		return academic.Record{}, errors.Wrap(err, "updating record")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academic.Record{}, academic.ErrNotFound
	}
	return rec, nil
}

func (repo recordRepository) DeleteRecords(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	var args queryArgs
	placeholders := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		placeholders = append(placeholders, args.add(id))
	}
	if len(placeholders) == 0 {
		return nil
	}

	q := "DELETE FROM " + recordTable + " WHERE id IN (" + strings.Join(placeholders, ", ") + ")"
	_, err := queries.Raw(q, args...).ExecContext(ctx, repo.exec)
	return errors.Wrap(err, "deleting records")
}
