// Package sqlxrepos implements the report archive on top of sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/report"
)

type (
	reportRow struct {
		ID            string    `db:"id"`
		Semester      string    `db:"semester"`
		DataSource    string    `db:"data_source"`
		TotalStudents int       `db:"total_students"`
		AverageGPA    float64   `db:"average_gpa"`
		Payload       []byte    `db:"payload"`
		Records       []byte    `db:"records"`
		GeneratedAt   time.Time `db:"generated_at"`
	}

	reportRepository struct {
		db *sqlx.DB
	}
)

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *sql.DB) *reportRepository {
	return &reportRepository{db: sqlx.NewDb(db, "postgres")}
}

func toRow(a report.Archive) (reportRow, error) {
	payload, err := json.Marshal(a.Report)
	if err != nil {
		return reportRow{}, errors.Wrap(err, "encoding report")
	}
	records := a.Records
	if records == nil {
		records = []academic.Record{}
	}
	recs, err := json.Marshal(records)
	if err != nil {
		return reportRow{}, errors.Wrap(err, "encoding records")
	}
	h := a.Header()
	return reportRow{
		ID:            h.ID,
		Semester:      h.Semester,
		DataSource:    h.DataSource,
		TotalStudents: h.TotalStudents,
		AverageGPA:    h.AverageGPA,
		Payload:       payload,
		Records:       recs,
		GeneratedAt:   h.GeneratedAt.UTC(),
	}, nil
}

func (row reportRow) header() report.ArchiveHeader {
	return report.ArchiveHeader{
		ID:            row.ID,
		GeneratedAt:   row.GeneratedAt.UTC(),
		DataSource:    row.DataSource,
		Semester:      row.Semester,
		TotalStudents: row.TotalStudents,
		AverageGPA:    row.AverageGPA,
	}
}

func (row reportRow) archive() (report.Archive, error) {
	var a report.Archive
	if err := json.Unmarshal(row.Payload, &a.Report); err != nil {
		return report.Archive{}, errors.Wrapf(err, "decoding report %s", row.ID)
	}
	if err := json.Unmarshal(row.Records, &a.Records); err != nil {
		return report.Archive{}, errors.Wrapf(err, "decoding records of report %s", row.ID)
	}
	return a, nil
}

func (repo *reportRepository) CreateArchive(ctx context.Context, a report.Archive) error {
	row, err := toRow(a)
	if err != nil {
		return err
	}
	const q = `INSERT INTO report (id, semester, data_source, total_students, average_gpa, payload, records, generated_at)
		VALUES (:id, :semester, :data_source, :total_students, :average_gpa, :payload, :records, :generated_at)`
	_, err = repo.db.NamedExecContext(ctx, q, row)
	return errors.Wrap(err, "inserting report")
}

func (repo *reportRepository) GetArchive(ctx context.Context, id string) (report.Archive, error) {
	var row reportRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM report WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return report.Archive{}, report.ErrNotFound
		}
		return report.Archive{}, errors.Wrap(err, "selecting report")
	}
	return row.archive()
}

func (repo *reportRepository) QueryArchives(ctx context.Context) ([]report.ArchiveHeader, error) {
	var rows []reportRow
	const q = `SELECT id, semester, data_source, total_students, average_gpa, generated_at
		FROM report ORDER BY generated_at DESC, id DESC`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting reports")
	}
	headers := make([]report.ArchiveHeader, 0, len(rows))
	for _, row := range rows {
		headers = append(headers, row.header())
	}
	return headers, nil
}

func (repo *reportRepository) DeleteArchives(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In("DELETE FROM report WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	_, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	return errors.Wrap(err, "deleting reports")
}
