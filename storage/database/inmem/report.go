package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/report"
)

type reportRepository struct {
	db *reportTable
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) *reportRepository {
	return &reportRepository{db: db.report}
}

func (repo *reportRepository) CreateArchive(_ context.Context, a report.Archive) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.Records = academic.CloneRecords(a.Records)
	repo.db.table[a.Report.ID] = &a
	return nil
}

func (repo *reportRepository) GetArchive(_ context.Context, id string) (report.Archive, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	a, ok := repo.db.table[id]
	if !ok {
		return report.Archive{}, report.ErrNotFound
	}
	cp := *a
	cp.Records = academic.CloneRecords(a.Records)
	return cp, nil
}

func (repo *reportRepository) QueryArchives(_ context.Context) ([]report.ArchiveHeader, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	headers := make([]report.ArchiveHeader, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		headers = append(headers, a.Header())
	}
	sort.Slice(headers, func(i, j int) bool {
		if headers[i].GeneratedAt.Equal(headers[j].GeneratedAt) {
			return headers[i].ID > headers[j].ID
		}
		return headers[i].GeneratedAt.After(headers[j].GeneratedAt)
	})
	return headers, nil
}

func (repo *reportRepository) DeleteArchives(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
