package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/academic"
)

type recordRepository struct {
	db *recordTable
}

var _ academic.Repository = (*recordRepository)(nil) // interface compliance check

func NewRecordRepository(db *DB) *recordRepository {
	return &recordRepository{db: db.record}
}

func (repo *recordRepository) QueryRecords(_ context.Context, filter *academic.QueryFilter, ordering []core.DBOrdering) ([]academic.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]academic.Record, 0, len(repo.db.table))
	for _, rec := range repo.db.table {
		if filter.Match(*rec) {
			records = append(records, rec.Clone())
		}
	}

	// default: newest first, like the SQL repos
	academic.SortRecords(records, ordering)
	return records, nil
}

func (repo *recordRepository) GetRecord(_ context.Context, id string) (academic.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.table[id]; ok {
		return rec.Clone(), nil
	}
	return academic.Record{}, academic.ErrNotFound
}

func (repo *recordRepository) CreateRecord(_ context.Context, rec academic.Record) (academic.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	stored := rec.Clone()
	repo.db.table[rec.ID] = &stored
	return rec, nil
}

func (repo *recordRepository) UpdateRecord(_ context.Context, rec academic.Record) (academic.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[rec.ID]; !ok {
		return academic.Record{}, academic.ErrNotFound
	}
	stored := rec.Clone()
	repo.db.table[rec.ID] = &stored
	return rec, nil
}

func (repo *recordRepository) DeleteRecords(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
