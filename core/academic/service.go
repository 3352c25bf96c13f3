// Package academic holds the student academic records: their normalized shape, validation
// and the GPA calculator's save flow.
package academic

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/grading"
)

var (
	ErrNotFound = errors.New("record not found")

	NowFunc = time.Now // mockable

	// OrderingFields are the fields records can be ordered by.
	OrderingFields = []string{"student_id", "student_name", "semester", "gpa", "cgpa", "created_at", "updated_at"}
)

type (
	Repository interface {
		QueryRecords(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Record, error)
		GetRecord(ctx context.Context, id string) (Record, error)
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		UpdateRecord(ctx context.Context, rec Record) (Record, error)
		DeleteRecords(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo     Repository
		strategy grading.CGPAStrategy
		logger   core.Logger
	}
)

func NewService(conf *core.Config, repo Repository, logger core.Logger) (*Service, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}
	strategy, err := grading.ParseCGPAStrategy(conf.Grading.CGPAStrategy)
	if err != nil {
		return nil, errors.Wrap(err, "parsing grading.cgpaStrategy")
	}
	return &Service{repo: repo, strategy: strategy, logger: logger}, nil
}

func (svc *Service) Strategy() grading.CGPAStrategy { return svc.strategy }

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Record, error) {
	if filter != nil {
		filter.Clean()
	}
	records, err := svc.repo.QueryRecords(ctx, filter, core.AllowedOrderings(ordering, OrderingFields...))
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	return records, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Record, error) {
	return svc.repo.GetRecord(ctx, core.CleanString(id))
}

// Semesters lists the distinct semesters found in the store.
func (svc *Service) Semesters(ctx context.Context) ([]string, error) {
	records, err := svc.repo.QueryRecords(ctx, nil, []core.DBOrdering{{Field: "semester", Ascending: true}})
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	return Semesters(records), nil
}

// cgpa aggregates gpa with the student's GPAs from their other semesters.
func (svc *Service) cgpa(ctx context.Context, studentID, semester, excludedID string, gpa float64) (float64, error) {
	if svc.strategy == grading.SingleSubmission {
		return grading.CGPAFromGPAs(svc.strategy, []float64{gpa}), nil
	}

	history, err := svc.repo.QueryRecords(ctx, &QueryFilter{StudentID: studentID}, []core.DBOrdering{{Field: "created_at", Ascending: true}})
	if err != nil {
		return 0, errors.Wrap(err, "querying student history")
	}
	gpas := make([]float64, 0, len(history)+1)
	for _, rec := range history {
		if rec.ID == excludedID || rec.Semester == semester || !rec.GPA.Valid {
			continue
		}
		gpas = append(gpas, rec.GPA.Float64)
	}
	gpas = append(gpas, gpa)
	return grading.CGPAFromGPAs(svc.strategy, gpas), nil
}

func (svc *Service) build(ctx context.Context, nr NewRecord, excludedID string) (Record, error) {
	courses := nr.Courses()
	gpa := grading.ComputeGPA(courses)
	cgpa, err := svc.cgpa(ctx, nr.StudentID, nr.Semester, excludedID, gpa)
	if err != nil {
		return Record{}, err
	}
	return Record{
		StudentID:   nr.StudentID,
		StudentName: nr.StudentName,
		Semester:    nr.Semester,
		GPA:         null.Float64From(gpa),
		CGPA:        null.Float64From(cgpa),
		Courses:     courses,
	}, nil
}

// Save computes the submission's GPA and CGPA and stores it as a new record.
func (svc *Service) Save(ctx context.Context, nr NewRecord) (Record, error) {
	rec, err := svc.build(ctx, nr, "")
	if err != nil {
		return Record{}, errors.Wrap(err, "building record")
	}
	now := NowFunc().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now

	rec, err = svc.repo.CreateRecord(ctx, rec)
	if err != nil {
		return Record{}, errors.Wrap(err, "creating record")
	}
	svc.logger.Info("gpa record saved", map[string]interface{}{"student": rec.StudentID, "semester": rec.Semester, "gpa": rec.GPA.Float64})
	return rec, nil
}

// Update recomputes and replaces the record with the given id.
func (svc *Service) Update(ctx context.Context, id string, nr NewRecord) (Record, error) {
	existing, err := svc.repo.GetRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}
	rec, err := svc.build(ctx, nr, existing.ID)
	if err != nil {
		return Record{}, errors.Wrap(err, "building record")
	}
	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = NowFunc().UTC()

	rec, err = svc.repo.UpdateRecord(ctx, rec)
	if err != nil {
		return Record{}, errors.Wrap(err, "updating record")
	}
	return rec, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return errors.Wrap(svc.repo.DeleteRecords(ctx, ids...), "deleting records")
}
