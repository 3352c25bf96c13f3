package academic_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/grading"
	inmemdb "github.com/trezcool/alama/storage/database/inmem"
)

func newService(t *testing.T, strategy string) *academic.Service {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Grading.CGPAStrategy = strategy
	svc, err := academic.NewService(conf, inmemdb.NewRecordRepository(inmemdb.Open()), &core.NopLogger{})
	require.NoError(t, err)
	return svc
}

func submission(student, semester string, subjects ...academic.NewCourse) academic.NewRecord {
	return academic.NewRecord{StudentID: student, StudentName: "Student " + student, Semester: semester, Subjects: subjects}
}

func TestNewService(t *testing.T) {
	conf := core.NewTestConfig()
	_, err := academic.NewService(conf, nil, &core.NopLogger{})
	assert.Error(t, err, "nil repo")

	conf.Grading.CGPAStrategy = "weighted"
	_, err = academic.NewService(conf, inmemdb.NewRecordRepository(inmemdb.Open()), &core.NopLogger{})
	assert.Equal(t, grading.ErrUnknownStrategy, errors.Cause(err))
}

func TestService_Save(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	academic.NowFunc = func() time.Time { return now }
	defer func() { academic.NowFunc = time.Now }()

	t.Run("historical mean", func(t *testing.T) {
		svc := newService(t, "historical")

		rec1, err := svc.Save(ctx, submission("s1", "Sem 1", academic.NewCourse{Name: "Math", Marks: 85, Credits: 3}))
		require.NoError(t, err)
		assert.NotEmpty(t, rec1.ID)
		assert.Equal(t, 5.0, rec1.GPA.Float64)
		assert.Equal(t, 5.0, rec1.CGPA.Float64)
		assert.Equal(t, grading.GradeA, rec1.Courses[0].Grade)
		assert.Equal(t, now, rec1.CreatedAt)

		rec2, err := svc.Save(ctx, submission("s1", "Sem 2", academic.NewCourse{Name: "Math II", Marks: 60, Credits: 3}))
		require.NoError(t, err)
		assert.Equal(t, 3.0, rec2.GPA.Float64)
		assert.Equal(t, 4.0, rec2.CGPA.Float64, "mean of 5.0 and 3.0")

		// other students do not count
		rec3, err := svc.Save(ctx, submission("s2", "Sem 2", academic.NewCourse{Name: "Math", Marks: 45, Credits: 3}))
		require.NoError(t, err)
		assert.Equal(t, 1.5, rec3.CGPA.Float64)

		// editing a semester replaces its own GPA in the mean
		upd, err := svc.Update(ctx, rec2.ID, submission("s1", "Sem 2", academic.NewCourse{Name: "Math II", Marks: 80, Credits: 3}))
		require.NoError(t, err)
		assert.Equal(t, rec2.ID, upd.ID)
		assert.Equal(t, 5.0, upd.GPA.Float64)
		assert.Equal(t, 5.0, upd.CGPA.Float64)
		assert.Equal(t, rec2.CreatedAt, upd.CreatedAt)
	})

	t.Run("single submission", func(t *testing.T) {
		svc := newService(t, "single")

		_, err := svc.Save(ctx, submission("s1", "Sem 1", academic.NewCourse{Name: "Math", Marks: 85, Credits: 3}))
		require.NoError(t, err)
		rec, err := svc.Save(ctx, submission("s1", "Sem 2",
			academic.NewCourse{Name: "Math", Marks: 85, Credits: 3},
			academic.NewCourse{Name: "Physics", Marks: 72, Credits: 4},
		))
		require.NoError(t, err)
		assert.Equal(t, 4.43, rec.GPA.Float64)
		assert.Equal(t, rec.GPA, rec.CGPA)
	})
}

func TestService_QueryGetDelete(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, "historical")

	a, _ := svc.Save(ctx, submission("s1", "Sem 1", academic.NewCourse{Name: "Math", Marks: 85, Credits: 3}))
	b, _ := svc.Save(ctx, submission("s2", "Sem 2", academic.NewCourse{Name: "Math", Marks: 50, Credits: 3}))

	tests := []struct {
		name     string
		filter   *academic.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "all", filter: &academic.QueryFilter{Semester: "all"}, ordering: []core.DBOrdering{{Field: "gpa"}}, want: []string{a.ID, b.ID}},
		{name: "semester", filter: &academic.QueryFilter{Semester: " Sem 2 "}, want: []string{b.ID}},
		{name: "search", filter: &academic.QueryFilter{Search: "student s1"}, want: []string{a.ID}},
		{name: "unknown ordering ignored", ordering: []core.DBOrdering{{Field: "gpa; --", Ascending: true}, {Field: "gpa", Ascending: true}}, want: []string{b.ID, a.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Query(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	semesters, err := svc.Semesters(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sem 1", "Sem 2"}, semesters)

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	require.NoError(t, svc.Delete(ctx, a.ID))
	_, err = svc.Get(ctx, a.ID)
	assert.Equal(t, academic.ErrNotFound, errors.Cause(err))

	_, err = svc.Update(ctx, a.ID, submission("s1", "Sem 1", academic.NewCourse{Name: "Math", Marks: 85, Credits: 3}))
	assert.Equal(t, academic.ErrNotFound, errors.Cause(err))
}

func TestNewRecord_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	academic.InitValidators(validate, translator)

	tests := []struct {
		name       string
		nr         academic.NewRecord
		wantFields map[string]string
	}{
		{
			name: "valid",
			nr:   submission(" s1 ", "2023/2024 - Semester 1", academic.NewCourse{Name: "Intro to C++", Marks: 85, Credits: 3}),
		},
		{
			name:       "missing everything",
			nr:         academic.NewRecord{},
			wantFields: map[string]string{"student": "this field is required", "semester": "this field is required", "subjects": "this field is required"},
		},
		{
			name: "duplicate courses",
			nr: submission("s1", "S1",
				academic.NewCourse{Name: "Math", Marks: 85, Credits: 3},
				academic.NewCourse{Name: " math", Marks: 60, Credits: 3},
			),
			wantFields: map[string]string{"subjects": "each course can only be submitted once per semester"},
		},
		{
			name:       "marks out of range",
			nr:         submission("s1", "S1", academic.NewCourse{Name: "Math", Marks: 101, Credits: 3}),
			wantFields: map[string]string{"marks": "marks must be 100 or less"},
		},
		{
			name:       "no credits",
			nr:         submission("s1", "S1", academic.NewCourse{Name: "Math", Marks: 10}),
			wantFields: map[string]string{"credits": "credits must be greater than 0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nr.Validate(validate)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				assert.Equal(t, "s1", tt.nr.StudentID)
				return
			}
			var vErrs validator.ValidationErrors
			require.True(t, errors.As(err, &vErrs), "got %v", err)
			assert.Equal(t, tt.wantFields, core.TranslateValidationErrors(vErrs, translator))
		})
	}
}
