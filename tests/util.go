// Package testutil holds helpers shared by the repositories' tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/grading"
	"github.com/trezcool/alama/storage/database"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// PrepareDB returns a freshly migrated test database.
// The test is skipped unless TEST_DATABASE_HOST points to a Postgres server.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()
	host := os.Getenv("TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("TEST_DATABASE_HOST not set")
	}

	conf := core.NewTestConfig()
	conf.Database = core.DatabaseConfig{
		Engine:        "postgres",
		User:          getenv("TEST_DATABASE_USER", "alama"),
		Password:      getenv("TEST_DATABASE_PASSWORD", "alama"),
		AdminUser:     getenv("TEST_DATABASE_ADMINUSER", "postgres"),
		AdminPassword: getenv("TEST_DATABASE_ADMINPASSWORD", "postgres"),
		Host:          host,
		Port:          getenv("TEST_DATABASE_PORT", "5432"),
		Name:          getenv("TEST_DATABASE_NAME", "alama_test"),
		DisableTLS:    true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	for _, cmd := range []string{"reset", "up"} {
		if err := database.Migrate(ctx, db, cmd); err != nil {
			t.Fatalf("PrepareDB() failed: %v", err)
		}
	}
	return db
}

// CreateRecord saves a semester record graded from marks, 3 credits per course.
func CreateRecord(
	t *testing.T,
	repo academic.Repository,
	studentID, name, semester string,
	createdAt time.Time,
	marks ...float64,
) academic.Record {
	t.Helper()
	courses := make([]grading.Course, 0, len(marks))
	for i, m := range marks {
		courses = append(courses, grading.Course{Name: fmt.Sprintf("Course %d", i+1), Marks: m, Credits: 3})
	}
	courses = grading.GradeCourses(courses)
	gpa := grading.ComputeGPA(courses)

	rec, err := repo.CreateRecord(context.Background(), academic.Record{
		StudentID:   studentID,
		StudentName: name,
		Semester:    semester,
		GPA:         null.Float64From(gpa),
		CGPA:        null.Float64From(gpa),
		Courses:     courses,
		CreatedAt:   createdAt.UTC(),
		UpdatedAt:   createdAt.UTC(),
	})
	if err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	return rec
}
