package recordstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/grading"
)

const recordsJSON = `[
	{"id": 1, "student": {"id": 7, "username": "alice"}, "student_name": "Alice", "semester": "S1",
	 "gpa": "3.90", "cgpa": 3.9, "subjects": [{"name": "Math", "marks": 85, "credits": 3}],
	 "timestamp": "2024-01-02T10:00:00Z"},
	{"_id": "b2", "student_id": "s2", "student_name": "Bob", "semester": "S2", "gpa": 2.5, "subjects": []}
]`

// fakeStore mimics the Record Store auth flow: "fresh" is the only valid access token.
type fakeStore struct {
	refreshes  int32
	refreshOK  bool
	lastMethod string
	lastBody   map[string]interface{}
}

func (fs *fakeStore) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"access": "fresh", "refresh": "r1", "username": "admin", "role": "admin"}`))
	})
	mux.HandleFunc("/api/accounts/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fs.refreshes, 1)
		if !fs.refreshOK {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"access": "fresh"}`))
	})
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("/api/students-records/", authed(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(recordsJSON))
	}))
	mux.HandleFunc("/api/gpa-records/", authed(func(w http.ResponseWriter, r *http.Request) {
		fs.lastMethod = r.Method
		fs.lastBody = nil
		_ = json.NewDecoder(r.Body).Decode(&fs.lastBody)
		switch {
		case r.URL.Path == "/api/gpa-records/missing/":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 42, "timestamp": "2024-03-01T00:00:00Z"}`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPut:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"semester": ["This field is required."]}`))
		default:
			_, _ = w.Write([]byte(`{"id": "b2", "student_id": "s2", "semester": "S2", "gpa": 2.5}`))
		}
	}))
	return mux
}

func newTestClient(t *testing.T, fs *fakeStore, access, refresh string) (*Client, *core.Session, string) {
	t.Helper()
	srv := httptest.NewServer(fs.handler())
	t.Cleanup(srv.Close)

	conf := core.NewTestConfig()
	conf.RecordStore = core.RecordStoreConfig{
		BaseURL:        srv.URL + "/api",
		RecordsPath:    "/students-records/",
		GPARecordsPath: "/gpa-records/",
		LoginPath:      "/accounts/login/",
		RefreshPath:    "/accounts/token/refresh/",
		Timeout:        5 * time.Second,
	}
	sessionFile := filepath.Join(t.TempDir(), "session.json")
	session := core.NewSession(sessionFile)
	if access != "" {
		session.SetTokens("admin", access, refresh)
	}
	c, err := NewClient(conf, session, &core.NopLogger{})
	require.NoError(t, err)
	return c, session, sessionFile
}

func TestClient_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		c, session, sessionFile := newTestClient(t, &fakeStore{}, "", "")
		require.NoError(t, c.Login(ctx, "admin", "s3cret"))

		access, refresh := session.Tokens()
		assert.Equal(t, "fresh", access)
		assert.Equal(t, "r1", refresh)
		assert.Equal(t, "admin", session.Username())

		reloaded := core.NewSession(sessionFile)
		require.NoError(t, reloaded.Load())
		assert.True(t, reloaded.IsAuthenticated())

		require.NoError(t, c.Logout())
		assert.False(t, session.IsAuthenticated())
	})

	t.Run("invalid credentials", func(t *testing.T) {
		c, session, _ := newTestClient(t, &fakeStore{}, "", "")
		assert.Equal(t, ErrUnauthorized, c.Login(ctx, "admin", "nope"))
		assert.False(t, session.IsAuthenticated())
	})
}

func TestClient_QueryRecords(t *testing.T) {
	ctx := context.Background()

	t.Run("not logged in", func(t *testing.T) {
		c, _, _ := newTestClient(t, &fakeStore{}, "", "")
		_, err := c.QueryRecords(ctx, nil, nil)
		assert.Equal(t, core.ErrNoSession, err)
	})

	t.Run("normalized, newest first", func(t *testing.T) {
		fs := &fakeStore{}
		c, _, _ := newTestClient(t, fs, "fresh", "r1")
		records, err := c.QueryRecords(ctx, nil, nil)
		require.NoError(t, err)
		require.Len(t, records, 2)

		alice := records[0]
		assert.Equal(t, "1", alice.ID)
		assert.Equal(t, "7", alice.StudentID)
		assert.Equal(t, "Alice", alice.StudentName)
		assert.Equal(t, null.Float64From(3.9), alice.GPA)
		require.Len(t, alice.Courses, 1)
		assert.Equal(t, grading.GradeA, alice.Courses[0].Grade)
		assert.Equal(t, "b2", records[1].ID)
		assert.Zero(t, fs.refreshes)
	})

	t.Run("semester filter applied locally", func(t *testing.T) {
		c, _, _ := newTestClient(t, &fakeStore{}, "fresh", "r1")
		records, err := c.QueryRecords(ctx, &academic.QueryFilter{Semester: "S2"}, nil)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "Bob", records[0].StudentName)
	})

	t.Run("expired token is refreshed once", func(t *testing.T) {
		fs := &fakeStore{refreshOK: true}
		c, session, sessionFile := newTestClient(t, fs, "stale", "r1")
		records, err := c.QueryRecords(ctx, nil, []core.DBOrdering{{Field: "student_name", Ascending: true}})
		require.NoError(t, err)
		assert.Len(t, records, 2)
		assert.Equal(t, int32(1), fs.refreshes)

		access, refresh := session.Tokens()
		assert.Equal(t, "fresh", access)
		assert.Equal(t, "r1", refresh, "refresh token kept")

		reloaded := core.NewSession(sessionFile)
		require.NoError(t, reloaded.Load())
		access, _ = reloaded.Tokens()
		assert.Equal(t, "fresh", access, "refreshed token persisted")
	})

	t.Run("refresh rejected", func(t *testing.T) {
		fs := &fakeStore{}
		c, _, _ := newTestClient(t, fs, "stale", "r1")
		_, err := c.QueryRecords(ctx, nil, nil)
		assert.Equal(t, ErrUnauthorized, err)
		assert.Equal(t, int32(1), fs.refreshes)
	})
}

func TestDecodeRecords(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"array", recordsJSON, 2},
		{"envelope", `{"count": 2, "results": ` + recordsJSON + `}`, 2},
		{"empty", "  ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raws, err := decodeRecords(json.RawMessage(tt.body))
			require.NoError(t, err)
			assert.Len(t, raws, tt.want)
		})
	}

	_, err := decodeRecords(json.RawMessage(`"nope"`))
	assert.Error(t, err)
}

func TestClient_Records(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{}
	c, _, _ := newTestClient(t, fs, "fresh", "r1")

	rec := academic.Record{
		StudentID:   "s1",
		StudentName: "Alice",
		Semester:    "S1",
		GPA:         null.Float64From(3.9),
		CGPA:        null.Float64From(3.75),
		Courses:     []grading.Course{{Name: "Math", Marks: 85, Credits: 3, Grade: grading.GradeA}},
	}

	t.Run("create", func(t *testing.T) {
		created, err := c.CreateRecord(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, "42", created.ID)
		assert.Equal(t, "s1", created.StudentID)
		assert.Equal(t, 3.75, created.CGPA.Float64)
		assert.Len(t, created.Courses, 1)
		assert.Equal(t, 2024, created.CreatedAt.Year())

		assert.Equal(t, http.MethodPost, fs.lastMethod)
		assert.Equal(t, "s1", fs.lastBody["student"])
		assert.Equal(t, 3.9, fs.lastBody["gpa"])
		assert.Len(t, fs.lastBody["subjects"], 1)
	})

	t.Run("get", func(t *testing.T) {
		got, err := c.GetRecord(ctx, "b2")
		require.NoError(t, err)
		assert.Equal(t, "s2", got.StudentID)

		_, err = c.GetRecord(ctx, "missing")
		assert.Equal(t, academic.ErrNotFound, err)
	})

	t.Run("update rejected", func(t *testing.T) {
		rec.ID = "b2"
		_, err := c.UpdateRecord(ctx, rec)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.DeleteRecords(ctx, "b2", "missing"))
		assert.Equal(t, http.MethodDelete, fs.lastMethod)
	})
}
