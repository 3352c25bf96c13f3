package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/alama/apps/api/echo"
	"github.com/trezcool/alama/core/grading"
)

func TestGradingAPI(t *testing.T) {
	app := setup(t)

	t.Run("scale", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/grading/scale", app.pupil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var bands []grading.Band
		decode(t, rec, &bands)
		assert.Equal(t, grading.Bands(), bands)
	})

	t.Run("gpa", func(t *testing.T) {
		body := map[string]interface{}{"courses": []map[string]interface{}{
			{"name": "Mathematics", "marks": 85, "credits": 3},
			{"name": "Physics", "marks": 65, "credits": 4},
		}}
		rec := app.do(t, http.MethodPost, "/v1/grading/gpa", app.pupil, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp GPAResponse
		decode(t, rec, &resp)
		assert.Equal(t, 4.14, resp.GPA)
		assert.Equal(t, 7.0, resp.TotalCredits)
		assert.Equal(t, grading.TierExcellent, resp.Tier)
		require.Len(t, resp.Courses, 2)
		assert.Equal(t, grading.GradeA, resp.Courses[0].Grade)
		assert.Equal(t, grading.GradeCPlus, resp.Courses[1].Grade)
	})

	t.Run("cgpa", func(t *testing.T) {
		body := map[string]interface{}{"semesters": []map[string]interface{}{
			{"name": "Year 1 Sem 1", "courses": []map[string]interface{}{{"name": "Math", "marks": 80, "credits": 3}}},
			{"name": "Year 1 Sem 2", "courses": []map[string]interface{}{{"name": "Stats", "marks": 60, "credits": 3}}},
		}}
		rec := app.do(t, http.MethodPost, "/v1/grading/cgpa", app.pupil, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp CGPAResponse
		decode(t, rec, &resp)
		assert.Equal(t, 4.0, resp.CGPA)
		assert.Equal(t, grading.HistoricalMean, resp.Strategy)
		require.Len(t, resp.Semesters, 2)
		assert.Equal(t, 5.0, resp.Semesters[0].GPA)

		body["strategy"] = "single"
		rec = app.do(t, http.MethodPost, "/v1/grading/cgpa", app.pupil, body)
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &resp)
		assert.Equal(t, 3.0, resp.CGPA)
	})

	t.Run("invalid marks", func(t *testing.T) {
		body := map[string]interface{}{"courses": []map[string]interface{}{{"name": "Math", "marks": 120, "credits": 3}}}
		rec := app.do(t, http.MethodPost, "/v1/grading/gpa", app.pupil, body)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "marks")
	})

	runTests(t, app, []httpTest{
		{name: "no courses", method: http.MethodPost, path: "/v1/grading/gpa", token: app.pupil, body: map[string]interface{}{}, wantCode: http.StatusBadRequest},
		{name: "unknown strategy", method: http.MethodPost, path: "/v1/grading/cgpa", token: app.pupil,
			body: map[string]interface{}{"strategy": "best", "semesters": []map[string]interface{}{
				{"courses": []map[string]interface{}{{"name": "Math", "marks": 80, "credits": 3}}},
			}}, wantCode: http.StatusBadRequest},
		{name: "no token", method: http.MethodGet, path: "/v1/grading/scale", wantCode: http.StatusUnauthorized},
	})
}
