package echoapi_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/alama/apps/api/echo"
	"github.com/trezcool/alama/core/report"
)

func TestReportAPI(t *testing.T) {
	app := setup(t)

	t.Run("no data", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/reports", app.staff, map[string]interface{}{})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var resp httpErr
		decode(t, rec, &resp)
		assert.Equal(t, "no data available", resp.Error)

		rec = app.do(t, http.MethodGet, "/v1/reports/status", app.staff, nil)
		var status StatusResponse
		decode(t, rec, &status)
		assert.Equal(t, report.StateIdle, status.State)
		assert.Equal(t, "no data available", status.Message)
	})

	app.createRecord(t, newRecordBody("s1", "Alice", "S1", 85, 80))
	app.createRecord(t, newRecordBody("s2", "Bob", "S1", 50, 45))
	app.createRecord(t, newRecordBody("s1", "Alice", "S2", 70))

	var rep report.GeneratedReport
	t.Run("generate", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/reports", app.staff, map[string]interface{}{"semester": "S1"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &rep)

		assert.True(t, strings.HasPrefix(rep.ID, "REP-"))
		assert.Equal(t, "S1", rep.Semester)
		assert.Equal(t, "Test Data", rep.DataSource)
		assert.Equal(t, 2, rep.Summary.TotalStudents)
		assert.Equal(t, 3.38, rep.Statistics.Average)
		assert.Equal(t, 1, rep.Statistics.PerformanceDistribution.Excellent)
		assert.Equal(t, 1, rep.Statistics.PerformanceDistribution.NeedsImprovement)

		rec = app.do(t, http.MethodGet, "/v1/reports/status", app.staff, nil)
		var status StatusResponse
		decode(t, rec, &status)
		assert.Equal(t, report.StateDone, status.State)
		assert.Equal(t, "report generated successfully", status.Message)
	})

	t.Run("archive", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/reports", app.staff, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var headers []report.ArchiveHeader
		decode(t, rec, &headers)
		require.Len(t, headers, 1)
		assert.Equal(t, rep.ID, headers[0].ID)
		assert.Equal(t, 2, headers[0].TotalStudents)

		rec = app.do(t, http.MethodGet, "/v1/reports/"+rep.ID, app.staff, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got report.GeneratedReport
		decode(t, rec, &got)
		assert.Equal(t, rep.Statistics, got.Statistics)
	})

	t.Run("export", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/reports/"+rep.ID+"/export?format=json", app.staff, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `attachment; filename="`+report.FormatJSON.FileName(rep.GeneratedAt)+`"`, rec.Header().Get("Content-Disposition"))
		assert.Contains(t, rec.Body.String(), `"report_id": "`+rep.ID+`"`)

		rec = app.do(t, http.MethodGet, "/v1/reports/"+rep.ID+"/export", app.staff, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Body.String(), "Student ID,Student Name"))
	})

	t.Run("deliver by email", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/reports/"+rep.ID+"/deliver", app.staff, map[string]interface{}{
			"channel": "email",
			"to":      []string{"Dean <dean@test.cd>"},
			"message": "Semester 1 results",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		sent := app.mail.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "dean@test.cd", sent[0].To[0].Address)
		assert.Len(t, sent[0].Attachments, 3)
	})

	t.Run("deliver to cloud", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/reports/"+rep.ID+"/deliver", app.staff, map[string]interface{}{
			"channel": "cloud",
			"format":  "txt",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res report.DeliveryResult
		decode(t, rec, &res)
		assert.Equal(t, "https://files.test/"+rep.ID+"/"+report.FormatText.FileName(rep.GeneratedAt), res.URL)
	})

	runTests(t, app, []httpTest{
		{name: "student cannot generate", method: http.MethodPost, path: "/v1/reports", token: app.pupil, wantCode: http.StatusForbidden},
		{name: "email without recipients", method: http.MethodPost, path: "/v1/reports/" + rep.ID + "/deliver", token: app.staff,
			body: map[string]interface{}{"channel": "email"}, wantCode: http.StatusBadGateway},
		{name: "invalid recipient", method: http.MethodPost, path: "/v1/reports/" + rep.ID + "/deliver", token: app.staff,
			body: map[string]interface{}{"channel": "email", "to": []string{"dean"}}, wantCode: http.StatusBadRequest},
		{name: "unknown channel", method: http.MethodPost, path: "/v1/reports/" + rep.ID + "/deliver", token: app.staff,
			body: map[string]interface{}{"channel": "fax"}, wantCode: http.StatusBadRequest},
		{name: "unknown upload format", method: http.MethodPost, path: "/v1/reports/" + rep.ID + "/deliver", token: app.staff,
			body: map[string]interface{}{"channel": "cloud", "format": "pdf"}, wantCode: http.StatusBadRequest},
		{name: "unknown format", method: http.MethodGet, path: "/v1/reports/" + rep.ID + "/export?format=pdf", token: app.staff, wantCode: http.StatusBadRequest},
		{name: "missing report", method: http.MethodGet, path: "/v1/reports/REP-0", token: app.staff, wantCode: http.StatusNotFound},
		{name: "lecturer cannot delete", method: http.MethodDelete, path: "/v1/reports/" + rep.ID, token: app.staff, wantCode: http.StatusForbidden},
		{name: "admin deletes", method: http.MethodDelete, path: "/v1/reports/" + rep.ID, token: app.admin, wantCode: http.StatusNoContent},
		{name: "deleted", method: http.MethodGet, path: "/v1/reports/" + rep.ID, token: app.staff, wantCode: http.StatusNotFound},
	})
}
