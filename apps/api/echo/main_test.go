package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/alama/apps/api/echo"
	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/report"
	cloudsvc "github.com/trezcool/alama/services/cloud"
	emailsvc "github.com/trezcool/alama/services/email"
	inmemdb "github.com/trezcool/alama/storage/database/inmem"
)

type testApp struct {
	conf   *core.Config
	server *Server
	mail   *emailsvc.ConsoleService
	admin  string
	staff  string
	pupil  string
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := core.NewTestConfig()
	logger := &core.NopLogger{}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	academic.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)

	db := inmemdb.Open()
	records := inmemdb.NewRecordRepository(db)
	recordSvc, err := academic.NewService(conf, records, logger)
	require.NoError(t, err)

	mail := emailsvc.NewConsoleServiceMock(conf)
	uploader, err := cloudsvc.NewLocalUploader(t.TempDir(), "https://files.test")
	require.NoError(t, err)
	deliverer, err := report.NewDeliverer(mail, uploader, logger)
	require.NoError(t, err)
	reportSvc, err := report.NewService(conf, records, inmemdb.NewReportRepository(db), deliverer, logger)
	require.NoError(t, err)

	app := &testApp{
		conf: conf,
		mail: mail,
		server: NewServer(ServerDeps{
			Conf:       conf,
			Logger:     logger,
			RecordSvc:  recordSvc,
			ReportSvc:  reportSvc,
			Validate:   validate,
			Translator: translator,
		}),
	}
	app.admin = app.token(t, "u1", RoleAdmin)
	app.staff = app.token(t, "u2", RoleLecturer)
	app.pupil = app.token(t, "u3", RoleStudent)
	return app
}

func (app *testApp) token(t *testing.T, subject string, roles ...string) string {
	t.Helper()
	token, err := GenerateToken(app.conf, NewClaims(app.conf, subject, subject, subject+"@test.cd", roles))
	require.NoError(t, err)
	return token
}

func (app *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func runTests(t *testing.T, app *testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestHome(t *testing.T) {
	app := setup(t)
	rec := app.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Alama API!", rec.Body.String())
}

func TestTokenRefresh(t *testing.T) {
	app := setup(t)

	rec := app.do(t, http.MethodPost, "/v1/auth/token-refresh", app.staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp TokenResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)

	rec = app.do(t, http.MethodPost, "/v1/auth/token-refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired := NewClaims(app.conf, "u2", "u2", "", []string{RoleLecturer}, 1)
	token, err := GenerateToken(app.conf, expired)
	require.NoError(t, err)
	rec = app.do(t, http.MethodPost, "/v1/auth/token-refresh", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
