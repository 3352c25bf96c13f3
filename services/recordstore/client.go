// Package recordstore talks to the Record Store, the REST service owning the students' GPA records.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/academic"
)

var ErrUnauthorized = errors.New("record store: unauthorized")

// StatusError is returned for any non 2xx response the client does not handle itself.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("record store: %s %s: %d %s", e.Method, e.Path, e.Code, strings.TrimSpace(e.Body))
}

type (
	Client struct {
		conf    core.RecordStoreConfig
		http    *rest.Client
		session *core.Session
		logger  core.Logger
	}

	loginResponse struct {
		Access   string `json:"access"`
		Refresh  string `json:"refresh"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Role     string `json:"role"`
	}

	recordPayload struct {
		Student     string          `json:"student"`
		StudentName string          `json:"student_name,omitempty"`
		Semester    string          `json:"semester"`
		Subjects    []coursePayload `json:"subjects"`
		GPA         null.Float64    `json:"gpa"`
		CGPA        null.Float64    `json:"cgpa"`
	}

	coursePayload struct {
		Name    string  `json:"name"`
		Marks   float64 `json:"marks"`
		Credits float64 `json:"credits"`
		Grade   string  `json:"grade,omitempty"`
	}

	// paginated is the envelope some Record Store deployments wrap lists in.
	paginated struct {
		Results []academic.RawRecord `json:"results"`
	}
)

var _ academic.Repository = (*Client)(nil) // interface compliance check

func NewClient(conf *core.Config, session *core.Session, logger core.Logger) (*Client, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(session, "session"),
		vala.IsNotNil(logger, "logger"),
		vala.StringNotEmpty(conf.RecordStore.BaseURL, "conf.RecordStore.BaseURL"),
	).Check(); err != nil {
		return nil, err
	}
	return &Client{
		conf:    conf.RecordStore,
		http:    &rest.Client{HTTPClient: &http.Client{Timeout: conf.RecordStore.Timeout}},
		session: session,
		logger:  logger,
	}, nil
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.conf.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) recordPath(id string) string {
	return strings.TrimRight(c.conf.GPARecordsPath, "/") + "/" + url.PathEscape(id) + "/"
}

func (c *Client) send(ctx context.Context, method rest.Method, path, token string, query map[string]string, body interface{}) (*rest.Response, error) {
	req := rest.Request{
		Method:      method,
		BaseURL:     c.url(path),
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: query,
	}
	if token != "" {
		req.Headers["Authorization"] = "Bearer " + token
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
		req.Body = b
		req.Headers["Content-Type"] = "application/json"
	}

	resp, err := c.http.SendWithContext(ctx, req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	return resp, nil
}

// refresh exchanges the refresh token for a new access token and persists it.
func (c *Client) refresh(ctx context.Context) (string, error) {
	_, refreshToken := c.session.Tokens()
	if refreshToken == "" {
		return "", ErrUnauthorized
	}
	resp, err := c.send(ctx, rest.Post, c.conf.RefreshPath, "", nil, map[string]string{"refresh": refreshToken})
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", ErrUnauthorized
	}

	var tokens struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if err = json.Unmarshal([]byte(resp.Body), &tokens); err != nil || tokens.Access == "" {
		return "", errors.New("record store: malformed refresh response")
	}
	c.session.SetTokens("", tokens.Access, tokens.Refresh)
	if err = c.session.Save(); err != nil {
		c.logger.Warn("saving refreshed session", err)
	}
	return tokens.Access, nil
}

// do sends an authenticated request. An expired access token is refreshed once and the request retried once.
// The response body is decoded into out when out is not nil.
func (c *Client) do(ctx context.Context, method rest.Method, path string, query map[string]string, body, out interface{}) error {
	access, _ := c.session.Tokens()
	if access == "" {
		return core.ErrNoSession
	}

	resp, err := c.send(ctx, method, path, access, query, body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		if access, err = c.refresh(ctx); err != nil {
			return err
		}
		if resp, err = c.send(ctx, method, path, access, query, body); err != nil {
			return err
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return academic.ErrNotFound
	case resp.StatusCode >= 300:
		return &StatusError{Method: string(method), Path: path, Code: resp.StatusCode, Body: resp.Body}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || strings.TrimSpace(resp.Body) == "" {
		return nil
	}
	return errors.Wrapf(json.Unmarshal([]byte(resp.Body), out), "decoding %s %s", method, path)
}

// Login authenticates against the Record Store and stores the tokens in the session.
func (c *Client) Login(ctx context.Context, username, password string) error {
	resp, err := c.send(ctx, rest.Post, c.conf.LoginPath, "", nil, map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		return &StatusError{Method: string(rest.Post), Path: c.conf.LoginPath, Code: resp.StatusCode, Body: resp.Body}
	}

	var lr loginResponse
	if err = json.Unmarshal([]byte(resp.Body), &lr); err != nil {
		return errors.Wrap(err, "decoding login response")
	}
	if lr.Access == "" {
		return errors.New("record store: login response carries no access token")
	}
	if lr.Username == "" {
		lr.Username = username
	}
	c.session.SetTokens(lr.Username, lr.Access, lr.Refresh)
	return errors.Wrap(c.session.Save(), "saving session")
}

// Logout forgets the stored tokens.
func (c *Client) Logout() error {
	return c.session.Clear()
}

func decodeRecords(body json.RawMessage) ([]academic.RawRecord, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	if body[0] == '{' {
		var page paginated
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, err
		}
		return page.Results, nil
	}
	var raws []academic.RawRecord
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, err
	}
	return raws, nil
}

func (c *Client) QueryRecords(ctx context.Context, filter *academic.QueryFilter, ordering []core.DBOrdering) ([]academic.Record, error) {
	query := make(map[string]string)
	if filter != nil {
		if filter.Semester != "" && !strings.EqualFold(filter.Semester, academic.AllSemesters) {
			query["semester"] = filter.Semester
		}
		if filter.StudentID != "" {
			query["student"] = filter.StudentID
		}
		if filter.Search != "" {
			query["search"] = filter.Search
		}
	}

	var body json.RawMessage
	if err := c.do(ctx, rest.Get, c.conf.RecordsPath, query, nil, &body); err != nil {
		return nil, err
	}
	raws, err := decodeRecords(body)
	if err != nil {
		return nil, errors.Wrap(err, "decoding records")
	}
	all, err := academic.NormalizeAll(raws)
	if err != nil {
		return nil, err
	}

	// the store may ignore some query params
	records := make([]academic.Record, 0, len(all))
	for _, rec := range all {
		if filter.Match(rec) {
			records = append(records, rec)
		}
	}
	academic.SortRecords(records, ordering)
	return records, nil
}

func (c *Client) GetRecord(ctx context.Context, id string) (academic.Record, error) {
	if id == "" {
		return academic.Record{}, academic.ErrNotFound
	}
	var raw academic.RawRecord
	if err := c.do(ctx, rest.Get, c.recordPath(id), nil, nil, &raw); err != nil {
		return academic.Record{}, err
	}
	return academic.Normalize(raw)
}

func newRecordPayload(rec academic.Record) recordPayload {
	p := recordPayload{
		Student:     rec.StudentID,
		StudentName: rec.StudentName,
		Semester:    rec.Semester,
		Subjects:    make([]coursePayload, 0, len(rec.Courses)),
		GPA:         rec.GPA,
		CGPA:        rec.CGPA,
	}
	for _, c := range rec.Courses {
		p.Subjects = append(p.Subjects, coursePayload{Name: c.Name, Marks: c.Marks, Credits: c.Credits, Grade: c.Grade})
	}
	return p
}

// saved reconciles the store's answer with what was sent; fields it leaves out keep the sent values.
func saved(sent academic.Record, raw academic.RawRecord) (academic.Record, error) {
	rec, err := academic.Normalize(raw)
	if err != nil {
		return academic.Record{}, err
	}
	if rec.ID == "" {
		rec.ID = sent.ID
	}
	if rec.StudentID == "" {
		rec.StudentID = sent.StudentID
	}
	if rec.StudentName == "" {
		rec.StudentName = sent.StudentName
	}
	if rec.Semester == "" {
		rec.Semester = sent.Semester
	}
	if !rec.GPA.Valid {
		rec.GPA, rec.CGPA = sent.GPA, sent.CGPA
	}
	if len(rec.Courses) == 0 {
		rec.Courses = sent.Courses
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = sent.CreatedAt
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = sent.UpdatedAt
	}
	return rec, nil
}

func (c *Client) CreateRecord(ctx context.Context, rec academic.Record) (academic.Record, error) {
	var raw academic.RawRecord
	if err := c.do(ctx, rest.Post, c.conf.GPARecordsPath, nil, newRecordPayload(rec), &raw); err != nil {
		return academic.Record{}, err
	}
	return saved(rec, raw)
}

func (c *Client) UpdateRecord(ctx context.Context, rec academic.Record) (academic.Record, error) {
	var raw academic.RawRecord
	if err := c.do(ctx, rest.Put, c.recordPath(rec.ID), nil, newRecordPayload(rec), &raw); err != nil {
		return academic.Record{}, err
	}
	return saved(rec, raw)
}

func (c *Client) DeleteRecords(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		err := c.do(ctx, rest.Delete, c.recordPath(id), nil, nil, nil)
		if err != nil && err != academic.ErrNotFound {
			return errors.Wrapf(err, "deleting record %s", id)
		}
	}
	return nil
}
