package report

import (
	"bytes"
	"context"
	"io"
	"net/mail"
	"path"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/stats"
)

const (
	ChannelEmail = "email"
	ChannelCloud = "cloud"

	defaultEmailMessage = "Please find attached the student performance report."
)

var errNotConfigured = errors.New("channel not configured")

type (
	// Uploader stores a file and returns the URL it can be fetched at.
	Uploader interface {
		Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	}

	// Remover is implemented by uploaders that can also take a file down.
	Remover interface {
		Delete(ctx context.Context, key string) error
	}

	EmailRequest struct {
		To      []mail.Address
		Subject string
		Message string
	}

	reportEmailData struct {
		Message       string
		GeneratedAt   string
		ReportID      string
		TotalStudents int
		AverageGPA    float64
		Semester      string
		DataQuality   stats.QualityStatus
	}

	// Deliverer hands archived reports to the export collaborators.
	// A nil collaborator makes its channel fail with a DeliveryError.
	Deliverer struct {
		email    core.EmailService
		uploader Uploader
		logger   core.Logger
	}
)

func NewDeliverer(email core.EmailService, uploader Uploader, logger core.Logger) (*Deliverer, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}
	return &Deliverer{email: email, uploader: uploader, logger: logger}, nil
}

// Email sends the report summary with its text, CSV and JSON renderings attached.
func (d *Deliverer) Email(ctx context.Context, a *Archive, req EmailRequest) error {
	if d.email == nil {
		return &DeliveryError{Channel: ChannelEmail, Err: errNotConfigured}
	}
	if len(req.To) == 0 {
		return &DeliveryError{Channel: ChannelEmail, Err: errors.New("no recipients")}
	}

	rep := a.Report
	if req.Subject == "" {
		req.Subject = "Student Performance Report - " + rep.GeneratedAt.Format("2006-01-02")
	}
	if req.Message == "" {
		req.Message = defaultEmailMessage
	}

	msg := &core.EmailMessage{
		To:           req.To,
		Subject:      req.Subject,
		TemplateName: "report",
		TemplateData: reportEmailData{
			Message:       req.Message,
			GeneratedAt:   rep.GeneratedAt.Format("2006-01-02 15:04:05 MST"),
			ReportID:      rep.ID,
			TotalStudents: rep.Summary.TotalStudents,
			AverageGPA:    rep.Statistics.Average,
			Semester:      rep.Semester,
			DataQuality:   rep.Summary.DataQuality,
		},
	}
	for _, f := range []Format{FormatText, FormatCSV, FormatJSON} {
		r, err := Render(a, f)
		if err != nil {
			return &DeliveryError{Channel: ChannelEmail, Err: err}
		}
		msg.Attach(r.Content, "report."+string(f), r.ContentType)
	}

	if err := d.email.Send(ctx, msg); err != nil {
		return &DeliveryError{Channel: ChannelEmail, Err: err}
	}
	d.logger.Info("report emailed", map[string]interface{}{"report": rep.ID, "recipients": len(req.To)})
	return nil
}

func uploadKey(a *Archive, format Format) string {
	return path.Join(a.Report.ID, format.FileName(a.Report.GeneratedAt))
}

func (d *Deliverer) canRemove() bool {
	_, ok := d.uploader.(Remover)
	return ok
}

// RemoveUploads takes down every rendering of the report that may have been uploaded.
// Failures are logged: the archive is already gone by then.
func (d *Deliverer) RemoveUploads(ctx context.Context, a *Archive) {
	rm, ok := d.uploader.(Remover)
	if !ok {
		return
	}
	for _, f := range Formats {
		key := uploadKey(a, f)
		if err := rm.Delete(ctx, key); err != nil {
			d.logger.Warn("removing uploaded report failed", err, map[string]interface{}{"report": a.Report.ID, "key": key})
		}
	}
}

// Upload stores one rendering of the report and returns its URL.
func (d *Deliverer) Upload(ctx context.Context, a *Archive, format Format) (string, error) {
	if d.uploader == nil {
		return "", &DeliveryError{Channel: ChannelCloud, Err: errNotConfigured}
	}
	r, err := Render(a, format)
	if err != nil {
		return "", &DeliveryError{Channel: ChannelCloud, Err: err}
	}

	key := uploadKey(a, format)
	url, err := d.uploader.Upload(ctx, key, bytes.NewReader(r.Content), r.ContentType)
	if err != nil {
		return "", &DeliveryError{Channel: ChannelCloud, Err: err}
	}
	d.logger.Info("report uploaded", map[string]interface{}{"report": a.Report.ID, "url": url})
	return url, nil
}
