// Package scheduler generates and emails the performance report on a cron schedule.
package scheduler

import (
	"context"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/report"
)

const runTimeout = 10 * time.Minute

// ReportService is the part of report.Service a scheduled run needs.
type ReportService interface {
	Generate(ctx context.Context, req report.GenerateRequest, onProgress report.ProgressFunc) (*report.GeneratedReport, error)
	Deliver(ctx context.Context, id string, req report.DeliveryRequest) (report.DeliveryResult, error)
}

type Scheduler struct {
	cron       *cron.Cron
	svc        ReportService
	schedule   string
	semester   string
	recipients []mail.Address
	logger     core.Logger
}

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{err}, keysAndValues...)...)
}

func parseRecipients(addrs []string) ([]mail.Address, error) {
	recipients := make([]mail.Address, 0, len(addrs))
	for _, a := range addrs {
		if a = core.CleanString(a); a == "" {
			continue
		}
		addr, err := mail.ParseAddress(a)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing recipient %q", a)
		}
		recipients = append(recipients, *addr)
	}
	return recipients, nil
}

// New returns a Scheduler for conf.Reports. It returns nil when no schedule is configured.
func New(conf *core.Config, svc ReportService, logger core.Logger) (*Scheduler, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(svc, "svc"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}
	if conf.Reports.Schedule == "" {
		return nil, nil
	}

	recipients, err := parseRecipients(conf.Reports.Recipients)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, errors.New("reports.schedule is set but reports.recipients is empty")
	}

	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron:       cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		svc:        svc,
		schedule:   conf.Reports.Schedule,
		semester:   conf.Reports.Semester,
		recipients: recipients,
		logger:     logger,
	}
	if _, err = s.cron.AddFunc(s.schedule, s.run); err != nil {
		return nil, errors.Wrapf(err, "parsing reports.schedule %q", s.schedule)
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("scheduled report: "+report.StatusMessage(err), err)
	}
}

// RunOnce generates a report and emails it to the configured recipients.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	rep, err := s.svc.Generate(ctx, report.GenerateRequest{Semester: s.semester}, nil)
	if err != nil {
		return err
	}
	_, err = s.svc.Deliver(ctx, rep.ID, report.DeliveryRequest{
		Channel: report.ChannelEmail,
		To:      s.recipients,
		Subject: "Scheduled Student Performance Report - " + rep.GeneratedAt.Format("2006-01-02"),
	})
	if err != nil {
		return err
	}
	s.logger.Info("scheduled report sent", map[string]interface{}{"report": rep.ID, "recipients": len(s.recipients)})
	return nil
}

func (s *Scheduler) Start() {
	s.logger.Info("scheduling reports: " + s.schedule)
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running report to finish, or for ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
