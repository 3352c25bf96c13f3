package report

import (
	"context"
	"net/mail"
	"strings"
	"sync"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/academic"
)

type (
	// Source provides the records reports are computed from (Record Store or database).
	Source interface {
		QueryRecords(ctx context.Context, filter *academic.QueryFilter, ordering []core.DBOrdering) ([]academic.Record, error)
	}

	Repository interface {
		CreateArchive(ctx context.Context, a Archive) error
		GetArchive(ctx context.Context, id string) (Archive, error)
		QueryArchives(ctx context.Context) ([]ArchiveHeader, error) // newest first
		DeleteArchives(ctx context.Context, ids ...string) error
	}

	GenerateRequest struct {
		Semester   string `json:"semester" query:"semester"`
		Concurrent bool   `json:"concurrent"`
	}

	DeliveryRequest struct {
		Channel string         `json:"channel" validate:"required,oneof=email cloud"`
		To      []mail.Address `json:"-"`
		Subject string         `json:"subject" validate:"max=255"`
		Message string         `json:"message" validate:"max=5000"`
		Format  Format         `json:"format"` // cloud uploads only
	}

	DeliveryResult struct {
		Channel string `json:"channel"`
		URL     string `json:"url,omitempty"`
	}

	Service struct {
		source     Source
		repo       Repository
		pipeline   *Pipeline
		deliverer  *Deliverer
		logger     core.Logger
		dataSource string
		concurrent bool

		mu    sync.RWMutex
		cache map[string][]academic.Record // last fetched records, by semester
	}
)

func NewService(
	conf *core.Config,
	source Source,
	repo Repository,
	deliverer *Deliverer,
	logger core.Logger,
) (*Service, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(source, "source"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(deliverer, "deliverer"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}
	pipeline, err := NewPipeline(logger)
	if err != nil {
		return nil, err
	}
	dataSource := conf.Reports.DataSource
	if dataSource == "" {
		dataSource = SourceAPI
	}
	return &Service{
		source:     source,
		repo:       repo,
		pipeline:   pipeline,
		deliverer:  deliverer,
		logger:     logger,
		dataSource: dataSource,
		concurrent: conf.Reports.Concurrent,
		cache:      make(map[string][]academic.Record),
	}, nil
}

// Pipeline returns the service's pipeline, to observe its state.
func (svc *Service) Pipeline() *Pipeline { return svc.pipeline }

func cacheKey(semester string) string {
	if semester == "" {
		return academic.AllSemesters
	}
	return semester
}

// fetch loads the records of semester, falling back to the last records fetched for it.
func (svc *Service) fetch(ctx context.Context, semester string) ([]academic.Record, string, error) {
	filter := &academic.QueryFilter{Semester: semester}
	filter.Clean()
	key := cacheKey(filter.Semester)

	records, err := svc.source.QueryRecords(ctx, filter, []core.DBOrdering{{Field: "created_at", Ascending: true}})
	if err == nil {
		svc.mu.Lock()
		svc.cache[key] = academic.CloneRecords(records)
		svc.mu.Unlock()
		return records, svc.dataSource, nil
	}

	svc.mu.RLock()
	cached, ok := svc.cache[key]
	svc.mu.RUnlock()
	if !ok {
		return nil, "", &SourceError{Err: err}
	}
	svc.logger.Warn("fetching records failed, using cached data", err)
	return academic.CloneRecords(cached), SourceCached, nil
}

// Generate runs the pipeline over the semester's records and archives the result.
func (svc *Service) Generate(ctx context.Context, req GenerateRequest, onProgress ProgressFunc) (*GeneratedReport, error) {
	records, source, err := svc.fetch(ctx, req.Semester)
	if err != nil {
		return nil, err
	}

	semester := core.CleanString(req.Semester)
	if strings.EqualFold(semester, academic.AllSemesters) {
		semester = ""
	}
	rep, err := svc.pipeline.Run(ctx, records, Options{
		DataSource: source,
		Semester:   semester,
		Concurrent: req.Concurrent || svc.concurrent,
		OnProgress: onProgress,
	})
	if err != nil {
		return nil, err
	}

	if err := svc.repo.CreateArchive(ctx, Archive{Report: *rep, Records: records}); err != nil {
		return nil, errors.Wrap(err, "archiving report")
	}
	return rep, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Archive, error) {
	return svc.repo.GetArchive(ctx, core.CleanString(id))
}

// Query lists the archived reports, newest first.
func (svc *Service) Query(ctx context.Context) ([]ArchiveHeader, error) {
	headers, err := svc.repo.QueryArchives(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying reports")
	}
	return headers, nil
}

// Delete drops the archived reports, and their uploaded renderings when the uploader can remove files.
func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	var archives []Archive
	if svc.deliverer.canRemove() {
		for _, id := range ids {
			if a, err := svc.repo.GetArchive(ctx, id); err == nil {
				archives = append(archives, a)
			}
		}
	}
	if err := svc.repo.DeleteArchives(ctx, ids...); err != nil {
		return errors.Wrap(err, "deleting reports")
	}
	for i := range archives {
		svc.deliverer.RemoveUploads(ctx, &archives[i])
	}
	return nil
}

// Export renders the archived report with the given id.
func (svc *Service) Export(ctx context.Context, id string, format Format) (*Rendering, error) {
	a, err := svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return Render(&a, format)
}

// Deliver emails or uploads the archived report with the given id.
func (svc *Service) Deliver(ctx context.Context, id string, req DeliveryRequest) (DeliveryResult, error) {
	a, err := svc.Get(ctx, id)
	if err != nil {
		return DeliveryResult{}, err
	}

	res := DeliveryResult{Channel: req.Channel}
	switch req.Channel {
	case ChannelEmail:
		err = svc.deliverer.Email(ctx, &a, EmailRequest{To: req.To, Subject: req.Subject, Message: req.Message})
	case ChannelCloud:
		format := FormatJSON
		if req.Format != "" {
			if format, err = ParseFormat(string(req.Format)); err != nil {
				return DeliveryResult{}, err
			}
		}
		res.URL, err = svc.deliverer.Upload(ctx, &a, format)
	default:
		err = core.NewValidationError(nil, core.FieldError{Field: "channel", Error: "unknown delivery channel"})
	}
	if err != nil {
		return DeliveryResult{}, err
	}
	return res, nil
}
