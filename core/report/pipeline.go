// Package report runs the report pipeline over academic records and renders, stores and
// delivers its results.
package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/stats"
)

// State is a step of the report pipeline.
type State string

const (
	StateIdle                State = "idle"
	StateValidating          State = "validating"
	StateAnalyzing           State = "analyzing"
	StateComputingStatistics State = "computing_statistics"
	StateCompiling           State = "compiling"
	StateDone                State = "done"
	StateFailed              State = "failed"
)

var (
	NowFunc = time.Now // mockable

	// NewID returns the id of a report generated at t.
	NewID = func(t time.Time) string {
		return fmt.Sprintf("REP-%d-%s", t.UnixMilli(), uuid.New().String()[:8])
	}

	stageMessages = map[State]string{
		StateValidating:          "Collecting and validating student data...",
		StateAnalyzing:           "Analyzing student performance...",
		StateComputingStatistics: "Calculating advanced statistics...",
		StateCompiling:           "Compiling final comprehensive report...",
	}

	// each stage accounts for a quarter of the progress bar
	stageOrder = []State{StateValidating, StateAnalyzing, StateComputingStatistics, StateCompiling}
)

// Progress is a cosmetic progress event. Only the report returned by Run is authoritative.
type Progress struct {
	State   State   `json:"state"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

type ProgressFunc func(Progress)

type Options struct {
	DataSource string
	Semester   string
	Concurrent bool // run the independent stages on separate goroutines
	OnProgress ProgressFunc
}

// Pipeline turns a record set into a GeneratedReport. A Pipeline runs one report at a time.
type Pipeline struct {
	logger core.Logger
	stages stages

	mu      sync.Mutex
	running bool
	state   State
	status  string
}

func NewPipeline(logger core.Logger) (*Pipeline, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}
	return &Pipeline{logger: logger, stages: defaultStages(), state: StateIdle}, nil
}

// State returns the current state and status message.
func (p *Pipeline) State() (State, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.status
}

func (p *Pipeline) setState(state State, status string) {
	p.mu.Lock()
	p.state, p.status = state, status
	p.mu.Unlock()
}

func progressOf(state State) float64 {
	for i, s := range stageOrder {
		if s == state {
			return float64(i * 25)
		}
	}
	return 100
}

func (p *Pipeline) enter(state State, onProgress ProgressFunc) {
	msg := stageMessages[state]
	p.setState(state, msg)
	if onProgress != nil {
		onProgress(Progress{State: state, Percent: progressOf(state), Message: msg})
	}
}

// stage runs fn once the context is checked, turning panics into a ComputationError.
func stage(ctx context.Context, state State, fn func()) (err error) {
	if err := ctx.Err(); err != nil {
		return &ComputationError{Stage: state, Err: err}
	}
	defer func() {
		if r := recover(); r != nil {
			err = &ComputationError{Stage: state, Err: errors.Errorf("panic: %v", r)}
		}
	}()
	fn()
	return nil
}

// Run generates a report from records. The records are copied before any stage runs.
// An empty record set is rejected with ErrNoData and leaves the pipeline idle.
// While a run is in progress, any other run is rejected with ErrInProgress and the state is left as is.
func (p *Pipeline) Run(ctx context.Context, records []academic.Record, opts Options) (*GeneratedReport, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil, ErrInProgress
	}
	if len(records) == 0 {
		p.state, p.status = StateIdle, StatusMessage(ErrNoData)
		p.mu.Unlock()
		return nil, ErrNoData
	}
	p.running = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	snapshot := academic.CloneRecords(records)
	start := NowFunc()

	var (
		rep *GeneratedReport
		err error
	)
	if opts.Concurrent {
		rep, err = p.runConcurrent(ctx, snapshot, opts)
	} else {
		rep, err = p.runSequential(ctx, snapshot, opts)
	}
	if err != nil {
		p.setState(StateFailed, StatusMessage(err))
		p.logger.Error("report generation failed", err)
		return nil, err
	}

	p.setState(StateDone, StatusMessage(nil))
	if opts.OnProgress != nil {
		opts.OnProgress(Progress{State: StateDone, Percent: 100, Message: StatusMessage(nil)})
	}
	p.logger.Info("report generated", map[string]interface{}{
		"report":   rep.ID,
		"records":  len(snapshot),
		"duration": NowFunc().Sub(start).String(),
	})
	return rep, nil
}

func (p *Pipeline) runSequential(ctx context.Context, records []academic.Record, opts Options) (*GeneratedReport, error) {
	var (
		dc DataCollection
		pa PerformanceAnalysis
		st stats.Summary
	)

	p.enter(StateValidating, opts.OnProgress)
	if err := stage(ctx, StateValidating, func() { dc = p.stages.collect(records) }); err != nil {
		return nil, err
	}
	p.enter(StateAnalyzing, opts.OnProgress)
	if err := stage(ctx, StateAnalyzing, func() { pa = p.stages.analyze(records) }); err != nil {
		return nil, err
	}
	p.enter(StateComputingStatistics, opts.OnProgress)
	if err := stage(ctx, StateComputingStatistics, func() { st = p.stages.statistics(records) }); err != nil {
		return nil, err
	}
	return p.compile(ctx, records, opts, dc, pa, st)
}

// runConcurrent runs the first three stages side by side over the same snapshot and joins them before compiling.
func (p *Pipeline) runConcurrent(ctx context.Context, records []academic.Record, opts Options) (*GeneratedReport, error) {
	var (
		dc DataCollection
		pa PerformanceAnalysis
		st stats.Summary
	)

	p.enter(StateValidating, opts.OnProgress)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return stage(gctx, StateValidating, func() { dc = p.stages.collect(records) })
	})
	g.Go(func() error {
		return stage(gctx, StateAnalyzing, func() { pa = p.stages.analyze(records) })
	})
	g.Go(func() error {
		return stage(gctx, StateComputingStatistics, func() { st = p.stages.statistics(records) })
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return p.compile(ctx, records, opts, dc, pa, st)
}

func (p *Pipeline) compile(
	ctx context.Context,
	records []academic.Record,
	opts Options,
	dc DataCollection,
	pa PerformanceAnalysis,
	st stats.Summary,
) (*GeneratedReport, error) {
	var cr CompiledReport
	p.enter(StateCompiling, opts.OnProgress)
	if err := stage(ctx, StateCompiling, func() { cr = p.stages.compile(records, dc, pa, st) }); err != nil {
		return nil, err
	}

	semester := opts.Semester
	if semester == "" {
		semester = academic.AllSemesters
	}
	source := opts.DataSource
	if source == "" {
		source = SourceAPI
	}

	generatedAt := NowFunc().UTC()
	return &GeneratedReport{
		ID:                  NewID(generatedAt),
		GeneratedAt:         generatedAt,
		DataSource:          source,
		Semester:            semester,
		DataCollection:      dc,
		PerformanceAnalysis: pa,
		Statistics:          st,
		CompiledReport:      cr,
		Summary: Summary{
			TotalStudents: len(records),
			Semesters:     academic.Semesters(records),
			DataQuality:   st.DataQuality.Status,
			ReportScope:   fmt.Sprintf("Analysis of %d student records", len(records)),
		},
	}, nil
}
