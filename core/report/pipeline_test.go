package report

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/academic"
)

func fixedClock(t *testing.T) time.Time {
	t.Helper()
	now := time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC)
	NowFunc = func() time.Time { return now }
	NewID = func(time.Time) string { return "REP-1" }
	t.Cleanup(func() {
		NowFunc = time.Now
		NewID = defaultNewID
	})
	return now
}

var defaultNewID = NewID

func newPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := NewPipeline(&core.NopLogger{})
	require.NoError(t, err)
	return p
}

func TestNewPipeline(t *testing.T) {
	_, err := NewPipeline(nil)
	assert.Error(t, err)
}

func TestPipeline_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("no data", func(t *testing.T) {
		p := newPipeline(t)
		var events []Progress
		rep, err := p.Run(ctx, nil, Options{OnProgress: func(pr Progress) { events = append(events, pr) }})

		assert.Nil(t, rep)
		assert.True(t, errors.Is(err, ErrNoData))
		assert.Empty(t, events, "never enters validating")
		state, status := p.State()
		assert.Equal(t, StateIdle, state)
		assert.Equal(t, "no data available", status)
	})

	t.Run("sequential", func(t *testing.T) {
		now := fixedClock(t)
		p := newPipeline(t)

		var events []Progress
		rep, err := p.Run(ctx, sampleRecords(), Options{
			Semester:   "",
			OnProgress: func(pr Progress) { events = append(events, pr) },
		})
		require.NoError(t, err)

		states := make([]State, 0, len(events))
		percents := make([]float64, 0, len(events))
		for _, e := range events {
			states = append(states, e.State)
			percents = append(percents, e.Percent)
		}
		assert.Equal(t, []State{StateValidating, StateAnalyzing, StateComputingStatistics, StateCompiling, StateDone}, states)
		assert.Equal(t, []float64{0, 25, 50, 75, 100}, percents)

		assert.Equal(t, "REP-1", rep.ID)
		assert.Equal(t, now, rep.GeneratedAt)
		assert.Equal(t, SourceAPI, rep.DataSource)
		assert.Equal(t, academic.AllSemesters, rep.Semester)
		assert.Equal(t, Summary{
			TotalStudents: 5,
			Semesters:     []string{"S1", "S2"},
			DataQuality:   "Good",
			ReportScope:   "Analysis of 5 student records",
		}, rep.Summary)
		assert.Equal(t, 3.5, rep.Statistics.Average)
		assert.Equal(t, 4, rep.DataCollection.ValidRecords)

		state, status := p.State()
		assert.Equal(t, StateDone, state)
		assert.Equal(t, "report generated successfully", status)
	})

	t.Run("idempotent and concurrent", func(t *testing.T) {
		p := newPipeline(t)
		records := sampleRecords()

		first, err := p.Run(ctx, records, Options{})
		require.NoError(t, err)
		second, err := p.Run(ctx, records, Options{})
		require.NoError(t, err)
		concurrent, err := p.Run(ctx, records, Options{Concurrent: true})
		require.NoError(t, err)

		assert.Equal(t, first.Statistics, second.Statistics)
		assert.Equal(t, first.CompiledReport.KeyFindings, second.CompiledReport.KeyFindings)

		// only the id and the timestamp differ
		concurrent.ID, concurrent.GeneratedAt = first.ID, first.GeneratedAt
		assert.Equal(t, first, concurrent)
	})

	t.Run("runs over a snapshot", func(t *testing.T) {
		p := newPipeline(t)
		p.stages.analyze = func(records []academic.Record) PerformanceAnalysis {
			records[0].StudentName = "Mallory"
			records[0].Courses[0].Name = "Forged"
			return Analyze(records)
		}

		records := sampleRecords()
		_, err := p.Run(ctx, records, Options{})
		require.NoError(t, err)
		assert.Equal(t, "Alice", records[0].StudentName)
		assert.Equal(t, "Math", records[0].Courses[0].Name)
	})

	stageFailures := []struct {
		name       string
		concurrent bool
	}{
		{"failing stage", false},
		{"failing stage, concurrent", true},
	}
	for _, tt := range stageFailures {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t)
			p.stages.analyze = func([]academic.Record) PerformanceAnalysis { panic("unexpected record shape") }

			var events []Progress
			rep, err := p.Run(ctx, sampleRecords(), Options{
				Concurrent: tt.concurrent,
				OnProgress: func(pr Progress) { events = append(events, pr) },
			})
			assert.Nil(t, rep)

			var compErr *ComputationError
			require.True(t, errors.As(err, &compErr))
			assert.Equal(t, StateAnalyzing, compErr.Stage)
			assert.Contains(t, err.Error(), "unexpected record shape")
			for _, e := range events {
				assert.NotEqual(t, StateDone, e.State)
			}

			state, status := p.State()
			assert.Equal(t, StateFailed, state)
			assert.Equal(t, "computation failed", status)

			// the next run starts clean
			p.stages = defaultStages()
			rep, err = p.Run(ctx, sampleRecords(), Options{})
			require.NoError(t, err)
			assert.NotNil(t, rep)
		})
	}

	t.Run("cancelled", func(t *testing.T) {
		p := newPipeline(t)
		cctx, cancel := context.WithCancel(ctx)
		p.stages.collect = func(records []academic.Record) DataCollection {
			cancel()
			return Collect(records)
		}

		rep, err := p.Run(cctx, sampleRecords(), Options{})
		assert.Nil(t, rep)
		assert.True(t, errors.Is(err, context.Canceled))
		var compErr *ComputationError
		require.True(t, errors.As(err, &compErr))
		assert.Equal(t, StateAnalyzing, compErr.Stage, "checked at the next stage boundary")

		state, _ := p.State()
		assert.Equal(t, StateFailed, state)
	})

	t.Run("empty run while running", func(t *testing.T) {
		p := newPipeline(t)
		entered, release := make(chan struct{}), make(chan struct{})
		p.stages.analyze = func(records []academic.Record) PerformanceAnalysis {
			close(entered)
			<-release
			return Analyze(records)
		}

		done := make(chan error, 1)
		go func() {
			_, err := p.Run(ctx, sampleRecords(), Options{})
			done <- err
		}()
		<-entered

		_, err := p.Run(ctx, nil, Options{})
		assert.Equal(t, ErrInProgress, err)
		state, status := p.State()
		assert.Equal(t, StateAnalyzing, state)
		assert.Equal(t, "Analyzing student performance...", status)

		close(release)
		require.NoError(t, <-done)
		state, _ = p.State()
		assert.Equal(t, StateDone, state)
	})

	t.Run("one run at a time", func(t *testing.T) {
		p := newPipeline(t)
		p.running = true
		_, err := p.Run(ctx, sampleRecords(), Options{})
		assert.Equal(t, ErrInProgress, err)
	})
}

func TestStatusMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "report generated successfully"},
		{ErrNoData, "no data available"},
		{errors.Wrap(ErrNoData, "generating"), "no data available"},
		{&ComputationError{Stage: StateCompiling, Err: errors.New("boom")}, "computation failed"},
		{&DeliveryError{Channel: ChannelEmail, Err: errors.New("smtp down")}, "delivery failed"},
		{errors.Wrap(&SourceError{Err: errors.New("timeout")}, "fetching"), "records unavailable"},
		{errors.New("unexpected"), "computation failed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusMessage(tt.err))
	}
}
