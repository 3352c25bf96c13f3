package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/report"
)

type reportOptions struct {
	semester   string
	format     report.Format
	out        string
	source     string // store | db
	concurrent bool
}

func (cli *commandLine) recordSource(name string) (report.Source, error) {
	switch name {
	case "", "store":
		return cli.store, nil
	case "db":
		return cli.recordRepository()
	default:
		return nil, errors.Errorf("unknown record source %q: expected store or db", name)
	}
}

// report fetches the records, runs the pipeline and writes the export.
func (cli *commandLine) report(ctx context.Context, opts reportOptions) error {
	source, err := cli.recordSource(opts.source)
	if err != nil {
		return err
	}

	filter := &academic.QueryFilter{Semester: opts.semester}
	filter.Clean()
	records, err := source.QueryRecords(ctx, filter, []core.DBOrdering{{Field: "created_at", Ascending: true}})
	if err != nil {
		return &report.SourceError{Err: err}
	}

	pipeline, err := report.NewPipeline(cli.logger)
	if err != nil {
		return err
	}
	rep, err := pipeline.Run(ctx, records, report.Options{
		DataSource: cli.conf.Reports.DataSource,
		Semester:   filter.Semester,
		Concurrent: opts.concurrent,
		OnProgress: func(p report.Progress) {
			fmt.Fprintf(cli.out, "[%3.0f%%] %s\n", p.Percent, p.Message)
		},
	})
	if err != nil {
		return err
	}

	r, err := report.Render(&report.Archive{Report: *rep, Records: records}, opts.format)
	if err != nil {
		return err
	}
	out := opts.out
	if out == "" {
		out = opts.format.FileName(time.Now())
	}
	if err := writeFile(out, r.Content); err != nil {
		return errors.Wrapf(err, "writing %s", out)
	}

	fmt.Fprintf(cli.out, "report %s: %d students, average GPA %.2f\n", rep.ID, rep.Summary.TotalStudents, rep.Statistics.Average)
	fmt.Fprintf(cli.out, "written to %s\n", out)
	return nil
}
