package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/grading"
	"github.com/trezcool/alama/core/report"
	"github.com/trezcool/alama/storage/database"
	boiledrepos "github.com/trezcool/alama/storage/database/sqlboiler"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	openDBFunc       = database.Open     // mockable

	errHelp = errors.New("help provided")
)

type (
	recordStore interface {
		Login(ctx context.Context, username, password string) error
		Logout() error
		QueryRecords(ctx context.Context, filter *academic.QueryFilter, ordering []core.DBOrdering) ([]academic.Record, error)
	}

	commandLine struct {
		conf   *core.Config
		logger core.Logger
		out    io.Writer
		store  recordStore
		db     *sql.DB            // opened on first use
		repo   academic.Repository // records stored in db
	}
)

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  login -username USERNAME - log in to the record store. The password is prompted next.")
	fmt.Fprintln(cli.out, "  logout - forget the record store session")
	fmt.Fprintln(cli.out, "  gpa -marks 85,72 -credits 3,4 - compute a semester's GPA")
	fmt.Fprintln(cli.out, "  report [-semester S] [-format csv|txt|json] [-out FILE] [-source store|db] - generate a performance report")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	ctx := context.Background()

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginUname := loginCmd.String("username", "", "The record store username. The password will be prompted next.")

	gpaCmd := flag.NewFlagSet("gpa", flag.ContinueOnError)
	gpaMarks := gpaCmd.String("marks", "", "Comma separated course marks, e.g: 85,72")
	gpaCredits := gpaCmd.String("credits", "", "Comma separated course credits, in the same order as the marks")

	reportCmd := flag.NewFlagSet("report", flag.ContinueOnError)
	reportSemester := reportCmd.String("semester", cli.conf.Reports.Semester, "The semester to report on, or \"all\"")
	reportFormat := reportCmd.String("format", string(report.FormatCSV), "The export format: csv, txt or json")
	reportOut := reportCmd.String("out", "", "The output file. Defaults to the dated report name")
	reportSource := reportCmd.String("source", "store", "Where to read records from: store or db")
	reportConcurrent := reportCmd.Bool("concurrent", cli.conf.Reports.Concurrent, "Run the independent stages concurrently")

	for _, set := range []*flag.FlagSet{loginCmd, gpaCmd, reportCmd} {
		set.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])

	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		if err := cli.store.Login(ctx, *loginUname, string(pwd)); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "logged in as %s\n", *loginUname)
		return nil

	case "logout":
		if err := cli.store.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "logged out")
		return nil

	case "gpa":
		if err := gpaCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *gpaMarks == "" {
			gpaCmd.Usage()
			return errHelp
		}
		courses, err := parseCourses(*gpaMarks, *gpaCredits)
		if err != nil {
			return err
		}
		cli.printGPA(courses)
		return nil

	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return err
		}
		format, err := report.ParseFormat(*reportFormat)
		if err != nil {
			return err
		}
		return cli.report(ctx, reportOptions{
			semester:   *reportSemester,
			format:     format,
			out:        *reportOut,
			source:     *reportSource,
			concurrent: *reportConcurrent,
		})

	default:
		cli.printUsage()
		return errHelp
	}
}

// database opens the configured database once.
func (cli *commandLine) database() (*sql.DB, error) {
	if cli.db == nil {
		db, err := openDBFunc(cli.conf)
		if err != nil {
			return nil, err
		}
		cli.db = db
	}
	return cli.db, nil
}

func (cli *commandLine) close() {
	if cli.db != nil {
		_ = cli.db.Close()
	}
}

func (cli *commandLine) recordRepository() (academic.Repository, error) {
	if cli.repo == nil {
		db, err := cli.database()
		if err != nil {
			return nil, err
		}
		cli.repo = boiledrepos.NewRecordRepository(db)
	}
	return cli.repo, nil
}

func splitFloats(s, what string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q", what, strings.TrimSpace(p))
		}
		values = append(values, v)
	}
	return values, nil
}

// parseCourses pairs marks with credits; missing credits default to 1.
func parseCourses(marksArg, creditsArg string) ([]grading.Course, error) {
	marks, err := splitFloats(marksArg, "marks")
	if err != nil {
		return nil, err
	}
	credits, err := splitFloats(creditsArg, "credits")
	if err != nil {
		return nil, err
	}
	if len(credits) > len(marks) {
		return nil, fmt.Errorf("got %d credits for %d marks", len(credits), len(marks))
	}

	courses := make([]grading.Course, 0, len(marks))
	for i, m := range marks {
		if m < 0 || m > 100 {
			return nil, fmt.Errorf("marks must be between 0 and 100 (got %v)", m)
		}
		c := grading.Course{Name: fmt.Sprintf("Course %d", i+1), Marks: m, Credits: 1}
		if i < len(credits) {
			c.Credits = credits[i]
		}
		courses = append(courses, c)
	}
	return grading.GradeCourses(courses), nil
}

func (cli *commandLine) printGPA(courses []grading.Course) {
	for _, c := range courses {
		fmt.Fprintf(cli.out, "%-10s %6.2f  %-3s x%v\n", c.Name, c.Marks, c.Grade, c.Credits)
	}
	gpa := grading.ComputeGPA(courses)
	fmt.Fprintf(cli.out, "GPA: %.2f (%s)\n", gpa, grading.TierFor(gpa))
}

func writeFile(path string, content []byte) error {
	return os.WriteFile(path, content, 0o644)
}
