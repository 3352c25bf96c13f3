package dig_container

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/alama/apps/api/echo"
	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/report"
	cloudsvc "github.com/trezcool/alama/services/cloud"
	emailsvc "github.com/trezcool/alama/services/email"
	logsvc "github.com/trezcool/alama/services/logger"
	"github.com/trezcool/alama/services/scheduler"
	"github.com/trezcool/alama/storage/database"
	inmemdb "github.com/trezcool/alama/storage/database/inmem"
	boiledrepos "github.com/trezcool/alama/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/alama/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Storage holds the repositories; DB is nil with the in-memory engine.
	Storage struct {
		dig.Out
		DB      *sql.DB
		Records academic.Repository
		Reports report.Repository
	}

	serverParams struct {
		dig.In
		Conf       *core.Config
		Logger     core.Logger
		RecordSvc  *academic.Service
		ReportSvc  *report.Service
		Validate   *validator.Validate
		Translator ut.Translator
	}
)

func newZapLogger(conf *core.Config) *zap.Logger {
	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatal(errors.Wrap(err, "building zap logger").Error())
	}
	return zl
}

func newLogger(conf *core.Config, zl *zap.Logger) *logsvc.RollbarLogger {
	return logsvc.NewRollbarLogger(zl.Named("api"), conf)
}

func newDBLogger(conf *core.Config, zl *zap.Logger) core.Logger {
	return logsvc.NewRollbarLogger(zl.Named("db"), conf)
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) Storage {
	if conf.Database.Engine == "memory" {
		loggerParam.Logger.Warn("using the in-memory database: data is lost on exit")
		db := inmemdb.Open()
		return Storage{Records: inmemdb.NewRecordRepository(db), Reports: inmemdb.NewReportRepository(db)}
	}

	setUp := func() (*sql.DB, error) {
		ctx := context.Background()
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(ctx, db, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return Storage{DB: db, Records: boiledrepos.NewRecordRepository(db), Reports: sqlxrepos.NewReportRepository(db)}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newUploader(conf *core.Config, logger core.Logger) (report.Uploader, error) {
	return cloudsvc.NewUploader(conf.Cloud, logger)
}

func newReportService(
	conf *core.Config,
	records academic.Repository,
	reports report.Repository,
	deliverer *report.Deliverer,
	logger core.Logger,
) (*report.Service, error) {
	return report.NewService(conf, records, reports, deliverer, logger)
}

func newScheduler(conf *core.Config, svc *report.Service, logger core.Logger) (*scheduler.Scheduler, error) {
	return scheduler.New(conf, svc, logger)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		RecordSvc:  p.RecordSvc,
		ReportSvc:  p.ReportSvc,
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newZapLogger))
	must(c.Provide(newLogger))
	must(c.Provide(func(l *logsvc.RollbarLogger) core.Logger { return l }))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(newUploader))
	must(c.Provide(report.NewDeliverer))
	must(c.Provide(academic.NewService))
	must(c.Provide(newReportService))
	must(c.Provide(newScheduler))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newServer))

	if os.Getenv("DIG_VISUALIZE") != "" {
		_ = dig.Visualize(c, os.Stdout)
	}

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
