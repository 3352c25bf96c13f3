package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/alama/core"
	logsvc "github.com/trezcool/alama/services/logger"
	"github.com/trezcool/alama/services/recordstore"
)

func main() {
	os.Exit(run())
}

func run() int {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatal(err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	defer logger.Sync()

	session := core.NewSession(conf.RecordStore.SessionFile)
	if err := session.Load(); err != nil {
		logger.Warn("loading session", err)
	}
	store, err := recordstore.NewClient(conf, session, logger)
	if err != nil {
		logger.Error("setting up the record store client", err)
		return 1
	}

	cli := commandLine{
		conf:   conf,
		logger: logger,
		out:    os.Stdout,
		store:  store,
	}
	defer cli.close()

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		return 1
	}
	return 0
}
